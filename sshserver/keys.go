package sshserver

import (
	"bufio"
	"io"
)

type keyKind int

const (
	keyQuit keyKind = iota
	keyRedraw
	keyNextView
	keyPrevView
)

// readKeys maps viewer input to keys until r fails. Unbound bytes are
// ignored.
func readKeys(r io.Reader, out chan<- keyKind) {
	defer close(out)
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		switch b {
		case 'q', 0x03, 0x04:
			out <- keyQuit
		case 0x0c, 'r':
			out <- keyRedraw
		case 'n', '\t':
			out <- keyNextView
		case 'p':
			out <- keyPrevView
		}
	}
}
