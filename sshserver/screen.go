package sshserver

import (
	"io"
	"strings"
)

type screen struct {
	out io.Writer
	alt bool
}

func newScreen(out io.Writer, alt bool) *screen {
	return &screen{out: out, alt: alt}
}

func (s *screen) Enter() {
	if s.alt {
		_, _ = io.WriteString(s.out, "\x1b[?1049h\x1b[H\x1b[2J\x1b[?25l")
	}
}

func (s *screen) Exit() {
	if s.alt {
		_, _ = io.WriteString(s.out, "\x1b[?1049l\x1b[?25h")
	}
}

// Render repaints the whole screen. Without a terminal the frame is written
// as plain lines separated by a blank line.
func (s *screen) Render(lines []string) error {
	var b strings.Builder
	if s.alt {
		b.WriteString("\x1b[H\x1b[2J")
	}
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString(line)
	}
	if !s.alt {
		b.WriteString("\r\n\r\n")
	}
	_, err := io.WriteString(s.out, b.String())
	return err
}
