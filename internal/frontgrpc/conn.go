package frontgrpc

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// msgStream is the part of grpc.ClientStream and grpc.ServerStream used here.
type msgStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// streamConn presents a Session stream as a byte stream of newline-delimited
// JSON envelopes. Each line written becomes one BytesValue message holding
// the line verbatim and each received message is read back as one line.
type streamConn struct {
	stream    msgStream
	closeSend func() error

	rbuf     bytes.Buffer
	recvOnce sync.Once
	recvDone chan struct{}

	mu         sync.Mutex
	wbuf       []byte
	halfClosed bool
}

func newStreamConn(stream msgStream, closeSend func() error) *streamConn {
	return &streamConn{stream: stream, closeSend: closeSend, recvDone: make(chan struct{})}
}

// Read is called from a single reader goroutine.
func (c *streamConn) Read(p []byte) (int, error) {
	for c.rbuf.Len() == 0 {
		msg := new(wrapperspb.BytesValue)
		if err := c.stream.RecvMsg(msg); err != nil {
			c.recvOnce.Do(func() { close(c.recvDone) })
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, wrapTransportError("session", err)
		}
		data := bytes.TrimSpace(msg.GetValue())
		if len(data) == 0 {
			continue
		}
		c.rbuf.Write(data)
		c.rbuf.WriteByte('\n')
	}
	return c.rbuf.Read(p)
}

func (c *streamConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halfClosed {
		return 0, io.ErrClosedPipe
	}
	c.wbuf = append(c.wbuf, p...)
	for {
		idx := bytes.IndexByte(c.wbuf, '\n')
		if idx == -1 {
			break
		}
		line := bytes.TrimSpace(c.wbuf[:idx])
		c.wbuf = c.wbuf[idx+1:]
		if len(line) == 0 {
			continue
		}
		msg := wrapperspb.Bytes(bytes.Clone(line))
		if err := c.stream.SendMsg(msg); err != nil {
			return 0, wrapTransportError("session", err)
		}
	}
	return len(p), nil
}

// Close half-closes the client side of the stream. Server streams end when
// the handler returns, so Close is a no-op there.
func (c *streamConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.halfClosed || c.closeSend == nil {
		c.halfClosed = true
		return nil
	}
	c.halfClosed = true
	return c.closeSend()
}

// Received is closed once the remote end has finished sending.
func (c *streamConn) Received() <-chan struct{} {
	return c.recvDone
}
