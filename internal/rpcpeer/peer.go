// Package rpcpeer carries front-end traffic as newline-delimited JSON messages
// over any byte stream: stdio pipes, unix sockets or tcp connections.
package rpcpeer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"pkt.systems/frontline/core"
	"pkt.systems/frontline/internal/idle"
	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

// ErrClosed is the cause recorded when a peer is closed locally or the remote
// end hangs up.
var ErrClosed = errors.New("rpcpeer: closed")

// ErrNotStarted is returned for requests on a peer whose Start was never called.
var ErrNotStarted = errors.New("rpcpeer: not started")

// Error codes used in error replies.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// RemoteError is an error reply received from the other end.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// Handler serves messages received from the other end. The result is sent
// back only when the message was a request.
type Handler func(ctx context.Context, method string, params json.RawMessage) (any, error)

// Option configures a Peer.
type Option func(*Peer)

// WithLogger sets the peer logger. The default is the logger of the context
// passed to Start.
func WithLogger(logger pslog.Logger) Option {
	return func(p *Peer) { p.logger = logger }
}

// WithRequestTimeout bounds how long SendRequest waits for a reply. Zero
// waits forever.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Peer) { p.timeout = d }
}

// WithIdleHandler sets the handler that receives idle and timer tokens.
func WithIdleHandler(h idle.Handler) Option {
	return func(p *Peer) { p.idleHandler = h }
}

// WithHandler sets the handler for incoming requests and notifications.
func WithHandler(h Handler) Option {
	return func(p *Peer) { p.handler = h }
}

type message struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

type reply struct {
	result json.RawMessage
	err    *RemoteError
}

type closeCause struct {
	kind schema.TransportErrorKind
	err  error
}

// Peer is one end of a JSON stream connection. It implements core.Peer.
type Peer struct {
	reader      *bufio.Reader
	writer      io.WriteCloser
	logger      pslog.Logger
	timeout     time.Duration
	handler     Handler
	idleHandler idle.Handler
	sched       *idle.Scheduler

	mu       sync.Mutex
	cond     *sync.Cond
	queue    [][]byte
	draining bool
	started  bool
	closed   bool
	cause    *closeCause
	pending  map[uint64]chan reply
	nextID   uint64

	startOnce  sync.Once
	closeOnce  sync.Once
	done       chan struct{}
	writerDone chan struct{}
}

var _ core.Peer = (*Peer)(nil)

// New returns a peer reading from r and writing to w. Call Start before
// sending.
func New(r io.Reader, w io.WriteCloser, opts ...Option) *Peer {
	p := &Peer{
		reader:     bufio.NewReaderSize(r, 64*1024),
		writer:     w,
		pending:    make(map[uint64]chan reply),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Start runs the read loop and the writer. The peer closes when ctx ends.
func (p *Peer) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.logger == nil {
			p.logger = pslog.Ctx(ctx)
		}
		handler := p.idleHandler
		if handler == nil {
			logger := p.logger
			handler = func(token int) {
				logger.Trace("json peer idle token", "token", token)
			}
		}
		p.mu.Lock()
		p.sched = idle.New(handler, p.logger)
		p.started = true
		p.mu.Unlock()
		go p.writeLoop()
		go p.readLoop(ctx)
		go func() {
			select {
			case <-ctx.Done():
				p.Close()
			case <-p.done:
			}
		}()
	})
}

// Done is closed once the peer has shut down.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Err returns the failure that closed the peer, or nil when it closed
// cleanly or is still open.
func (p *Peer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cause == nil || errors.Is(p.cause.err, ErrClosed) || errors.Is(p.cause.err, io.EOF) {
		return nil
	}
	return p.cause.err
}

// SendNotification queues a notification. It never blocks on the network;
// encode failures and sends after close are logged and dropped.
func (p *Peer) SendNotification(method string, params any) {
	data, err := encode(message{Method: method}, params)
	if err != nil {
		p.log().Warn("json peer notification encode failed", "method", method, "err", err)
		return
	}
	if !p.enqueue(data) {
		p.log().Debug("json peer notification dropped", "method", method, "reason", "closed")
		return
	}
	p.log().Trace("json peer notification queued", "method", method, "bytes", len(data))
}

// SendRequest sends a request and blocks until its reply arrives. Failures
// are returned as *schema.TransportError.
func (p *Peer) SendRequest(method string, params any) (json.RawMessage, error) {
	p.mu.Lock()
	if !p.started && !p.closed {
		p.mu.Unlock()
		return nil, schema.NewTransportError(schema.TransportErrorUnavailable, method, ErrNotStarted)
	}
	p.nextID++
	id := p.nextID
	ch := make(chan reply, 1)
	p.pending[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	data, err := encode(message{ID: &id, Method: method}, params)
	if err != nil {
		return nil, schema.NewTransportError(schema.TransportErrorEncode, method, err)
	}
	log := p.log().With("method", method, "id", id)
	if !p.enqueue(data) {
		return nil, p.closedError(method)
	}
	log.Trace("json peer request sent")

	var timeout <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case r := <-ch:
		if r.err != nil {
			log.Warn("json peer request failed", "code", r.err.Code, "message", r.err.Message)
			return nil, schema.NewTransportError(schema.TransportErrorRemote, method, r.err)
		}
		log.Trace("json peer reply received", "bytes", len(r.result))
		return r.result, nil
	case <-p.done:
		return nil, p.closedError(method)
	case <-timeout:
		log.Warn("json peer request timed out", "timeout", p.timeout)
		return nil, schema.NewTransportError(schema.TransportErrorTimeout, method, fmt.Errorf("no reply after %s", p.timeout))
	}
}

// ScheduleIdle queues token on the peer's idle scheduler.
func (p *Peer) ScheduleIdle(token int) {
	if sched := p.scheduler(); sched != nil {
		sched.ScheduleIdle(token)
	}
}

// ScheduleTimer arms a timer on the peer's idle scheduler.
func (p *Peer) ScheduleTimer(at time.Time, token int) {
	if sched := p.scheduler(); sched != nil {
		sched.ScheduleTimer(at, token)
	}
}

// Shutdown stops accepting new messages, waits until queued messages are
// written or ctx ends, then closes the peer.
func (p *Peer) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.draining = true
	p.cond.Broadcast()
	p.mu.Unlock()
	var err error
	select {
	case <-p.writerDone:
	case <-p.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.Close()
	return err
}

// Close closes the connection immediately. Queued messages are dropped and
// pending requests fail with a closed transport error.
func (p *Peer) Close() error {
	p.shutdown(closeCause{kind: schema.TransportErrorClosed, err: ErrClosed})
	return nil
}

func (p *Peer) shutdown(cause closeCause) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		if p.cause == nil {
			p.cause = &cause
		}
		p.closed = true
		p.queue = nil
		p.cond.Broadcast()
		sched := p.sched
		p.mu.Unlock()
		close(p.done)
		if sched != nil {
			sched.Close()
		}
		if err := p.writer.Close(); err != nil {
			p.log().Trace("json peer close", "err", err)
		}
		if errors.Is(cause.err, ErrClosed) || errors.Is(cause.err, io.EOF) {
			p.log().Debug("json peer closed")
		} else {
			p.log().Warn("json peer closed", "kind", string(cause.kind), "err", cause.err)
		}
	})
}

func (p *Peer) closedError(method string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cause == nil {
		return schema.NewTransportError(schema.TransportErrorClosed, method, ErrClosed)
	}
	return schema.NewTransportError(p.cause.kind, method, p.cause.err)
}

func (p *Peer) enqueue(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.draining {
		return false
	}
	p.queue = append(p.queue, data)
	p.cond.Signal()
	return true
}

func (p *Peer) scheduler() *idle.Scheduler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sched
}

func (p *Peer) log() pslog.Logger {
	if p.logger == nil {
		return pslog.Ctx(context.Background())
	}
	return p.logger
}

func (p *Peer) writeLoop() {
	defer close(p.writerDone)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed && !p.draining {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		batch := p.queue
		p.queue = nil
		p.mu.Unlock()
		for _, data := range batch {
			if _, err := p.writer.Write(data); err != nil {
				p.shutdown(closeCause{kind: schema.TransportErrorUnavailable, err: fmt.Errorf("write: %w", err)})
				return
			}
		}
	}
}

func (p *Peer) readLoop(ctx context.Context) {
	for {
		line, err := p.reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			p.dispatch(ctx, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.shutdown(closeCause{kind: schema.TransportErrorClosed, err: io.EOF})
			} else {
				p.shutdown(closeCause{kind: schema.TransportErrorUnavailable, err: fmt.Errorf("read: %w", err)})
			}
			return
		}
	}
}

func (p *Peer) dispatch(ctx context.Context, line []byte) {
	var msg message
	if err := json.Unmarshal(line, &msg); err != nil {
		p.log().Warn("json peer malformed message", "err", err, "bytes", len(line))
		return
	}
	if msg.Method == "" {
		if msg.ID == nil {
			p.log().Warn("json peer message without method or id")
			return
		}
		p.mu.Lock()
		ch, ok := p.pending[*msg.ID]
		p.mu.Unlock()
		if !ok {
			p.log().Debug("json peer reply for unknown request", "id", *msg.ID)
			return
		}
		select {
		case ch <- reply{result: msg.Result, err: msg.Error}:
		default:
			p.log().Debug("json peer duplicate reply", "id", *msg.ID)
		}
		return
	}
	if p.handler == nil {
		p.log().Debug("json peer message unhandled", "method", msg.Method)
		if msg.ID != nil {
			p.respond(*msg.ID, nil, &RemoteError{Code: CodeMethodNotFound, Message: "no handler"})
		}
		return
	}
	result, err := p.handler(ctx, msg.Method, msg.Params)
	if err != nil {
		p.log().Warn("json peer handler failed", "method", msg.Method, "err", err)
	}
	if msg.ID == nil {
		return
	}
	if err != nil {
		p.respond(*msg.ID, nil, toRemoteError(err))
		return
	}
	p.respond(*msg.ID, result, nil)
}

func (p *Peer) respond(id uint64, result any, remoteErr *RemoteError) {
	var data []byte
	var err error
	if remoteErr != nil {
		data, err = encode(message{ID: &id, Error: remoteErr}, nil)
	} else {
		var raw []byte
		raw, err = json.Marshal(result)
		if err == nil {
			data, err = encode(message{ID: &id, Result: raw}, nil)
		}
	}
	if err != nil {
		p.log().Error("json peer reply encode failed", "id", id, "err", err)
		data, _ = encode(message{ID: &id, Error: &RemoteError{Code: CodeInternal, Message: err.Error()}}, nil)
	}
	if !p.enqueue(data) {
		p.log().Debug("json peer reply dropped", "id", id, "reason", "closed")
	}
}

func toRemoteError(err error) *RemoteError {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr
	}
	if errors.Is(err, core.ErrUnknownMethod) {
		return &RemoteError{Code: CodeMethodNotFound, Message: err.Error()}
	}
	return &RemoteError{Code: CodeInvalidParams, Message: err.Error()}
}

// encode serializes msg with params as one newline-terminated line.
func encode(msg message, params any) ([]byte, error) {
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		msg.Params = raw
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
