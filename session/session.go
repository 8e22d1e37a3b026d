// Package session is the view and buffer registry that sits in front of a
// core.Client. It resolves views and builds the per-event context the editing
// logic uses to reach the front-end.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"pkt.systems/frontline/core"
	"pkt.systems/frontline/internal/logx"
	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

// ErrUnknownBuffer is returned when a view is requested for a buffer the
// session does not hold.
var ErrUnknownBuffer = errors.New("unknown buffer")

// Buffer is the text behind one or more views. Lines keep their trailing
// newline.
type Buffer struct {
	ID       schema.BufferID
	Path     string
	Lines    []string
	Pristine bool
}

// View is one window onto a buffer.
type View struct {
	ID       schema.ViewID
	BufferID schema.BufferID
	Line     int
	Col      int
}

// Session owns the client, the id counter and every open view and buffer.
type Session struct {
	ctx     context.Context
	client  *core.Client
	counter *Counter
	logger  pslog.Logger

	mu      sync.Mutex
	views   map[schema.ViewID]*View
	buffers map[schema.BufferID]*Buffer
}

// New constructs a session around client. The logger is taken from ctx.
func New(ctx context.Context, client *core.Client) *Session {
	if client == nil {
		panic("session: nil client")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Session{
		ctx:     ctx,
		client:  client,
		counter: &Counter{},
		logger:  pslog.Ctx(ctx),
		views:   make(map[schema.ViewID]*View),
		buffers: make(map[schema.BufferID]*Buffer),
	}
}

// Client returns the session's front-end client.
func (s *Session) Client() *core.Client {
	return s.client
}

// AddView opens path in a new buffer and returns the id of a new view onto
// it. An empty path opens an empty buffer; a path that does not exist yet
// opens an empty buffer bound to that path.
func (s *Session) AddView(path string) (schema.ViewID, error) {
	log := logx.WithPath(s.logger, path)
	lines, err := readLines(path)
	if err != nil {
		log.Warn("session view open failed", "err", err)
		return 0, err
	}
	viewID := s.counter.NextViewID()
	bufferID := s.counter.NextBufferID()

	s.mu.Lock()
	s.buffers[bufferID] = &Buffer{ID: bufferID, Path: path, Lines: lines, Pristine: true}
	s.views[viewID] = &View{ID: viewID, BufferID: bufferID}
	s.mu.Unlock()

	log.Info("session view opened", "view", viewID.String(), "buffer", bufferID.String(), "lines", len(lines))
	return viewID, nil
}

// AddViewForBuffer opens another view onto an existing buffer.
func (s *Session) AddViewForBuffer(bufferID schema.BufferID) (schema.ViewID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buffers[bufferID]; !ok {
		return 0, fmt.Errorf("buffer %s: %w", bufferID, ErrUnknownBuffer)
	}
	viewID := s.counter.NextViewID()
	s.views[viewID] = &View{ID: viewID, BufferID: bufferID}
	s.logger.Debug("session view added", "view", viewID.String(), "buffer", bufferID.String())
	return viewID, nil
}

// CloseView drops the view and, when no other view references it, its
// buffer. It reports whether the view existed.
func (s *Session) CloseView(viewID schema.ViewID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[viewID]
	if !ok {
		return false
	}
	delete(s.views, viewID)
	for _, other := range s.views {
		if other.BufferID == view.BufferID {
			s.logger.Debug("session view closed", "view", viewID.String(), "buffer", view.BufferID.String())
			return true
		}
	}
	delete(s.buffers, view.BufferID)
	s.logger.Debug("session view closed", "view", viewID.String(), "buffer", view.BufferID.String(), "buffer_dropped", true)
	return true
}

// Views returns the open view ids in ascending order.
func (s *Session) Views() []schema.ViewID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]schema.ViewID, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Buffer returns a copy of the buffer behind viewID.
func (s *Session) Buffer(viewID schema.ViewID) (Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[viewID]
	if !ok {
		return Buffer{}, false
	}
	buf := *s.buffers[view.BufferID]
	buf.Lines = append([]string(nil), buf.Lines...)
	return buf, true
}

// MakeContext builds the event context for viewID.
func (s *Session) MakeContext(viewID schema.ViewID) (*EventContext, bool) {
	s.mu.Lock()
	view, ok := s.views[viewID]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	buf := s.buffers[view.BufferID]
	ec := &EventContext{
		ViewID:   viewID,
		BufferID: view.BufferID,
		Path:     buf.Path,
		lines:    append([]string(nil), buf.Lines...),
		pristine: buf.Pristine,
		session:  s,
		client:   s.client,
	}
	s.mu.Unlock()

	log := logx.WithViewBuffer(s.ctx, viewID, view.BufferID)
	ec.ctx = logx.ContextWithViewLogger(s.ctx, log, viewID, view.BufferID)
	ec.logger = log
	return ec, true
}

func (s *Session) setScroll(viewID schema.ViewID, line, col int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if view, ok := s.views[viewID]; ok {
		view.Line, view.Col = line, col
	}
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return splitLines(string(data)), nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
