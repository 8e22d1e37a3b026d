// Package idle runs idle and timer tokens on behalf of a front-end or a
// transport peer.
package idle

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// Handler receives tokens when they become due.
type Handler func(token int)

// Scheduler runs tokens on a single worker goroutine. Idle tokens run in
// scheduling order; timer tokens run once their deadline passes.
type Scheduler struct {
	handler Handler
	logger  pslog.Logger

	mu     sync.Mutex
	queue  []int
	timers map[*time.Timer]struct{}
	closed bool

	wake chan struct{}
	done chan struct{}
}

// New starts a scheduler. A nil handler discards tokens.
func New(handler Handler, logger pslog.Logger) *Scheduler {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	s := &Scheduler{
		handler: handler,
		logger:  logger,
		timers:  make(map[*time.Timer]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// ScheduleIdle queues token to run once earlier tokens have run.
func (s *Scheduler) ScheduleIdle(token int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, token)
	s.mu.Unlock()
	s.signal()
}

// ScheduleTimer queues token to run at at. Deadlines in the past run as soon
// as possible.
func (s *Scheduler) ScheduleTimer(at time.Time, token int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(time.Until(at), func() {
		s.mu.Lock()
		delete(s.timers, timer)
		s.mu.Unlock()
		s.ScheduleIdle(token)
	})
	s.timers[timer] = struct{}{}
}

// Pending returns the number of queued idle tokens and armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) + len(s.timers)
}

// Close stops pending timers and the worker. Queued idle tokens are dropped.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
	s.queue = nil
	s.mu.Unlock()
	close(s.done)
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if s.closed || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			token := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			s.dispatch(token)
		}
	}
}

func (s *Scheduler) dispatch(token int) {
	if s.handler == nil {
		s.logger.Trace("idle token dropped", "token", token)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("idle handler panicked", "token", token, "panic", r)
		}
	}()
	s.handler(token)
}
