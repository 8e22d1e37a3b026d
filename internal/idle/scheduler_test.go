package idle

import (
	"sync"
	"testing"
	"time"
)

type tokenLog struct {
	mu     sync.Mutex
	tokens []int
	ch     chan int
}

func newTokenLog() *tokenLog {
	return &tokenLog{ch: make(chan int, 16)}
}

func (l *tokenLog) handle(token int) {
	l.mu.Lock()
	l.tokens = append(l.tokens, token)
	l.mu.Unlock()
	l.ch <- token
}

func (l *tokenLog) wait(t *testing.T) int {
	t.Helper()
	select {
	case token := <-l.ch:
		return token
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for token")
		return 0
	}
}

func TestIdleTokensRunInOrder(t *testing.T) {
	log := newTokenLog()
	s := New(log.handle, nil)
	defer s.Close()
	s.ScheduleIdle(1)
	s.ScheduleIdle(2)
	s.ScheduleIdle(3)
	for want := 1; want <= 3; want++ {
		if got := log.wait(t); got != want {
			t.Fatalf("expected token %d, got %d", want, got)
		}
	}
}

func TestTimerFiresAfterDeadline(t *testing.T) {
	log := newTokenLog()
	s := New(log.handle, nil)
	defer s.Close()
	start := time.Now()
	s.ScheduleTimer(start.Add(30*time.Millisecond), 7)
	if got := log.wait(t); got != 7 {
		t.Fatalf("expected token 7, got %d", got)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("timer fired early after %s", elapsed)
	}
}

func TestPastDeadlineRunsImmediately(t *testing.T) {
	log := newTokenLog()
	s := New(log.handle, nil)
	defer s.Close()
	s.ScheduleTimer(time.Now().Add(-time.Hour), 4)
	if got := log.wait(t); got != 4 {
		t.Fatalf("expected token 4, got %d", got)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	log := newTokenLog()
	s := New(log.handle, nil)
	s.ScheduleTimer(time.Now().Add(50*time.Millisecond), 1)
	if s.Pending() != 1 {
		t.Fatalf("expected one pending timer, got %d", s.Pending())
	}
	s.Close()
	s.ScheduleIdle(2)
	select {
	case token := <-log.ch:
		t.Fatalf("unexpected token %d after close", token)
	case <-time.After(120 * time.Millisecond):
	}
	s.Close()
}

func TestHandlerPanicDoesNotStopWorker(t *testing.T) {
	log := newTokenLog()
	s := New(func(token int) {
		if token == 1 {
			panic("boom")
		}
		log.handle(token)
	}, nil)
	defer s.Close()
	s.ScheduleIdle(1)
	s.ScheduleIdle(2)
	if got := log.wait(t); got != 2 {
		t.Fatalf("expected token 2, got %d", got)
	}
}
