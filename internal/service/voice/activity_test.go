package voice

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seu-repo/alfa-voz/internal/domain"
)

type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool {
	return !t.stopped.Swap(true)
}

// fakeScheduler records armed timers so tests decide when they fire.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, fire func()) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fire: fire}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *fakeScheduler) latest() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

func newTestMachine(sched *fakeScheduler, now *time.Time) *ActivityMachine {
	return NewActivityMachine("alfa", 10*time.Second,
		WithScheduler(sched.schedule),
		WithClock(func() time.Time { return *now }),
	)
}

func TestActivityMachine_StartsActiveWithDeadline(t *testing.T) {
	// Arrange
	sched := &fakeScheduler{}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(sched, &now)

	// Act
	m.Start(nil)

	// Assert
	if m.State() != domain.StateActive {
		t.Errorf("expected active, got %s", m.State())
	}
	if sched.count() != 1 {
		t.Fatalf("expected one armed timer, got %d", sched.count())
	}
	if sched.latest().delay != 10*time.Second {
		t.Errorf("expected 10s idle timer, got %v", sched.latest().delay)
	}
	if !m.Deadline().Equal(now.Add(10 * time.Second)) {
		t.Errorf("unexpected deadline %v", m.Deadline())
	}
}

func TestActivityMachine_ActiveUtteranceResetsDeadline(t *testing.T) {
	sched := &fakeScheduler{}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMachine(sched, &now)
	m.Start(nil)

	now = now.Add(4 * time.Second)
	if got := m.Observe("avanza"); got != OutcomeRoute {
		t.Fatalf("expected route, got %s", got)
	}

	if !m.Deadline().Equal(now.Add(10 * time.Second)) {
		t.Errorf("deadline was not reset, got %v", m.Deadline())
	}
	if !sched.timer(0).stopped.Load() {
		t.Error("previous timer should have been stopped")
	}
	if sched.count() != 2 {
		t.Errorf("expected a new timer, got %d timers", sched.count())
	}
}

func TestActivityMachine_WakeWordWhileActiveIsKeepAlive(t *testing.T) {
	sched := &fakeScheduler{}
	now := time.Now()
	m := newTestMachine(sched, &now)
	m.Start(nil)

	if got := m.Observe("oye alfa"); got != OutcomeKeepAlive {
		t.Errorf("expected keep_alive, got %s", got)
	}
	if m.State() != domain.StateActive {
		t.Errorf("expected active, got %s", m.State())
	}
	if sched.count() != 2 {
		t.Errorf("keep-alive must reset the timer, got %d timers", sched.count())
	}
}

func TestActivityMachine_ExpireSuspends(t *testing.T) {
	sched := &fakeScheduler{}
	now := time.Now()
	m := newTestMachine(sched, &now)

	var fired []uint64
	m.Start(func(gen uint64) { fired = append(fired, gen) })

	sched.latest().fire()
	if len(fired) != 1 {
		t.Fatalf("expected callback, got %d calls", len(fired))
	}

	if !m.Expire(fired[0]) {
		t.Fatal("expected expiry to suspend")
	}
	if m.State() != domain.StateSuspended {
		t.Errorf("expected suspended, got %s", m.State())
	}
	if !m.Deadline().IsZero() {
		t.Errorf("expected zero deadline while suspended, got %v", m.Deadline())
	}

	if m.Expire(fired[0]) {
		t.Error("second expiry while suspended must be ignored")
	}
}

func TestActivityMachine_StaleGenerationIgnored(t *testing.T) {
	sched := &fakeScheduler{}
	now := time.Now()
	m := newTestMachine(sched, &now)

	var fired []uint64
	m.Start(func(gen uint64) { fired = append(fired, gen) })

	m.Observe("avanza")
	sched.timer(0).fire()

	if m.Expire(fired[0]) {
		t.Error("a timer superseded by a reset must not suspend the machine")
	}
	if m.State() != domain.StateActive {
		t.Errorf("expected active, got %s", m.State())
	}
}

func TestActivityMachine_SuspendedDiscardsWithoutWakeWord(t *testing.T) {
	sched := &fakeScheduler{}
	now := time.Now()
	m := newTestMachine(sched, &now)

	var gen uint64
	m.Start(func(g uint64) { gen = g })
	sched.latest().fire()
	m.Expire(gen)
	timers := sched.count()

	if got := m.Observe("hola"); got != OutcomeDiscarded {
		t.Errorf("expected discarded, got %s", got)
	}
	if m.State() != domain.StateSuspended {
		t.Errorf("expected to remain suspended, got %s", m.State())
	}
	if sched.count() != timers {
		t.Error("discarded utterances must not arm a timer")
	}
}

func TestActivityMachine_WakeWordWakes(t *testing.T) {
	sched := &fakeScheduler{}
	now := time.Now()
	m := newTestMachine(sched, &now)

	var gen uint64
	m.Start(func(g uint64) { gen = g })
	sched.latest().fire()
	m.Expire(gen)

	now = now.Add(time.Minute)
	if got := m.Observe("alfa"); got != OutcomeWoke {
		t.Fatalf("expected woke, got %s", got)
	}
	if m.State() != domain.StateActive {
		t.Errorf("expected active, got %s", m.State())
	}
	if !m.Deadline().Equal(now.Add(10 * time.Second)) {
		t.Errorf("expected deadline reset on wake, got %v", m.Deadline())
	}

	// wake word embedded in a longer utterance
	sched.latest().fire()
	m.Expire(gen)
	if got := m.Observe("hola alfa avanza"); got != OutcomeWoke {
		t.Errorf("expected woke for embedded wake word, got %s", got)
	}
}

func TestActivityMachine_StopInvalidatesTimer(t *testing.T) {
	sched := &fakeScheduler{}
	now := time.Now()
	m := newTestMachine(sched, &now)

	var gen uint64
	m.Start(func(g uint64) { gen = g })
	m.Stop()
	sched.latest().fire()

	if m.Expire(gen) {
		t.Error("expiry after Stop must be ignored")
	}
	if !sched.latest().stopped.Load() {
		t.Error("Stop must stop the pending timer")
	}
}
