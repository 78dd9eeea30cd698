package voice

import (
	"strings"
	"time"

	"github.com/seu-repo/alfa-voz/internal/domain"
)

// Outcome says what the activity machine decided for one utterance.
type Outcome int

const (
	// OutcomeRoute hands the utterance to the classifiers.
	OutcomeRoute Outcome = iota
	// OutcomeKeepAlive means the wake word was heard while active.
	OutcomeKeepAlive
	// OutcomeWoke means the wake word moved the machine from suspended to active.
	OutcomeWoke
	// OutcomeDiscarded means the machine is suspended and the wake word was absent.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRoute:
		return "route"
	case OutcomeKeepAlive:
		return "keep_alive"
	case OutcomeWoke:
		return "woke"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Stopper is the part of *time.Timer the machine needs.
type Stopper interface {
	Stop() bool
}

// Scheduler arms a single-shot timer.
type Scheduler func(d time.Duration, fire func()) Stopper

func afterFunc(d time.Duration, fire func()) Stopper {
	return time.AfterFunc(d, fire)
}

// ActivityOption configures an ActivityMachine.
type ActivityOption func(*ActivityMachine)

// WithScheduler replaces time.AfterFunc, mainly for tests.
func WithScheduler(s Scheduler) ActivityOption {
	return func(m *ActivityMachine) {
		m.schedule = s
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ActivityOption {
	return func(m *ActivityMachine) {
		m.now = now
	}
}

// ActivityMachine tracks whether the assistant is listening for commands.
//
// It is not safe for concurrent use. The timer callback only reports the
// generation it was armed with; the owner must feed it back through Expire
// from the same goroutine that calls Observe.
type ActivityMachine struct {
	wakeWord string
	idle     time.Duration
	schedule Scheduler
	now      func() time.Time
	onExpire func(generation uint64)

	state      domain.ActivityState
	deadline   time.Time
	generation uint64
	timer      Stopper
}

func NewActivityMachine(wakeWord string, idle time.Duration, opts ...ActivityOption) *ActivityMachine {
	m := &ActivityMachine{
		wakeWord: wakeWord,
		idle:     idle,
		schedule: afterFunc,
		now:      time.Now,
		state:    domain.StateActive,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start arms the inactivity timer. onExpire runs on the timer goroutine.
func (m *ActivityMachine) Start(onExpire func(generation uint64)) {
	m.onExpire = onExpire
	if m.state == domain.StateActive {
		m.resetDeadline()
	}
}

// Stop cancels the pending timer.
func (m *ActivityMachine) Stop() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
}

// Observe applies an utterance to the machine. canonical must already be normalized.
func (m *ActivityMachine) Observe(canonical string) Outcome {
	heardWakeWord := strings.Contains(canonical, m.wakeWord)

	if m.state == domain.StateSuspended {
		if !heardWakeWord {
			return OutcomeDiscarded
		}
		m.state = domain.StateActive
		m.resetDeadline()
		return OutcomeWoke
	}

	m.resetDeadline()
	if heardWakeWord {
		return OutcomeKeepAlive
	}
	return OutcomeRoute
}

// Expire handles a timer firing. It returns true when the machine moved to
// suspended. Stale generations and expiries while suspended are ignored.
func (m *ActivityMachine) Expire(generation uint64) bool {
	if generation != m.generation || m.state != domain.StateActive {
		return false
	}
	m.state = domain.StateSuspended
	m.timer = nil
	m.deadline = time.Time{}
	return true
}

func (m *ActivityMachine) State() domain.ActivityState {
	return m.state
}

// Deadline is when the machine suspends itself; zero while suspended.
func (m *ActivityMachine) Deadline() time.Time {
	return m.deadline
}

func (m *ActivityMachine) resetDeadline() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.generation++
	m.deadline = m.now().Add(m.idle)

	generation := m.generation
	notify := m.onExpire
	m.timer = m.schedule(m.idle, func() {
		if notify != nil {
			notify(generation)
		}
	})
}
