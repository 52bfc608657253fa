package deposit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ayokunle/totopool/internal/observability"
	"go.uber.org/zap"
)

// DefaultWindow is the client-side payment window applied when the
// collaborator's descriptor carries no authoritative expiry.
const DefaultWindow = 15 * time.Minute

const (
	defaultPollInterval  = 10 * time.Second
	defaultCountdownTick = time.Second
)

// StatusChecker is the external "get deposit status" collaborator.
type StatusChecker interface {
	DepositStatus(ctx context.Context, depositID string) (State, error)
}

// ErrWatchActive is returned when Watch is called while a deposit is
// still pending. The caller must Reset first.
var ErrWatchActive = errors.New("a deposit is already being watched")

// TransitionHook observes terminal transitions; used for metrics and
// event publishing. Called outside the monitor lock.
type TransitionHook func(desc Descriptor, from, to State)

// Monitor owns the lifecycle of one deposit: a 1-second countdown toward
// the payment window's end and a fixed-interval status poll, run as two
// independently cancellable tasks feeding a single compare-and-set state
// transition. Whichever observes a terminal condition first wins; the
// other becomes a no-op. Both tasks stop deterministically on any
// terminal state, on Reset, and when the watch context is torn down.
type Monitor struct {
	checker       StatusChecker
	pollInterval  time.Duration
	countdownTick time.Duration
	window        time.Duration
	onTransition  TransitionHook
	now           func() time.Time

	mu        sync.Mutex
	state     State
	desc      *Descriptor
	deadline  time.Time
	settledAt time.Time
	gen       uint64 // bumped on Reset; stale tasks and late responses carry the old value
	cancel    context.CancelFunc
	done      chan struct{}
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithPollInterval overrides the status poll cadence.
func WithPollInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithCountdownTick overrides the countdown resolution.
func WithCountdownTick(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.countdownTick = d
		}
	}
}

// WithWindow overrides the fallback payment window.
func WithWindow(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithTransitionHook registers a terminal-transition observer.
func WithTransitionHook(hook TransitionHook) MonitorOption {
	return func(m *Monitor) { m.onTransition = hook }
}

// WithMonitorClock overrides the time source for tests.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates an idle monitor.
func NewMonitor(checker StatusChecker, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		checker:       checker,
		pollInterval:  defaultPollInterval,
		countdownTick: defaultCountdownTick,
		window:        DefaultWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Watch enters Pending for the descriptor and starts the countdown and
// the status poll. The watch ends when a terminal state is reached, when
// Reset is called, or when ctx is cancelled.
func (m *Monitor) Watch(ctx context.Context, desc *Descriptor) error {
	if desc == nil || desc.DepositID == "" {
		return errors.New("descriptor with a deposit id is required")
	}

	m.mu.Lock()
	if m.desc != nil && m.state == StatePending {
		m.mu.Unlock()
		return ErrWatchActive
	}

	d := *desc
	m.desc = &d
	m.state = StatePending
	m.settledAt = time.Time{}
	m.deadline = d.ExpiresAt
	if m.deadline.IsZero() {
		m.deadline = m.now().Add(m.window)
	}
	m.gen++
	gen := m.gen
	m.done = make(chan struct{})

	wctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	deadline := m.deadline
	m.mu.Unlock()

	go m.countdown(wctx, gen, deadline)
	go m.poll(wctx, gen, d.DepositID)
	return nil
}

// countdown ticks at 1-second resolution and forces Pending -> Expired
// when the wall-clock deadline passes, regardless of what the poller has
// observed. Comparing against the wall clock (rather than decrementing a
// counter) keeps the timeout honest across process suspension.
func (m *Monitor) countdown(ctx context.Context, gen uint64, deadline time.Time) {
	ticker := time.NewTicker(m.countdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.now().Before(deadline) {
				m.transition(gen, StateExpired)
				return
			}
		}
	}
}

// poll asks the status collaborator at a fixed interval. A poll error is
// a no-op for state purposes: it is logged and polling continues on the
// next tick, so a transient failure cannot prematurely fail a deposit
// that may still confirm.
func (m *Monitor) poll(ctx context.Context, gen uint64, depositID string) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := m.checker.DepositStatus(ctx, depositID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				observability.IncrementDepositPollError()
				zap.L().Warn("deposit status poll failed",
					zap.String("deposit_id", depositID), zap.Error(err))
				continue
			}
			if state.Terminal() {
				m.transition(gen, state)
				return
			}
		}
	}
}

// transition is the single compare-and-set state change. It succeeds only
// from Pending in the current generation; every later attempt — a poll
// result racing the countdown, a tick racing a poll, a late response for
// a reset deposit — is a no-op.
func (m *Monitor) transition(gen uint64, to State) bool {
	m.mu.Lock()
	if gen != m.gen || m.state != StatePending {
		m.mu.Unlock()
		return false
	}
	from := m.state
	m.state = to
	m.settledAt = m.now()
	desc := *m.desc
	cancel := m.cancel
	m.cancel = nil
	done := m.done
	m.done = nil
	hook := m.onTransition
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		close(done)
	}
	zap.L().Info("deposit transition",
		zap.String("deposit_id", desc.DepositID),
		zap.String("from", string(from)), zap.String("to", string(to)))
	if hook != nil {
		hook(desc, from, to)
	}
	return true
}

// State returns the current lifecycle state, or "" when idle.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Descriptor returns a copy of the watched descriptor, or nil when idle.
func (m *Monitor) Descriptor() *Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.desc == nil {
		return nil
	}
	d := *m.desc
	return &d
}

// Remaining returns the time left in the payment window, for display.
// Zero once the window has closed or when idle.
func (m *Monitor) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.desc == nil || m.state.Terminal() {
		return 0
	}
	left := m.deadline.Sub(m.now())
	if left < 0 {
		return 0
	}
	return left
}

// SettledAt returns when a terminal state was reached, zero otherwise.
func (m *Monitor) SettledAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settledAt
}

// Done returns a channel closed when the current watch reaches a
// terminal state, or nil when no watch is active.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Reset discards the current deposit entirely: both tasks stop, the
// cached descriptor is dropped, and the generation advances so a late
// response tagged with the old deposit identifier is ignored. The
// monitor returns to the request-composition state.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.gen++
	m.state = ""
	m.desc = nil
	m.deadline = time.Time{}
	m.settledAt = time.Time{}
	cancel := m.cancel
	m.cancel = nil
	done := m.done
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		close(done)
	}
}
