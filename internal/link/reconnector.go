package link

import (
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Reconnector drives connection attempts and schedules retries with backoff.
//
// The dial function starts one attempt; the transport reports back through OnOpen
// and OnClose. After Policy.MaxAttempts consecutive failures the state settles on
// Disconnected until Connect is called again.
type Reconnector struct {
	clk    clock.Clock
	policy Policy
	dial   func()
	logger *zap.SugaredLogger

	mu        sync.Mutex
	state     State
	attempts  int
	scheduled int
	closed    bool
	timer     *clock.Timer
	gen       uint64
	observers []func(State)
}

// NewReconnector creates a reconnector in the Disconnected state.
func NewReconnector(clk clock.Clock, policy Policy, dial func(), logger *zap.SugaredLogger) *Reconnector {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Reconnector{
		clk:    clk,
		policy: policy,
		dial:   dial,
		logger: logger,
		state:  Disconnected,
	}
}

// Subscribe registers fn to be called with every new state.
func (r *Reconnector) Subscribe(fn func(State)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// State returns the current state.
func (r *Reconnector) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Attempts returns the number of retries since the last successful open.
func (r *Reconnector) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Scheduled returns the total number of retries scheduled so far.
func (r *Reconnector) Scheduled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scheduled
}

// Connect starts a fresh connection cycle with a reset retry budget.
func (r *Reconnector) Connect() {
	r.mu.Lock()
	r.closed = false
	r.attempts = 0
	r.cancelTimerLocked()
	notify := r.setStateLocked(Connecting)
	r.mu.Unlock()

	notify()
	r.logger.Infof("link: connecting")
	r.dial()
}

// OnOpen records a successful connection.
func (r *Reconnector) OnOpen() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.attempts = 0
	notify := r.setStateLocked(Connected)
	r.mu.Unlock()

	notify()
}

// OnClose records a lost or failed connection and schedules a retry while the
// budget lasts.
func (r *Reconnector) OnClose(err error) {
	r.mu.Lock()
	if r.closed || r.state == Disconnected {
		r.mu.Unlock()
		return
	}

	if r.attempts >= r.policy.MaxAttempts {
		notify := r.setStateLocked(Disconnected)
		attempts := r.attempts
		r.mu.Unlock()

		notify()
		r.logger.Warnf("link: giving up after %d retries: %v", attempts, err)
		return
	}

	delay := r.policy.Delay(r.attempts)
	r.attempts++
	r.scheduled++
	attempt := r.attempts
	r.cancelTimerLocked()
	gen := r.gen
	r.timer = r.clk.AfterFunc(delay, func() { r.retry(gen) })
	notify := r.setStateLocked(Connecting)
	r.mu.Unlock()

	notify()
	r.logger.Infof("link: connection lost (%v), retry %d/%d in %v", err, attempt, r.policy.MaxAttempts, delay)
}

// Close stops retrying and moves to Disconnected. Callers close the transport
// after Close so its close report is ignored.
func (r *Reconnector) Close() {
	r.mu.Lock()
	r.closed = true
	r.cancelTimerLocked()
	notify := r.setStateLocked(Disconnected)
	r.mu.Unlock()

	notify()
}

func (r *Reconnector) retry(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.mu.Unlock()

	r.dial()
}

// cancelTimerLocked stops a pending retry and invalidates any that already fired.
func (r *Reconnector) cancelTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
}

// setStateLocked updates the state and returns a function that notifies
// observers; it must be called after the lock is released.
func (r *Reconnector) setStateLocked(s State) func() {
	if r.state == s {
		return func() {}
	}
	r.state = s
	observers := append([]func(State){}, r.observers...)
	return func() {
		for _, fn := range observers {
			fn(s)
		}
	}
}
