// Package health polls the backend's status endpoint, classifies
// connection quality from round-trip time, and publishes connectivity
// transitions on the event bus.
package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/apierr"
	"github.com/taskdeck/taskdeck/internal/event"
	"github.com/taskdeck/taskdeck/internal/metrics"
)

// Quality is a coarse classification of backend responsiveness.
type Quality string

const (
	QualityExcellent Quality = "excellent" // < 500ms
	QualityGood      Quality = "good"      // < 1500ms
	QualityPoor      Quality = "poor"      // anything slower
	QualityOffline   Quality = "offline"
)

// classify maps a round-trip time to a quality level. Only meaningful
// while online; offline always maps to QualityOffline.
func classify(rtt time.Duration) Quality {
	switch {
	case rtt < 500*time.Millisecond:
		return QualityExcellent
	case rtt < 1500*time.Millisecond:
		return QualityGood
	default:
		return QualityPoor
	}
}

// State is a snapshot of backend connectivity.
type State struct {
	Online            bool          `json:"online"`
	Connecting        bool          `json:"connecting"`
	LastCheck         time.Time     `json:"last_check"` // zero until the first check completes
	ResponseTime      time.Duration `json:"response_time"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
	Quality           Quality       `json:"quality"`
	ErrorMessage      string        `json:"error_message,omitempty"`
}

// CheckResult is the outcome of one check request. Skipped is set when a
// check was already in flight or scheduled checks are suppressed; the
// state returned is then the current snapshot, unmodified by this call.
type CheckResult struct {
	State   State
	Skipped bool
}

// Pinger performs one round trip to the backend's status endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Journal optionally records completed checks (the dashboard's history).
type Journal interface {
	RecordCheck(s State) error
}

// Options configures the monitor.
type Options struct {
	Interval     time.Duration // polling interval, 30s if zero
	MaxRetries   int           // failure streak before scheduled checks stop, 5 if zero
	RetryOnError bool          // keep scheduled checks running past MaxRetries
}

// Monitor is the polling state machine over
// {Idle, Connecting, Online(quality), Offline}.
type Monitor struct {
	pinger  Pinger
	bus     *event.Bus
	journal Journal
	opts    Options

	mu      sync.Mutex
	state   State
	running bool
	cancel  context.CancelFunc
}

// New creates a monitor in the Idle state. bus may be nil.
func New(p Pinger, bus *event.Bus, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	return &Monitor{
		pinger: p,
		bus:    bus,
		opts:   opts,
		state:  State{Quality: QualityOffline},
	}
}

// SetJournal attaches a check journal. Call before StartMonitoring.
func (m *Monitor) SetJournal(j Journal) { m.journal = j }

// StartMonitoring performs one immediate check, then schedules periodic
// checks at the configured interval. Idempotent: calling it while the
// loop is running is a no-op.
func (m *Monitor) StartMonitoring() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	go m.loop(ctx)
}

// StopMonitoring cancels the polling loop. The monitor keeps its last
// known state; a consumer tearing down must call this to avoid orphaned
// timers.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RestartMonitoring resets the failure streak and restarts the loop.
func (m *Monitor) RestartMonitoring() {
	m.StopMonitoring()
	m.mu.Lock()
	m.state.ConsecutiveErrors = 0
	m.mu.Unlock()
	m.StartMonitoring()
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one scheduled check. It is skipped when another check is in
// flight, or when the failure streak has reached MaxRetries and
// retry-on-error is disabled.
func (m *Monitor) Check(ctx context.Context) CheckResult {
	return m.check(ctx, false)
}

// ForceCheck runs a manual check, bypassing the failure-streak
// suppression (but never overlapping an in-flight check).
func (m *Monitor) ForceCheck(ctx context.Context) CheckResult {
	return m.check(ctx, true)
}

func (m *Monitor) check(ctx context.Context, force bool) CheckResult {
	m.mu.Lock()
	if m.state.Connecting {
		res := CheckResult{State: m.state, Skipped: true}
		m.mu.Unlock()
		metrics.HealthChecksTotal.WithLabelValues("skipped").Inc()
		return res
	}
	if !force && !m.opts.RetryOnError && m.state.ConsecutiveErrors >= m.opts.MaxRetries {
		res := CheckResult{State: m.state, Skipped: true}
		m.mu.Unlock()
		metrics.HealthChecksTotal.WithLabelValues("skipped").Inc()
		return res
	}
	m.state.Connecting = true
	m.mu.Unlock()

	start := time.Now()
	err := m.pinger.Ping(ctx)
	rtt := time.Since(start)

	var events []event.Event
	m.mu.Lock()
	m.state.Connecting = false
	m.state.LastCheck = time.Now()
	m.state.ResponseTime = rtt
	wasOnline := m.state.Online

	if err != nil {
		m.state.Online = false
		m.state.ConsecutiveErrors++
		m.state.Quality = QualityOffline
		m.state.ErrorMessage = apierr.UserMessage(err)
		if wasOnline {
			events = append(events, event.Event{Type: event.Disconnected, Message: m.state.ErrorMessage})
		}
		events = append(events, event.Event{Type: event.Error, Err: err, Message: m.state.ErrorMessage})
	} else {
		m.state.Online = true
		m.state.ConsecutiveErrors = 0
		m.state.Quality = classify(rtt)
		m.state.ErrorMessage = ""
		if !wasOnline {
			events = append(events, event.Event{Type: event.Connected, Message: "backend online"})
		}
	}
	snapshot := m.state
	m.mu.Unlock()

	m.observe(snapshot, err, rtt)
	if m.bus != nil {
		for _, ev := range events {
			m.bus.Publish(ev)
		}
	}
	if m.journal != nil {
		if jerr := m.journal.RecordCheck(snapshot); jerr != nil {
			log.Printf("[health] journal write failed: %v", jerr)
		}
	}

	return CheckResult{State: snapshot}
}

func (m *Monitor) observe(s State, err error, rtt time.Duration) {
	metrics.HealthResponseTime.Observe(rtt.Seconds())
	metrics.HealthConsecutiveErrors.Set(float64(s.ConsecutiveErrors))
	if err != nil {
		metrics.HealthChecksTotal.WithLabelValues("failed").Inc()
		metrics.HealthOnline.Set(0)
		log.Printf("[health] check failed (%d consecutive): %v", s.ConsecutiveErrors, err)
	} else {
		metrics.HealthChecksTotal.WithLabelValues("ok").Inc()
		metrics.HealthOnline.Set(1)
	}
}

// State returns a snapshot of the current connectivity state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stale reports whether the last check is older than 1.5× the interval:
// the loop has stopped producing fresh data.
func (m *Monitor) Stale() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.LastCheck.IsZero() {
		return true
	}
	return time.Since(m.state.LastCheck) > m.opts.Interval*3/2
}

// ShouldWarn reports whether the failure streak is worth surfacing to
// the user but has not yet hit the suppression threshold.
func (m *Monitor) ShouldWarn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ConsecutiveErrors > 2 && m.state.ConsecutiveErrors < m.opts.MaxRetries
}

// StatusText returns a human-readable one-liner for the current state.
func (m *Monitor) StatusText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.state.Connecting:
		return "checking connection..."
	case m.state.LastCheck.IsZero():
		return "not checked yet"
	case m.state.Online:
		return "online (" + string(m.state.Quality) + ", " +
			m.state.ResponseTime.Round(time.Millisecond).String() + ")"
	case m.state.ErrorMessage != "":
		return "offline: " + m.state.ErrorMessage
	default:
		return "offline"
	}
}
