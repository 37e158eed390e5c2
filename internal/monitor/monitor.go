// Package monitor infers the lifecycle of the external SteamCMD console by
// polling its log files and the OS window state. SteamCMD exposes no IPC
// API, so every monitor here is a pure poller: a fixed sleep between ticks,
// cooperative cancellation via a StopSignal checked each iteration, and a
// small set of terminal classifications delivered through callbacks exactly
// once per session.
package monitor

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/classify"
	"github.com/matsufriends-org/steam-upload-helper/internal/logtail"
	"github.com/matsufriends-org/steam-upload-helper/internal/probe"
)

// Outcome is the terminal classification of a login or transfer watch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeProcessEnded
	OutcomeTimeout
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:      "success",
	OutcomeFailure:      "failure",
	OutcomeProcessEnded: "process_ended",
	OutcomeTimeout:      "timeout",
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n
	}
	return "unknown"
}

// Callbacks receives monitor events. OnOutcome is invoked exactly once per
// session with the terminal outcome; OnMobileConfirmation at most once per
// session, while the session keeps polling.
type Callbacks struct {
	OnOutcome            func(Outcome)
	OnMobileConfirmation func()
}

// StopSignal is a cooperative cancellation flag shared by every monitor of
// an application session. Any caller may set it; monitors check it at the
// top of every tick.
type StopSignal struct {
	flag atomic.Bool
}

func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

func (s *StopSignal) Stop() {
	s.flag.Store(true)
}

func (s *StopSignal) Stopped() bool {
	return s.flag.Load()
}

// Reset clears the flag so a new session can start after a stop.
func (s *StopSignal) Reset() {
	s.flag.Store(false)
}

// Config parameterizes a signal monitor. Intervals, budgets, and paths are
// explicit inputs rather than embedded constants.
type Config struct {
	// Name is the log prefix for this monitor, e.g. "login-monitor".
	Name string

	// Interval is the poll cadence. Sub-second where log files carry the
	// signal; coarser where every tick costs an OS scripting call.
	Interval time.Duration

	// Budget is the wall-clock allowance before the monitor gives up
	// with OutcomeTimeout. The external process is not killed on
	// timeout; the caller may start a fresh monitor and keep waiting.
	Budget time.Duration

	// LogPaths are the candidate log files, in evaluation order.
	LogPaths []string

	// ImageName is the external process image, e.g. "steamcmd.exe".
	ImageName string

	// WindowPattern identifies the console window for probes that read
	// window state or text.
	WindowPattern string
}

// maxBufferBytes caps the cumulative classification buffer. SteamCMD's
// console log stays far below this; the cap only guards a runaway session.
const maxBufferBytes = 1 << 20

// session is the per-run mutable state. A fresh session is created for
// every Start so one-shot flags can never leak between runs.
type session struct {
	files       *logtail.FileSet
	buf         []byte
	ticks       int
	mobileShown bool
}

func (s *session) append(text string) {
	s.buf = append(s.buf, text...)
	if len(s.buf) > maxBufferBytes {
		s.buf = s.buf[len(s.buf)-maxBufferBytes:]
	}
}

// Monitor watches one login or transfer attempt. Create a new one per
// attempt via NewLoginMonitor or NewTransferMonitor.
type Monitor struct {
	cfg     Config
	probe   probe.Probe
	rules   *classify.Classifier
	stop    *StopSignal
	cb      Callbacks
	running atomic.Bool
}

// NewLoginMonitor returns a monitor that classifies a login attempt into
// success, failure, process-ended, or timeout, firing the mobile
// confirmation hook at most once along the way.
func NewLoginMonitor(p probe.Probe, stop *StopSignal, cfg Config, cb Callbacks) *Monitor {
	if cfg.Name == "" {
		cfg.Name = "login-monitor"
	}
	return newMonitor(p, stop, cfg, cb, classify.Login())
}

// NewTransferMonitor returns a monitor for a build upload/download. Same
// shape as the login monitor with the transfer vocabulary; callers supply
// a much longer budget since transfers can be large.
func NewTransferMonitor(p probe.Probe, stop *StopSignal, cfg Config, cb Callbacks) *Monitor {
	if cfg.Name == "" {
		cfg.Name = "transfer-monitor"
	}
	return newMonitor(p, stop, cfg, cb, classify.Transfer())
}

func newMonitor(p probe.Probe, stop *StopSignal, cfg Config, cb Callbacks, rules *classify.Classifier) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Monitor{
		cfg:   cfg,
		probe: p,
		rules: rules,
		stop:  stop,
		cb:    cb,
	}
}

// Start launches the polling goroutine. A duplicate start request on a
// running monitor is detected, ignored, and reported by a false return.
func (m *Monitor) Start(ctx context.Context) bool {
	if !m.running.CompareAndSwap(false, true) {
		log.Printf("[%s] already running, duplicate start ignored", m.cfg.Name)
		return false
	}
	// Pin offsets to the current end of file before returning, so output
	// produced after Start is never missed.
	s := &session{files: logtail.Open(m.cfg.LogPaths)}
	go m.run(ctx, s)
	return true
}

// Running reports whether a session is currently polling.
func (m *Monitor) Running() bool {
	return m.running.Load()
}

func (m *Monitor) run(ctx context.Context, s *session) {
	defer m.running.Store(false)

	deadline := time.Now().Add(m.cfg.Budget)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	log.Printf("[%s] started (interval=%s budget=%s logs=%d)",
		m.cfg.Name, m.cfg.Interval, m.cfg.Budget, len(m.cfg.LogPaths))

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] stopped: context canceled", m.cfg.Name)
			return
		case <-ticker.C:
		}
		if m.stop.Stopped() {
			log.Printf("[%s] stopped: stop signal", m.cfg.Name)
			return
		}

		s.ticks++
		if done := m.safeTick(ctx, s); done {
			return
		}

		if m.cfg.Budget > 0 && time.Now().After(deadline) {
			log.Printf("[%s] budget exhausted after %d ticks", m.cfg.Name, s.ticks)
			m.emit(OutcomeTimeout)
			return
		}
	}
}

// safeTick isolates a single poll iteration: a panicking tick is logged
// and polling continues on the next tick rather than killing the monitor
// silently.
func (m *Monitor) safeTick(ctx context.Context, s *session) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] tick %d panic recovered: %v", m.cfg.Name, s.ticks, r)
			done = false
		}
	}()
	return m.tick(ctx, s)
}

func (m *Monitor) tick(ctx context.Context, s *session) bool {
	// Liveness first. A dead process must never be reported as a
	// timeout or silently re-polled.
	alive := m.probe.ProcessAlive(ctx, m.cfg.ImageName)
	switch alive {
	case probe.No:
		log.Printf("[%s] process %q gone on tick %d", m.cfg.Name, m.cfg.ImageName, s.ticks)
		m.emit(OutcomeProcessEnded)
		return true
	case probe.Unknown:
		// Process table unreadable; a definite zero window count still
		// means the console container is gone.
		if n, res := m.probe.WindowCount(ctx); res == probe.Yes && n == 0 {
			log.Printf("[%s] no console windows on tick %d", m.cfg.Name, s.ticks)
			m.emit(OutcomeProcessEnded)
			return true
		}
	}

	if text := s.files.ReadNew(); text != "" {
		s.append(text)
	}

	status := classify.Unknown
	if len(s.buf) > 0 {
		status = m.rules.Classify(string(s.buf))
	} else if text, res := m.probe.WindowText(ctx, m.cfg.WindowPattern); res == probe.Yes {
		// No log files on this platform; the visible window text is the
		// cumulative buffer.
		status = m.rules.Classify(text)
	}

	switch status {
	case classify.Success, classify.Completed:
		m.emit(OutcomeSuccess)
		return true
	case classify.Failed, classify.TransferFailed:
		m.emit(OutcomeFailure)
		return true
	case classify.MobileConfirmationPending:
		if !s.mobileShown {
			s.mobileShown = true
			log.Printf("[%s] mobile confirmation pending on tick %d", m.cfg.Name, s.ticks)
			if m.cb.OnMobileConfirmation != nil {
				m.cb.OnMobileConfirmation()
			}
		}
	}
	return false
}

// emit delivers the terminal outcome. Each run loop exits immediately
// after its single emit call, which is what enforces exactly-once.
func (m *Monitor) emit(outcome Outcome) {
	log.Printf("[%s] terminal outcome: %s", m.cfg.Name, outcome)
	if m.cb.OnOutcome != nil {
		m.cb.OnOutcome(outcome)
	}
}
