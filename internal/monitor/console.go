package monitor

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/probe"
)

// ConsoleConfig parameterizes the console presence watch.
type ConsoleConfig struct {
	// Interval is coarse: every tick is an OS scripting call.
	Interval time.Duration

	// GraceTicks is how many consecutive definite-absent observations
	// are tolerated before the first definite-present one. The console
	// window takes a moment to appear after launch.
	GraceTicks int

	ImageName     string
	WindowPattern string
}

// ConsoleMonitor watches whether the SteamCMD console is still open. It
// reports closure once via OnClosed and then ends. Unknown observations
// never close the console; only a definite absence does.
type ConsoleMonitor struct {
	cfg     ConsoleConfig
	probe   probe.Probe
	stop    *StopSignal
	onClose func()
	running atomic.Bool
}

func NewConsoleMonitor(p probe.Probe, stop *StopSignal, cfg ConsoleConfig, onClosed func()) *ConsoleMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &ConsoleMonitor{
		cfg:     cfg,
		probe:   p,
		stop:    stop,
		onClose: onClosed,
	}
}

func (m *ConsoleMonitor) Start(ctx context.Context) bool {
	if !m.running.CompareAndSwap(false, true) {
		log.Printf("[console-monitor] already running, duplicate start ignored")
		return false
	}
	go m.run(ctx)
	return true
}

func (m *ConsoleMonitor) Running() bool {
	return m.running.Load()
}

func (m *ConsoleMonitor) run(ctx context.Context) {
	defer m.running.Store(false)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	log.Printf("[console-monitor] started (interval=%s grace=%d)", m.cfg.Interval, m.cfg.GraceTicks)

	seen := false
	absentTicks := 0

	for {
		select {
		case <-ctx.Done():
			log.Printf("[console-monitor] stopped: context canceled")
			return
		case <-ticker.C:
		}
		if m.stop.Stopped() {
			log.Printf("[console-monitor] stopped: stop signal")
			return
		}

		switch m.observe(ctx) {
		case probe.Yes:
			seen = true
			absentTicks = 0
		case probe.No:
			absentTicks++
			// Before the window has ever been seen, absence within the
			// grace budget just means it has not opened yet.
			if !seen && absentTicks <= m.cfg.GraceTicks {
				continue
			}
			log.Printf("[console-monitor] console closed after %d absent ticks", absentTicks)
			if m.onClose != nil {
				m.onClose()
			}
			return
		case probe.Unknown:
			// No new information; keep the last known state.
		}
	}
}

// observe folds the process and window probes into one tri-state answer.
// A dead process with a live window still counts as open: the window is
// what the user interacts with.
func (m *ConsoleMonitor) observe(ctx context.Context) probe.Result {
	win := m.probe.WindowExists(ctx, m.cfg.WindowPattern)
	if win == probe.Yes {
		return probe.Yes
	}

	alive := m.probe.ProcessAlive(ctx, m.cfg.ImageName)
	if alive == probe.Yes {
		return probe.Yes
	}
	if alive == probe.No && win == probe.No {
		return probe.No
	}
	return probe.Unknown
}
