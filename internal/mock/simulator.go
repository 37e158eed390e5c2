// Package mock simulates a SteamCMD console for demos and development on
// machines without a Steamworks SDK. The simulator writes realistic
// console log lines on a ticker and exposes a probe that reflects its
// lifecycle, so the real monitors run unmodified against it.
package mock

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/probe"
)

// Scenario selects which console session the simulator plays back.
type Scenario string

const (
	LoginOK      Scenario = "login_ok"
	LoginMobile  Scenario = "login_mobile"
	LoginBadPass Scenario = "login_badpass"
	UploadOK     Scenario = "upload_ok"
	UploadFail   Scenario = "upload_fail"
)

// endsProcess marks scenarios where SteamCMD itself exits at the end of
// the playback, as it does after a fatal login failure.
var scripts = map[Scenario]struct {
	lines       []string
	endsProcess bool
}{
	LoginOK: {lines: []string{
		"Redirecting stderr to 'logs/stderr.txt'",
		"Loading Steam API...OK",
		"Logging in user 'dev' to Steam Public...",
		"Waiting for client config...OK",
		"Waiting for user info...OK",
		"Logged in OK",
		"Steam>",
	}},
	LoginMobile: {lines: []string{
		"Loading Steam API...OK",
		"Logging in user 'dev' to Steam Public...",
		"This account is protected by a Steam Guard mobile authenticator.",
		"Waiting for confirmation...",
		"Waiting for user info...OK",
		"Logged in OK",
		"Steam>",
	}},
	LoginBadPass: {lines: []string{
		"Loading Steam API...OK",
		"Logging in user 'dev' to Steam Public...",
		"FAILED login with result code Invalid Password",
	}, endsProcess: true},
	UploadOK: {lines: []string{
		"Steam>run_app_build /tmp/app_480.vdf",
		"Building depot 481...",
		"Scanning content",
		"Uploading content...",
		"Successfully finished AppID 480 build (BuildID 1234).",
		"Steam>",
	}},
	UploadFail: {lines: []string{
		"Steam>run_app_build /tmp/app_480.vdf",
		"Building depot 481...",
		"ERROR! Failed to commit build.",
		"Steam>",
	}},
}

// Simulator plays one scenario into a console log file.
type Simulator struct {
	scenario Scenario
	interval time.Duration
	logPath  string

	alive atomic.Bool

	mu      sync.Mutex
	written []byte
}

// NewSimulator prepares a simulator writing to console_log.txt under dir.
func NewSimulator(dir string, scenario Scenario, interval time.Duration) (*Simulator, error) {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 400 * time.Millisecond
	}
	return &Simulator{
		scenario: scenario,
		interval: interval,
		logPath:  filepath.Join(logDir, "console_log.txt"),
	}, nil
}

// LogPath is where the simulated console log lands; hand it to the
// monitors as their only log candidate.
func (s *Simulator) LogPath() string {
	return s.logPath
}

// Start begins playback. The simulated process counts as alive from here
// until the script ends (for process-ending scenarios) or ctx is done.
func (s *Simulator) Start(ctx context.Context) {
	s.alive.Store(true)
	go s.run(ctx)
}

func (s *Simulator) run(ctx context.Context) {
	script := scripts[s.scenario]

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[mock] playing scenario %s (%d lines)", s.scenario, len(script.lines))

	for _, line := range script.lines {
		select {
		case <-ctx.Done():
			s.alive.Store(false)
			return
		case <-ticker.C:
		}
		s.appendLine(line)
	}

	if script.endsProcess {
		// SteamCMD lingers briefly after a fatal line before the console
		// goes away; give watchers time to read the final output.
		select {
		case <-ctx.Done():
		case <-time.After(10 * s.interval):
		}
		log.Printf("[mock] scenario %s ends the process", s.scenario)
		s.alive.Store(false)
	}

	<-ctx.Done()
	s.alive.Store(false)
}

func (s *Simulator) appendLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("[mock] append log: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		log.Printf("[mock] write log: %v", err)
		return
	}
	s.written = append(s.written, line...)
	s.written = append(s.written, '\n')
}

// Probe returns a probe mirroring the simulator's lifecycle, so the
// liveness and window checks behave as they would against a real console.
func (s *Simulator) Probe() probe.Probe {
	return &simProbe{sim: s}
}

type simProbe struct {
	sim *Simulator
}

func (p *simProbe) boolResult() probe.Result {
	if p.sim.alive.Load() {
		return probe.Yes
	}
	return probe.No
}

func (p *simProbe) ProcessAlive(ctx context.Context, image string) probe.Result {
	return p.boolResult()
}

func (p *simProbe) WindowExists(ctx context.Context, pattern string) probe.Result {
	return p.boolResult()
}

func (p *simProbe) WindowText(ctx context.Context, pattern string) (string, probe.Result) {
	if !p.sim.alive.Load() {
		return "", probe.No
	}
	p.sim.mu.Lock()
	text := string(p.sim.written)
	p.sim.mu.Unlock()
	return text, probe.Yes
}

func (p *simProbe) WindowCount(ctx context.Context) (int, probe.Result) {
	if p.sim.alive.Load() {
		return 1, probe.Yes
	}
	return 0, probe.Yes
}
