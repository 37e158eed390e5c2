package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/app"
	"github.com/matsufriends-org/steam-upload-helper/internal/inject"
	"github.com/matsufriends-org/steam-upload-helper/internal/mock"
	"github.com/matsufriends-org/steam-upload-helper/internal/probe"
	"github.com/matsufriends-org/steam-upload-helper/internal/steamcmd"
)

// mockDriver plays simulator scenarios instead of launching SteamCMD.
// The password picks the login scenario: "mobile" requires a simulated
// Steam Guard confirmation, "bad" fails, anything else succeeds.
type mockDriver struct {
	dir string

	mu  sync.Mutex
	sim *mock.Simulator
}

func newMockDriver() *mockDriver {
	dir, err := os.MkdirTemp("", "steamhelper_mock_")
	if err != nil {
		dir = filepath.Join(os.TempDir(), "steamhelper_mock")
	}
	return &mockDriver{dir: dir}
}

func (d *mockDriver) LaunchLogin(ctx context.Context, username, password string) (*app.ConsoleInfo, error) {
	scenario := mock.LoginOK
	switch password {
	case "mobile":
		scenario = mock.LoginMobile
	case "bad":
		scenario = mock.LoginBadPass
	}

	sim, err := mock.NewSimulator(d.dir, scenario, 400*time.Millisecond)
	if err != nil {
		return nil, err
	}
	sim.Start(ctx)

	d.mu.Lock()
	d.sim = sim
	d.mu.Unlock()

	return &app.ConsoleInfo{
		LogPaths:      []string{sim.LogPath()},
		ImageName:     "steamcmd.exe",
		WindowPattern: steamcmd.AppTag,
	}, nil
}

func (d *mockDriver) SendCommand(ctx context.Context, command string) (inject.Result, error) {
	sim, err := mock.NewSimulator(d.dir, mock.UploadOK, 400*time.Millisecond)
	if err != nil {
		return inject.Failed, err
	}
	sim.Start(ctx)

	d.mu.Lock()
	d.sim = sim
	d.mu.Unlock()

	return inject.Sent, nil
}

func (d *mockDriver) StageCommand(command string) error {
	return nil
}

func (d *mockDriver) probe() probe.Probe {
	return &mockDriverProbe{d: d}
}

// mockDriverProbe follows whichever simulator is currently playing.
type mockDriverProbe struct {
	d *mockDriver
}

func (p *mockDriverProbe) current() probe.Probe {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	if p.d.sim == nil {
		return probe.Unsupported{}
	}
	return p.d.sim.Probe()
}

func (p *mockDriverProbe) ProcessAlive(ctx context.Context, image string) probe.Result {
	return p.current().ProcessAlive(ctx, image)
}

func (p *mockDriverProbe) WindowExists(ctx context.Context, pattern string) probe.Result {
	return p.current().WindowExists(ctx, pattern)
}

func (p *mockDriverProbe) WindowText(ctx context.Context, pattern string) (string, probe.Result) {
	return p.current().WindowText(ctx, pattern)
}

func (p *mockDriverProbe) WindowCount(ctx context.Context) (int, probe.Result) {
	return p.current().WindowCount(ctx)
}
