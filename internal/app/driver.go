package app

import (
	"context"
	"sync"

	"github.com/matsufriends-org/steam-upload-helper/internal/inject"
	"github.com/matsufriends-org/steam-upload-helper/internal/steamcmd"
)

// ConsoleInfo tells the monitors where to look for a launched console.
type ConsoleInfo struct {
	LogPaths      []string
	ImageName     string
	WindowPattern string
}

// ConsoleDriver abstracts the real SteamCMD console so the daemon can run
// against a simulator in mock mode.
type ConsoleDriver interface {
	// LaunchLogin opens the console and starts an interactive login.
	LaunchLogin(ctx context.Context, username, password string) (*ConsoleInfo, error)

	// SendCommand delivers a console command to the open window.
	SendCommand(ctx context.Context, command string) (inject.Result, error)

	// StageCommand places the command on the clipboard for manual entry.
	StageCommand(command string) error
}

// SteamDriver drives a real SteamCMD installation. The ContentBuilder
// location comes from the settings at call time, so the user can fix the
// path without restarting the daemon.
type SteamDriver struct {
	contentBuilderPath func() string
	injector           *inject.Injector

	mu      sync.Mutex
	install *steamcmd.Install
}

func NewSteamDriver(contentBuilderPath func() string, injector *inject.Injector) *SteamDriver {
	return &SteamDriver{
		contentBuilderPath: contentBuilderPath,
		injector:           injector,
	}
}

func (d *SteamDriver) LaunchLogin(ctx context.Context, username, password string) (*ConsoleInfo, error) {
	install, err := steamcmd.Resolve(d.contentBuilderPath())
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.install = install
	d.mu.Unlock()

	if err := steamcmd.Launch(ctx, install, steamcmd.LoginArgs(username, password)); err != nil {
		return nil, err
	}
	return &ConsoleInfo{
		LogPaths:      steamcmd.LogCandidates(install.Dir),
		ImageName:     install.ImageName,
		WindowPattern: steamcmd.AppTag,
	}, nil
}

func (d *SteamDriver) SendCommand(ctx context.Context, command string) (inject.Result, error) {
	return d.injector.Send(ctx, command, steamcmd.AppTag)
}

func (d *SteamDriver) StageCommand(command string) error {
	return inject.Stage(command)
}
