// Package app wires the monitors, the console driver, and the state store
// into the operations the HTTP surface exposes: log in, upload a build,
// stop watching.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/config"
	"github.com/matsufriends-org/steam-upload-helper/internal/inject"
	"github.com/matsufriends-org/steam-upload-helper/internal/monitor"
	"github.com/matsufriends-org/steam-upload-helper/internal/probe"
	"github.com/matsufriends-org/steam-upload-helper/internal/state"
	"github.com/matsufriends-org/steam-upload-helper/internal/steamcmd"
	"github.com/matsufriends-org/steam-upload-helper/internal/vdf"
	"github.com/matsufriends-org/steam-upload-helper/internal/ws"
)

const mobilePrompt = "approve the login in the Steam mobile app"

type App struct {
	ctx         context.Context
	cfg         *config.Config
	store       *state.Store
	broadcaster *ws.Broadcaster
	probe       probe.Probe
	driver      ConsoleDriver
	stop        *monitor.StopSignal

	mu          sync.Mutex
	settings    config.Settings
	uploads     *config.UploadConfigs
	console     *ConsoleInfo
	loginMon    *monitor.Monitor
	transferMon *monitor.Monitor
	consoleMon  *monitor.ConsoleMonitor
}

// New loads the persisted settings and upload configs and returns a ready
// application. ctx bounds every monitor the app starts.
func New(ctx context.Context, cfg *config.Config, store *state.Store, broadcaster *ws.Broadcaster, p probe.Probe, driver ConsoleDriver) (*App, error) {
	settings, err := config.LoadSettings(cfg.Steam.SettingsPath)
	if err != nil {
		return nil, err
	}
	uploads, err := config.LoadUploadConfigs(cfg.Steam.UploadConfigsPath)
	if err != nil {
		return nil, err
	}
	return &App{
		ctx:         ctx,
		cfg:         cfg,
		store:       store,
		broadcaster: broadcaster,
		probe:       p,
		driver:      driver,
		stop:        monitor.NewStopSignal(),
		settings:    *settings,
		uploads:     uploads,
	}, nil
}

// StartLogin launches the SteamCMD console with an interactive login and
// starts the monitors that track it. Returns the login operation ID.
func (a *App) StartLogin(username, password string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loginMon != nil && a.loginMon.Running() {
		return "", fmt.Errorf("a login is already in progress")
	}
	if a.transferMon != nil && a.transferMon.Running() {
		return "", fmt.Errorf("an upload is in progress")
	}

	a.stop.Reset()

	info, err := a.driver.LaunchLogin(a.ctx, username, password)
	if err != nil {
		return "", fmt.Errorf("launch steamcmd: %w", err)
	}
	a.console = info
	a.store.SetConsoleOpen(true)

	op := a.store.NewOperation(state.KindLogin, username)
	a.broadcaster.QueueUpdate(op)

	if a.settings.MonitorConsole {
		a.startConsoleMonitorLocked(info)
	}

	m := monitor.NewLoginMonitor(a.probe, a.stop, monitor.Config{
		Interval:      signalInterval(runtime.GOOS, a.cfg.Monitor),
		Budget:        a.cfg.Monitor.LoginTimeout,
		LogPaths:      info.LogPaths,
		ImageName:     info.ImageName,
		WindowPattern: info.WindowPattern,
	}, monitor.Callbacks{
		OnOutcome:            func(o monitor.Outcome) { a.finishLogin(op, username, o) },
		OnMobileConfirmation: func() { a.mobilePending(op) },
	})
	m.Start(a.ctx)
	a.loginMon = m

	return op.ID, nil
}

func (a *App) startConsoleMonitorLocked(info *ConsoleInfo) {
	if a.consoleMon != nil && a.consoleMon.Running() {
		return
	}

	op := a.store.NewOperation(state.KindConsole, "")
	a.broadcaster.QueueUpdate(op)

	cm := monitor.NewConsoleMonitor(a.probe, a.stop, monitor.ConsoleConfig{
		Interval:      a.cfg.Monitor.WindowPollInterval,
		GraceTicks:    a.cfg.Monitor.ConsoleGraceTicks,
		ImageName:     info.ImageName,
		WindowPattern: info.WindowPattern,
	}, func() {
		a.store.SetConsoleOpen(false)
		a.store.SetLoggedIn(false)
		a.completeOperation(op, state.Closed, "console window closed")
	})
	cm.Start(a.ctx)
	a.consoleMon = cm
}

func (a *App) finishLogin(op *state.Operation, username string, outcome monitor.Outcome) {
	status := outcomeStatus(outcome)
	a.completeOperation(op, status, outcome.String())

	if status == state.Succeeded {
		a.store.SetLoggedIn(true)
		a.store.SetUsername(username)
		a.rememberUsername(username)
	}

	// The launch script carries the password; remove it as soon as the
	// login resolves either way.
	if n := steamcmd.CleanupScripts(); n > 0 {
		log.Printf("[app] removed %d credential script(s)", n)
	}
}

func (a *App) rememberUsername(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.settings.Username == username {
		return
	}
	a.settings.Username = username
	if err := config.SaveSettings(a.cfg.Steam.SettingsPath, &a.settings); err != nil {
		log.Printf("[app] persist settings: %v", err)
	}
}

func (a *App) mobilePending(op *state.Operation) {
	op.Status = state.MobilePending
	a.store.UpdateAndNotify(op, func() { a.broadcaster.QueueUpdate(op) })
	a.broadcaster.NotifyMobileConfirmation(op.ID, mobilePrompt)
}

// StartUpload generates the build VDF files and delivers the
// run_app_build command to the console, then watches the transfer.
func (a *App) StartUpload(configName string) (*ws.UploadStart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.store.LoggedIn() {
		return nil, fmt.Errorf("not logged in")
	}
	if !a.store.ConsoleOpen() || a.console == nil {
		return nil, fmt.Errorf("steamcmd console is not open")
	}
	if a.transferMon != nil && a.transferMon.Running() {
		return nil, fmt.Errorf("an upload is already in progress")
	}

	ucfg, ok := a.uploads.Get(configName)
	if !ok {
		return nil, fmt.Errorf("no upload config named %q", configName)
	}

	files, err := vdf.WriteBuildFiles(&vdf.BuildSpec{
		AppID:       ucfg.AppID,
		DepotID:     ucfg.DepotID,
		Branch:      ucfg.Branch,
		Description: ucfg.Description,
		ContentRoot: ucfg.ContentPath,
		BuildOutput: a.settings.BuildOutputPath,
		OutputDir:   filepath.Join(os.TempDir(), "morn_steamcmd_vdf"),
	})
	if err != nil {
		return nil, fmt.Errorf("write build files: %w", err)
	}
	appFile, err := filepath.Abs(files.AppFile)
	if err != nil {
		return nil, err
	}
	command := steamcmd.UploadCommand(appFile)

	op := a.store.NewOperation(state.KindUpload, configName)
	a.broadcaster.QueueUpdate(op)

	delivery := "injected"
	res, err := a.driver.SendCommand(a.ctx, command)
	if err != nil || res != inject.Sent {
		// Fall back to staging the command on the clipboard and let the
		// user paste it; the transfer monitor picks up from the log
		// either way.
		log.Printf("[app] command injection unavailable (%v, %v), staging for manual paste", res, err)
		delivery = "manual"
		if stageErr := a.driver.StageCommand(command); stageErr != nil {
			log.Printf("[app] stage command: %v", stageErr)
		}
	}

	m := monitor.NewTransferMonitor(a.probe, a.stop, monitor.Config{
		Interval:      signalInterval(runtime.GOOS, a.cfg.Monitor),
		Budget:        a.cfg.Monitor.TransferTimeout,
		LogPaths:      a.console.LogPaths,
		ImageName:     a.console.ImageName,
		WindowPattern: a.console.WindowPattern,
	}, monitor.Callbacks{
		OnOutcome: func(o monitor.Outcome) {
			a.completeOperation(op, outcomeStatus(o), o.String())
		},
	})
	m.Start(a.ctx)
	a.transferMon = m

	return &ws.UploadStart{
		OperationID: op.ID,
		Delivery:    delivery,
		Command:     command,
	}, nil
}

// StopAll signals every monitor to end and closes their operations.
// The SteamCMD process itself is left running.
func (a *App) StopAll() int {
	a.stop.Stop()

	closed := 0
	for _, op := range a.store.GetAll() {
		if op.IsTerminal() {
			continue
		}
		a.completeOperation(op, state.Closed, "stopped by request")
		closed++
	}
	log.Printf("[app] stop requested, closed %d operation(s)", closed)
	return closed
}

func (a *App) completeOperation(op *state.Operation, status state.Status, detail string) {
	now := time.Now()
	op.Status = status
	op.CompletedAt = &now
	if detail != "" {
		op.Detail = detail
	}
	a.store.UpdateAndNotify(op, func() { a.broadcaster.QueueUpdate(op) })
	a.broadcaster.NotifyOutcome(op)
}

// signalInterval picks the poll cadence for the login and transfer
// monitors. Where log files carry the signal a sub-second tick is cheap;
// on darwin every tick reads window text through an osascript call, so
// the coarser window cadence applies.
func signalInterval(goos string, m config.MonitorConfig) time.Duration {
	if goos == "darwin" {
		return m.WindowPollInterval
	}
	return m.PollInterval
}

func outcomeStatus(o monitor.Outcome) state.Status {
	switch o {
	case monitor.OutcomeSuccess:
		return state.Succeeded
	case monitor.OutcomeFailure:
		return state.Failed
	case monitor.OutcomeProcessEnded:
		return state.ProcessEnded
	default:
		return state.TimedOut
	}
}

func (a *App) Settings() config.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

func (a *App) UpdateSettings(s config.Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = s
	return config.SaveSettings(a.cfg.Steam.SettingsPath, &a.settings)
}

func (a *App) UploadConfigs() map[string]config.UploadConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.uploads.All()
}

func (a *App) PutUploadConfig(name string, cfg config.UploadConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.uploads.Put(name, cfg)
}

func (a *App) DeleteUploadConfig(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.uploads.Delete(name)
}

// Shutdown removes any credential scripts still on disk.
func (a *App) Shutdown() {
	a.stop.Stop()
	if n := steamcmd.CleanupScripts(); n > 0 {
		log.Printf("[app] removed %d credential script(s) at shutdown", n)
	}
}
