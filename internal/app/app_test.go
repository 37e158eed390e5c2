package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/config"
	"github.com/matsufriends-org/steam-upload-helper/internal/inject"
	"github.com/matsufriends-org/steam-upload-helper/internal/probe"
	"github.com/matsufriends-org/steam-upload-helper/internal/state"
	"github.com/matsufriends-org/steam-upload-helper/internal/ws"
)

// aliveProbe reports a healthy console and nothing else.
type aliveProbe struct{}

func (aliveProbe) ProcessAlive(ctx context.Context, image string) probe.Result { return probe.Yes }
func (aliveProbe) WindowExists(ctx context.Context, pattern string) probe.Result {
	return probe.Yes
}
func (aliveProbe) WindowText(ctx context.Context, pattern string) (string, probe.Result) {
	return "", probe.Unknown
}
func (aliveProbe) WindowCount(ctx context.Context) (int, probe.Result) { return 1, probe.Yes }

// fakeDriver records calls and points monitors at a temp log file.
type fakeDriver struct {
	logPath    string
	launchErr  error
	sendResult inject.Result
	sendErr    error
	sent       []string
	staged     []string
}

func (d *fakeDriver) LaunchLogin(ctx context.Context, username, password string) (*ConsoleInfo, error) {
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	return &ConsoleInfo{
		LogPaths:      []string{d.logPath},
		ImageName:     "steamcmd.exe",
		WindowPattern: "MornSteamCMD",
	}, nil
}

func (d *fakeDriver) SendCommand(ctx context.Context, command string) (inject.Result, error) {
	d.sent = append(d.sent, command)
	return d.sendResult, d.sendErr
}

func (d *fakeDriver) StageCommand(command string) error {
	d.staged = append(d.staged, command)
	return nil
}

func newTestApp(t *testing.T, driver *fakeDriver) (*App, *state.Store) {
	t.Helper()
	dir := t.TempDir()
	if driver.logPath == "" {
		driver.logPath = filepath.Join(dir, "console_log.txt")
	}

	cfg := &config.Config{
		Monitor: config.MonitorConfig{
			PollInterval:       5 * time.Millisecond,
			WindowPollInterval: 5 * time.Millisecond,
			LoginTimeout:       2 * time.Second,
			TransferTimeout:    2 * time.Second,
			ConsoleGraceTicks:  5,
		},
		Steam: config.SteamConfig{
			SettingsPath:      filepath.Join(dir, "settings.json"),
			UploadConfigsPath: filepath.Join(dir, "uploads.json"),
		},
	}

	store := state.NewStore()
	b := ws.NewBroadcaster(store, 5*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := New(ctx, cfg, store, b, aliveProbe{}, driver)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a, store
}

func appendLog(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoginSuccessSetsFlagsAndRemembersUsername(t *testing.T) {
	driver := &fakeDriver{}
	a, store := newTestApp(t, driver)

	opID, err := a.StartLogin("dev", "hunter2")
	if err != nil {
		t.Fatalf("StartLogin() error: %v", err)
	}
	if !store.ConsoleOpen() {
		t.Error("console flag not set after launch")
	}

	time.Sleep(20 * time.Millisecond)
	appendLog(t, driver.logPath, "Logging in user 'dev' to Steam Public...\nLogged in OK\n")

	waitFor(t, "login success", store.LoggedIn)

	waitFor(t, "operation terminal", func() bool {
		op, ok := store.Get(opID)
		return ok && op.Status == state.Succeeded
	})

	waitFor(t, "settings persisted", func() bool {
		s, err := config.LoadSettings(a.cfg.Steam.SettingsPath)
		return err == nil && s.Username == "dev"
	})
}

func TestLoginFailure(t *testing.T) {
	driver := &fakeDriver{}
	a, store := newTestApp(t, driver)

	opID, err := a.StartLogin("dev", "wrong")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	appendLog(t, driver.logPath, "FAILED login with result code Invalid Password\n")

	waitFor(t, "login failure", func() bool {
		op, ok := store.Get(opID)
		return ok && op.Status == state.Failed
	})
	if store.LoggedIn() {
		t.Error("failed login must not set the logged-in flag")
	}
}

func TestDuplicateLoginRejected(t *testing.T) {
	driver := &fakeDriver{}
	a, _ := newTestApp(t, driver)

	if _, err := a.StartLogin("dev", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.StartLogin("dev", "x"); err == nil {
		t.Error("second login while first is in flight should fail")
	}
}

func TestUploadRequiresLogin(t *testing.T) {
	a, _ := newTestApp(t, &fakeDriver{})
	if _, err := a.StartUpload("demo"); err == nil {
		t.Error("upload without login should fail")
	}
}

func loginFor(t *testing.T, a *App, store *state.Store, driver *fakeDriver) {
	t.Helper()
	if _, err := a.StartLogin("dev", "hunter2"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	appendLog(t, driver.logPath, "Logged in OK\n")
	waitFor(t, "login", store.LoggedIn)
}

func TestUploadInjected(t *testing.T) {
	driver := &fakeDriver{sendResult: inject.Sent}
	a, store := newTestApp(t, driver)
	loginFor(t, a, store, driver)

	if err := a.PutUploadConfig("demo", config.UploadConfig{
		AppID: 480, DepotID: 481, ContentPath: t.TempDir(),
	}); err != nil {
		t.Fatal(err)
	}

	start, err := a.StartUpload("demo")
	if err != nil {
		t.Fatalf("StartUpload() error: %v", err)
	}
	if start.Delivery != "injected" {
		t.Errorf("delivery = %q, want injected", start.Delivery)
	}
	if !strings.HasPrefix(start.Command, "run_app_build ") {
		t.Errorf("command = %q", start.Command)
	}
	if len(driver.sent) != 1 {
		t.Fatalf("driver saw %d sends, want 1", len(driver.sent))
	}

	// The generated app vdf must exist at the path the command names.
	vdfPath := strings.TrimPrefix(strings.Trim(start.Command, `"`), "run_app_build ")
	vdfPath = strings.Trim(vdfPath, `"`)
	if _, err := os.Stat(vdfPath); err != nil {
		t.Errorf("app vdf missing at %q: %v", vdfPath, err)
	}

	appendLog(t, driver.logPath, "Successfully finished AppID 480 build (BuildID 99).\n")
	waitFor(t, "upload success", func() bool {
		op, ok := store.Get(start.OperationID)
		return ok && op.Status == state.Succeeded
	})
}

func TestUploadFallsBackToManual(t *testing.T) {
	driver := &fakeDriver{sendResult: inject.NotFound}
	a, store := newTestApp(t, driver)
	loginFor(t, a, store, driver)

	if err := a.PutUploadConfig("demo", config.UploadConfig{
		AppID: 480, DepotID: 481, ContentPath: t.TempDir(),
	}); err != nil {
		t.Fatal(err)
	}

	start, err := a.StartUpload("demo")
	if err != nil {
		t.Fatal(err)
	}
	if start.Delivery != "manual" {
		t.Errorf("delivery = %q, want manual", start.Delivery)
	}
	if len(driver.staged) != 1 {
		t.Errorf("driver staged %d commands, want 1", len(driver.staged))
	}
}

func TestUploadUnknownConfig(t *testing.T) {
	driver := &fakeDriver{}
	a, store := newTestApp(t, driver)
	loginFor(t, a, store, driver)

	if _, err := a.StartUpload("missing"); err == nil {
		t.Error("upload with unknown config should fail")
	}
}

func TestSignalIntervalCadence(t *testing.T) {
	m := config.MonitorConfig{
		PollInterval:       500 * time.Millisecond,
		WindowPollInterval: time.Second,
	}
	if got := signalInterval("linux", m); got != m.PollInterval {
		t.Errorf("linux cadence = %v, want %v", got, m.PollInterval)
	}
	if got := signalInterval("windows", m); got != m.PollInterval {
		t.Errorf("windows cadence = %v, want %v", got, m.PollInterval)
	}
	// darwin reads window text through osascript on every tick, so the
	// coarser window cadence applies.
	if got := signalInterval("darwin", m); got != m.WindowPollInterval {
		t.Errorf("darwin cadence = %v, want %v", got, m.WindowPollInterval)
	}
}

func TestStopAllClosesActiveOperations(t *testing.T) {
	driver := &fakeDriver{}
	a, store := newTestApp(t, driver)

	if _, err := a.StartLogin("dev", "x"); err != nil {
		t.Fatal(err)
	}

	closed := a.StopAll()
	if closed == 0 {
		t.Fatal("StopAll() closed nothing")
	}
	for _, op := range store.GetAll() {
		if !op.IsTerminal() {
			t.Errorf("operation %s still active after StopAll", op.ID)
		}
	}
}
