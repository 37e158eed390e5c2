package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/config"
	"github.com/matsufriends-org/steam-upload-helper/internal/state"
)

// fakeController records calls and returns canned results.
type fakeController struct {
	settings    config.Settings
	configs     map[string]config.UploadConfig
	loginUser   string
	loginErr    error
	uploadName  string
	uploadStart *UploadStart
	uploadErr   error
	stopped     int
}

func (f *fakeController) StartLogin(username, password string) (string, error) {
	f.loginUser = username
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "login-1", nil
}

func (f *fakeController) StartUpload(configName string) (*UploadStart, error) {
	f.uploadName = configName
	return f.uploadStart, f.uploadErr
}

func (f *fakeController) StopAll() int {
	f.stopped++
	return 2
}

func (f *fakeController) Settings() config.Settings { return f.settings }

func (f *fakeController) UpdateSettings(s config.Settings) error {
	f.settings = s
	return nil
}

func (f *fakeController) UploadConfigs() map[string]config.UploadConfig { return f.configs }

func (f *fakeController) PutUploadConfig(name string, cfg config.UploadConfig) error {
	if f.configs == nil {
		f.configs = make(map[string]config.UploadConfig)
	}
	f.configs[name] = cfg
	return nil
}

func (f *fakeController) DeleteUploadConfig(name string) error {
	if _, ok := f.configs[name]; !ok {
		return fmt.Errorf("no upload config named %q", name)
	}
	delete(f.configs, name)
	return nil
}

func newTestServer(t *testing.T, control Controller, token string) (*httptest.Server, *state.Store) {
	t.Helper()
	store := state.NewStore()
	b := NewBroadcaster(store, 10*time.Millisecond, time.Hour)
	s := NewServer(store, b, control, nil, token)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestStatusEndpoint(t *testing.T) {
	fc := &fakeController{}
	srv, store := newTestServer(t, fc, "")
	store.NewOperation(state.KindLogin, "dev")
	store.SetConsoleOpen(true)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var snap SnapshotPayload
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Operations) != 1 {
		t.Errorf("status returned %d operations, want 1", len(snap.Operations))
	}
	if !snap.Flags.ConsoleOpen {
		t.Error("status lost ConsoleOpen flag")
	}
}

func TestLoginEndpoint(t *testing.T) {
	fc := &fakeController{}
	srv, _ := newTestServer(t, fc, "")

	body := bytes.NewBufferString(`{"username":"dev","password":"hunter2"}`)
	resp, err := http.Post(srv.URL+"/api/login", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var out map[string]string
	json.NewDecoder(resp.Body).Decode(&out)
	if out["operationId"] != "login-1" {
		t.Errorf("operationId = %q", out["operationId"])
	}
	if fc.loginUser != "dev" {
		t.Errorf("controller saw username %q", fc.loginUser)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	srv, _ := newTestServer(t, &fakeController{}, "")

	body := bytes.NewBufferString(`{"username":"dev"}`)
	resp, err := http.Post(srv.URL+"/api/login", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("login without password = %d, want 400", resp.StatusCode)
	}
}

func TestLoginConflict(t *testing.T) {
	fc := &fakeController{loginErr: fmt.Errorf("a login is already in progress")}
	srv, _ := newTestServer(t, fc, "")

	body := bytes.NewBufferString(`{"username":"dev","password":"x"}`)
	resp, err := http.Post(srv.URL+"/api/login", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("conflicting login = %d, want 409", resp.StatusCode)
	}
}

func TestUploadEndpoint(t *testing.T) {
	fc := &fakeController{
		uploadStart: &UploadStart{OperationID: "upload-1", Delivery: "injected", Command: "run_app_build /tmp/app_480.vdf"},
	}
	srv, _ := newTestServer(t, fc, "")

	body := bytes.NewBufferString(`{"config":"demo"}`)
	resp, err := http.Post(srv.URL+"/api/upload", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, want 200", resp.StatusCode)
	}
	var start UploadStart
	json.NewDecoder(resp.Body).Decode(&start)
	if start.Delivery != "injected" {
		t.Errorf("delivery = %q", start.Delivery)
	}
	if fc.uploadName != "demo" {
		t.Errorf("controller saw config %q", fc.uploadName)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	fc := &fakeController{settings: config.Settings{Username: "dev"}}
	srv, _ := newTestServer(t, fc, "")

	resp, err := http.Get(srv.URL + "/api/settings")
	if err != nil {
		t.Fatal(err)
	}
	var got config.Settings
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got.Username != "dev" {
		t.Errorf("GET settings username = %q", got.Username)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/settings",
		bytes.NewBufferString(`{"username":"other","monitor_console":true}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT settings = %d, want 204", resp.StatusCode)
	}
	if fc.settings.Username != "other" {
		t.Errorf("controller settings username = %q", fc.settings.Username)
	}
}

func TestConfigsCRUD(t *testing.T) {
	fc := &fakeController{}
	srv, _ := newTestServer(t, fc, "")

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/configs/demo",
		bytes.NewBufferString(`{"app_id":480,"depot_id":481,"content_path":"./build"}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT config = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/configs")
	if err != nil {
		t.Fatal(err)
	}
	var all map[string]config.UploadConfig
	json.NewDecoder(resp.Body).Decode(&all)
	resp.Body.Close()
	if all["demo"].AppID != 480 {
		t.Errorf("GET configs = %+v", all)
	}

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/configs/demo", nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE config = %d, want 204", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/configs/demo", nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("DELETE absent config = %d, want 404", resp.StatusCode)
	}
}

func TestStopEndpoint(t *testing.T) {
	fc := &fakeController{}
	srv, _ := newTestServer(t, fc, "")

	resp, err := http.Post(srv.URL+"/api/stop", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]int
	json.NewDecoder(resp.Body).Decode(&out)
	if out["stopped"] != 2 {
		t.Errorf("stopped = %d, want 2", out["stopped"])
	}
	if fc.stopped != 1 {
		t.Errorf("StopAll called %d times", fc.stopped)
	}
}

func TestAuthToken(t *testing.T) {
	srv, _ := newTestServer(t, &fakeController{}, "secret")

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", resp.StatusCode)
	}

	for _, mutate := range []func(*http.Request){
		func(r *http.Request) { r.URL.RawQuery = "token=secret" },
		func(r *http.Request) { r.Header.Set("X-Steam-Helper-Token", "secret") },
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") },
	} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
		mutate(req)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("authorized request = %d, want 200", resp.StatusCode)
		}
	}
}
