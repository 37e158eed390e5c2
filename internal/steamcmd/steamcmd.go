// Package steamcmd locates the SteamCMD installation inside a Steamworks
// ContentBuilder tree and launches it in a visible OS console. The console
// must be a real window the user can see and type into: mobile Steam Guard
// approval and manual command entry both happen there.
package steamcmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppTag marks the console windows this tool creates so the window probes
// and the command injector can find them among the user's terminals.
const AppTag = "MornSteamCMD"

// builderDirs maps GOOS to the ContentBuilder subdirectory that holds the
// platform's steamcmd binary.
var builderDirs = map[string]string{
	"windows": "builder",
	"darwin":  "builder_osx",
	"linux":   "builder_linux",
}

var executableNames = map[string]string{
	"windows": "steamcmd.exe",
	"darwin":  "steamcmd.sh",
	"linux":   "steamcmd.sh",
}

// Install describes a resolved SteamCMD installation.
type Install struct {
	// Dir is the builder directory containing the executable.
	Dir string
	// Executable is the absolute path to steamcmd.
	Executable string
	// ImageName is the process image the liveness probe looks for.
	ImageName string
}

// Resolve locates SteamCMD under contentBuilderPath for the current
// platform. The ContentBuilder directory itself is accepted, as is its
// parent (the sdk "tools" directory layout varies between SDK drops).
func Resolve(contentBuilderPath string) (*Install, error) {
	return resolveFor(contentBuilderPath, runtime.GOOS)
}

func resolveFor(contentBuilderPath, goos string) (*Install, error) {
	builder, ok := builderDirs[goos]
	if !ok {
		return nil, fmt.Errorf("no steamcmd builder layout for %s", goos)
	}
	exe := executableNames[goos]

	candidates := []string{
		filepath.Join(contentBuilderPath, builder),
		filepath.Join(contentBuilderPath, "ContentBuilder", builder),
		contentBuilderPath,
	}
	for _, dir := range candidates {
		path := filepath.Join(dir, exe)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			return &Install{
				Dir:        filepath.Dir(abs),
				Executable: abs,
				ImageName:  exe,
			}, nil
		}
	}
	return nil, fmt.Errorf("steamcmd (%s) not found under %s", exe, contentBuilderPath)
}

// LoginArgs builds the steamcmd argument list for an interactive login.
// The password rides on the console session's command line only; it is
// never persisted by this package beyond the launch script, which the
// caller removes via CleanupScripts once login resolves.
func LoginArgs(username, password string) []string {
	return []string{"+login", username, password}
}

// UploadCommand builds the console command that runs an app build from a
// VDF file. Paths with spaces are quoted.
func UploadCommand(vdfPath string) string {
	if strings.ContainsAny(vdfPath, " \t") {
		return fmt.Sprintf("run_app_build %q", vdfPath)
	}
	return "run_app_build " + vdfPath
}

// LogCandidates returns the console log locations SteamCMD is known to
// write, in evaluation order, for the given installation directory.
func LogCandidates(installDir string) []string {
	return []string{
		filepath.Join(installDir, "logs", "console_log.txt"),
		filepath.Join(installDir, "logs", "stderr.txt"),
		filepath.Join(installDir, "logs", "stdout.txt"),
		filepath.Join(installDir, "..", "logs", "console_log.txt"),
		filepath.Join(installDir, "builder", "logs", "console_log.txt"),
		filepath.Join(installDir, "builder", "logs", "stderr.txt"),
	}
}

const scriptPrefix = "morn_steamcmd_session_"

// writeSessionScript writes the launch script that titles the console
// window with AppTag and starts steamcmd with the given arguments. The
// script may contain credentials, so it gets owner-only permissions and
// must be removed with CleanupScripts after the session starts up.
func writeSessionScript(install *Install, args []string) (string, error) {
	var body string
	var ext string
	switch runtime.GOOS {
	case "windows":
		ext = ".bat"
		body = fmt.Sprintf("@echo off\r\ntitle %s\r\ncd /d \"%s\"\r\n\"%s\" %s\r\n",
			AppTag, install.Dir, install.Executable, joinArgsWindows(args))
	default:
		ext = ".sh"
		body = fmt.Sprintf("#!/bin/sh\nprintf '\\033]0;%s\\007'\ncd %q\nexec %q %s\n",
			AppTag, install.Dir, install.Executable, joinArgsPosix(args))
	}

	f, err := os.CreateTemp("", scriptPrefix+"*"+ext)
	if err != nil {
		return "", fmt.Errorf("create session script: %w", err)
	}
	path := f.Name()
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write session script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	if err := os.Chmod(path, 0o700); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func joinArgsWindows(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			quoted[i] = `"` + a + `"`
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}

func joinArgsPosix(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	return strings.Join(quoted, " ")
}

// CleanupScripts removes any session scripts left in the temp directory.
// Scripts can carry credentials, so this runs as soon as the login
// monitor resolves, and again at daemon shutdown.
func CleanupScripts() int {
	pattern := filepath.Join(os.TempDir(), scriptPrefix+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed
}
