//go:build windows

package probe

import (
	"context"
	"time"
)

func newPlatformProbe(timeout time.Duration) Probe {
	return windowsProbe{timeout: timeout}
}

// windowsProbe answers via the process table (gopsutil) and a PowerShell
// enumeration of top-level window titles. Console window text cannot be
// read without injecting into the console host, so WindowText is Unknown
// and callers rely on SteamCMD's log files, which Windows installs always
// write.
type windowsProbe struct {
	timeout time.Duration
}

// listWindowTitles returns the titles of all processes that own a visible
// main window.
const listWindowTitlesScript = `Get-Process | Where-Object { $_.MainWindowTitle -ne '' } | ForEach-Object { $_.MainWindowTitle }`

func (p windowsProbe) WindowExists(ctx context.Context, pattern string) Result {
	out, ok := runScript(ctx, p.timeout, "powershell", "-NoProfile", "-Command", listWindowTitlesScript)
	if !ok {
		return Unknown
	}
	if titlesContain(parseWindowTitles(out), pattern) {
		return Yes
	}
	return No
}

func (windowsProbe) WindowText(ctx context.Context, pattern string) (string, Result) {
	return "", Unknown
}

func (windowsProbe) ProcessAlive(ctx context.Context, imageName string) Result {
	return processAlive(ctx, imageName)
}

func (p windowsProbe) WindowCount(ctx context.Context) (int, Result) {
	out, ok := runScript(ctx, p.timeout, "powershell", "-NoProfile", "-Command", listWindowTitlesScript)
	if !ok {
		return 0, Unknown
	}
	return len(parseWindowTitles(out)), Yes
}
