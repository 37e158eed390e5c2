// Package probe queries the operating system's window manager and process
// table to answer "is the external console still there?" without any IPC
// channel to the process itself.
//
// Probes never return errors: a failed or malformed OS query yields Unknown,
// which callers treat as "no new information", never as a terminal state.
// This avoids false-positive closure detection from a single flaky scripting
// call.
package probe

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Result is a tri-state probe answer.
type Result int

const (
	// Unknown means the query failed or the platform cannot answer it.
	Unknown Result = iota
	// Yes means the probed condition definitely holds.
	Yes
	// No means the probed condition definitely does not hold.
	No
)

func (r Result) String() string {
	switch r {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "unknown"
}

// Probe answers existence questions about an external window/process.
type Probe interface {
	// WindowExists reports whether a visible window whose title contains
	// pattern exists.
	WindowExists(ctx context.Context, pattern string) Result

	// WindowText returns the visible text of the first window matching
	// pattern, on platforms that can read window contents (macOS
	// Terminal). Elsewhere the result is ("", Unknown) and callers must
	// rely on log files.
	WindowText(ctx context.Context, pattern string) (string, Result)

	// ProcessAlive reports whether a process with the given image name
	// (e.g. "steamcmd.exe", "steamcmd") is running.
	ProcessAlive(ctx context.Context, imageName string) Result

	// WindowCount returns the number of candidate console windows. A
	// definite zero means the hosting terminal application has no windows
	// at all.
	WindowCount(ctx context.Context) (int, Result)
}

// defaultScriptTimeout bounds OS scripting calls when the caller supplies
// no budget.
const defaultScriptTimeout = 5 * time.Second

// New returns the probe for the current platform. timeout bounds every OS
// scripting call so a stalled osascript or powershell invocation cannot
// wedge a poll tick; zero or negative selects the default. On platforms
// without window scripting support every probe answers Unknown and
// monitoring degrades to log files only.
func New(timeout time.Duration) Probe {
	if timeout <= 0 {
		timeout = defaultScriptTimeout
	}
	return newPlatformProbe(timeout)
}

// Unsupported is the degraded probe used where no OS scripting layer
// exists. Exported for callers that want to force log-only monitoring.
type Unsupported struct{}

func (Unsupported) WindowExists(context.Context, string) Result { return Unknown }

func (Unsupported) WindowText(context.Context, string) (string, Result) { return "", Unknown }

func (Unsupported) ProcessAlive(context.Context, string) Result { return Unknown }

func (Unsupported) WindowCount(context.Context) (int, Result) { return 0, Unknown }

// processAlive checks the process table via gopsutil. Shared by the
// platform probes; errors from the process table read yield Unknown.
func processAlive(ctx context.Context, imageName string) Result {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return Unknown
	}
	want := trimImageExt(imageName)
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.EqualFold(trimImageExt(name), want) {
			return Yes
		}
	}
	return No
}

// trimImageExt drops a trailing executable extension so "steamcmd.exe"
// matches a process reported as "steamcmd" and vice versa.
func trimImageExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".exe", ".sh"} {
		if strings.HasSuffix(lower, ext) {
			return lower[:len(lower)-len(ext)]
		}
	}
	return lower
}

// runScript executes an OS scripting interpreter with a hard timeout and
// returns trimmed stdout. Any failure is reported as ok=false; callers map
// that to Unknown.
func runScript(ctx context.Context, timeout time.Duration, name string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}
