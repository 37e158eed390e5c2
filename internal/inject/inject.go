// Package inject delivers a command line to a foreign console window. The
// console exposes no IPC channel, so delivery works by staging the command
// on the system clipboard, briefly stealing foreground focus, dispatching a
// paste-and-submit keystroke, and restoring the previously focused window.
//
// The clipboard is used instead of typing literal characters so that
// non-ASCII text and shell metacharacters arrive intact and cannot be
// reinterpreted by an active input method.
package inject

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// Result classifies the outcome of a Send call.
type Result int

const (
	// Sent means the keystrokes were dispatched to the target window.
	Sent Result = iota
	// NotFound means no window matched the pattern. This is an expected
	// outcome, not an error: the caller decides whether to retry or fall
	// back to manual entry.
	NotFound
	// Failed means the scripting layer errored or timed out.
	Failed
)

func (r Result) String() string {
	switch r {
	case Sent:
		return "sent"
	case NotFound:
		return "not_found"
	}
	return "failed"
}

// ErrUnsupported is returned on platforms without a keystroke scripting
// layer. Callers fall back to Stage plus a manual instruction.
var ErrUnsupported = errors.New("inject: keystroke dispatch not supported on this platform")

// AppTag is the title marker the launcher stamps on consoles it opens.
// Windows carrying it are preferred over generic pattern matches so a
// user's unrelated terminal is never focused by mistake.
const AppTag = "MornSteamCMD"

// focusMu serializes all Send calls in this process. Foreground focus is a
// single desktop-wide resource; two concurrent senders would race each
// other's focus changes and paste into the wrong window.
var focusMu sync.Mutex

// Injector sends commands to console windows with a bounded wall-clock
// budget per call.
type Injector struct {
	timeout time.Duration
}

// New returns an Injector whose Send calls are bounded by timeout. A
// non-positive timeout selects the default of 12 seconds.
func New(timeout time.Duration) *Injector {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Injector{timeout: timeout}
}

// Send stages command on the clipboard and dispatches a paste-and-submit
// keystroke to the first visible window matching windowPattern. The
// previously focused window is restored regardless of outcome; when the
// target is not found no focus change happens at all.
func (i *Injector) Send(ctx context.Context, command, windowPattern string) (Result, error) {
	focusMu.Lock()
	defer focusMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := clipboard.WriteAll(command); err != nil {
		return Failed, fmt.Errorf("stage clipboard: %w", err)
	}
	return dispatch(ctx, windowPattern)
}

// Stage copies command to the clipboard without touching any window. Used
// as the manual fallback when dispatch is unsupported or fails: the user
// pastes into the console themselves.
func Stage(command string) error {
	return clipboard.WriteAll(command)
}
