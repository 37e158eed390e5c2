//go:build darwin

package probe

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func newPlatformProbe(timeout time.Duration) Probe {
	return darwinProbe{timeout: timeout}
}

// darwinProbe drives Terminal.app through osascript. SteamCMD's macOS
// build writes no usable console log, so this probe also exposes window
// text for classification.
type darwinProbe struct {
	timeout time.Duration
}

// escapeAppleScript makes s safe to embed in a double-quoted AppleScript
// string literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func (p darwinProbe) WindowExists(ctx context.Context, pattern string) Result {
	script := fmt.Sprintf(`
tell application "Terminal"
	set matched to false
	repeat with w in windows
		try
			if name of w contains "%[1]s" then
				set matched to true
				exit repeat
			end if
			repeat with t in tabs of w
				if processes of t contains "%[1]s" or contents of t contains "%[1]s" then
					set matched to true
					exit repeat
				end if
			end repeat
			if matched then exit repeat
		end try
	end repeat
	return matched
end tell`, escapeAppleScript(pattern))

	out, ok := runScript(ctx, p.timeout, "osascript", "-e", script)
	if !ok {
		return Unknown
	}
	matched, ok := parseBool(out)
	if !ok {
		return Unknown
	}
	if matched {
		return Yes
	}
	return No
}

func (p darwinProbe) WindowText(ctx context.Context, pattern string) (string, Result) {
	script := fmt.Sprintf(`
tell application "Terminal"
	repeat with w in windows
		try
			repeat with t in tabs of w
				set tabContent to contents of t
				if (name of w contains "%[1]s") or (tabContent contains "%[1]s") then
					return tabContent
				end if
			end repeat
		end try
	end repeat
	return "NOTFOUND"
end tell`, escapeAppleScript(pattern))

	out, ok := runScript(ctx, p.timeout, "osascript", "-e", script)
	if !ok {
		return "", Unknown
	}
	if out == "NOTFOUND" {
		return "", No
	}
	return out, Yes
}

func (darwinProbe) ProcessAlive(ctx context.Context, imageName string) Result {
	return processAlive(ctx, imageName)
}

func (p darwinProbe) WindowCount(ctx context.Context) (int, Result) {
	out, ok := runScript(ctx, p.timeout, "osascript", "-e", `tell application "Terminal" to count windows`)
	if !ok {
		return 0, Unknown
	}
	n, ok := parseCount(out)
	if !ok {
		return 0, Unknown
	}
	return n, Yes
}
