//go:build darwin

package steamcmd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Launch opens a new Terminal window running steamcmd with args. The
// session script sets the window title so the probes can find it.
func Launch(ctx context.Context, install *Install, args []string) error {
	script, err := writeSessionScript(install, args)
	if err != nil {
		return err
	}

	escaped := strings.ReplaceAll(script, `"`, `\"`)
	osa := fmt.Sprintf(`tell application "Terminal"
	activate
	do script "%s"
end tell`, escaped)

	cmd := exec.CommandContext(ctx, "osascript", "-e", osa)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("launch steamcmd terminal: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}
