//go:build windows

package steamcmd

import (
	"context"
	"fmt"
	"os/exec"
)

// Launch opens a new visible console window running steamcmd with args.
// The window is owned by the OS shell, not by this process; monitors
// track it through the probes, never through a process handle.
func Launch(ctx context.Context, install *Install, args []string) error {
	script, err := writeSessionScript(install, args)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "cmd", "/c", "start", "", script)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launch steamcmd console: %w", err)
	}
	return nil
}
