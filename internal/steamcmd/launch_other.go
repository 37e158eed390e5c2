//go:build !windows && !darwin

package steamcmd

import (
	"context"
	"fmt"
	"os/exec"
)

// terminalCommands are the terminal emulators tried in order on Linux and
// the BSDs. Each entry runs the session script in a fresh window.
var terminalCommands = [][]string{
	{"gnome-terminal", "--"},
	{"konsole", "-e"},
	{"xterm", "-T", AppTag, "-e"},
}

// Launch opens steamcmd in the first available terminal emulator.
func Launch(ctx context.Context, install *Install, args []string) error {
	script, err := writeSessionScript(install, args)
	if err != nil {
		return err
	}

	for _, term := range terminalCommands {
		if _, err := exec.LookPath(term[0]); err != nil {
			continue
		}
		argv := append(append([]string{}, term[1:]...), script)
		cmd := exec.CommandContext(ctx, term[0], argv...)
		if err := cmd.Start(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no usable terminal emulator found (tried gnome-terminal, konsole, xterm)")
}
