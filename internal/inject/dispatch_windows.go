//go:build windows

package inject

import (
	"context"
	"fmt"
	"os/exec"
)

func dispatch(ctx context.Context, windowPattern string) (Result, error) {
	script := buildWindowsDispatchScript(windowPattern)
	out, err := exec.CommandContext(ctx,
		"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", script).Output()

	result := parseDispatchOutput(string(out))
	if result == Failed {
		if err != nil {
			return Failed, fmt.Errorf("powershell dispatch: %w", err)
		}
		return Failed, fmt.Errorf("powershell dispatch: %s", string(out))
	}
	return result, nil
}
