//go:build darwin

package inject

import (
	"context"
	"fmt"
	"os/exec"
)

func dispatch(ctx context.Context, windowPattern string) (Result, error) {
	script := buildDarwinDispatchScript(windowPattern)
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()

	result := parseDispatchOutput(string(out))
	if result == Failed {
		if err != nil {
			return Failed, fmt.Errorf("osascript dispatch: %w", err)
		}
		return Failed, fmt.Errorf("osascript dispatch: %s", string(out))
	}
	return result, nil
}
