//go:build !windows && !darwin

package probe

import (
	"context"
	"time"
)

// No window scripting layer here, but the process table still answers
// liveness. Window queries report Unknown and monitors rely on log files.
type otherProbe struct{}

func newPlatformProbe(time.Duration) Probe {
	return otherProbe{}
}

func (otherProbe) WindowExists(context.Context, string) Result { return Unknown }

func (otherProbe) WindowText(context.Context, string) (string, Result) { return "", Unknown }

func (otherProbe) ProcessAlive(ctx context.Context, imageName string) Result {
	return processAlive(ctx, imageName)
}

func (otherProbe) WindowCount(context.Context) (int, Result) { return 0, Unknown }
