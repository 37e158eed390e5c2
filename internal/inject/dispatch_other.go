//go:build !windows && !darwin

package inject

import "context"

func dispatch(ctx context.Context, windowPattern string) (Result, error) {
	return Failed, ErrUnsupported
}
