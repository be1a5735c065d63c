package refinement

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrInterpolationFailed is reported when no position of an infeasible
	// error path carries new information. It is fatal to the verification run.
	ErrInterpolationFailed = errors.New("interpolation failed")
	// ErrNoTargets is reported when refinement is requested for a reached set
	// without target states.
	ErrNoTargets = errors.New("reached set contains no target state")
)

// IsCancellation checks whether the error stems from a cancelled or
// expired context.
func IsCancellation(err error) bool {
	cause := errors.Cause(err)
	return cause == context.Canceled || cause == context.DeadlineExceeded
}

func interrupted(ctx context.Context, what string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, what+" interrupted")
	}
	return nil
}
