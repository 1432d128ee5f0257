package functions

import (
	"context"
	"time"
)

func (b *builtins) registerAsync(r *Registry) {
	r.MustAdd(Description{
		Name:        "WAIT",
		Description: "Returns a value after a delay, without blocking the rest of the evaluation.",
		Args: []ArgDefinition{
			Arg("delay (number) Delay in milliseconds."),
			Arg("value (any, optional) The value to return once the delay elapsed. Defaults to the delay."),
		},
		ComputeAsync: func(ctx context.Context, args ...any) (Value, error) {
			delay, err := numberArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			timer := time.NewTimer(time.Duration(delay * float64(time.Millisecond)))
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timer.C:
			}
			return argOr(args, 1, delay), nil
		},
	})
}
