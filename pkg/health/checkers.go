package health

import (
	"context"
	"fmt"
	"runtime"
)

// GoroutineCountCheck returns a liveness check that fails when the number of
// goroutines exceeds threshold, a cheap proxy for leaks and runaway fan-out.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if count := runtime.NumGoroutine(); count > threshold {
			return fmt.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}
