// Package engine turns a media file into timestamped speech segments.
package engine

import (
	"context"
	"fmt"

	"github.com/you-humble/sttqueue/core/domain"
)

// EmitFunc receives segments in order as they are recognized. A non-nil
// error stops the run and is returned from Transcribe.
type EmitFunc func(domain.Segment) error

// slots is a counting semaphore bounding concurrent runs.
type slots chan struct{}

func newSlots(n int) slots {
	if n <= 0 {
		n = 1
	}
	return make(slots, n)
}

func (s slots) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine busy or canceled: %w", ctx.Err())
	}
}

func (s slots) release() {
	<-s
}
