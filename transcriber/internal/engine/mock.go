package engine

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
)

// MockEngine produces a fixed number of synthetic segments after a short
// random delay per segment. It stands in for a real recognizer in local
// setups without a speech model.
type MockEngine struct {
	segments int
	maxDelay time.Duration

	sem slots
}

func NewMockEngine(segments int, maxDelay time.Duration, maxParallel int) *MockEngine {
	if segments <= 0 {
		segments = 3
	}
	return &MockEngine{segments: segments, maxDelay: maxDelay, sem: newSlots(maxParallel)}
}

func (m *MockEngine) Transcribe(ctx context.Context, inputPath, language string, emit EmitFunc) error {
	if err := m.sem.acquire(ctx); err != nil {
		return err
	}
	defer m.sem.release()

	name := filepath.Base(inputPath)
	start := 0.0
	for i := range m.segments {
		if m.maxDelay > 0 {
			delay := time.Duration(rand.Int63n(int64(m.maxDelay)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		end := start + 1.5 + rand.Float64()*3
		seg := domain.Segment{
			Start: start,
			End:   end,
			Text:  fmt.Sprintf("mock %s segment %d of %s", language, i+1, name),
		}
		if err := emit(seg); err != nil {
			return err
		}
		start = end
	}

	return nil
}
