package jobstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/you-humble/sttqueue/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type store interface {
	Create(ctx context.Context, j domain.Job) error
	Job(ctx context.Context, id string) (domain.Job, error)
	MarkRunning(ctx context.Context, id string, at time.Time) (bool, error)
	Complete(ctx context.Context, id, result string, at time.Time) (bool, error)
	Fail(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

func TestRedisJobStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	runStoreContract(t, func() store { return NewRedisJobStore(rdb) })
}

func TestSQLiteJobStore(t *testing.T) {
	s, err := NewSQLiteJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	runStoreContract(t, func() store { return s })
}

func runStoreContract(t *testing.T, newStore func() store) {
	t.Run("unknown job", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()

		if _, err := s.Job(ctx, "missing"); !errors.Is(err, domain.ErrJobNotFound) {
			t.Fatalf("Job error = %v, want ErrJobNotFound", err)
		}
		if _, err := s.MarkRunning(ctx, "missing", time.Now()); !errors.Is(err, domain.ErrJobNotFound) {
			t.Fatalf("MarkRunning error = %v, want ErrJobNotFound", err)
		}
		if _, err := s.Complete(ctx, "missing", "x", time.Now()); !errors.Is(err, domain.ErrJobNotFound) {
			t.Fatalf("Complete error = %v, want ErrJobNotFound", err)
		}
	})

	t.Run("lifecycle", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()
		submitted := time.Unix(1_753_860_000, 0)

		job := domain.Job{
			ID:          "job-lifecycle",
			InputPath:   "/data/media/20250730/lecture.mp4",
			Partition:   "20250730",
			Filename:    "lecture.mp4",
			SubmittedAt: submitted,
		}
		if err := s.Create(ctx, job); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := s.Job(ctx, job.ID)
		if err != nil {
			t.Fatalf("job: %v", err)
		}
		if got.Status != domain.StatusPending || got.InputPath != job.InputPath || !got.SubmittedAt.Equal(submitted) {
			t.Fatalf("pending job = %+v", got)
		}
		if !got.FinishedAt.IsZero() {
			t.Fatalf("finished_at should be zero, got %v", got.FinishedAt)
		}

		if ok, err := s.MarkRunning(ctx, job.ID, submitted.Add(time.Second)); err != nil || !ok {
			t.Fatalf("mark running = %v, %v", ok, err)
		}
		// a redelivered job may be started again
		if ok, err := s.MarkRunning(ctx, job.ID, submitted.Add(2*time.Second)); err != nil || !ok {
			t.Fatalf("second mark running = %v, %v", ok, err)
		}

		finished := submitted.Add(time.Minute)
		if ok, err := s.Complete(ctx, job.ID, "/data/transcripts/20250730/lecture.txt", finished); err != nil || !ok {
			t.Fatalf("complete = %v, %v", ok, err)
		}

		got, err = s.Job(ctx, job.ID)
		if err != nil {
			t.Fatalf("job: %v", err)
		}
		if got.Status != domain.StatusSucceeded || got.Result != "/data/transcripts/20250730/lecture.txt" {
			t.Fatalf("succeeded job = %+v", got)
		}
		if got.Attempts != 2 || !got.FinishedAt.Equal(finished) {
			t.Fatalf("attempts = %d finished = %v", got.Attempts, got.FinishedAt)
		}
	})

	t.Run("terminal state is written once", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()

		job := domain.Job{ID: "job-terminal", InputPath: "/in.mp4", Partition: "20250730", Filename: "in.mp4", SubmittedAt: time.Now()}
		if err := s.Create(ctx, job); err != nil {
			t.Fatalf("create: %v", err)
		}
		if ok, err := s.Fail(ctx, job.ID, "unsupported codec", time.Now()); err != nil || !ok {
			t.Fatalf("fail = %v, %v", ok, err)
		}

		if ok, err := s.Complete(ctx, job.ID, "/stale.txt", time.Now()); err != nil || ok {
			t.Fatalf("complete after fail = %v, %v; want no-op", ok, err)
		}
		if ok, err := s.Fail(ctx, job.ID, "other", time.Now()); err != nil || ok {
			t.Fatalf("second fail = %v, %v; want no-op", ok, err)
		}
		if ok, err := s.MarkRunning(ctx, job.ID, time.Now()); err != nil || ok {
			t.Fatalf("running after fail = %v, %v; want rejected", ok, err)
		}

		got, err := s.Job(ctx, job.ID)
		if err != nil {
			t.Fatalf("job: %v", err)
		}
		if got.Status != domain.StatusFailed || got.Error != "unsupported codec" || got.Result != "" {
			t.Fatalf("job = %+v", got)
		}
	})

	t.Run("concurrent completion applies once", func(t *testing.T) {
		s := newStore()
		ctx := context.Background()

		job := domain.Job{ID: "job-race", InputPath: "/in.mp4", Partition: "20250730", Filename: "in.mp4", SubmittedAt: time.Now()}
		if err := s.Create(ctx, job); err != nil {
			t.Fatalf("create: %v", err)
		}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Complete(ctx, job.ID, "/out.txt", time.Now())
				if err != nil {
					t.Errorf("complete: %v", err)
					return
				}
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Fatalf("applied completions = %d, want 1", wins.Load())
		}
	})
}
