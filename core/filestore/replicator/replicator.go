// Package replicator copies locally stored files to a secondary store in the
// background. Replication is best effort: the local copy stays authoritative.
package replicator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Source interface {
	OpenReader(ctx context.Context, filename string) (io.ReadCloser, int64, error)
}

type Sink interface {
	Save(ctx context.Context, reader io.Reader, filename string, size int64) (int64, string, error)
}

type ReplicateJob struct {
	Filename string
	Size     int64
	Hash     string
}

type Replicator struct {
	local  Source
	remote Sink

	queue      chan ReplicateJob
	workerNum  int
	maxRetries int
	interval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewReplicator(local Source, remote Sink, queueSize, workerNum, maxRetries int) *Replicator {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workerNum <= 0 {
		workerNum = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Replicator{
		local:      local,
		remote:     remote,
		queue:      make(chan ReplicateJob, queueSize),
		workerNum:  workerNum,
		maxRetries: maxRetries,
		interval:   500 * time.Millisecond,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (r *Replicator) Start(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.mu.Unlock()

	r.wg.Add(r.workerNum)
	for i := 0; i < r.workerNum; i++ {
		go r.worker()
	}
}

// Stop closes the queue and waits for queued jobs to drain. When ctx expires
// first, in-flight uploads are canceled.
func (r *Replicator) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		r.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	case <-doneCh:
	}

	r.cancel()
	slog.Info("replicator: stopped")
	return nil
}

// Enqueue schedules job without blocking; false means the job was dropped.
func (r *Replicator) Enqueue(job ReplicateJob) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}

	select {
	case r.queue <- job:
		return true
	default:
		return false
	}
}

func (r *Replicator) worker() {
	defer r.wg.Done()

	for job := range r.queue {
		r.handleJob(r.ctx, job)
	}
}

func (r *Replicator) handleJob(ctx context.Context, job ReplicateJob) {
	l := slog.With(slog.String("filename", job.Filename))

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(backoff.WithInitialInterval(r.interval)),
			uint64(r.maxRetries),
		),
		ctx,
	)

	attempts := 0
	err := backoff.RetryNotify(
		func() error {
			attempts++
			return r.replicateOnce(ctx, job)
		},
		policy,
		func(err error, wait time.Duration) {
			l.Warn("replication failed, retrying",
				slog.Int("attempt", attempts),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()),
			)
		},
	)
	if err != nil && ctx.Err() == nil {
		l.Error("replication failed, max retries exceeded",
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Replicator) replicateOnce(ctx context.Context, job ReplicateJob) error {
	rc, size, err := r.local.OpenReader(ctx, job.Filename)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer rc.Close()

	if job.Size > 0 {
		size = job.Size
	}

	written, remoteHash, err := r.remote.Save(ctx, rc, job.Filename, size)
	if err != nil {
		return fmt.Errorf("save to remote: %w", err)
	}

	if written != size {
		return fmt.Errorf("remote save wrote %d of %d bytes", written, size)
	}

	if job.Hash != "" && remoteHash != "" && job.Hash != remoteHash {
		return fmt.Errorf("hash mismatch: local=%s remote=%s", job.Hash, remoteHash)
	}

	slog.Debug("replicator: file replicated",
		slog.String("filename", job.Filename),
		slog.Int64("size", written),
	)

	return nil
}
