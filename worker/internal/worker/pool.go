package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
	"github.com/you-humble/sttqueue/core/filestore"

	"golang.org/x/sync/errgroup"
)

type JobStore interface {
	Job(ctx context.Context, id string) (domain.Job, error)
	MarkRunning(ctx context.Context, id string, at time.Time) (bool, error)
	Complete(ctx context.Context, id, result string, at time.Time) (bool, error)
	Fail(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

type Delivery interface {
	JobID() string
	Attempt() uint64
	Ack() error
	Nak() error
}

type Queue interface {
	Dequeue(ctx context.Context) (Delivery, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, inputPath, language string, emit func(domain.Segment) error) error
}

type TranscriptStore interface {
	SaveOwned(ctx context.Context, reader io.Reader, dir, name, owner string) (filestore.Saved, error)
	Path(filename string) (string, error)
}

type Config struct {
	Size              int
	Language          string
	TranscribeTimeout time.Duration
	// StoreTimeout bounds job store writes made after transcription; they
	// run even while the pool is shutting down.
	StoreTimeout time.Duration
}

type pool struct {
	cfg         Config
	queue       Queue
	jobs        JobStore
	transcriber Transcriber
	transcripts TranscriptStore

	now func() time.Time
}

func New(
	cfg Config,
	queue Queue,
	jobs JobStore,
	transcriber Transcriber,
	transcripts TranscriptStore,
) *pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 10 * time.Second
	}

	return &pool{
		cfg:         cfg,
		queue:       queue,
		jobs:        jobs,
		transcriber: transcriber,
		transcripts: transcripts,
		now:         time.Now,
	}
}

// Run starts cfg.Size workers and blocks until ctx is canceled and every
// worker has finished its current job.
func (p *pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := range p.cfg.Size {
		g.Go(func() error {
			p.runWorker(ctx, i+1)
			return nil
		})
	}

	slog.Info("worker pool is running", slog.Int("workers", p.cfg.Size))

	err := g.Wait()
	slog.Info("worker pool stopped")
	return err
}

func (p *pool) runWorker(ctx context.Context, n int) {
	log := slog.With(slog.Int("worker", n))

	for {
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping")
				return
			}
			log.Warn("dequeue", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		p.handle(ctx, log, d)
	}
}

// outcome tells the worker how to settle a delivery.
type outcome int

const (
	ack outcome = iota
	nak
)

func (p *pool) handle(ctx context.Context, log *slog.Logger, d Delivery) {
	jobID := d.JobID()
	log = log.With(slog.String("job_id", jobID), slog.Uint64("delivery", d.Attempt()))

	res := p.safeProcess(ctx, log, jobID)

	switch res {
	case nak:
		if err := d.Nak(); err != nil {
			log.Warn("NATS Nak", slog.String("error", err.Error()))
		}
	default:
		if err := d.Ack(); err != nil {
			log.Warn("NATS Ack", slog.String("error", err.Error()))
		}
	}
}

// safeProcess contains panics to the job that raised them.
func (p *pool) safeProcess(ctx context.Context, log *slog.Logger, jobID string) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing job", slog.Any("panic", r))
			res = p.finish(ctx, log, jobID, "", fmt.Errorf("internal error: %v", r))
		}
	}()

	return p.process(ctx, log, jobID)
}

func (p *pool) process(ctx context.Context, log *slog.Logger, jobID string) outcome {
	job, err := p.jobs.Job(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			log.Error("job record missing, dropping message")
			return ack
		}
		log.Error("load job", slog.String("error", err.Error()))
		return nak
	}

	if job.Status.Terminal() {
		log.Info("job already finished, dropping duplicate delivery", slog.String("status", string(job.Status)))
		return ack
	}

	applied, err := p.jobs.MarkRunning(ctx, jobID, p.now())
	if err != nil {
		log.Error("mark running", slog.String("error", err.Error()))
		return nak
	}
	if !applied {
		log.Info("job finished concurrently, dropping delivery")
		return ack
	}

	log.Info("transcription start", slog.String("input_path", job.InputPath))
	start := p.now()

	result, err := p.transcribe(ctx, job)
	if err != nil && ctx.Err() != nil {
		// shutting down: leave the job Running so it is redelivered
		log.Warn("transcription interrupted by shutdown", slog.String("error", err.Error()))
		return nak
	}

	res := p.finish(ctx, log, jobID, result, err)
	if err == nil {
		log.Info("transcription done",
			slog.String("result", result),
			slog.Duration("duration", p.now().Sub(start)),
		)
	}
	return res
}

// finish records the job outcome. It returns nak when the store could not
// be updated, so the state is retried on redelivery.
func (p *pool) finish(ctx context.Context, log *slog.Logger, jobID, result string, runErr error) outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.StoreTimeout)
	defer cancel()

	var (
		applied bool
		err     error
	)
	if runErr != nil {
		log.Error("transcription failed", slog.String("error", runErr.Error()))
		applied, err = p.jobs.Fail(ctx, jobID, runErr.Error(), p.now())
	} else {
		applied, err = p.jobs.Complete(ctx, jobID, result, p.now())
	}

	if err != nil {
		log.Error("record job outcome", slog.String("error", err.Error()))
		if errors.Is(err, domain.ErrJobNotFound) {
			return ack
		}
		return nak
	}
	if !applied {
		log.Warn("job outcome already recorded, keeping the first one")
	}
	return ack
}

// transcribe streams segments from the Transcriber into the transcript
// file and returns its absolute path. The file only appears once every
// segment is written.
func (p *pool) transcribe(ctx context.Context, job domain.Job) (string, error) {
	if p.cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TranscribeTimeout)
		defer cancel()
	}

	type saveResult struct {
		saved filestore.Saved
		err   error
	}

	pr, pw := io.Pipe()
	done := make(chan saveResult, 1)
	go func() {
		// a redelivered job reclaims its own name; other jobs with the
		// same stem get a suffixed one
		saved, err := p.transcripts.SaveOwned(ctx, pr, job.Partition, filestore.Stem(job.Filename)+".txt", job.ID)
		pr.CloseWithError(err)
		done <- saveResult{saved: saved, err: err}
	}()

	runErr := p.runTranscriber(ctx, job, func(seg domain.Segment) error {
		_, err := io.WriteString(pw, seg.Line())
		return err
	})
	pw.CloseWithError(runErr)

	res := <-done
	if runErr != nil {
		return "", runErr
	}
	if res.err != nil {
		return "", fmt.Errorf("save transcript: %w", res.err)
	}

	return p.transcripts.Path(res.saved.Name)
}

func (p *pool) runTranscriber(ctx context.Context, job domain.Job, emit func(domain.Segment) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcriber panicked: %v", r)
		}
	}()

	return p.transcriber.Transcribe(ctx, job.InputPath, p.cfg.Language, emit)
}
