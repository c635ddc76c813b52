package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
	"github.com/you-humble/sttqueue/core/filestore"

	"github.com/google/uuid"
)

const partitionLayout = "20060102"

var mediaExtensions = []string{".mp4", ".webm", ".ogg", ".mkv", ".avi", ".mp3", ".wav"}

type MediaStore interface {
	SaveUnique(ctx context.Context, reader io.Reader, dir, name string) (filestore.Saved, error)
	Open(ctx context.Context, filename string) (filestore.Object, error)
	Delete(ctx context.Context, filename string) error
	Path(filename string) (string, error)
	Tree(keep func(name string) bool, skipEmpty bool) (map[string][]string, error)
}

// TextStore serves transcripts and worker logs.
type TextStore interface {
	Open(ctx context.Context, filename string) (filestore.Object, error)
	Tree(keep func(name string) bool, skipEmpty bool) (map[string][]string, error)
	Files(keep func(name string) bool) ([]string, error)
}

type JobStore interface {
	Create(ctx context.Context, j domain.Job) error
	Job(ctx context.Context, id string) (domain.Job, error)
	Fail(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

type usecase struct {
	media       MediaStore
	transcripts TextStore
	logs        TextStore
	jobs        JobStore
	queue       JobQueue
	fetcher     Fetcher

	now func() time.Time
}

func New(
	media MediaStore,
	transcripts TextStore,
	logs TextStore,
	jobs JobStore,
	queue JobQueue,
	fetcher Fetcher,
) *usecase {
	return &usecase{
		media:       media,
		transcripts: transcripts,
		logs:        logs,
		jobs:        jobs,
		queue:       queue,
		fetcher:     fetcher,
		now:         time.Now,
	}
}

func (uc *usecase) SubmitUpload(ctx context.Context, file io.Reader, filename string) (domain.SubmitResponse, error) {
	if strings.TrimSpace(filename) == "" {
		return domain.SubmitResponse{}, domain.Invalid("filename is empty")
	}

	name, err := storedName(filename)
	if err != nil {
		return domain.SubmitResponse{}, err
	}

	return uc.submit(ctx, file, name)
}

func (uc *usecase) SubmitURL(ctx context.Context, rawURL string) (domain.SubmitResponse, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.SubmitResponse{}, domain.Invalid("invalid URL %q", rawURL)
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return domain.SubmitResponse{}, domain.Invalid("URL %q has no file name", rawURL)
	}
	name, err := storedName(base)
	if err != nil {
		return domain.SubmitResponse{}, err
	}

	body, err := uc.fetcher.Fetch(ctx, u.String())
	if err != nil {
		return domain.SubmitResponse{}, err
	}
	defer body.Close()

	return uc.submit(ctx, body, name)
}

// submit persists the media file, records the job as Pending and publishes
// it. When publishing fails the file is removed and the job marked Failed.
func (uc *usecase) submit(ctx context.Context, r io.Reader, name string) (domain.SubmitResponse, error) {
	now := uc.now()
	partition := now.Format(partitionLayout)

	saved, err := uc.media.SaveUnique(ctx, r, partition, name)
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("save media: %w", err)
	}

	inputPath, err := uc.media.Path(saved.Name)
	if err != nil {
		return domain.SubmitResponse{}, fmt.Errorf("resolve media path: %w", err)
	}

	job := domain.Job{
		ID:          uuid.NewString(),
		Status:      domain.StatusPending,
		InputPath:   inputPath,
		Partition:   partition,
		Filename:    saved.Stored,
		SubmittedAt: now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		uc.discard(saved.Name)
		return domain.SubmitResponse{}, fmt.Errorf("create job: %w", err)
	}

	slog.Debug("Enqueue job", slog.String("job_id", job.ID))
	if err := uc.queue.Enqueue(ctx, job.ID); err != nil {
		slog.Error("Enqueue failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		uc.discard(saved.Name)

		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, ferr := uc.jobs.Fail(failCtx, job.ID, "enqueue: "+err.Error(), uc.now()); ferr != nil {
			slog.Error("mark job failed", slog.String("job_id", job.ID), slog.String("error", ferr.Error()))
		}
		return domain.SubmitResponse{}, fmt.Errorf("enqueue: %w", err)
	}

	slog.Info("job submitted",
		slog.String("job_id", job.ID),
		slog.String("filename", saved.Name),
		slog.Int64("size", saved.Written),
	)

	return domain.SubmitResponse{Filename: saved.Stored, JobID: job.ID}, nil
}

func (uc *usecase) discard(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.media.Delete(ctx, name); err != nil {
		slog.Warn("delete media", slog.String("filename", name), slog.String("error", err.Error()))
	}
}

// Status returns the job's public view. Unknown ids yield an Unknown status
// together with domain.ErrJobNotFound.
func (uc *usecase) Status(ctx context.Context, jobID string) (domain.StatusResponse, error) {
	if jobID == "" {
		return domain.StatusResponse{}, domain.Invalid("id is required")
	}

	job, err := uc.jobs.Job(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return domain.StatusResponse{JobID: jobID, Status: domain.StatusUnknown}, err
		}
		return domain.StatusResponse{}, fmt.Errorf("load job: %w", err)
	}

	resp := domain.StatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		SubmittedAt: timePtr(job.SubmittedAt),
		StartedAt:   timePtr(job.StartedAt),
		FinishedAt:  timePtr(job.FinishedAt),
	}
	switch job.Status {
	case domain.StatusSucceeded:
		resp.Result = job.Result
	case domain.StatusFailed:
		resp.Error = job.Error
	}

	return resp, nil
}

func (uc *usecase) Transcripts(ctx context.Context) (map[string][]string, error) {
	return uc.transcripts.Tree(hasExt(".txt"), false)
}

func (uc *usecase) TranscriptContent(ctx context.Context, date, filename string) (string, error) {
	if err := validPartition(date); err != nil {
		return "", err
	}
	if err := validName(filename); err != nil {
		return "", err
	}
	return readAll(ctx, uc.transcripts, path.Join(date, filename))
}

func (uc *usecase) Logs(ctx context.Context) ([]string, error) {
	return uc.logs.Files(func(name string) bool { return strings.Contains(name, ".log") })
}

func (uc *usecase) LogContent(ctx context.Context, filename string) (string, error) {
	if err := validName(filename); err != nil {
		return "", err
	}
	return readAll(ctx, uc.logs, filename)
}

func (uc *usecase) Media(ctx context.Context) (map[string][]string, error) {
	return uc.media.Tree(hasExt(mediaExtensions...), true)
}

// OpenMedia opens a stored media file; the caller closes its Content.
func (uc *usecase) OpenMedia(ctx context.Context, date, filename string) (filestore.Object, error) {
	if err := validPartition(date); err != nil {
		return filestore.Object{}, err
	}
	if err := validName(filename); err != nil {
		return filestore.Object{}, err
	}
	return uc.media.Open(ctx, path.Join(date, filename))
}

func readAll(ctx context.Context, s TextStore, name string) (string, error) {
	obj, err := s.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer obj.Content.Close()

	data, err := io.ReadAll(obj.Content)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// storedName sanitizes a client file name; leading dots are dropped so the
// stored file is never hidden.
func storedName(raw string) (string, error) {
	name := strings.TrimLeft(filestore.Sanitize(raw), ".")
	if name == "" {
		return "", domain.Invalid("filename %q has no usable characters", raw)
	}
	return name, nil
}

func validPartition(date string) error {
	if len(date) != len(partitionLayout) {
		return domain.Invalid("date must be YYYYMMDD, got %q", date)
	}
	for _, r := range date {
		if r < '0' || r > '9' {
			return domain.Invalid("date must be YYYYMMDD, got %q", date)
		}
	}
	return nil
}

func validName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return domain.Invalid("invalid filename %q", name)
	}
	return nil
}

func hasExt(exts ...string) func(string) bool {
	return func(name string) bool {
		lower := strings.ToLower(name)
		for _, ext := range exts {
			if strings.HasSuffix(lower, ext) {
				return true
			}
		}
		return false
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
