package filestore

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/you-humble/sttqueue/core/domain"
	"github.com/you-humble/sttqueue/core/filestore/replicator"
)

type Remote interface {
	Save(ctx context.Context, reader io.Reader, filename string, size int64) (int64, string, error)
	Open(ctx context.Context, filename string) (Object, error)
	Delete(ctx context.Context, filename string) error
}

// asyncStore keeps the local disk authoritative and mirrors writes to an
// optional remote store in the background. Reads fall back to the remote
// copy when the local file is gone.
type asyncStore struct {
	*localStore

	remote     Remote
	replicator *replicator.Replicator
}

// NewAsyncStore wraps local; remote may be nil to disable replication.
func NewAsyncStore(
	ctx context.Context,
	local *localStore,
	remote Remote,
	queueSize,
	workerNum,
	maxRetries int,
) *asyncStore {
	s := &asyncStore{localStore: local, remote: remote}
	if remote == nil {
		return s
	}

	s.replicator = replicator.NewReplicator(local, remote, queueSize, workerNum, maxRetries)
	s.replicator.Start(ctx)
	return s
}

func (s *asyncStore) Close(ctx context.Context) error {
	if s.replicator == nil {
		return nil
	}
	return s.replicator.Stop(ctx)
}

func (s *asyncStore) Save(
	ctx context.Context,
	reader io.Reader,
	filename string,
	size int64,
) (int64, string, error) {
	written, hash, err := s.localStore.Save(ctx, reader, filename, size)
	if err != nil {
		return 0, "", err
	}

	s.replicate(filename, written, hash)
	return written, hash, nil
}

func (s *asyncStore) SaveUnique(
	ctx context.Context,
	reader io.Reader,
	dir, name string,
) (Saved, error) {
	saved, err := s.localStore.SaveUnique(ctx, reader, dir, name)
	if err != nil {
		return Saved{}, err
	}

	s.replicate(saved.Name, saved.Written, saved.Hash)
	return saved, nil
}

func (s *asyncStore) SaveOwned(
	ctx context.Context,
	reader io.Reader,
	dir, name, owner string,
) (Saved, error) {
	saved, err := s.localStore.SaveOwned(ctx, reader, dir, name, owner)
	if err != nil {
		return Saved{}, err
	}

	s.replicate(saved.Name, saved.Written, saved.Hash)
	return saved, nil
}

func (s *asyncStore) replicate(filename string, size int64, hash string) {
	if s.replicator == nil {
		return
	}

	ok := s.replicator.Enqueue(replicator.ReplicateJob{
		Filename: filename,
		Size:     size,
		Hash:     hash,
	})
	if !ok {
		slog.Error("asyncStore: replication queue full, file saved only locally",
			slog.String("filename", filename),
			slog.Int64("size", size),
		)
	}
}

func (s *asyncStore) Open(ctx context.Context, filename string) (Object, error) {
	obj, err := s.localStore.Open(ctx, filename)
	if err == nil || s.remote == nil || !errors.Is(err, domain.ErrNotFound) {
		return obj, err
	}

	return s.remote.Open(ctx, filename)
}

func (s *asyncStore) Delete(ctx context.Context, filename string) error {
	var firstErr error

	if err := s.localStore.Delete(ctx, filename); err != nil {
		firstErr = err
		slog.Warn("asyncStore: delete local failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}

	if s.remote == nil {
		return firstErr
	}

	if err := s.remote.Delete(ctx, filename); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		slog.Warn("asyncStore: delete remote failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}

	return firstErr
}
