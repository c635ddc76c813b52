package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
	transcriberpb "github.com/you-humble/sttqueue/core/grpc/gen"
	"github.com/you-humble/sttqueue/transcriber/internal/engine"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Engine interface {
	Transcribe(ctx context.Context, inputPath, language string, emit engine.EmitFunc) error
}

type TranscriberService struct {
	engine          Engine
	defaultLanguage string
	timeout         time.Duration

	transcriberpb.UnimplementedTranscriberServer
}

func NewTranscriberService(engine Engine, defaultLanguage string, timeout time.Duration) *TranscriberService {
	return &TranscriberService{engine: engine, defaultLanguage: defaultLanguage, timeout: timeout}
}

func (s *TranscriberService) Transcribe(
	req *transcriberpb.TranscribeRequest,
	stream grpc.ServerStreamingServer[transcriberpb.Segment],
) error {
	inputPath := req.GetInputPath()
	if inputPath == "" || !filepath.IsAbs(inputPath) {
		return status.Errorf(codes.InvalidArgument, "input_path must be an absolute path, got %q", inputPath)
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return status.Errorf(codes.NotFound, "media file %s not found", inputPath)
		}
		return status.Errorf(codes.Internal, "stat media file: %v", err)
	}
	if !info.Mode().IsRegular() {
		return status.Errorf(codes.InvalidArgument, "%s is not a regular file", inputPath)
	}

	language := req.GetLanguage()
	if language == "" {
		language = s.defaultLanguage
	}

	ctx := stream.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	count := 0
	err = s.engine.Transcribe(ctx, inputPath, language, func(seg domain.Segment) error {
		count++
		return stream.Send(&transcriberpb.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	})
	if err != nil {
		slog.Error("transcribe failed",
			slog.String("input_path", inputPath),
			slog.Int("segments_sent", count),
			slog.String("error", err.Error()),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status.FromContextError(ctxErr).Err()
		}
		return status.Errorf(codes.Internal, "transcribe %s: %v", filepath.Base(inputPath), err)
	}

	slog.Info("transcribe success",
		slog.String("input_path", inputPath),
		slog.String("language", language),
		slog.Int("segments", count),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
