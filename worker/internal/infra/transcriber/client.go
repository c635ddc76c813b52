package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
	transcriberpb "github.com/you-humble/sttqueue/core/grpc/gen"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func NewConnection(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return conn, nil
}

// CheckHealth asks the standard health service whether the Transcriber is
// serving.
func CheckHealth(ctx context.Context, conn grpc.ClientConnInterface, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: transcriberpb.Transcriber_ServiceDesc.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("transcriber health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("transcriber health check: status %s", resp.GetStatus())
	}
	return nil
}

type client struct {
	pb transcriberpb.TranscriberClient
}

func NewClient(conn grpc.ClientConnInterface) *client {
	return &client{pb: transcriberpb.NewTranscriberClient(conn)}
}

// Transcribe forwards every streamed segment to emit in order.
func (c *client) Transcribe(
	ctx context.Context,
	inputPath, language string,
	emit func(domain.Segment) error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.pb.Transcribe(ctx, &transcriberpb.TranscribeRequest{
		InputPath: inputPath,
		Language:  language,
	})
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", inputPath, err)
	}

	for {
		seg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("transcribe %s: %w", inputPath, err)
		}

		if err := emit(domain.Segment{Start: seg.GetStart(), End: seg.GetEnd(), Text: seg.GetText()}); err != nil {
			return err
		}
	}
}
