package transcriber

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
	transcriberpb "github.com/you-humble/sttqueue/core/grpc/gen"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeServer struct {
	transcriberpb.UnimplementedTranscriberServer
	segments []*transcriberpb.Segment
	err      error
}

func (f fakeServer) Transcribe(_ *transcriberpb.TranscribeRequest, stream grpc.ServerStreamingServer[transcriberpb.Segment]) error {
	for _, seg := range f.segments {
		if err := stream.Send(seg); err != nil {
			return err
		}
	}
	return f.err
}

func startServer(t *testing.T, srv fakeServer, serving bool) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	transcriberpb.RegisterTranscriberServer(s, srv)

	hs := health.NewServer()
	if serving {
		hs.SetServingStatus(transcriberpb.Transcriber_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	} else {
		hs.SetServingStatus(transcriberpb.Transcriber_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	healthpb.RegisterHealthServer(s, hs)

	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// TestClientTranscribe converts streamed segments in order.
func TestClientTranscribe(t *testing.T) {
	conn := startServer(t, fakeServer{segments: []*transcriberpb.Segment{
		{Start: 0, End: 1, Text: "one"},
		{Start: 1, End: 2, Text: "two"},
	}}, true)

	if err := CheckHealth(context.Background(), conn, time.Second); err != nil {
		t.Fatalf("health: %v", err)
	}

	var got []domain.Segment
	err := NewClient(conn).Transcribe(context.Background(), "/m.mp4", "ko", func(s domain.Segment) error {
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(got) != 2 || got[0].Text != "one" || got[1].End != 2 {
		t.Fatalf("segments = %+v", got)
	}
}

// TestClientErrors covers server failures, emit failures and health.
func TestClientErrors(t *testing.T) {
	conn := startServer(t, fakeServer{
		segments: []*transcriberpb.Segment{{Start: 0, End: 1, Text: "one"}},
		err:      status.Error(codes.Internal, "decoder error"),
	}, false)

	err := NewClient(conn).Transcribe(context.Background(), "/m.mp4", "ko", func(domain.Segment) error { return nil })
	if status.Code(errors.Unwrap(err)) != codes.Internal {
		t.Fatalf("error = %v", err)
	}

	stop := errors.New("disk full")
	err = NewClient(conn).Transcribe(context.Background(), "/m.mp4", "ko", func(domain.Segment) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("error = %v, want %v", err, stop)
	}

	if err := CheckHealth(context.Background(), conn, time.Second); err == nil {
		t.Fatal("expected NOT_SERVING to fail the health check")
	}
}
