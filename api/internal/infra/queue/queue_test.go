package queue

import (
	"context"
	"testing"
	"time"

	natsq "github.com/you-humble/sttqueue/core/libs/nats"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func runJetStream(t *testing.T) nats.JetStreamContext {
	t.Helper()

	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(srv.Shutdown)

	nc, err := natsq.NewConnect(srv.ClientURL(), natsq.Config{Name: t.Name()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := natsq.NewJetStream(nc, &nats.StreamConfig{
		Name:       "TRANSCRIPTION",
		Subjects:   []string{"transcription.jobs"},
		Storage:    nats.FileStorage,
		Duplicates: time.Minute,
	})
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	return js
}

// TestEnqueueDeduplicates verifies a job published twice is stored once.
func TestEnqueueDeduplicates(t *testing.T) {
	js := runJetStream(t)
	q := New(js, "transcription.jobs")
	ctx := context.Background()

	for range 2 {
		if err := q.Enqueue(ctx, "job-1"); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if err := q.Enqueue(ctx, "job-2"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	info, err := js.StreamInfo("TRANSCRIPTION")
	if err != nil {
		t.Fatalf("stream info: %v", err)
	}
	if info.State.Msgs != 2 {
		t.Fatalf("stream holds %d messages, want 2", info.State.Msgs)
	}
}

// TestEnqueueRejectsEmptyID checks the guard on the job id.
func TestEnqueueRejectsEmptyID(t *testing.T) {
	js := runJetStream(t)
	if err := New(js, "transcription.jobs").Enqueue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty job id")
	}
}
