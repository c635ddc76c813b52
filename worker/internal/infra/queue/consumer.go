package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

type Config struct {
	Stream  string
	Durable string
	Subject string

	// AckWait must exceed the transcription timeout, otherwise a job still
	// being worked on is redelivered to another worker.
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int

	// FetchWait bounds a single pull request; Dequeue keeps pulling until
	// a message arrives or its context ends.
	FetchWait time.Duration
}

type Consumer struct {
	sub       *nats.Subscription
	fetchWait time.Duration
}

func NewConsumer(js nats.JetStreamContext, cfg Config) (*Consumer, error) {
	if cfg.FetchWait <= 0 {
		cfg.FetchWait = 5 * time.Second
	}

	ccfg := &nats.ConsumerConfig{
		Durable:       cfg.Durable,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		FilterSubject: cfg.Subject,
		MaxAckPending: cfg.MaxAckPending,
	}
	_, err := js.AddConsumer(cfg.Stream, ccfg)
	if errors.Is(err, nats.ErrConsumerNameAlreadyInUse) {
		_, err = js.UpdateConsumer(cfg.Stream, ccfg)
	}
	if err != nil {
		return nil, fmt.Errorf("JetStream AddConsumer: %w", err)
	}

	sub, err := js.PullSubscribe(cfg.Subject, cfg.Durable, nats.Bind(cfg.Stream, cfg.Durable))
	if err != nil {
		return nil, fmt.Errorf("JetStream PullSubscribe: %w", err)
	}

	slog.Info("queue consumer bound",
		slog.String("stream", cfg.Stream),
		slog.String("durable", cfg.Durable),
		slog.String("subject", cfg.Subject),
		slog.Duration("ack_wait", cfg.AckWait),
		slog.Int("max_deliver", cfg.MaxDeliver),
	)

	return &Consumer{sub: sub, fetchWait: cfg.FetchWait}, nil
}

// Dequeue blocks until one message is available or ctx ends.
func (c *Consumer) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchWait)
		msgs, err := c.sub.Fetch(1, nats.Context(fetchCtx))
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
				continue
			}
			return nil, fmt.Errorf("NATS Fetch: %w", err)
		}

		if len(msgs) == 0 {
			continue
		}
		return &Delivery{msg: msgs[0]}, nil
	}
}

func (c *Consumer) Close() error {
	if err := c.sub.Drain(); err != nil {
		return fmt.Errorf("NATS subscription drain: %w", err)
	}
	return nil
}

type Delivery struct {
	msg *nats.Msg
}

func (d *Delivery) JobID() string {
	return string(d.msg.Data)
}

// Attempt is the delivery count of the message, 1 for the first delivery.
func (d *Delivery) Attempt() uint64 {
	meta, err := d.msg.Metadata()
	if err != nil {
		return 0
	}
	return meta.NumDelivered
}

func (d *Delivery) Ack() error {
	return d.msg.Ack()
}

func (d *Delivery) Nak() error {
	return d.msg.Nak()
}
