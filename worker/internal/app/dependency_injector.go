package wapp

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/you-humble/sttqueue/core/filestore"
	"github.com/you-humble/sttqueue/core/jobstore"
	mio "github.com/you-humble/sttqueue/core/libs/minio"
	natsq "github.com/you-humble/sttqueue/core/libs/nats"
	rediscli "github.com/you-humble/sttqueue/core/libs/redis"
	"github.com/you-humble/sttqueue/worker/internal/infra/config"
	"github.com/you-humble/sttqueue/worker/internal/infra/queue"
	"github.com/you-humble/sttqueue/worker/internal/infra/transcriber"
	"github.com/you-humble/sttqueue/worker/internal/worker"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
)

const defaultCfgPath = "./worker/configs/local.yaml"

type Pool interface {
	Run(ctx context.Context) error
}

type transcriptStore interface {
	worker.TranscriptStore
	Close(ctx context.Context) error
}

type dependencyInjector struct {
	cfg     *config.Config
	logger  *slog.Logger
	logFile *os.File

	grpcConn    *grpc.ClientConn
	transcriber worker.Transcriber

	redis    *redis.Client
	sqlite   interface{ Close() error }
	jobStore worker.JobStore

	transcripts transcriptStore

	natsConn *nats.Conn
	js       nats.JetStreamContext
	consumer *queue.Consumer

	pool Pool
}

func newDI() *dependencyInjector {
	return &dependencyInjector{}
}

func (di *dependencyInjector) Config() *config.Config {
	if di.cfg == nil {
		path := os.Getenv("CONFIG_PATH")
		if path == "" {
			path = defaultCfgPath
		}
		di.cfg = config.MustLoad(path)
	}

	return di.cfg
}

// Logger writes to stdout and to logs/worker<N>_<YYYYMMDD_HHMMSS>.log.
func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		cfg := di.Config()

		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			level = slog.LevelInfo
		}

		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			log.Fatalf("Logger: create log dir: %+v", err)
		}
		name := fmt.Sprintf("worker%d_%s.log", cfg.WorkerID, time.Now().Format("20060102_150405"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Logger: open log file: %+v", err)
		}
		di.logFile = f

		di.logger = slog.New(
			slog.NewTextHandler(
				io.MultiWriter(os.Stdout, f),
				&slog.HandlerOptions{
					Level: level,
				},
			),
		).With(slog.Int("worker_id", cfg.WorkerID))
	}

	slog.SetDefault(di.logger)
	return di.logger
}

func (di *dependencyInjector) GRPCConnect(ctx context.Context) *grpc.ClientConn {
	if di.grpcConn == nil {
		cfg := di.Config().Transcriber
		conn, err := transcriber.NewConnection(cfg.Addr)
		if err != nil {
			log.Fatalf("GRPCConnect: %+v", err)
		}
		if err := transcriber.CheckHealth(ctx, conn, cfg.HealthTimeout); err != nil {
			di.Logger().Warn("transcriber is not serving yet", slog.String("error", err.Error()))
		} else {
			di.Logger().Info("transcriber is serving", slog.String("addr", cfg.Addr))
		}
		di.grpcConn = conn
	}

	return di.grpcConn
}

func (di *dependencyInjector) Transcriber(ctx context.Context) worker.Transcriber {
	if di.transcriber == nil {
		di.transcriber = transcriber.NewClient(di.GRPCConnect(ctx))
	}

	return di.transcriber
}

func (di *dependencyInjector) RedisClient(ctx context.Context) *redis.Client {
	if di.redis == nil {
		cfg := di.Config().Redis
		client, err := rediscli.NewClient(ctx, rediscli.Config{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			log.Fatalf("RedisClient: %+v", err)
		}

		di.redis = client
		di.Logger().Info("connected to redis", slog.String("addr", cfg.Addr))
	}
	return di.redis
}

func (di *dependencyInjector) JobStore(ctx context.Context) worker.JobStore {
	if di.jobStore == nil {
		cfg := di.Config().JobStore

		switch cfg.Backend {
		case "sqlite":
			s, err := jobstore.NewSQLiteJobStore(cfg.SQLitePath)
			if err != nil {
				log.Fatalf("JobStore sqlite: %+v", err)
			}
			di.sqlite = s
			di.jobStore = s
		case "redis":
			di.jobStore = jobstore.NewRedisJobStore(di.RedisClient(ctx))
		default:
			log.Fatalf("JobStore: unknown backend %q", cfg.Backend)
		}
		di.Logger().Info("initialized job store", slog.String("backend", cfg.Backend))
	}
	return di.jobStore
}

func (di *dependencyInjector) TranscriptStore(ctx context.Context) worker.TranscriptStore {
	if di.transcripts == nil {
		cfg := di.Config()

		local, err := filestore.NewLocalStore(cfg.TranscriptDir)
		if err != nil {
			log.Fatalf("TranscriptStore local: %+v", err)
		}
		di.Logger().Info("initialized local transcript store", slog.String("base_dir", local.BaseDir()))

		var remote filestore.Remote
		if cfg.MinIO.Enabled {
			r, err := filestore.DialMinIOStore(ctx, mio.Config{
				Endpoint:        cfg.MinIO.Endpoint,
				AccessKeyID:     cfg.MinIO.AccessKeyID,
				SecretAccessKey: cfg.MinIO.SecretAccessKey,
				UseSSL:          cfg.MinIO.UseSSL,
				Bucket:          cfg.MinIO.Bucket,
				BasePath:        "transcripts",
			})
			if err != nil {
				log.Fatalf("TranscriptStore minio: %+v", err)
			}
			remote = r
			di.Logger().Info(
				"initialized MinIO transcript replica",
				slog.String("endpoint", cfg.MinIO.Endpoint),
				slog.String("bucket", cfg.MinIO.Bucket),
			)
		}

		rc := cfg.Replication
		di.transcripts = filestore.NewAsyncStore(ctx, local, remote, rc.QueueCapacity, rc.Workers, rc.MaxRetries)
	}

	return di.transcripts
}

func (di *dependencyInjector) NATSConn(ctx context.Context) *nats.Conn {
	if di.natsConn == nil {
		cfg := di.Config()
		nc, err := natsq.NewConnect(cfg.NATS.URL, natsq.Config{
			Name:          cfg.NATS.QueueName,
			MaxReconnects: cfg.NATS.MaxReconnects,
		})
		if err != nil {
			log.Fatalf("NATS connect: %+v", err)
		}
		di.natsConn = nc
	}
	return di.natsConn
}

func (di *dependencyInjector) JetStream(ctx context.Context) nats.JetStreamContext {
	if di.js == nil {
		cfg := di.Config().NATS
		js, err := natsq.NewJetStream(di.NATSConn(ctx), &nats.StreamConfig{
			Name:       cfg.Stream,
			Subjects:   []string{cfg.Subject},
			Storage:    nats.FileStorage,
			Replicas:   1,
			MaxAge:     cfg.MaxAge,
			Duplicates: 10 * time.Minute,
		})
		if err != nil {
			log.Fatalf("DI JetStream: %+v", err)
		}

		di.js = js
	}
	return di.js
}

func (di *dependencyInjector) Consumer(ctx context.Context) *queue.Consumer {
	if di.consumer == nil {
		cfg := di.Config()
		c, err := queue.NewConsumer(di.JetStream(ctx), queue.Config{
			Stream:        cfg.NATS.Stream,
			Durable:       cfg.NATS.Durable,
			Subject:       cfg.NATS.Subject,
			AckWait:       cfg.NATS.AckWait,
			MaxDeliver:    cfg.NATS.MaxDeliver,
			MaxAckPending: cfg.PoolSize * 2,
			FetchWait:     cfg.NATS.FetchWait,
		})
		if err != nil {
			log.Fatalf("DI Consumer: %+v", err)
		}
		di.consumer = c
	}
	return di.consumer
}

func (di *dependencyInjector) Pool(ctx context.Context) Pool {
	if di.pool == nil {
		cfg := di.Config()
		di.pool = worker.New(
			worker.Config{
				Size:              cfg.PoolSize,
				Language:          cfg.Language,
				TranscribeTimeout: cfg.TranscribeTimeout,
				StoreTimeout:      cfg.StoreTimeout,
			},
			queueAdapter{di.Consumer(ctx)},
			di.JobStore(ctx),
			di.Transcriber(ctx),
			di.TranscriptStore(ctx),
		)
	}
	return di.pool
}

// Close releases every handle the injector opened, in reverse order of use.
func (di *dependencyInjector) Close(ctx context.Context) {
	l := di.Logger()

	if di.consumer != nil {
		if err := di.consumer.Close(); err != nil {
			l.Warn("close consumer", slog.String("error", err.Error()))
		}
	}
	if di.natsConn != nil {
		di.natsConn.Close()
	}
	if di.transcripts != nil {
		if err := di.transcripts.Close(ctx); err != nil {
			l.Warn("stop transcript replication", slog.String("error", err.Error()))
		}
	}
	if di.grpcConn != nil {
		_ = di.grpcConn.Close()
	}
	if di.sqlite != nil {
		_ = di.sqlite.Close()
	}
	if di.redis != nil {
		_ = di.redis.Close()
	}
	if di.logFile != nil {
		_ = di.logFile.Close()
	}
}

// queueAdapter narrows the consumer's concrete delivery to worker.Delivery.
type queueAdapter struct {
	c *queue.Consumer
}

func (a queueAdapter) Dequeue(ctx context.Context) (worker.Delivery, error) {
	d, err := a.c.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return d, nil
}
