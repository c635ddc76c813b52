package app

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/you-humble/sttqueue/api/internal/infra/config"
	"github.com/you-humble/sttqueue/api/internal/infra/fetch"
	"github.com/you-humble/sttqueue/api/internal/infra/queue"
	"github.com/you-humble/sttqueue/api/internal/transport"
	"github.com/you-humble/sttqueue/api/internal/usecase"
	"github.com/you-humble/sttqueue/core/filestore"
	"github.com/you-humble/sttqueue/core/jobstore"
	mio "github.com/you-humble/sttqueue/core/libs/minio"
	natsq "github.com/you-humble/sttqueue/core/libs/nats"
	rediscli "github.com/you-humble/sttqueue/core/libs/redis"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const defaultCfgPath = "./api/configs/local.yaml"

type Router interface {
	MountRoutes(*http.ServeMux) *http.ServeMux
}

type mediaStore interface {
	usecase.MediaStore
	Close(ctx context.Context) error
}

type dependencyInjector struct {
	cfg    *config.Config
	logger *slog.Logger

	redis    *redis.Client
	sqlite   interface{ Close() error }
	jobStore usecase.JobStore

	mediaStore  mediaStore
	transcripts usecase.TextStore
	logs        usecase.TextStore

	natsConn *nats.Conn
	js       nats.JetStreamContext
	jobQueue usecase.JobQueue

	usecase transport.Usecase
	handler transport.Handler
	router  Router
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

func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		var level slog.Level
		if err := level.UnmarshalText([]byte(di.Config().LogLevel)); err != nil {
			level = slog.LevelInfo
		}

		di.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
	}

	slog.SetDefault(di.logger)
	return di.logger
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

func (di *dependencyInjector) JobStore(ctx context.Context) usecase.JobStore {
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

func (di *dependencyInjector) MediaStore(ctx context.Context) usecase.MediaStore {
	if di.mediaStore == nil {
		cfg := di.Config()

		local, err := filestore.NewLocalStore(cfg.MediaDir)
		if err != nil {
			log.Fatalf("MediaStore local: %+v", err)
		}
		di.Logger().Info("initialized local media store", slog.String("base_dir", local.BaseDir()))

		var remote filestore.Remote
		if cfg.MinIO.Enabled {
			r, err := filestore.DialMinIOStore(ctx, mio.Config{
				Endpoint:        cfg.MinIO.Endpoint,
				AccessKeyID:     cfg.MinIO.AccessKeyID,
				SecretAccessKey: cfg.MinIO.SecretAccessKey,
				UseSSL:          cfg.MinIO.UseSSL,
				Bucket:          cfg.MinIO.Bucket,
				BasePath:        "media",
			})
			if err != nil {
				log.Fatalf("MediaStore minio: %+v", err)
			}
			remote = r
			di.Logger().Info(
				"initialized MinIO media replica",
				slog.String("endpoint", cfg.MinIO.Endpoint),
				slog.String("bucket", cfg.MinIO.Bucket),
			)
		}

		rc := cfg.Replication
		di.mediaStore = filestore.NewAsyncStore(ctx, local, remote, rc.QueueCapacity, rc.Workers, rc.MaxRetries)
		di.Logger().Info(
			"using async media store",
			slog.Bool("replicated", remote != nil),
			slog.Int("queue_size", rc.QueueCapacity),
			slog.Int("worker_num", rc.Workers),
			slog.Int("max_retries", rc.MaxRetries),
		)
	}

	return di.mediaStore
}

func (di *dependencyInjector) TranscriptStore() usecase.TextStore {
	if di.transcripts == nil {
		s, err := filestore.NewLocalStore(di.Config().TranscriptDir)
		if err != nil {
			log.Fatalf("TranscriptStore: %+v", err)
		}
		di.transcripts = s
	}
	return di.transcripts
}

func (di *dependencyInjector) LogStore() usecase.TextStore {
	if di.logs == nil {
		s, err := filestore.NewLocalStore(di.Config().LogDir)
		if err != nil {
			log.Fatalf("LogStore: %+v", err)
		}
		di.logs = s
	}
	return di.logs
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

func (di *dependencyInjector) JobQueue(ctx context.Context) usecase.JobQueue {
	if di.jobQueue == nil {
		di.jobQueue = queue.New(di.JetStream(ctx), di.Config().NATS.Subject)
	}
	return di.jobQueue
}

func (di *dependencyInjector) Usecase(ctx context.Context) transport.Usecase {
	if di.usecase == nil {
		cfg := di.Config()
		di.usecase = usecase.New(
			di.MediaStore(ctx),
			di.TranscriptStore(),
			di.LogStore(),
			di.JobStore(ctx),
			di.JobQueue(ctx),
			fetch.New(cfg.FetchTimeout, cfg.DownloadTimeout, cfg.MaxDownloadMb<<20),
		)
	}

	return di.usecase
}

func (di *dependencyInjector) Handler(ctx context.Context) transport.Handler {
	if di.handler == nil {
		di.handler = transport.NewHandler(di.Config().MaxUploadBytesMb, di.Usecase(ctx))
	}

	return di.handler
}

func (di *dependencyInjector) Router(ctx context.Context) Router {
	if di.router == nil {
		di.router = transport.NewRouter(di.Handler(ctx))
	}

	return di.router
}

// Close releases the injector's client handles.
func (di *dependencyInjector) Close(ctx context.Context) {
	if di.natsConn != nil {
		if err := di.natsConn.Drain(); err != nil {
			di.Logger().Warn("NATS drain", slog.String("error", err.Error()))
		}
	}
	if di.mediaStore != nil {
		if err := di.mediaStore.Close(ctx); err != nil {
			di.Logger().Warn("stop media replication", slog.String("error", err.Error()))
		}
	}
	if di.sqlite != nil {
		_ = di.sqlite.Close()
	}
	if di.redis != nil {
		_ = di.redis.Close()
	}
}
