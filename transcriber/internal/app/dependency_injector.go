package tapp

import (
	"log/slog"
	"os"

	transcriberpb "github.com/you-humble/sttqueue/core/grpc/gen"
	"github.com/you-humble/sttqueue/transcriber/internal/engine"
	"github.com/you-humble/sttqueue/transcriber/internal/infra/config"
	"github.com/you-humble/sttqueue/transcriber/internal/service"
)

const defaultCfgPath = "./transcriber/configs/local.yaml"

type dependencyInjector struct {
	cfg    *config.Config
	logger *slog.Logger

	engine  service.Engine
	service transcriberpb.TranscriberServer
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

		di.logger = slog.New(slog.NewTextHandler(
			os.Stdout,
			&slog.HandlerOptions{
				Level: level,
			},
		),
		)
	}

	slog.SetDefault(di.logger)
	return di.logger
}

func (di *dependencyInjector) Engine() service.Engine {
	if di.engine == nil {
		cfg := di.Config()

		switch cfg.Engine.Kind {
		case "mock":
			di.engine = engine.NewMockEngine(cfg.Engine.MockSegments, cfg.Engine.MockMaxDelay, cfg.MaxParallel)
		default:
			di.engine = engine.NewCommandEngine(cfg.Engine.Command, cfg.Engine.Args, cfg.MaxParallel)
		}

		di.Logger().Info("initialized transcription engine",
			slog.String("kind", cfg.Engine.Kind),
			slog.String("command", cfg.Engine.Command),
			slog.Int("max_parallel", cfg.MaxParallel),
		)
	}

	return di.engine
}

func (di *dependencyInjector) Service() transcriberpb.TranscriberServer {
	if di.service == nil {
		cfg := di.Config()
		di.service = service.NewTranscriberService(di.Engine(), cfg.DefaultLanguage, cfg.TranscribeTimeout)
	}

	return di.service
}
