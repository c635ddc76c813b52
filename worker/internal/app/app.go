package wapp

import (
	"context"
	"log/slog"
)

type app struct {
	di *dependencyInjector
}

func New() *app {
	di := newDI()
	di.Logger()
	return &app{di: di}
}

func (a *app) Run(ctx context.Context) error {
	pool := a.di.Pool(ctx)
	slog.Info("worker starting...")

	err := pool.Run(ctx)

	slog.Info("worker shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.di.Config().ShutdownTimeout)
	defer cancel()
	a.di.Close(shutdownCtx)

	return err
}
