package main

import (
	"context"
	"os/signal"
	"syscall"

	tapp "github.com/you-humble/sttqueue/transcriber/internal/app"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	a := tapp.New()
	if err := a.Run(ctx); err != nil {
		panic(err)
	}
}
