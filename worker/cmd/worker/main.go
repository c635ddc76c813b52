package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	wapp "github.com/you-humble/sttqueue/worker/internal/app"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	a := wapp.New()
	if err := a.Run(ctx); err != nil {
		log.Fatalln("worker:", err)
	}
}
