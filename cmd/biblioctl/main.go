package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Astemirdum/biblio-service/biblioctl/app"
	"github.com/Astemirdum/biblio-service/biblioctl/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.NewConfig(config.WithLogLevel(zapcore.WarnLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Run(ctx, cfg)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
