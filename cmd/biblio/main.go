package main

import (
	stdLog "log"

	"github.com/Astemirdum/biblio-service/biblio/app"
	"github.com/Astemirdum/biblio-service/biblio/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()
	cfg := config.NewConfig(
		config.WithLogLevel(zapcore.DebugLevel),
		config.WithStorage(config.StoragePostgres),
	)

	if err := app.Run(cfg); err != nil {
		stdLog.Fatal(err)
	}
}
