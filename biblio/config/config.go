package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/auth0"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/logger"
	"github.com/Astemirdum/biblio-service/pkg/postgres"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type HTTPServer struct {
	Host        string        `yaml:"host" envconfig:"BIBLIO_HTTP_HOST" default:"0.0.0.0"`
	Port        string        `yaml:"port" envconfig:"BIBLIO_HTTP_PORT" default:"8080"`
	ReadTimeout time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
}

type BookMeta struct {
	BaseURL string `envconfig:"BOOKMETA_BASE_URL" default:"https://www.googleapis.com/books/v1"`
}

type Config struct {
	Server  HTTPServer `yaml:"server"`
	Storage string     `envconfig:"BIBLIO_STORAGE"`
	// SeedStaff lists staff seats to provision at startup as user@school.
	SeedStaff []string `envconfig:"BIBLIO_SEED_STAFF"`
	Database  postgres.DB
	Auth      auth0.Config
	Kafka     kafka.Config
	BookMeta  BookMeta
	Log       logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	cfg.Database.Password = "***"
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
