package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/Astemirdum/biblio-service/pkg/logger"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"BIBLIOCTL_SERVER" default:"http://localhost:8080"`
	// Token is the identity provider access token, needed when the server checks tokens.
	Token string `envconfig:"BIBLIOCTL_TOKEN"`
	// StatePath is the sqlite file holding the cart and the session.
	StatePath string     `envconfig:"BIBLIOCTL_STATE"`
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
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		if config.StatePath == "" {
			config.StatePath = defaultStatePath()
		}
		cfg = config
	})

	return &cfg
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "biblioctl.db"
	}
	return filepath.Join(dir, "biblioctl", "state.db")
}
