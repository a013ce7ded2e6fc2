package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr       string        `envconfig:"ADDR" default:":8080"`
	GridSize   int           `envconfig:"GRID_SIZE" default:"16"`
	CatalogURL string        `envconfig:"CATALOG_URL" default:"https://www.dnd5eapi.co"`
	CatalogTTL time.Duration `envconfig:"CATALOG_TTL" default:"10m"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.GridSize <= 0 {
		return Config{}, fmt.Errorf("GRID_SIZE must be positive, got %d", cfg.GridSize)
	}
	return cfg, nil
}
