package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config centraliza la configuración del gateway y del cliente de chat.
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv          string        `env:"APP_ENV" envDefault:"development"`
	APIURL          string        `env:"API_URL" envDefault:"http://localhost:8000"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	SchedulingURL   string        `env:"SCHEDULING_URL"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ArchiveTTL      time.Duration `env:"ARCHIVE_TTL" envDefault:"24h"`
	GatewayURL      string        `env:"GATEWAY_URL" envDefault:"http://localhost:8080"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction indica si el despliegue corre en modo produccion.
func (c *Config) IsProduction() bool {
	if c == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), EnvProduction)
}
