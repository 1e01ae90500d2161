// Package config loads the process-wide Config from the environment.
//
// Grounded on the teacher's internal/config/config.go: the same
// caarlos0/env struct-tag style, regrouped around the ingestion,
// motion, bus, and HTTP surfaces this service exposes instead of the
// teacher's fixed camera1..6 URLs.
package config

import "github.com/caarlos0/env/v9"

type Config struct {
	Redis   Redis
	Ingest  Ingest
	Motion  Motion
	Publish Publish
	HTTP    HTTP
	Log     Log
}

type Redis struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

type Ingest struct {
	DefaultBufferSize int `env:"DEFAULT_BUFFER_SIZE" envDefault:"100"`
}

type Motion struct {
	Threshold       uint8   `env:"MOTION_THRESHOLD" envDefault:"25"`
	AreaMinRatio    float64 `env:"MOTION_AREA_MIN" envDefault:"0.005"`
	CooldownSeconds float64 `env:"MOTION_COOLDOWN_SECONDS" envDefault:"2.0"`
}

type Publish struct {
	QueueSize int `env:"PUBLISH_QUEUE_SIZE" envDefault:"64"`
}

type HTTP struct {
	BindAddr string `env:"HTTP_BIND_ADDR" envDefault:":8080"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// New parses a Config from the process environment (and any .env file
// loaded by godotenv/autoload in main).
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
