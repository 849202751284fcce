package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Host     string `env:"HOST" envDefault:"0.0.0.0"`
	Port     string `env:"PORT" envDefault:"3131"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8009"`
	HTTPOn   bool   `env:"HTTP_ENABLED" envDefault:"true"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSecret      string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS" envDefault:"*"`

	MatchNameTimeout  time.Duration `env:"MATCH_NAME_TIMEOUT" envDefault:"30s"`
	MessagesPerSecond float64       `env:"MESSAGES_PER_SECOND" envDefault:"20"`
	MessageBurst      int           `env:"MESSAGE_BURST" envDefault:"40"`
	SendBuffer        int           `env:"SEND_BUFFER" envDefault:"256"`

	LobbyStartingArmies int `env:"LOBBY_STARTING_ARMIES" envDefault:"40"`
	MatchStartingArmies int `env:"MATCH_STARTING_ARMIES" envDefault:"20"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file, then configuration from environment
// variables with sensible defaults. Variables already set in the
// environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port == "":
		return errors.New("PORT must be set")
	case c.SendBuffer <= 0:
		return errors.New("SEND_BUFFER must be positive")
	case c.MessagesPerSecond <= 0 || c.MessageBurst <= 0:
		return errors.New("MESSAGES_PER_SECOND and MESSAGE_BURST must be positive")
	case c.LobbyStartingArmies <= 0 || c.MatchStartingArmies <= 0:
		return errors.New("starting armies must be positive")
	}
	return nil
}

// TCPAddr is the game listener address.
func (c *Config) TCPAddr() string { return net.JoinHostPort(c.Host, c.Port) }

// HTTPAddr is the websocket and status listener address, or empty when the
// HTTP surface is disabled.
func (c *Config) HTTPAddr() string {
	if !c.HTTPOn || c.HTTPPort == "" {
		return ""
	}
	return net.JoinHostPort(c.Host, c.HTTPPort)
}
