// Package config содержит логику чтения конфигурации сервиса coinledger.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lonelytx/coinledger-system/internal/model"
)

// Config содержит параметры конфигурации сервиса coinledger.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	DataDir         string        `env:"DATA_DIR"`
	VerifierAddress string        `env:"VERIFIER_ADDRESS"`
	VerifierToken   string        `env:"VERIFIER_TOKEN"`
	NotifyAddress   string        `env:"NOTIFY_ADDRESS"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	ClaimCooldown   time.Duration `env:"CLAIM_COOLDOWN"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDataDir := cfg.DataDir
	envVerifierAddress := cfg.VerifierAddress

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DataDir, "d", "data", "directory for persisted ledger tables")
	flag.StringVar(&cfg.VerifierAddress, "r", "", "external verifier address")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDataDir != "" {
		cfg.DataDir = envDataDir
	}
	if envVerifierAddress != "" {
		cfg.VerifierAddress = envVerifierAddress
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.ClaimCooldown <= 0 {
		cfg.ClaimCooldown = time.Hour
	}

	return cfg, nil
}

// DefaultPacks возвращает статический каталог пакетов вознаграждения.
// Ключ — идентификатор пакета, значение — число подтверждений и монет.
func DefaultPacks() map[string]model.RewardPack {
	return map[string]model.RewardPack{
		"50":  {Links: 1, Coin: 50},
		"100": {Links: 2, Coin: 100},
		"150": {Links: 3, Coin: 150},
	}
}
