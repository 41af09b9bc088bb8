package config

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config - все настройки бота. Секреты берутся из окружения,
// игровые константы имеют значения по умолчанию.
type Config struct {
	TelegramToken string
	PostgresDSN   string

	MemesDir       string
	SituationsFile string
	UsedMemesFile  string

	MaxPlayers         int
	MinPlayers         int
	MemesPerPlayer     int
	SituationsPerBatch int

	SessionTTL    time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("memes_dir", filepath.Join("data", "memes"))
	v.SetDefault("situations_file", filepath.Join("data", "situations.txt"))
	v.SetDefault("used_memes_file", filepath.Join("data", "used_memes.json"))

	v.SetDefault("max_players", 8)
	v.SetDefault("min_players", 2)
	v.SetDefault("memes_per_player", 6)
	v.SetDefault("situations_per_batch", 10)

	v.SetDefault("session_ttl", 10*time.Minute)
	v.SetDefault("sweep_interval", time.Minute)

	cfg := &Config{
		TelegramToken:      v.GetString("telegram_token"),
		PostgresDSN:        v.GetString("postgres_dsn"),
		MemesDir:           v.GetString("memes_dir"),
		SituationsFile:     v.GetString("situations_file"),
		UsedMemesFile:      v.GetString("used_memes_file"),
		MaxPlayers:         v.GetInt("max_players"),
		MinPlayers:         v.GetInt("min_players"),
		MemesPerPlayer:     v.GetInt("memes_per_player"),
		SituationsPerBatch: v.GetInt("situations_per_batch"),
		SessionTTL:         v.GetDuration("session_ttl"),
		SweepInterval:      v.GetDuration("sweep_interval"),
	}

	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN is not set")
	}
	if cfg.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is not set")
	}

	return cfg, nil
}
