package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	StaticPath      string        `mapstructure:"static_path"`
	DBPath          string        `mapstructure:"db_path"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	MaxImageDim     int           `mapstructure:"max_image_dim"`
	HistoryPageSize int           `mapstructure:"history_page_size"`
	EventRateLimit  int           `mapstructure:"event_rate_limit"`
	EventRateWindow time.Duration `mapstructure:"event_rate_window"`
	Rooms           []string      `mapstructure:"rooms"`
	Secret          string        `mapstructure:"secret"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("db_path", "banter.db")
	v.SetDefault("read_limit", 1<<20) // image payloads arrive inline
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("max_image_dim", 800)
	v.SetDefault("history_page_size", 20)
	v.SetDefault("event_rate_limit", 30)
	v.SetDefault("event_rate_window", "10s")
	v.SetDefault("rooms", []string{"general"})
	v.SetDefault("secret", "change-me")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | DB: %s\n", cfg.Mode, cfg.Port, cfg.DBPath)
	return &cfg, nil
}
