package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                      string
	AllowedOrigin             string
	DatabaseURL               string
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	StoreID                   string
	SimulationCacheTTLSeconds int
	AuthSecret                string
	AccessTokenTTLMinutes     int
	ManagerPIN                string
	LogLevel                  string
	LogFormat                 string
	ConnectTries              int
}

// Load reads configuration from the environment, an optional .env file and
// an optional config/config.yaml. Environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.AddConfigPath("./config/")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEFAULT_STORE_ID", "main-store")
	v.SetDefault("SIMULATION_CACHE_TTL_SECONDS", 300)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("MANAGER_PIN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CONNECT_TRIES", 5)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:                      v.GetString("PORT"),
		AllowedOrigin:             v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:               strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:                 strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:             v.GetString("REDIS_PASSWORD"),
		RedisDB:                   v.GetInt("REDIS_DB"),
		StoreID:                   v.GetString("DEFAULT_STORE_ID"),
		SimulationCacheTTLSeconds: v.GetInt("SIMULATION_CACHE_TTL_SECONDS"),
		AuthSecret:                strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes:     v.GetInt("ACCESS_TOKEN_TTL_MINUTES"),
		ManagerPIN:                strings.TrimSpace(v.GetString("MANAGER_PIN")),
		LogLevel:                  strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat:                 strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
		ConnectTries:              v.GetInt("CONNECT_TRIES"),
	}
	if cfg.SimulationCacheTTLSeconds < 1 {
		cfg.SimulationCacheTTLSeconds = 300
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.ConnectTries < 1 {
		cfg.ConnectTries = 1
	}

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SimulationCacheTTL() time.Duration {
	return time.Duration(c.SimulationCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}
