package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NatsURL                string
	JWTSecret              string
	ChannelBase            string
	QuizCacheTTL           time.Duration
	ActivationStateTTL     time.Duration
	DefaultQuestionSeconds int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// DefaultQuestionTime returns the fallback per-question duration.
func (c Config) DefaultQuestionTime() time.Duration {
	return time.Duration(c.DefaultQuestionSeconds) * time.Second
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QUIZ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ClassPulse Quiz API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "classpulse")
	v.SetDefault("quiz.cache_ttl", "5m")
	v.SetDefault("activation.state_ttl", "12h")
	v.SetDefault("default.question_seconds", 30)

	cacheTTL, err := time.ParseDuration(v.GetString("quiz.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid quiz cache ttl: %w", err)
	}

	activationTTL, err := time.ParseDuration(v.GetString("activation.state_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid activation state ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NatsURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		ChannelBase:            v.GetString("channel.base"),
		QuizCacheTTL:           cacheTTL,
		ActivationStateTTL:     activationTTL,
		DefaultQuestionSeconds: v.GetInt("default.question_seconds"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DefaultQuestionSeconds <= 0 {
		cfg.DefaultQuestionSeconds = 30
	}

	return cfg, nil
}
