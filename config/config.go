package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Hospital HospitalAPIConfig
	Booking  BookingConfig
	Watch    WatchConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Limits   RateLimitConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Port           string
	Env            string
	Timezone       string
	LogLevel       string
	AllowedOrigins []string
}

// HospitalAPIConfig points at the upstream hospital REST API.
type HospitalAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type BookingConfig struct {
	// FallbackTime is assigned when a date has no listed slots.
	FallbackTime string
	// FutureFallback extends FallbackTime to dates after today.
	FutureFallback bool
}

type WatchConfig struct {
	PollInterval time.Duration
	IdleTimeout  time.Duration
}

type DBConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	SessionTTL time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "Local")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("HOSPITAL_API_URL", "http://127.0.0.1:8000/api")
	viper.SetDefault("HOSPITAL_API_TIMEOUT", "10s")
	viper.SetDefault("BOOKING_FALLBACK_TIME", "09:00")
	viper.SetDefault("BOOKING_FUTURE_FALLBACK", true)
	viper.SetDefault("POLL_INTERVAL", "3s")
	viper.SetDefault("WATCH_IDLE_TIMEOUT", "1m")
	viper.SetDefault("AUDIT_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("RATE_LIMIT_RPS", 2)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("METRICS_PATH", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		// .env is optional, environment variables are enough
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Port:     viper.GetString("APP_PORT"),
			Env:      viper.GetString("APP_ENV"),
			Timezone: viper.GetString("APP_TIMEZONE"),
			LogLevel: viper.GetString("LOG_LEVEL"),

			// comma separated, "*" allows any origin
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Hospital: HospitalAPIConfig{
			BaseURL: viper.GetString("HOSPITAL_API_URL"),
			Timeout: durationOr("HOSPITAL_API_TIMEOUT", 10*time.Second),
		},
		Booking: BookingConfig{
			FallbackTime:   viper.GetString("BOOKING_FALLBACK_TIME"),
			FutureFallback: viper.GetBool("BOOKING_FUTURE_FALLBACK"),
		},
		Watch: WatchConfig{
			PollInterval: durationOr("POLL_INTERVAL", 3*time.Second),
			IdleTimeout:  durationOr("WATCH_IDLE_TIMEOUT", time.Minute),
		},
		DB: DBConfig{
			Enabled:  viper.GetBool("AUDIT_ENABLED"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("JWT_SECRET"),
			SessionTTL: durationOr("SESSION_TTL", 24*time.Hour),
		},
		Limits: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
			Path:    viper.GetString("METRICS_PATH"),
		},
	}

	return config, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
