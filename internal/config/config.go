/**
 * @description
 * Configuration management for the directory server. All settings come from
 * environment variables, with sensible defaults for local development.
 */
package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	MigrationsDir  string `mapstructure:"MIGRATIONS_DIR"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	SMTPHost       string `mapstructure:"SMTP_HOST"`
	SMTPPort       int    `mapstructure:"SMTP_PORT"`
	SMTPUser       string `mapstructure:"SMTP_USER"`
	SMTPPassword   string `mapstructure:"SMTP_PASSWORD"`
	SMTPSender     string `mapstructure:"SMTP_SENDER"`
	AdminEmail     string `mapstructure:"ADMIN_EMAIL"`
	EmailWorkerOn  bool   `mapstructure:"EMAIL_WORKER_ENABLED"`
	SchedulerOn    bool   `mapstructure:"SCHEDULER_ENABLED"`
	UploadMaxBytes int64  `mapstructure:"UPLOAD_MAX_BYTES"`

	EarningsRefreshSchedule    string `mapstructure:"EARNINGS_REFRESH_SCHEDULE"`
	SubscriptionExpirySchedule string `mapstructure:"SUBSCRIPTION_EXPIRY_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("SMTP_PORT", 465)
	viper.SetDefault("EMAIL_WORKER_ENABLED", true)
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	viper.SetDefault("EARNINGS_REFRESH_SCHEDULE", "0 3 * * *")
	viper.SetDefault("SUBSCRIPTION_EXPIRY_SCHEDULE", "*/30 * * * *")
	viper.AutomaticEnv()

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("MIGRATIONS_DIR")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("SMTP_HOST")
	_ = viper.BindEnv("SMTP_PORT")
	_ = viper.BindEnv("SMTP_USER")
	_ = viper.BindEnv("SMTP_PASSWORD")
	_ = viper.BindEnv("SMTP_SENDER")
	_ = viper.BindEnv("ADMIN_EMAIL")
	_ = viper.BindEnv("EMAIL_WORKER_ENABLED")
	_ = viper.BindEnv("SCHEDULER_ENABLED")
	_ = viper.BindEnv("UPLOAD_MAX_BYTES")
	_ = viper.BindEnv("EARNINGS_REFRESH_SCHEDULE")
	_ = viper.BindEnv("SUBSCRIPTION_EXPIRY_SCHEDULE")

	if err = viper.Unmarshal(&config); err != nil {
		return
	}
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}
	if config.DatabaseURL == "" {
		return config, errors.New("DATABASE_URL is required")
	}
	if config.JWTSecret == "" {
		return config, errors.New("JWT_SECRET is required")
	}
	return
}
