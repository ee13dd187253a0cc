package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for our application
type Config struct {
	Port                     string
	FrontendURL              string
	Environment              string
	LogLevel                 string
	JWTSecret                string
	JWTExpirationDays        int
	OTPExpiryMinutes         int
	PasswordResetTokenExpiry int
	Database                 DatabaseConfig
	Mailer                   MailerConfig
	Redis                    RedisConfig
	Kafka                    KafkaConfig
	Jobs                     JobsConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// MailerConfig holds SMTP settings. Empty credentials select the log-only mailer.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Lifetimes quoted in the email bodies.
	OTPExpiryMinutes   int
	ResetExpiryMinutes int
}

// RedisConfig configures the request throttle.
type RedisConfig struct {
	URL                   string
	ThrottleLimit         int
	ThrottleWindowSeconds int
}

// KafkaConfig configures the appointment event publisher.
type KafkaConfig struct {
	Broker string
	Topic  string
}

// JobsConfig holds cron specs for background jobs.
type JobsConfig struct {
	Enabled          bool
	SweepSchedule    string
	ReminderSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "carenest"),
		DSN:      getEnv("DATABASE_URL", ""),
	}

	// Build a MySQL DSN from its parts when no URL was given
	if dbConfig.DSN == "" && dbConfig.Host != "" && dbConfig.Driver == "mysql" {
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	}

	jwtExpDays, err := strconv.Atoi(getEnv("JWT_EXPIRATION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_DAYS: %w", err)
	}

	otpExpiry, err := strconv.Atoi(getEnv("OTP_EXPIRY_MINUTES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_EXPIRY_MINUTES: %w", err)
	}

	passwordResetTokenExpiry, err := strconv.Atoi(getEnv("PASSWORD_RESET_TOKEN_EXPIRY_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid PASSWORD_RESET_TOKEN_EXPIRY_MINUTES: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	throttleLimit, err := strconv.Atoi(getEnv("THROTTLE_LIMIT", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid THROTTLE_LIMIT: %w", err)
	}

	throttleWindow, err := strconv.Atoi(getEnv("THROTTLE_WINDOW_SECONDS", "900"))
	if err != nil {
		return nil, fmt.Errorf("invalid THROTTLE_WINDOW_SECONDS: %w", err)
	}

	jobsEnabled, err := strconv.ParseBool(getEnv("JOBS_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOBS_ENABLED: %w", err)
	}

	mailerConfig := MailerConfig{
		Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", ""),

		OTPExpiryMinutes:   otpExpiry,
		ResetExpiryMinutes: passwordResetTokenExpiry,
	}
	if mailerConfig.From == "" {
		mailerConfig.From = mailerConfig.Username
	}

	return &Config{
		Port:                     getEnv("PORT", "6402"),
		FrontendURL:              strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		Environment:              getEnv("APP_ENV", "development"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTExpirationDays:        jwtExpDays,
		OTPExpiryMinutes:         otpExpiry,
		PasswordResetTokenExpiry: passwordResetTokenExpiry,
		Database:                 dbConfig,
		Mailer:                   mailerConfig,
		Redis: RedisConfig{
			URL:                   getEnv("REDIS_URL", ""),
			ThrottleLimit:         throttleLimit,
			ThrottleWindowSeconds: throttleWindow,
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_TOPIC", "appointment_topic"),
		},
		Jobs: JobsConfig{
			Enabled:          jobsEnabled,
			SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@hourly"),
			ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		},
	}, nil
}

// Validate fails fast when settings the server cannot run without are absent.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is not set"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL (or DB_HOST for mysql) environment variable is not set"))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
