// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Stripe   StripeConfig
	Mail     MailConfig
	Outbox   OutboxConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	APIKey         string
	WebhookSignKey string
}

// MailConfig holds SendGrid settings and dynamic template ids.
type MailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Templates TemplateIDs
}

// TemplateIDs maps notification kinds to SendGrid dynamic template ids.
type TemplateIDs struct {
	InvoiceSent          string
	InvoicePaid          string
	InvoicePartiallyPaid string
	InvoiceReminder      string
	PaymentFailed        string
	ContractSent         string
	ContractSigned       string
}

// OutboxConfig holds settings for the email outbox worker.
type OutboxConfig struct {
	PollInterval int // seconds
	MaxAttempts  int
}

// AppConfig holds application-level settings.
type AppConfig struct {
	// BaseURL is the public origin used for checkout redirect and pay/sign links.
	BaseURL    string
	Dev        bool
	Migrations bool
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "freelance"),
			Password: getEnv("DB_PASSWORD", "freelance123"),
			DBName:   getEnv("DB_NAME", "freelance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Stripe: StripeConfig{
			APIKey:         getEnv("STRIPE_API_KEY", ""),
			WebhookSignKey: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Mail: MailConfig{
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("MAIL_FROM_EMAIL", "noreply@localhost"),
			FromName:  getEnv("MAIL_FROM_NAME", "Freelance"),
			Templates: TemplateIDs{
				InvoiceSent:          getEnv("TEMPLATE_INVOICE_SENT", ""),
				InvoicePaid:          getEnv("TEMPLATE_INVOICE_PAID", ""),
				InvoicePartiallyPaid: getEnv("TEMPLATE_INVOICE_PARTIALLY_PAID", ""),
				InvoiceReminder:      getEnv("TEMPLATE_INVOICE_REMINDER", ""),
				PaymentFailed:        getEnv("TEMPLATE_PAYMENT_FAILED", ""),
				ContractSent:         getEnv("TEMPLATE_CONTRACT_SENT", ""),
				ContractSigned:       getEnv("TEMPLATE_CONTRACT_SIGNED", ""),
			},
		},
		Outbox: OutboxConfig{
			PollInterval: getEnvInt("OUTBOX_POLL_INTERVAL", 15),
			MaxAttempts:  getEnvInt("OUTBOX_MAX_ATTEMPTS", 5),
		},
		App: AppConfig{
			BaseURL:    getEnv("APP_BASE_URL", "http://localhost:8080"),
			Dev:        getEnvBool("DEV", true),
			Migrations: getEnvBool("MIGRATIONS", false),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
