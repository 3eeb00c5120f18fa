package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the complaints service
type Config struct {
	// HTTP server
	Port string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Auth configuration
	JWTSecret string

	// SendGrid configuration
	SendGridAPIKey    string
	SendGridFromName  string
	SendGridFromEmail string

	// Notification behavior
	EmailDryRun    bool
	AdminEmail     string
	NotifyQueueLen int

	// Blob storage service (signed URL resolution)
	StorageServiceURL string
	StorageTimeout    time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	// Optional .env for local development
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "complaints"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Civic Complaints"),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "no-reply@complaints.example.org"),

		EmailDryRun:    getBoolEnv("EMAIL_DRY_RUN", false),
		AdminEmail:     getEnv("ADMIN_NOTIFY_EMAIL", "complaints-admins@complaints.example.org"),
		NotifyQueueLen: getIntEnv("NOTIFY_QUEUE_LEN", 256),

		StorageServiceURL: getEnv("STORAGE_SERVICE_URL", "http://localhost:8090"),
		StorageTimeout:    getDurationEnv("STORAGE_TIMEOUT", 6*time.Second),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
