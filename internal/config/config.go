package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration read from the environment.
type Config struct {
	Port          string
	LogLevel      string
	LogFormat     string
	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	TextbeltAPIKey    string
	TextbeltURL       string
	PasswordResetURL  string

	GoogleClientID string
	CORSOrigins    []string

	SweepInterval      time.Duration
	SweepGrace         time.Duration
	DeletionConfirmTTL time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("API_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "clinic"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		TokenTTL:   getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		BcryptCost: getEnvAsInt("BCRYPT_COST", 12),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinic Portal"),
		TextbeltAPIKey:    getEnv("TEXTBELT_API_KEY", ""),
		TextbeltURL:       getEnv("TEXTBELT_URL", "https://textbelt.com"),
		PasswordResetURL:  getEnv("PASSWORD_RESET_URL", "http://localhost:3000/reset-password"),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepGrace:         getEnvAsDuration("SWEEP_GRACE", 2*time.Minute),
		DeletionConfirmTTL: getEnvAsDuration("DELETION_CONFIRM_TTL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
