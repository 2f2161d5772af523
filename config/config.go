package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Port        string
	Environment string

	RedisURL   string
	SessionTTL time.Duration

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string

	InstrumentServiceURL string // payment instrument service base URL
	PayerAuthServiceURL  string // 3DS / PSD2 provider base URL
	PifdBaseURL          string // public base URL for ACS notification callbacks

	AttestationSNSTopicARN string // optional; empty disables event publishing

	// SafetyNetExclusions is a comma-separated rule list
	// "flow:status:code[:channel]" that disables the safety-net bypass for
	// specific downstream error surfaces. Parsed once at startup.
	SafetyNetExclusions string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8089"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL:           getDurationEnv("SESSION_TTL", 24*time.Hour),
		PostgresUser:         os.Getenv("POSTGRES_USER"),
		PostgresPassword:     os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:           os.Getenv("POSTGRES_DB"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:      getEnv("POSTGRES_SSLMODE", "disable"),
		InstrumentServiceURL: os.Getenv("INSTRUMENT_SERVICE_URL"),
		PayerAuthServiceURL:  os.Getenv("PAYERAUTH_SERVICE_URL"),
		PifdBaseURL:          os.Getenv("PIFD_BASE_URL"),
		AttestationSNSTopicARN: os.Getenv("ATTESTATION_SNS_TOPIC_ARN"),
		SafetyNetExclusions:    os.Getenv("SAFETY_NET_EXCLUSIONS"),
	}

	if cfg.InstrumentServiceURL == "" || cfg.PayerAuthServiceURL == "" {
		return nil, fmt.Errorf("missing required environment variables INSTRUMENT_SERVICE_URL / PAYERAUTH_SERVICE_URL")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
