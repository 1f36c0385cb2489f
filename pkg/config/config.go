package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the ww-adapter.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string
	Port        int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPBodyLimit    int

	NATSURL   string
	AWSRegion string

	// Credential sources. When CredentialsSecret is set the account
	// credentials are resolved from AWS Secrets Manager; otherwise the
	// WW_* env vars below are used directly.
	CredentialsSecret string
	WWRegion          string
	WWUsername        string
	WWPassword        string

	// PollInterval is the My Day summary refresh cadence.
	PollInterval time.Duration
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:       GetEnv("SERVICE_NAME", "ww-adapter"),
		Env:               GetEnv("ENV", "dev"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		Port:              GetEnvInt("WW_PORT", 9040),
		HTTPReadTimeout:   GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout:  GetEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		HTTPIdleTimeout:   GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		HTTPBodyLimit:     GetEnvInt("HTTP_BODY_LIMIT", 1*1024*1024),
		NATSURL:           GetEnv("NATS_URL", "nats://localhost:4222"),
		AWSRegion:         GetEnv("AWS_REGION", "us-east-2"),
		CredentialsSecret: GetEnv("WW_CREDENTIALS_SECRET", ""),
		WWRegion:          GetEnv("WW_REGION", "US"),
		WWUsername:        GetEnv("WW_USERNAME", ""),
		WWPassword:        GetEnv("WW_PASSWORD", ""),
		PollInterval:      GetEnvDuration("WW_POLL_INTERVAL", 15*time.Minute),
	}
}
