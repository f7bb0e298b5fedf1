package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"5300"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production

	DatabaseURL string `env:"DATABASE_URL"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	// Identity provider (session token verification)
	IdentityServiceURL   string `env:"IDENTITY_SERVICE_URL"`
	IdentityServiceToken string `env:"IDENTITY_SERVICE_TOKEN"`

	// Africa's Talking gateway
	SMSProvider  string `env:"SMS_PROVIDER" envDefault:"africastalking"` // africastalking, mock
	ATUsername   string `env:"AT_LIVE_USERNAME"`
	ATAPIKey     string `env:"AT_LIVE_API_KEY"`
	ATSenderID   string `env:"AT_SENDER_ID"`
	ATBaseURL    string `env:"AT_BASE_URL" envDefault:"https://api.africastalking.com"`

	// Scheduled-send engine
	ScanIntervalSeconds int     `env:"SCAN_INTERVAL_SECONDS" envDefault:"60"`
	SMSUnitCost         float64 `env:"SMS_UNIT_COST" envDefault:"32.0"`
	ReferenceTimezone   string  `env:"REFERENCE_TIMEZONE" envDefault:"Africa/Nairobi"`

	// Message dispatch worker
	DispatchIntervalSeconds int `env:"DISPATCH_INTERVAL_SECONDS" envDefault:"5"`
	DispatchBatchSize       int `env:"DISPATCH_BATCH_SIZE" envDefault:"100"`

	LoggerLevel  string `env:"LOGGER_LEVEL" envDefault:"info"`
	LoggerFormat string `env:"LOGGER_FORMAT" envDefault:"json"` // json, text
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("failed to parse config from environment: %v", err)
	}
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ScanInterval returns the due-scan period as a duration.
func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

func (c Config) DispatchInterval() time.Duration {
	return time.Duration(c.DispatchIntervalSeconds) * time.Second
}

// ReferenceLocation resolves the configured timezone used to interpret naive
// scheduled times and to evaluate "is this in the future". Falls back to UTC
// if the zone name is unknown.
func (c Config) ReferenceLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		log.Printf("unknown REFERENCE_TIMEZONE %q, falling back to UTC", c.ReferenceTimezone)
		return time.UTC
	}
	return loc
}
