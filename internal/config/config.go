package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the mock trading system.
type Config struct {
	Port               int
	LogLevel           string
	FailureRate        float64
	QuoteTTL           time.Duration
	QuoteSweepInterval time.Duration
	DeviationThreshold float64
	RandomSeed         uint64 // 0 seeds from the clock
	WebhookTimeout     time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	failureRate, err := getFloat("FAILURE_RATE", 0.1)
	if err != nil {
		return nil, fmt.Errorf("invalid FAILURE_RATE: %w", err)
	}
	if failureRate < 0 || failureRate > 1 {
		return nil, fmt.Errorf("invalid FAILURE_RATE: %v, must be within [0, 1]", failureRate)
	}

	quoteTTL, err := getDuration("QUOTE_TTL", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TTL: %w", err)
	}
	if quoteTTL <= 0 {
		return nil, fmt.Errorf("invalid QUOTE_TTL: %v, must be positive", quoteTTL)
	}

	quoteSweepInterval, err := getDuration("QUOTE_SWEEP_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_SWEEP_INTERVAL: %w", err)
	}
	if quoteSweepInterval <= 0 {
		return nil, fmt.Errorf("invalid QUOTE_SWEEP_INTERVAL: %v, must be positive", quoteSweepInterval)
	}

	deviationThreshold, err := getFloat("DEVIATION_THRESHOLD", 5.0)
	if err != nil {
		return nil, fmt.Errorf("invalid DEVIATION_THRESHOLD: %w", err)
	}
	if deviationThreshold < 0 {
		return nil, fmt.Errorf("invalid DEVIATION_THRESHOLD: %v, must be >= 0", deviationThreshold)
	}

	randomSeed, err := getUint("RANDOM_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:               port,
		LogLevel:           logLevel,
		FailureRate:        failureRate,
		QuoteTTL:           quoteTTL,
		QuoteSweepInterval: quoteSweepInterval,
		DeviationThreshold: deviationThreshold,
		RandomSeed:         randomSeed,
		WebhookTimeout:     webhookTimeout,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		ShutdownTimeout:    shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getUint(key string, defaultVal uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

// getFloat rejects NaN and infinities, which ParseFloat accepts.
func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v)
	}
	return f, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
