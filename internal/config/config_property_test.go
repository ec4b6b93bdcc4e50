package config

import (
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// validLogLevels are the accepted log level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// durationEnvKeys lists all Config fields that are parsed as time.Duration.
var durationEnvKeys = []string{
	"QUOTE_TTL",
	"QUOTE_SWEEP_INTERVAL",
	"WEBHOOK_TIMEOUT",
	"READ_TIMEOUT",
	"WRITE_TIMEOUT",
	"IDLE_TIMEOUT",
	"SHUTDOWN_TIMEOUT",
}

// allEnvKeys is every config-related env var key.
var allEnvKeys = append([]string{
	"PORT", "LOG_LEVEL", "FAILURE_RATE", "DEVIATION_THRESHOLD", "RANDOM_SEED",
}, durationEnvKeys...)

// unsetAllConfigEnv clears all config env vars.
func unsetAllConfigEnv() {
	for _, key := range allEnvKeys {
		os.Unsetenv(key)
	}
}

// genDurationString generates a valid positive Go duration string.
func genDurationString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, "unit")
		val := rapid.IntRange(1, 600).Draw(t, "val")
		return fmt.Sprintf("%d%s", val, unit)
	})
}

// orDefault draws either "" (unset) or a value from g.
func orDefault(g *rapid.Generator[string]) *rapid.Generator[string] {
	return rapid.OneOf(rapid.Just(""), g)
}

func TestProperty_ValidConfigParsing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		portStr := orDefault(rapid.Map(rapid.IntRange(1, 65535), strconv.Itoa)).Draw(t, "port")
		logLevel := orDefault(rapid.SampledFrom(validLogLevels)).Draw(t, "logLevel")
		failureRate := rapid.Float64Range(0, 1).Draw(t, "failureRate")
		threshold := rapid.Float64Range(0, 100).Draw(t, "threshold")
		seed := rapid.Uint64().Draw(t, "seed")

		durStrs := make(map[string]string, len(durationEnvKeys))
		for _, key := range durationEnvKeys {
			durStrs[key] = orDefault(genDurationString()).Draw(t, key)
		}

		if portStr != "" {
			os.Setenv("PORT", portStr)
		}
		if logLevel != "" {
			os.Setenv("LOG_LEVEL", logLevel)
		}
		os.Setenv("FAILURE_RATE", strconv.FormatFloat(failureRate, 'g', -1, 64))
		os.Setenv("DEVIATION_THRESHOLD", strconv.FormatFloat(threshold, 'g', -1, 64))
		os.Setenv("RANDOM_SEED", strconv.FormatUint(seed, 10))
		for _, key := range durationEnvKeys {
			if durStrs[key] != "" {
				os.Setenv(key, durStrs[key])
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid inputs: %v", err)
		}

		expectedPort := 8080
		if portStr != "" {
			expectedPort, _ = strconv.Atoi(portStr)
		}
		if cfg.Port != expectedPort {
			t.Fatalf("Port = %d, want %d", cfg.Port, expectedPort)
		}
		expectedLogLevel := "info"
		if logLevel != "" {
			expectedLogLevel = logLevel
		}
		if cfg.LogLevel != expectedLogLevel {
			t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, expectedLogLevel)
		}
		if cfg.FailureRate != failureRate {
			t.Fatalf("FailureRate = %v, want %v", cfg.FailureRate, failureRate)
		}
		if cfg.DeviationThreshold != threshold {
			t.Fatalf("DeviationThreshold = %v, want %v", cfg.DeviationThreshold, threshold)
		}
		if cfg.RandomSeed != seed {
			t.Fatalf("RandomSeed = %d, want %d", cfg.RandomSeed, seed)
		}

		durFields := []struct {
			envKey string
			got    time.Duration
			defVal time.Duration
		}{
			{"QUOTE_TTL", cfg.QuoteTTL, 60 * time.Second},
			{"QUOTE_SWEEP_INTERVAL", cfg.QuoteSweepInterval, 30 * time.Second},
			{"WEBHOOK_TIMEOUT", cfg.WebhookTimeout, 5 * time.Second},
			{"READ_TIMEOUT", cfg.ReadTimeout, 5 * time.Second},
			{"WRITE_TIMEOUT", cfg.WriteTimeout, 10 * time.Second},
			{"IDLE_TIMEOUT", cfg.IdleTimeout, 60 * time.Second},
			{"SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, 10 * time.Second},
		}
		for _, df := range durFields {
			expected := df.defVal
			if s := durStrs[df.envKey]; s != "" {
				expected, _ = time.ParseDuration(s)
			}
			if df.got != expected {
				t.Fatalf("%s = %v, want %v (env=%q)", df.envKey, df.got, expected, durStrs[df.envKey])
			}
		}
	})
}

func TestProperty_FailureRateOutOfRangeReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		rate := rapid.OneOf(
			rapid.Float64Range(-1e6, -1e-9),
			rapid.Float64Range(1+1e-9, 1e6),
		).Draw(t, "rate")
		os.Setenv("FAILURE_RATE", strconv.FormatFloat(rate, 'g', -1, 64))

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for FAILURE_RATE %v", rate)
		}
	})
}

func TestProperty_InvalidLogLevelReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidLevel := rapid.StringMatching(`[a-z]{1,20}`).Filter(func(s string) bool {
			for _, v := range validLogLevels {
				if s == v {
					return false
				}
			}
			return s != ""
		}).Draw(t, "invalidLevel")

		os.Setenv("LOG_LEVEL", invalidLevel)

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for invalid LOG_LEVEL %q", invalidLevel)
		}
	})
}

func TestProperty_InvalidDurationReturnsError(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				invalidDur := rapid.OneOf(
					rapid.StringMatching(`[a-zA-Z]{2,10}`),
					rapid.Just("5x"),
					rapid.Just("abc123"),
				).Filter(func(s string) bool {
					_, err := time.ParseDuration(s)
					return s != "" && err != nil
				}).Draw(t, "invalidDuration")

				os.Setenv(key, invalidDur)

				if _, err := Load(); err == nil {
					t.Fatalf("Load() should return error for invalid %s=%q", key, invalidDur)
				}
			})
		})
	}
}
