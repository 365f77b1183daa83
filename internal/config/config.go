package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the dialog fulfillment service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	MessagesDir   string
	DefaultLocale string

	ErrorMessage           string
	CallbackFallbackIntent string
	AutoHandleErrors       bool

	DisambiguationEnabled             bool
	DisambiguationConfidenceThreshold float64
	DisambiguationSimilarityThreshold float64
	DisambiguationMaxCandidates       int
	DisambiguationMinCandidates       int

	TextGenMode         string
	TextGenHTTPURL      string
	TextGenGatewayURL   string
	TextGenGatewayToken string
	TextGenModelID      string
	TextGenMaxTokens    int
	TextGenTemperature  float64
	TextGenEnabled      bool

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "lexkit"),
		MessagesDir:            stringsTrimSpace("LEXKIT_MESSAGES_DIR"),
		DefaultLocale:          envOrDefault("LEXKIT_DEFAULT_LOCALE", "en_US"),
		ErrorMessage:           stringsTrimSpace("LEXKIT_ERROR_MESSAGE"),
		CallbackFallbackIntent: envOrDefault("LEXKIT_CALLBACK_FALLBACK_INTENT", "FallbackIntent"),
		AutoHandleErrors:       true,
		TextGenMode:            envOrDefault("TEXTGEN_ADAPTER_MODE", "auto"),
		TextGenHTTPURL:         stringsTrimSpace("TEXTGEN_HTTP_URL"),
		TextGenGatewayURL:      stringsTrimSpace("TEXTGEN_GATEWAY_URL"),
		TextGenGatewayToken:    stringsTrimSpace("TEXTGEN_GATEWAY_TOKEN"),
		TextGenModelID:         stringsTrimSpace("TEXTGEN_MODEL_ID"),
		TextGenMaxTokens:       150,
		TextGenTemperature:     0.3,
		DatabaseURL:            stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:        15 * time.Second,

		DisambiguationConfidenceThreshold: 0.6,
		DisambiguationSimilarityThreshold: 0.15,
		DisambiguationMaxCandidates:       3,
		DisambiguationMinCandidates:       2,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AutoHandleErrors, err = boolFromEnv("LEXKIT_AUTO_HANDLE_ERRORS", cfg.AutoHandleErrors)
	if err != nil {
		return Config{}, err
	}
	cfg.DisambiguationEnabled, err = boolFromEnv("LEXKIT_DISAMBIGUATION_ENABLED", cfg.DisambiguationEnabled)
	if err != nil {
		return Config{}, err
	}
	cfg.DisambiguationConfidenceThreshold, err = floatFromEnv("LEXKIT_DISAMBIGUATION_CONFIDENCE_THRESHOLD", cfg.DisambiguationConfidenceThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.DisambiguationSimilarityThreshold, err = floatFromEnv("LEXKIT_DISAMBIGUATION_SIMILARITY_THRESHOLD", cfg.DisambiguationSimilarityThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.DisambiguationMaxCandidates, err = intFromEnv("LEXKIT_DISAMBIGUATION_MAX_CANDIDATES", cfg.DisambiguationMaxCandidates)
	if err != nil {
		return Config{}, err
	}
	cfg.DisambiguationMinCandidates, err = intFromEnv("LEXKIT_DISAMBIGUATION_MIN_CANDIDATES", cfg.DisambiguationMinCandidates)
	if err != nil {
		return Config{}, err
	}
	cfg.TextGenEnabled, err = boolFromEnv("TEXTGEN_ENABLED", cfg.TextGenEnabled)
	if err != nil {
		return Config{}, err
	}
	cfg.TextGenMaxTokens, err = intFromEnv("TEXTGEN_MAX_TOKENS", cfg.TextGenMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.TextGenTemperature, err = floatFromEnv("TEXTGEN_TEMPERATURE", cfg.TextGenTemperature)
	if err != nil {
		return Config{}, err
	}

	if cfg.DisambiguationConfidenceThreshold <= 0 || cfg.DisambiguationConfidenceThreshold > 1 {
		return Config{}, fmt.Errorf("LEXKIT_DISAMBIGUATION_CONFIDENCE_THRESHOLD must be in (0,1]")
	}
	if cfg.DisambiguationSimilarityThreshold < 0 || cfg.DisambiguationSimilarityThreshold > 1 {
		return Config{}, fmt.Errorf("LEXKIT_DISAMBIGUATION_SIMILARITY_THRESHOLD must be in [0,1]")
	}
	if cfg.DisambiguationMaxCandidates < cfg.DisambiguationMinCandidates {
		return Config{}, fmt.Errorf("LEXKIT_DISAMBIGUATION_MAX_CANDIDATES must be >= min candidates")
	}
	if cfg.DisambiguationMinCandidates < 2 {
		return Config{}, fmt.Errorf("LEXKIT_DISAMBIGUATION_MIN_CANDIDATES must be at least 2")
	}
	if cfg.TextGenMaxTokens <= 0 {
		return Config{}, fmt.Errorf("TEXTGEN_MAX_TOKENS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
