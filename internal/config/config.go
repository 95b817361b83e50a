package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputPath    string
	InputURL     string
	InputTimeout time.Duration
	OutputPath   string

	History domain.YearRange
	Targets domain.YearRange

	AlertRuleName     string
	AlertMultiplier   float64
	AlertStdDevFactor float64
	AlertRule         domain.AlertRule

	KafkaBrokers []string
	KafkaTopic   string

	Serve           bool
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	inputTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("INPUT_TIMEOUT", "10s"))
	if err != nil || inputTimeout <= 0 {
		return nil, errors.New("invalid INPUT_TIMEOUT")
	}

	history, err := parseRange("HISTORY_START", "HISTORY_END", 2015, 2024)
	if err != nil {
		return nil, err
	}
	targets, err := parseRange("TARGET_START", "TARGET_END", 2025, 2030)
	if err != nil {
		return nil, err
	}
	if targets.Start <= history.End {
		return nil, fmt.Errorf("TARGET_START (%d) must be after HISTORY_END (%d)", targets.Start, history.End)
	}

	multiplier, err := parseFloat("ALERT_MULTIPLIER", 1.1)
	if err != nil {
		return nil, err
	}
	stddevFactor, err := parseFloat("ALERT_STDDEV_FACTOR", 1.5)
	if err != nil {
		return nil, err
	}
	ruleName := sharedcfg.EnvOrDefault("ALERT_RULE", domain.RuleMultiplier)
	rule, err := domain.NewAlertRule(ruleName, multiplier, stddevFactor)
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_RULE configuration: %w", err)
	}

	serve, err := parseBool("SERVE", false)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		InputPath:    sharedcfg.EnvOrDefault("INPUT_PATH", "DATASET_VIH.csv"),
		InputURL:     os.Getenv("INPUT_URL"),
		InputTimeout: inputTimeout,
		OutputPath:   outputPath(),

		History: history,
		Targets: targets,

		AlertRuleName:     ruleName,
		AlertMultiplier:   multiplier,
		AlertStdDevFactor: stddevFactor,
		AlertRule:         rule,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "hiv-projections"),

		Serve:           serve,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.InputURL == "" && cfg.InputPath == "" {
		return nil, errors.New("one of INPUT_PATH or INPUT_URL is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether projections should also be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Forecaster builds the engine from the configured windows and alert rule.
func (c *Config) Forecaster() domain.Forecaster {
	return domain.Forecaster{History: c.History, Targets: c.Targets, Rule: c.AlertRule}
}

// outputPath distinguishes an unset OUTPUT_PATH (default file) from an
// explicitly empty one (CSV output disabled).
func outputPath() string {
	if v, ok := os.LookupEnv("OUTPUT_PATH"); ok {
		return v
	}
	return "predicciones_alerta_vih_2025_2030.csv"
}

// maxYearSpan caps how many years a single range may cover.
const maxYearSpan = 100

func parseRange(startKey, endKey string, startDefault, endDefault int) (domain.YearRange, error) {
	start, err := parseInt(startKey, startDefault)
	if err != nil {
		return domain.YearRange{}, err
	}
	end, err := parseInt(endKey, endDefault)
	if err != nil {
		return domain.YearRange{}, err
	}
	if start > end {
		return domain.YearRange{}, fmt.Errorf("%s (%d) must not be after %s (%d)", startKey, start, endKey, end)
	}
	// A wrapped difference goes negative.
	if span := end - start + 1; span <= 0 || span > maxYearSpan {
		return domain.YearRange{}, fmt.Errorf("%s-%s covers more than %d years", startKey, endKey, maxYearSpan)
	}
	return domain.YearRange{Start: start, End: end}, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}
