package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Default index parameters. API requests may override them per call;
	// the pipeline publishes tables computed with these.
	WetThreshold  float64
	WetComparison string
	BlockKind     string

	// Optional R95 reference period, inclusive calendar years. Both set
	// or neither.
	BaselineStartYear *int
	BaselineEndYear   *int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := parsePositiveDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	wetThreshold, err := parseWetThreshold()
	if err != nil {
		return nil, err
	}

	baselineStart, err := parseOptionalYear("BASELINE_START_YEAR")
	if err != nil {
		return nil, err
	}
	baselineEnd, err := parseOptionalYear("BASELINE_END_YEAR")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "precip-observations"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "hydro-index-tables"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "hydro-index-service"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		WetThreshold:      wetThreshold,
		WetComparison:     envOrDefault("WET_COMPARISON", ">="),
		BlockKind:         envOrDefault("BLOCK_KIND", "year"),
		BaselineStartYear: baselineStart,
		BaselineEndYear:   baselineEnd,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.WetComparison != ">" && cfg.WetComparison != ">=" {
		return nil, errors.New(`WET_COMPARISON must be ">" or ">="`)
	}
	switch cfg.BlockKind {
	case "year", "season", "half_year":
	default:
		return nil, errors.New("BLOCK_KIND must be year, season or half_year")
	}
	if (cfg.BaselineStartYear == nil) != (cfg.BaselineEndYear == nil) {
		return nil, errors.New("BASELINE_START_YEAR and BASELINE_END_YEAR must be set together")
	}
	if cfg.BaselineStartYear != nil && *cfg.BaselineStartYear > *cfg.BaselineEndYear {
		return nil, errors.New("BASELINE_START_YEAR must not be after BASELINE_END_YEAR")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	n, err := strconv.Atoi(envOrDefault("BATCH_SIZE", "50"))
	if err != nil || n < 1 || n > 1000 {
		return 0, errors.New("BATCH_SIZE must be between 1 and 1000")
	}
	return n, nil
}

func parseWetThreshold() (float64, error) {
	v, err := strconv.ParseFloat(envOrDefault("WET_THRESHOLD_MM", "1.0"), 64)
	if err != nil || v < 0 {
		return 0, errors.New("WET_THRESHOLD_MM must be a non-negative number")
	}
	return v, nil
}

func parseOptionalYear(key string) (*int, error) {
	s := os.Getenv(key)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	return &n, nil
}
