package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	errInvalidPort             = errors.New("config: invalid PORT number")
	errWorkersOutOfRange       = errors.New("config: AUDIT_WORKERS must be 1-32")
	errProbeConcurrencyRange   = errors.New("config: PROBE_CONCURRENCY must be 1-20")
	errNonPositiveDuration     = errors.New("config: durations must be positive")
	errDelayRange              = errors.New("config: FETCH_MIN_DELAY must not exceed FETCH_MAX_DELAY")
	errIncompleteObjectStorage = errors.New("config: S3_ENDPOINT requires S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY")
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string

	AuditWorkers         int
	AuditPollInterval    time.Duration
	MaxAuditDuration     time.Duration
	StaleProcessingAfter time.Duration

	FetchTimeout        time.Duration
	FetchMinDelay       time.Duration
	FetchMaxDelay       time.Duration
	ProbeTimeout        time.Duration
	ProbeConcurrency    int
	AllowPrivateTargets bool

	HeadlessEnabled bool
	ChromePath      string

	S3 ObjectStorage
}

// ObjectStorage configures the optional report archive.
type ObjectStorage struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether an archive endpoint was configured.
func (o ObjectStorage) Enabled() bool { return o.Endpoint != "" }

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "ERROR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AuditWorkers:         getEnvAsInt("AUDIT_WORKERS", 2),
		AuditPollInterval:    getEnvAsDuration("AUDIT_POLL_INTERVAL", time.Second),
		MaxAuditDuration:     getEnvAsDuration("MAX_AUDIT_DURATION", 300*time.Second),
		StaleProcessingAfter: getEnvAsDuration("STALE_PROCESSING_AFTER", 10*time.Minute),

		FetchTimeout:        getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchMinDelay:       getEnvAsDuration("FETCH_MIN_DELAY", time.Second),
		FetchMaxDelay:       getEnvAsDuration("FETCH_MAX_DELAY", 3*time.Second),
		ProbeTimeout:        getEnvAsDuration("PROBE_TIMEOUT", 5*time.Second),
		ProbeConcurrency:    getEnvAsInt("PROBE_CONCURRENCY", 5),
		AllowPrivateTargets: getEnvAsBool("ALLOW_PRIVATE_TARGETS", false),

		HeadlessEnabled: getEnvAsBool("HEADLESS_ENABLED", false),
		ChromePath:      os.Getenv("CHROME_PATH"),

		S3: ObjectStorage{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			UseSSL:    getEnvAsBool("S3_USE_SSL", true),
		},
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.AuditWorkers < 1 || c.AuditWorkers > 32 {
		return fmt.Errorf("%w: got %d", errWorkersOutOfRange, c.AuditWorkers)
	}

	if c.ProbeConcurrency < 1 || c.ProbeConcurrency > 20 {
		return fmt.Errorf("%w: got %d", errProbeConcurrencyRange, c.ProbeConcurrency)
	}

	for name, d := range map[string]time.Duration{
		"AUDIT_POLL_INTERVAL":    c.AuditPollInterval,
		"MAX_AUDIT_DURATION":     c.MaxAuditDuration,
		"STALE_PROCESSING_AFTER": c.StaleProcessingAfter,
		"FETCH_TIMEOUT":          c.FetchTimeout,
		"PROBE_TIMEOUT":          c.ProbeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s=%s", errNonPositiveDuration, name, d)
		}
	}

	if c.FetchMinDelay < 0 || c.FetchMinDelay > c.FetchMaxDelay {
		return fmt.Errorf("%w: %s > %s", errDelayRange, c.FetchMinDelay, c.FetchMaxDelay)
	}

	if c.S3.Enabled() && (c.S3.Bucket == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		return errIncompleteObjectStorage
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m") and bare
// integers, which are read as seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
