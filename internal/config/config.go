// Package config loads service settings from an optional YAML file and the
// environment. Environment variables take precedence over file values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port     int    `koanf:"port"`
	LogLevel string `koanf:"log_level"`
	Store    string `koanf:"store"`
	SeedFile string `koanf:"seed_file"`

	MongoURI           string `koanf:"mongo_uri"`
	MongoDatabase      string `koanf:"mongo_database"`
	MongoCollection    string `koanf:"mongo_collection"`
	AuditCollection    string `koanf:"audit_collection"`
	AuditRetentionDays int    `koanf:"audit_retention_days"`
	EnsureIndexes      bool   `koanf:"ensure_indexes"`

	DefaultExceptionDurationDays int `koanf:"default_exception_duration_days"`
	ReportExpiringWindowDays     int `koanf:"report_expiring_window_days"`
	ReportUnenforcedLimit        int `koanf:"report_unenforced_limit"`
	ReportBatchSize              int `koanf:"report_batch_size"`

	APIKeys        string        `koanf:"api_keys"`
	RatePerMinute  int           `koanf:"rate_per_minute"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	locked map[string]bool
}

// Defaults for non-secret settings.
const (
	DefaultPort                     = 8080
	DefaultLogLevel                 = "info"
	DefaultMongoCollection          = "inventory"
	DefaultAuditCollection          = "etracker_audit"
	DefaultExceptionDurationDays    = 365
	DefaultReportExpiringWindowDays = 45
	DefaultReportUnenforcedLimit    = 150
	DefaultReportBatchSize          = 200
	DefaultRatePerMinute            = 60
	DefaultRequestTimeout           = 15 * time.Second
)

var (
	ErrMissingMongoURI        = errors.New("ETRACKER_MONGO_URI is required")
	ErrMissingMongoDatabase   = errors.New("ETRACKER_MONGO_DATABASE is required")
	ErrMissingMongoCollection = errors.New("ETRACKER_MONGO_COLLECTION is required")
	ErrInvalidStore           = errors.New("ETRACKER_STORE must be mongo or memory")
)

// envNames lists the environment variables for each key, in lookup order.
var envNames = map[string][]string{
	"port":                            {"ETRACKER_PORT", "PORT"},
	"log_level":                       {"ETRACKER_LOG_LEVEL"},
	"store":                           {"ETRACKER_STORE"},
	"seed_file":                       {"ETRACKER_SEED_FILE"},
	"mongo_uri":                       {"ETRACKER_MONGO_URI", "MONGO_URI"},
	"mongo_database":                  {"ETRACKER_MONGO_DATABASE", "MONGO_DB"},
	"mongo_collection":                {"ETRACKER_MONGO_COLLECTION", "MONGO_COLLECTION"},
	"audit_collection":                {"ETRACKER_AUDIT_COLLECTION"},
	"audit_retention_days":            {"ETRACKER_AUDIT_RETENTION_DAYS"},
	"ensure_indexes":                  {"ETRACKER_ENSURE_INDEXES"},
	"default_exception_duration_days": {"ETRACKER_DEFAULT_EXCEPTION_DURATION_DAYS"},
	"report_expiring_window_days":     {"ETRACKER_REPORT_EXPIRING_WINDOW_DAYS"},
	"report_unenforced_limit":         {"ETRACKER_REPORT_UNENFORCED_LIMIT"},
	"report_batch_size":               {"ETRACKER_REPORT_BATCH_SIZE"},
	"api_keys":                        {"ETRACKER_API_KEYS", "API_KEYS"},
	"rate_per_minute":                 {"ETRACKER_RATE_PER_MINUTE", "RATE"},
	"request_timeout":                 {"ETRACKER_REQUEST_TIMEOUT"},
}

// Load reads the optional YAML file at path, applies environment overrides
// and defaults, and validates the result. A file that cannot be read is fatal;
// other problems are returned together as a slice.
func Load(path string) (*Config, []error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", path, err)}
		}
	}

	var errs []error
	locked := map[string]bool{}
	for key, names := range envNames {
		for _, name := range names {
			if v, ok := os.LookupEnv(name); ok && v != "" {
				if err := k.Set(key, v); err != nil {
					errs = append(errs, err)
				}
				locked[key] = true
				break
			}
		}
	}

	cfg := &Config{
		Port:                         intOr(k, "port", DefaultPort, &errs),
		LogLevel:                     strOr(k, "log_level", DefaultLogLevel),
		Store:                        strings.ToLower(strOr(k, "store", StoreMongo)),
		SeedFile:                     k.String("seed_file"),
		MongoURI:                     k.String("mongo_uri"),
		MongoDatabase:                k.String("mongo_database"),
		MongoCollection:              strOr(k, "mongo_collection", DefaultMongoCollection),
		AuditCollection:              strOr(k, "audit_collection", DefaultAuditCollection),
		AuditRetentionDays:           intOr(k, "audit_retention_days", 0, &errs),
		EnsureIndexes:                boolOr(k, "ensure_indexes", true),
		DefaultExceptionDurationDays: intOr(k, "default_exception_duration_days", DefaultExceptionDurationDays, &errs),
		ReportExpiringWindowDays:     intOr(k, "report_expiring_window_days", DefaultReportExpiringWindowDays, &errs),
		ReportUnenforcedLimit:        intOr(k, "report_unenforced_limit", DefaultReportUnenforcedLimit, &errs),
		ReportBatchSize:              intOr(k, "report_batch_size", DefaultReportBatchSize, &errs),
		APIKeys:                      k.String("api_keys"),
		RatePerMinute:                intOr(k, "rate_per_minute", DefaultRatePerMinute, &errs),
		RequestTimeout:               durationOr(k, "request_timeout", DefaultRequestTimeout, &errs),
		locked:                       locked,
	}
	if cfg.DefaultExceptionDurationDays < 1 {
		cfg.DefaultExceptionDurationDays = DefaultExceptionDurationDays
	}

	return cfg, append(errs, cfg.Validate()...)
}

// Validate reports every missing or inconsistent setting.
func (c *Config) Validate() []error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, ErrMissingMongoURI)
		}
		if c.MongoDatabase == "" {
			errs = append(errs, ErrMissingMongoDatabase)
		}
		if c.MongoCollection == "" {
			errs = append(errs, ErrMissingMongoCollection)
		}
	default:
		errs = append(errs, ErrInvalidStore)
	}
	return errs
}

// Locked reports whether key was pinned by an environment variable.
func (c *Config) Locked(key string) bool { return c.locked[key] }

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func strOr(k *koanf.Koanf, key, def string) string {
	if v := strings.TrimSpace(k.String(key)); v != "" {
		return v
	}
	return def
}

func intOr(k *koanf.Koanf, key string, def int, errs *[]error) int {
	if !k.Exists(key) {
		return def
	}
	raw := strings.TrimSpace(fmt.Sprint(k.Get(key)))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer: %q", key, raw))
		return def
	}
	return n
}

func boolOr(k *koanf.Koanf, key string, def bool) bool {
	if !k.Exists(key) {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(fmt.Sprint(k.Get(key)))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return def
}

func durationOr(k *koanf.Koanf, key string, def time.Duration, errs *[]error) time.Duration {
	if !k.Exists(key) {
		return def
	}
	raw := strings.TrimSpace(fmt.Sprint(k.Get(key)))
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration: %q", key, raw))
		return def
	}
	return d
}
