package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

const (
	StorageMemory    = "memory"
	StorageMongo     = "mongo"
	StorageFirestore = "firestore"

	AdviceHTTP   = "http"
	AdviceVertex = "vertex"
	AdviceMock   = "mock"
)

// Config is built from an optional YAML file (ASKMICHAEL_CONFIG) and the
// environment. Environment variables win over the file.
//
// Example file:
//
//	mode: cloud
//	storage_backend: mongo
//	mongo_database: askmichael
//	advice_backend: http
//	advice_url: https://advice.internal
//	daily_limit: 50
type Config struct {
	Mode     Mode   `yaml:"mode"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	StorageBackend  string `yaml:"storage_backend"` // "memory", "mongo" or "firestore"
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	ConnectAttempts int    `yaml:"connect_attempts"`

	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
	ModelName    string `yaml:"model_name"`

	AdviceBackend string        `yaml:"advice_backend"` // "http", "vertex" or "mock"
	AdviceURL     string        `yaml:"advice_url"`
	AdviceTimeout time.Duration `yaml:"advice_timeout"`

	DailyLimit  int64    `yaml:"daily_limit"`
	UserHeader  string   `yaml:"user_header"`
	CORSOrigins []string `yaml:"cors_origins"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func readFile(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file (if any) and env vars and validates the result.
func Load() (*Config, error) {
	file, err := readFile(os.Getenv("ASKMICHAEL_CONFIG"))
	if err != nil {
		return nil, err
	}

	modeStr := getEnv("ASKMICHAEL_MODE", string(file.Mode))
	mode := ModeLocal
	if modeStr == string(ModeCloud) {
		mode = ModeCloud
	}

	defaultStorage, defaultAdvice := StorageMemory, AdviceMock
	if mode == ModeCloud {
		defaultStorage, defaultAdvice = StorageMongo, AdviceHTTP
	}

	cfg := &Config{
		Mode:     mode,
		Port:     getEnv("ASKMICHAEL_PORT", getEnv("PORT", or(file.Port, "8080"))),
		LogLevel: getEnv("ASKMICHAEL_LOG_LEVEL", or(file.LogLevel, "info")),

		StorageBackend: getEnv("ASKMICHAEL_STORAGE_BACKEND", or(file.StorageBackend, defaultStorage)),
		MongoURI:       getEnv("MONGODB_URI", file.MongoURI),
		MongoDatabase:  getEnv("ASKMICHAEL_MONGO_DATABASE", or(file.MongoDatabase, "askmichael")),

		GCPProjectID: getEnv("ASKMICHAEL_GCP_PROJECT", file.GCPProjectID),
		GCPLocation:  getEnv("ASKMICHAEL_GCP_LOCATION", or(file.GCPLocation, "us-central1")),
		ModelName:    getEnv("ASKMICHAEL_MODEL_NAME", or(file.ModelName, "gemini-2.5-flash")),

		AdviceBackend: getEnv("ASKMICHAEL_ADVICE_BACKEND", or(file.AdviceBackend, defaultAdvice)),
		AdviceURL:     getEnv("ASKMICHAEL_ADVICE_URL", getEnv("NEXT_PUBLIC_API_URL", file.AdviceURL)),

		UserHeader:  getEnv("ASKMICHAEL_USER_HEADER", or(file.UserHeader, "X-User-Id")),
		CORSOrigins: file.CORSOrigins,
	}
	if v := os.Getenv("ASKMICHAEL_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	var errs []error

	attempts, err := getIntEnv("ASKMICHAEL_CONNECT_ATTEMPTS", orInt(int64(file.ConnectAttempts), 5))
	errs = append(errs, err)
	cfg.ConnectAttempts = max(int(attempts), 1)

	cfg.DailyLimit, err = getIntEnv("ASKMICHAEL_DAILY_LIMIT", orInt(file.DailyLimit, 50))
	errs = append(errs, err)

	timeout := file.AdviceTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.AdviceTimeout, err = getDurationEnv("ASKMICHAEL_ADVICE_TIMEOUT", timeout)
	errs = append(errs, err)

	errs = append(errs, cfg.Validate())
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every selected backend has what it needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI must be set for mongo storage"))
		}
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("ASKMICHAEL_GCP_PROJECT must be set for firestore storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	switch c.AdviceBackend {
	case AdviceMock:
	case AdviceHTTP:
		if c.AdviceURL == "" {
			errs = append(errs, errors.New("ASKMICHAEL_ADVICE_URL must be set for http advice backend"))
		}
	case AdviceVertex:
		if c.GCPProjectID == "" || c.GCPLocation == "" {
			errs = append(errs, errors.New("ASKMICHAEL_GCP_PROJECT and ASKMICHAEL_GCP_LOCATION must be set for vertex advice backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown advice backend %q", c.AdviceBackend))
	}

	if c.DailyLimit <= 0 {
		errs = append(errs, fmt.Errorf("daily limit must be positive, got %d", c.DailyLimit))
	}
	if strings.TrimSpace(c.UserHeader) == "" {
		errs = append(errs, errors.New("user header must not be empty"))
	}
	return errors.Join(errs...)
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orInt(v, def int64) int64 {
	if v != 0 {
		return v
	}
	return def
}
