package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StoreDriver selects the persistence backend.
type StoreDriver string

const (
	StoreJSONFile StoreDriver = "jsonfile"
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
)

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Config is loaded once at process start and treated as an immutable value
// afterwards; nothing in the application mutates it or lazily re-reads files.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	BaseURL  string `yaml:"base_url"`

	// Question banks: a directory of per-module JSON files plus an explicit
	// module-name mapping file.
	QuestionsDir      string   `yaml:"questions_dir"`
	ModuleMappingPath string   `yaml:"module_mapping_path"`
	ExcludedFiles     []string `yaml:"excluded_files"`

	StoreDriver StoreDriver `yaml:"store_driver"`
	UsersPath   string      `yaml:"users_path"`
	HistoryPath string      `yaml:"history_path"`
	DBDSN       string      `yaml:"db_dsn"`

	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`

	CORSOrigins []string `yaml:"cors_origins"`
	LogLevel    string   `yaml:"log_level"`

	SMTP SMTP `yaml:"smtp"`

	BackupEnabled bool   `yaml:"backup_enabled"`
	BackupDir     string `yaml:"backup_dir"`
	BackupAt      string `yaml:"backup_at"` // "HH:MM", local time
}

// Load builds the configuration from an optional YAML file (CONFIG_FILE)
// overlaid with environment variables. A .env file is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:          ":8080",
		BaseURL:           "http://localhost:8080",
		QuestionsDir:      "./data/questions",
		ModuleMappingPath: "./data/module_mapping.json",
		ExcludedFiles:     []string{"placeholder.json"},
		StoreDriver:       StoreJSONFile,
		UsersPath:         "./data/users.json",
		HistoryPath:       "./data/user-test-history.json",
		SessionSecret:     "supersecret-dev-key",
		SessionTTL:        7 * 24 * time.Hour,
		BcryptCost:        10,
		ResetTokenTTL:     time.Hour,
		CORSOrigins:       []string{"http://localhost:3000"},
		LogLevel:          "info",
		BackupDir:         "./data/backups",
		BackupAt:          "03:00",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.BaseURL = envOr("BASE_URL", cfg.BaseURL)
	cfg.QuestionsDir = envOr("QUESTIONS_DIR", cfg.QuestionsDir)
	cfg.ModuleMappingPath = envOr("MODULE_MAPPING_PATH", cfg.ModuleMappingPath)
	cfg.StoreDriver = StoreDriver(envOr("STORE_DRIVER", string(cfg.StoreDriver)))
	cfg.UsersPath = envOr("USERS_PATH", cfg.UsersPath)
	cfg.HistoryPath = envOr("HISTORY_PATH", cfg.HistoryPath)
	cfg.DBDSN = envOr("DB_DSN", cfg.DBDSN)
	cfg.SessionSecret = envOr("SESSION_SECRET", cfg.SessionSecret)
	cfg.SessionTTL = envDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.BcryptCost = envInt("BCRYPT_COST", cfg.BcryptCost)
	cfg.ResetTokenTTL = envDuration("RESET_TOKEN_TTL", cfg.ResetTokenTTL)
	cfg.CORSOrigins = csvOr("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.BackupEnabled = envBool("BACKUP_ENABLED", cfg.BackupEnabled)
	cfg.BackupDir = envOr("BACKUP_DIR", cfg.BackupDir)
	cfg.BackupAt = envOr("BACKUP_AT", cfg.BackupAt)

	cfg.SMTP.Host = envOr("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = envInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = envOr("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = envOr("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = envOr("SMTP_FROM", cfg.SMTP.From)

	switch cfg.StoreDriver {
	case StoreJSONFile, StoreSQLite, StorePostgres:
	default:
		return Config{}, fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func csvOr(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
