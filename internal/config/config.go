package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendSQLite    = "sqlite"
)

type CalendarConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CalendarID      string `yaml:"calendar_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type Config struct {
	Mode Mode   `yaml:"mode"`
	Port string `yaml:"port"`

	StorageBackend string `yaml:"storage_backend"` // memory, firestore, mongo or sqlite
	GCPProjectID   string `yaml:"gcp_project"`
	MongoURI       string `yaml:"mongo_uri"`
	MongoDatabase  string `yaml:"mongo_database"`
	SQLitePath     string `yaml:"sqlite_path"`

	// Timezone names the reference zone for "today" and due dates.
	Timezone string         `yaml:"timezone"`
	Location *time.Location `yaml:"-"`

	ListLimit int `yaml:"list_limit"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Calendar CalendarConfig `yaml:"calendar"`
}

// Default returns the local development configuration.
func Default() *Config {
	return &Config{
		Mode:           ModeLocal,
		Port:           "8080",
		StorageBackend: BackendMemory,
		MongoDatabase:  "taskbot",
		SQLitePath:     "~/.taskbot/taskbot.db",
		Timezone:       "UTC",
		ListLimit:      20,
		LogLevel:       "info",
		LogFormat:      "json",
		Calendar:       CalendarConfig{CalendarID: "primary"},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load builds the config from, lowest precedence first: defaults, the YAML
// file named by TASKBOT_CONFIG, and the environment. A .env file in the
// working directory (or TASKBOT_ENV_FILE) is loaded into the environment
// first without overriding variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("TASKBOT_ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("TASKBOT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Mode = Mode(getEnv("TASKBOT_MODE", string(c.Mode)))
	// PORT is what most container platforms inject.
	c.Port = getEnv("TASKBOT_PORT", getEnv("PORT", c.Port))

	c.StorageBackend = getEnv("TASKBOT_STORAGE_BACKEND", c.StorageBackend)
	c.GCPProjectID = getEnv("TASKBOT_GCP_PROJECT", c.GCPProjectID)
	c.MongoURI = getEnv("TASKBOT_MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("TASKBOT_MONGO_DATABASE", c.MongoDatabase)
	c.SQLitePath = getEnv("TASKBOT_SQLITE_PATH", c.SQLitePath)

	c.Timezone = getEnv("TASKBOT_TIMEZONE", c.Timezone)
	c.ListLimit = getIntEnv("TASKBOT_LIST_LIMIT", c.ListLimit)

	c.LogLevel = getEnv("TASKBOT_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("TASKBOT_LOG_FORMAT", c.LogFormat)

	c.Calendar.Enabled = getBoolEnv("TASKBOT_CALENDAR_ENABLED", c.Calendar.Enabled)
	c.Calendar.CalendarID = getEnv("TASKBOT_CALENDAR_ID", c.Calendar.CalendarID)
	c.Calendar.CredentialsFile = getEnv("TASKBOT_CALENDAR_CREDENTIALS", c.Calendar.CredentialsFile)
}

// Validate checks the settings each backend needs and resolves Location.
func (c *Config) Validate() error {
	var problems []string

	switch c.Mode {
	case ModeLocal, ModeGCP:
	default:
		problems = append(problems, fmt.Sprintf("unknown mode %q", c.Mode))
	}

	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case BackendMemory:
	case BackendFirestore:
		if c.GCPProjectID == "" {
			problems = append(problems, "TASKBOT_GCP_PROJECT must be set for the firestore backend")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			problems = append(problems, "TASKBOT_MONGO_URI must be set for the mongo backend")
		}
		if c.MongoDatabase == "" {
			problems = append(problems, "TASKBOT_MONGO_DATABASE must be set for the mongo backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "TASKBOT_SQLITE_PATH must be set for the sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.StorageBackend))
	}

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		problems = append(problems, "TASKBOT_GCP_PROJECT must be set in gcp mode")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone %q", c.Timezone))
	} else {
		c.Location = loc
	}

	if c.ListLimit < 1 {
		problems = append(problems, "list limit must be positive")
	}

	if c.Calendar.Enabled && c.Calendar.CredentialsFile == "" {
		problems = append(problems, "TASKBOT_CALENDAR_CREDENTIALS must be set when calendar sync is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
