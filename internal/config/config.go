package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"sprintboard/internal/jira"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ConfigurationError reports missing or invalid settings detected at startup, before any
// ingestion is attempted.
type ConfigurationError struct {
	Missing []string
	Invalid map[string]string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	for _, key := range slices.Sorted(maps.Keys(e.Invalid)) {
		parts = append(parts, fmt.Sprintf("invalid %s: %s", key, e.Invalid[key]))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

func (e *ConfigurationError) invalid(key, reason string) {
	if e.Invalid == nil {
		e.Invalid = make(map[string]string)
	}
	e.Invalid[key] = reason
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Jira         jira.Config
	DataPath     string
	LogDir       string
	CacheDir     string
	SettingsFile string
	Settings     Settings

	Freshness   time.Duration
	Retain      int
	Concurrency int
	Location    *time.Location

	HTTPAddr    string
	RefreshCron string
}

// minRetain keeps every month of the current year, since each pass loads all of them.
const minRetain = 12

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Binary directory first, so MCP hosts launching the binary from elsewhere find it
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Then the working directory. godotenv never overrides variables already set.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return FromEnv(exeDir)
}

// FromEnv builds the configuration from the process environment. exeDir is the fallback
// data directory when DATA_PATH is unset.
func FromEnv(exeDir string) (*AppConfig, error) {
	cerr := &ConfigurationError{}

	for _, key := range []string{"JIRA_URL", "JIRA_USERNAME", "JIRA_TOKEN"} {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			cerr.Missing = append(cerr.Missing, key)
		}
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	cacheDir := getEnv("CACHE_DIR", filepath.Join(dataPath, "cache"))
	settingsFile := getEnv("SETTINGS_FILE", filepath.Join(dataPath, "sprintboard.yaml"))

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("Failed to create cache directory")
	}

	pagination := jira.Pagination(strings.ToLower(getEnv("JIRA_PAGINATION", string(jira.PaginationToken))))
	if pagination != jira.PaginationOffset && pagination != jira.PaginationToken {
		cerr.invalid("JIRA_PAGINATION", fmt.Sprintf("%q is neither offset nor token", pagination))
	}
	apiVersion := getEnv("JIRA_API_VERSION", "3")
	if apiVersion != "2" && apiVersion != "3" {
		cerr.invalid("JIRA_API_VERSION", fmt.Sprintf("%q is not 2 or 3", apiVersion))
	}

	loc := time.Local
	if tz := os.Getenv("APP_TZ"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			cerr.invalid("APP_TZ", err.Error())
		} else {
			loc = l
		}
	}

	cfg := &AppConfig{
		Jira: jira.Config{
			BaseURL:      strings.TrimRight(os.Getenv("JIRA_URL"), "/"),
			Username:     os.Getenv("JIRA_USERNAME"),
			Token:        os.Getenv("JIRA_TOKEN"),
			APIVersion:   apiVersion,
			Pagination:   pagination,
			PageSize:     getEnvInt(cerr, "JIRA_PAGE_SIZE", 100),
			Timeout:      getEnvDuration(cerr, "JIRA_TIMEOUT", 90*time.Second),
			RequestDelay: getEnvDuration(cerr, "JIRA_REQUEST_DELAY", 0),
		},
		DataPath:     dataPath,
		LogDir:       logDir,
		CacheDir:     cacheDir,
		SettingsFile: settingsFile,
		Freshness:    getEnvDuration(cerr, "CACHE_FRESHNESS", 3*time.Hour),
		Retain:       getEnvInt(cerr, "CACHE_RETAIN_PARTITIONS", 13),
		Concurrency:  getEnvInt(cerr, "INGEST_CONCURRENCY", 1),
		Location:     loc,
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		RefreshCron:  getEnv("REFRESH_CRON", "*/30 * * * *"),
	}

	settings, err := LoadSettings(settingsFile)
	if err != nil {
		var se *ConfigurationError
		if errors.As(err, &se) {
			for k, v := range se.Invalid {
				cerr.invalid(k, v)
			}
		} else {
			cerr.invalid("SETTINGS_FILE", err.Error())
		}
	}
	cfg.Settings = settings

	if !cerr.empty() {
		return nil, cerr
	}
	if cfg.Retain < minRetain {
		log.Warn().Int("requested", cfg.Retain).Int("retain", minRetain).
			Msg("CACHE_RETAIN_PARTITIONS is below one year of months, raising it so loaded months are not deleted")
		cfg.Retain = minRetain
	}
	if len(settings.Roster) == 0 {
		log.Warn().Str("path", settingsFile).Msg("Roster is empty, performance views will have no data")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(cerr *ConfigurationError, key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		cerr.invalid(key, fmt.Sprintf("%q is not a positive integer", value))
		return fallback
	}
	return n
}

func getEnvDuration(cerr *ConfigurationError, key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		cerr.invalid(key, fmt.Sprintf("%q is not a duration", value))
		return fallback
	}
	return d
}
