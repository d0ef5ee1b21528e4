// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Server      ServerConfig
	Store       StoreConfig
	Circulation CirculationConfig
	Risk        RiskConfig
	Sweep       SweepConfig
	Metadata    MetadataConfig
	Search      SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// StoreConfig holds entity store configuration.
type StoreConfig struct {
	// DataPath is the base directory for the database and search index.
	DataPath string
}

// CirculationConfig holds lending policy configuration.
type CirculationConfig struct {
	// LoanPeriod is the default loan length, used for waitlist auto-loans
	// where no explicit return date is supplied (default: 14 days).
	LoanPeriod time.Duration
}

// RiskConfig holds borrower risk scoring thresholds.
type RiskConfig struct {
	// SuspendOverdueCount overdue returns within SuspendWindow suspend the
	// borrower (default: 3 within 180 days).
	SuspendOverdueCount int
	SuspendWindow       time.Duration

	// InactivityWindow with no loan activity marks a borrower inactive
	// (default: 365 days).
	InactivityWindow time.Duration
}

// SweepConfig holds overdue sweep configuration.
type SweepConfig struct {
	// Interval between scheduled sweep passes (default: 24h).
	Interval time.Duration

	// LostThresholdDays is how many days overdue a loan may run before the
	// sweep writes the book off as lost (default: 60).
	LostThresholdDays int
}

// MetadataConfig holds external metadata provider configuration.
type MetadataConfig struct {
	// Enabled toggles ISBN enrichment at book creation (default: true).
	Enabled bool
	// BaseURL overrides the Open Library endpoint, mainly for tests.
	BaseURL string
}

// SearchConfig holds catalog search configuration.
type SearchConfig struct {
	// IndexPath is the directory for the Bleve index
	// (defaults to {data}/search).
	IndexPath string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for database and search index")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	loanPeriod := flag.String("loan-period", "", "Default loan period (default: 336h = 14 days)")
	suspendCount := flag.String("suspend-overdue-count", "", "Overdue returns before suspension (default: 3)")
	suspendWindow := flag.String("suspend-window", "", "Trailing window for suspension counting (default: 4320h = 180 days)")
	inactivityWindow := flag.String("inactivity-window", "", "Inactivity before a borrower goes inactive (default: 8760h = 365 days)")

	sweepInterval := flag.String("sweep-interval", "", "Interval between overdue sweeps (default: 24h)")
	lostThreshold := flag.String("lost-threshold-days", "", "Days overdue before a book is written off as lost (default: 60)")

	metadataEnabled := flag.String("metadata-enabled", "", "Enable ISBN metadata enrichment (default: true)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Store: StoreConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Risk: RiskConfig{
			SuspendOverdueCount: getIntConfigValue(*suspendCount, "SUSPEND_OVERDUE_COUNT", 3),
		},
		Sweep: SweepConfig{
			LostThresholdDays: getIntConfigValue(*lostThreshold, "LOST_THRESHOLD_DAYS", 60),
		},
		Metadata: MetadataConfig{
			Enabled: getBoolConfigValue(*metadataEnabled, "METADATA_ENABLED", true),
			BaseURL: getConfigValue("", "METADATA_BASE_URL", ""),
		},
	}

	durations := []struct {
		dst        *time.Duration
		flagValue  string
		envKey     string
		defaultVal string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Circulation.LoanPeriod, *loanPeriod, "LOAN_PERIOD", "336h"},
		{&cfg.Risk.SuspendWindow, *suspendWindow, "SUSPEND_WINDOW", "4320h"},
		{&cfg.Risk.InactivityWindow, *inactivityWindow, "INACTIVITY_WINDOW", "8760h"},
		{&cfg.Sweep.Interval, *sweepInterval, "SWEEP_INTERVAL", "24h"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.defaultVal)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	cfg.Search.IndexPath = getConfigValue("", "SEARCH_INDEX_PATH", filepath.Join(cfg.Store.DataPath, "search"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Risk.SuspendOverdueCount < 1 {
		return fmt.Errorf("suspend overdue count must be at least 1, got %d", c.Risk.SuspendOverdueCount)
	}

	if c.Sweep.LostThresholdDays < 1 {
		return fmt.Errorf("lost threshold must be at least 1 day, got %d", c.Sweep.LostThresholdDays)
	}

	return nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/Bookwarden/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Bookwarden", "data")

	expanded, err := expandPath(c.Store.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
