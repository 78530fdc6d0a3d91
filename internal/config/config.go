// Package config resolves docchat settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/docchat/internal/models"
)

// Config holds all configuration values.
type Config struct {
	// Backend
	APIURL        string
	ClientTimeout time.Duration // zero means no timeout

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Defaults for the composer and the chat creation flow
	LLMProvider    string
	LLMModel       string
	LLMTemperature float64

	// ConfigFile is the YAML file that was read, or "" when none exists.
	ConfigFile string
	// Warnings lists settings that were ignored because they were invalid.
	Warnings []string
}

// fileConfig mirrors the YAML config file.
type fileConfig struct {
	APIURL        string `yaml:"api_url"`
	ClientTimeout string `yaml:"client_timeout"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	LLM           struct {
		Provider    string   `yaml:"provider"`
		Model       string   `yaml:"model"`
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"llm"`
}

// Load resolves configuration. Later sources win:
// defaults, the YAML file, .env in the working directory, the environment.
// Variables from .env never override variables already set.
func Load() (Config, error) {
	return load(".env")
}

func load(dotenvPath string) (Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
	}

	cfg := defaults()

	path := configPath()
	fc, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	if fc != nil {
		cfg.ConfigFile = path
		cfg.applyFile(*fc)
	}

	cfg.applyEnv()
	cfg.validateLLM()
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIURL:         "http://localhost:8000",
		LogFile:        filepath.Join(os.TempDir(), "docchat.log"),
		LogLevel:       slog.LevelInfo,
		LLMProvider:    models.DefaultProvider,
		LLMModel:       models.DefaultModel,
		LLMTemperature: models.DefaultTemperature,
	}
}

// configPath returns $DOCCHAT_CONFIG or the per-user config file location.
func configPath() string {
	if p := os.Getenv("DOCCHAT_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "docchat", "config.yaml")
}

// readFile parses the YAML file at path. A missing file yields nil, nil.
func readFile(path string) (*fileConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

func (c *Config) applyFile(fc fileConfig) {
	if fc.APIURL != "" {
		c.APIURL = fc.APIURL
	}
	if fc.ClientTimeout != "" {
		c.setTimeout("client_timeout", fc.ClientTimeout)
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	if fc.LLM.Provider != "" {
		c.LLMProvider = fc.LLM.Provider
	}
	if fc.LLM.Model != "" {
		c.LLMModel = fc.LLM.Model
	}
	if fc.LLM.Temperature != nil {
		c.LLMTemperature = *fc.LLM.Temperature
	}
}

func (c *Config) applyEnv() {
	c.APIURL = getEnv("DOCCHAT_API_URL", getEnv("NEXT_PUBLIC_API_URL", c.APIURL))
	if v := os.Getenv("DOCCHAT_CLIENT_TIMEOUT"); v != "" {
		c.setTimeout("DOCCHAT_CLIENT_TIMEOUT", v)
	}
	c.LogFile = getEnv("DOCCHAT_LOG_FILE", c.LogFile)
	if v := os.Getenv("DOCCHAT_LOG_LEVEL"); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	c.LLMProvider = getEnv("DOCCHAT_LLM_PROVIDER", c.LLMProvider)
	c.LLMModel = getEnv("DOCCHAT_LLM_MODEL", c.LLMModel)
	if v := os.Getenv("DOCCHAT_LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			c.warn("DOCCHAT_LLM_TEMPERATURE %q is not a number", v)
		} else {
			c.LLMTemperature = t
		}
	}
}

func (c *Config) setTimeout(key, v string) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d < 0 {
		c.warn("%s %q is not a valid duration", key, v)
		return
	}
	c.ClientTimeout = d
}

// validateLLM falls back to the built-in defaults for values outside the catalog.
func (c *Config) validateLLM() {
	if _, ok := models.LookupProvider(c.LLMProvider); !ok {
		c.warn("unknown LLM provider %q, using %s", c.LLMProvider, models.DefaultProvider)
		c.LLMProvider = models.DefaultProvider
		c.LLMModel = models.DefaultModel
	}
	if !models.HasModel(c.LLMProvider, c.LLMModel) {
		first, _ := models.FirstModel(c.LLMProvider)
		c.warn("model %q is not offered by %s, using %s", c.LLMModel, c.LLMProvider, first)
		c.LLMModel = first
	}
	if t := models.ClampTemperature(c.LLMTemperature); t != c.LLMTemperature {
		c.warn("temperature %v out of range, using %v", c.LLMTemperature, t)
		c.LLMTemperature = t
	}
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
