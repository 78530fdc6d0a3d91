package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/docchat/internal/models"
)

var configEnv = []string{
	"DOCCHAT_CONFIG",
	"DOCCHAT_API_URL",
	"NEXT_PUBLIC_API_URL",
	"DOCCHAT_CLIENT_TIMEOUT",
	"DOCCHAT_LOG_FILE",
	"DOCCHAT_LOG_LEVEL",
	"DOCCHAT_LLM_PROVIDER",
	"DOCCHAT_LLM_MODEL",
	"DOCCHAT_LLM_TEMPERATURE",
}

// isolate clears every docchat variable and points the config file at dir.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("DOCCHAT_CONFIG", filepath.Join(dir, "config.yaml"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Zero(t, cfg.ClientTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, models.DefaultProvider, cfg.LLMProvider)
	assert.Equal(t, models.DefaultModel, cfg.LLMModel)
	assert.Equal(t, models.DefaultTemperature, cfg.LLMTemperature)
	assert.Empty(t, cfg.ConfigFile)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)

	yamlBody := `api_url: http://from-file:1
client_timeout: 30s
log_level: debug
llm:
  provider: anthropic
  model: claude-sonnet-4-20250514
  temperature: 0.2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlBody), 0o600))

	cfg, err := load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.ConfigFile)
	assert.Equal(t, "http://from-file:1", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, models.ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, 0.2, cfg.LLMTemperature)

	t.Setenv("NEXT_PUBLIC_API_URL", "http://legacy:2")
	cfg, err = load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://legacy:2", cfg.APIURL)

	t.Setenv("DOCCHAT_API_URL", "http://from-env:3")
	cfg, err = load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:3", cfg.APIURL, "DOCCHAT_API_URL wins over the legacy name")
}

func TestLoadDotenvDoesNotOverrideEnv(t *testing.T) {
	dir := isolate(t)
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("DOCCHAT_LOG_FILE=/from/dotenv.log\nDOCCHAT_API_URL=http://dotenv:4\n"), 0o600))

	t.Setenv("DOCCHAT_API_URL", "http://env:5")
	// DOCCHAT_LOG_FILE is set empty by isolate; godotenv only fills unset keys.
	require.NoError(t, os.Unsetenv("DOCCHAT_LOG_FILE"))
	t.Cleanup(func() { _ = os.Unsetenv("DOCCHAT_LOG_FILE") })

	cfg, err := load(dotenv)
	require.NoError(t, err)
	assert.Equal(t, "http://env:5", cfg.APIURL)
	assert.Equal(t, "/from/dotenv.log", cfg.LogFile)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantProvider string
		wantModel    string
		wantTemp     float64
		wantTimeout  time.Duration
	}{
		{
			name:         "unknown provider",
			env:          map[string]string{"DOCCHAT_LLM_PROVIDER": "mistral"},
			wantProvider: models.DefaultProvider,
			wantModel:    models.DefaultModel,
			wantTemp:     models.DefaultTemperature,
		},
		{
			name:         "model of another provider",
			env:          map[string]string{"DOCCHAT_LLM_PROVIDER": "anthropic", "DOCCHAT_LLM_MODEL": "gpt-4"},
			wantProvider: models.ProviderAnthropic,
			wantModel:    "claude-sonnet-4-20250514",
			wantTemp:     models.DefaultTemperature,
		},
		{
			name:         "temperature clamped",
			env:          map[string]string{"DOCCHAT_LLM_TEMPERATURE": "1.5"},
			wantProvider: models.DefaultProvider,
			wantModel:    models.DefaultModel,
			wantTemp:     1.0,
		},
		{
			name:         "temperature not a number",
			env:          map[string]string{"DOCCHAT_LLM_TEMPERATURE": "warm"},
			wantProvider: models.DefaultProvider,
			wantModel:    models.DefaultModel,
			wantTemp:     models.DefaultTemperature,
		},
		{
			name:         "bad timeout",
			env:          map[string]string{"DOCCHAT_CLIENT_TIMEOUT": "soon"},
			wantProvider: models.DefaultProvider,
			wantModel:    models.DefaultModel,
			wantTemp:     models.DefaultTemperature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := load(filepath.Join(dir, "missing.env"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, cfg.LLMProvider)
			assert.Equal(t, tt.wantModel, cfg.LLMModel)
			assert.Equal(t, tt.wantTemp, cfg.LLMTemperature)
			assert.Equal(t, tt.wantTimeout, cfg.ClientTimeout)
			assert.NotEmpty(t, cfg.Warnings)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_url: [unterminated"), 0o600))

	_, err := load(filepath.Join(dir, "missing.env"))
	assert.ErrorContains(t, err, "parse config file")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("request", "op", "list_chats")

	assert.Contains(t, stderr.String(), "op=list_chats")
	assert.Contains(t, file.String(), `"op":"list_chats"`)
	assert.NotContains(t, file.String(), "hidden")
}

func TestSetupLoggerFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docchat.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo, false)
	logger.Info("mounted", "chats", 2)
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"mounted"`)
}
