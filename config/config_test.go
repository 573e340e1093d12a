package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// isolate clears every variable Load reads and moves away from any .env file
// in the package directory. Empty values count as unset.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TOGETHER_API_KEY",
		"DERMALENS_HOST",
		"DERMALENS_PORT",
		"DERMALENS_TOKEN",
		"DERMALENS_LIBONNX",
		"DERMALENS_LOG_LEVEL",
		"DERMALENS_MODEL_PATH",
		"DERMALENS_UPLOAD_DIR",
		"DERMALENS_CHAT_PROVIDER",
		"DERMALENS_CHAT_MODEL",
		"DERMALENS_CHAT_BASE_URL",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	isolate(t)
	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "5000", c.Port)
	assert.Equal(t, []string{"Acne", "Eczema", "Fungal Infection", "Healthy"}, c.Model.Labels)
	assert.Equal(t, 224, c.Model.ImageSize)
	assert.Equal(t, DefaultTogetherURL, c.Chat.BaseURL)
	assert.Equal(t, "meta-llama/Llama-3-8b-chat-hf", c.Chat.Model)
	assert.Equal(t, time.Minute, c.Chat.Timeout.D())
	assert.True(t, c.Session.SharedSlot)
	assert.Empty(t, c.Chat.APIKey)
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("DERMALENS_CHAT_MODEL=from-dotenv\n"), 0644))
	// godotenv does not override variables that are already present
	require.NoError(t, os.Unsetenv("DERMALENS_CHAT_MODEL"))
	t.Cleanup(func() { os.Unsetenv("DERMALENS_CHAT_MODEL") })

	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.Chat.Model)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
port = "8080"
log_format = "json"

[model]
path = "/models/skin.onnx"
layout = "nchw"
workers = 4
timeout = "5s"

[chat]
provider = "ollama"
model = "llama3"
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "/models/skin.onnx", c.Model.Path)
	assert.Equal(t, "nchw", c.Model.Layout)
	assert.Equal(t, 4, c.Model.Workers)
	assert.Equal(t, 5*time.Second, c.Model.Timeout.D())
	assert.Equal(t, ProviderOllama, c.Chat.Provider)
	assert.Equal(t, DefaultOllamaURL, c.Chat.BaseURL)
	// untouched sections keep their defaults
	assert.Equal(t, "uploads", c.Upload.Dir)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	isolate(t)
	t.Setenv("TOGETHER_API_KEY", "secret")
	t.Setenv("DERMALENS_PORT", "9000")
	t.Setenv("DERMALENS_CHAT_MODEL", "mistralai/Mixtral-8x7B-Instruct-v0.1")

	c, err := Load(writeConfig(t, `port = "8080"`))
	require.NoError(t, err)

	assert.Equal(t, "secret", c.Chat.APIKey)
	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, "mistralai/Mixtral-8x7B-Instruct-v0.1", c.Chat.Model)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	tests := []struct {
		description string
		content     string
	}{
		{"unknown provider", "[chat]\nprovider = \"openai\""},
		{"unknown layout", "[model]\nlayout = \"chw\""},
		{"zero workers", "[model]\nworkers = 0"},
		{"empty labels", "[model]\nlabels = []"},
		{"bad duration", "[chat]\ntimeout = \"soon\""},
		{"not toml", "port = "},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	c := Default()
	assert.Equal(t, "0.0.0.0:5000", c.Addr())
}
