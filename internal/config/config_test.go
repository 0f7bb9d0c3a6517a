package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"AI_PROVIDER", "AI_API_KEY", "AI_KEY_PREFIXES", "AI_TIMEOUT", "PORT", "JWT_SECRET"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderOpenAI, cfg.AIProvider)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.AIBaseURL)
	assert.Equal(t, 60*time.Second, cfg.AITimeout)
	assert.Equal(t, []string{"sk-", "AIza"}, cfg.AIKeyPrefixes)
	assert.Equal(t, 4096, cfg.AIMaxTokens)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoadFromEnvFile(t *testing.T) {
	for _, k := range []string{"AI_PROVIDER", "AI_MODEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AI_PROVIDER=Ollama\nAI_MODEL=llama3.1\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("AI_PROVIDER")
		os.Unsetenv("AI_MODEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.AIProvider)
	assert.Equal(t, "llama3.1", cfg.AIModel)
}

func TestValidate(t *testing.T) {
	valid := Config{AIProvider: ProviderOpenAI, AITimeout: time.Second, AIMaxTokens: 1, RateLimitRPS: 1, RateLimitBurst: 1, MaxBodyBytes: 1}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.AIProvider = "anthropic"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.RateLimitBurst = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.AITimeout = 0
	assert.Error(t, bad.Validate())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "[NOT SET]", MaskSecret(""))
	assert.Equal(t, "********", MaskSecret("sk-1"))
	assert.Equal(t, "sk-o********", MaskSecret("sk-or-v1-abcdef"))
}
