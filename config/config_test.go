package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("AUTOSAVE_DEBOUNCE_MS", "")
	t.Setenv("AI_PROVIDER", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Second, cfg.AutoSave.Debounce)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutoSave.SavedDisplay)
	assert.Equal(t, "groq", cfg.AI.Provider)
	assert.Equal(t, 60*time.Minute, cfg.Auth.TokenTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("AUTOSAVE_DEBOUNCE_MS", "250")
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("TOKEN_TTL_MINUTES", "15")

	cfg := Load()

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.AutoSave.Debounce)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Contains(t, cfg.Database.DSN(), "@db.internal:5432/")
	assert.Contains(t, cfg.Database.DSN(), "sslmode=require")
}

func TestValidate(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	cfg := Load()
	require.Error(t, cfg.Validate())

	cfg.Auth.Secret = "s3cret"
	require.NoError(t, cfg.Validate())

	cfg.AutoSave.Debounce = 0
	require.Error(t, cfg.Validate())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "123")
	assert.Equal(t, 123, getEnvInt("TEST_INT_VAR", 0))

	t.Setenv("TEST_INT_VAR", "invalid")
	assert.Equal(t, 10, getEnvInt("TEST_INT_VAR", 10))

	t.Setenv("TEST_MS_VAR", "-5")
	assert.Equal(t, time.Second, getEnvDuration("TEST_MS_VAR", time.Second))

	assert.Equal(t, "default", getEnv("NON_EXISTENT_CLARIOX_VAR", "default"))
}
