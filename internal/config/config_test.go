package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 3*24*time.Hour, cfg.PasswordResetTimeout)
	assert.InDelta(t, 0.75, cfg.MCQThreshold, 1e-9)
	assert.Equal(t, 2, cfg.PracticeWorkers)
	assert.False(t, cfg.IsProduction())
}

func TestFromViper_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PRACTICE_WORKERS", "0")
	t.Setenv("FRONTEND_BASE_URL", "https://prep.example.com/")
	t.Setenv("ENV", "prod")
	t.Setenv("JWT_SECRET", "a-real-production-secret")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey, "embedding key falls back to OpenAI key")
	assert.Equal(t, 1, cfg.PracticeWorkers)
	assert.Equal(t, "https://prep.example.com", cfg.FrontendBaseURL)
	assert.True(t, cfg.IsProduction())
}

func TestFromViper_EmptySecret(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_SECRET", "")

	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestFromViper_ProductionNeedsOwnSecret(t *testing.T) {
	for _, env := range []string{"prod", "production"} {
		t.Run(env, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			v.Set("ENV", env)

			_, err := fromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "JWT_SECRET")

			v.Set("JWT_SECRET", "")
			_, err = fromViper(v)
			require.Error(t, err)

			v.Set("JWT_SECRET", "rotated-secret")
			cfg, err := fromViper(v)
			require.NoError(t, err)
			assert.Equal(t, "rotated-secret", cfg.JWTSecret)
		})
	}

	v := viper.New()
	setDefaults(v)
	v.Set("ENV", "staging")
	cfg, err := fromViper(v)
	require.NoError(t, err, "the development secret is accepted outside production")
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", c.URL())
}
