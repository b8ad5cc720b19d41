package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env     string
	Port    string
	Version string

	DB DBConfig

	JWTSecret            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	PasswordResetTimeout time.Duration

	AppName          string
	FrontendBaseURL  string
	DefaultFromEmail string
	DefaultFromName  string
	SendgridAPIKey   string
	RollbarToken     string

	LLM       LLMConfig
	Embedding EmbeddingConfig
	Pinecone  PineconeConfig

	RedisURL        string
	MCQThreshold    float64
	MCQCacheTTL     time.Duration
	PracticeWorkers int
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form used by golang-migrate.
func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LLMConfig struct {
	Provider        string // anthropic, openai, gemini, cli, mock
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GeminiModel     string
	CLIPath         string
	MaxAttempts     int
	Timeout         time.Duration
	Verify          bool
}

type EmbeddingConfig struct {
	Provider string // openai, none
	Model    string
	APIKey   string
}

type PineconeConfig struct {
	APIKey    string
	Index     string
	Namespace string
}

// devJWTSecret signs tokens outside production only.
const devJWTSecret = "preppro-dev-signing-key"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_VERSION", "dev")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "preppro")
	v.SetDefault("DB_PASSWORD", "preppro")
	v.SetDefault("DB_NAME", "preppro")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("ACCESS_TOKEN_TTL", 60*time.Minute)
	v.SetDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("PASSWORD_RESET_TIMEOUT", 3*24*time.Hour)

	v.SetDefault("APP_NAME", "PrepPro")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("DEFAULT_FROM_EMAIL", "noreply@localhost")
	v.SetDefault("DEFAULT_FROM_NAME", "PrepPro")

	v.SetDefault("LLM_PROVIDER", "mock")
	v.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("CLAUDE_CLI_PATH", "claude")
	v.SetDefault("LLM_MAX_ATTEMPTS", 3)
	v.SetDefault("LLM_TIMEOUT", 2*time.Minute)
	v.SetDefault("LLM_VERIFY", false)

	v.SetDefault("EMBEDDING_PROVIDER", "none")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")

	v.SetDefault("PINECONE_NAMESPACE", "mcq-bank")

	v.SetDefault("MCQ_SIMILARITY_THRESHOLD", 0.75)
	v.SetDefault("MCQ_CACHE_TTL", 24*time.Hour)
	v.SetDefault("PRACTICE_WORKERS", 2)
}

// Load reads .env files (if present) and the process environment.
func Load() (*Config, error) {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		env = "dev"
	}
	for _, path := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			log.Printf("[config] loaded %s", path)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	embeddingKey := v.GetString("EMBEDDING_API_KEY")
	if embeddingKey == "" {
		embeddingKey = v.GetString("OPENAI_API_KEY")
	}

	cfg := &Config{
		Env:     v.GetString("ENV"),
		Port:    v.GetString("PORT"),
		Version: v.GetString("APP_VERSION"),
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTSecret:            v.GetString("JWT_SECRET"),
		AccessTokenTTL:       v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:      v.GetDuration("REFRESH_TOKEN_TTL"),
		PasswordResetTimeout: v.GetDuration("PASSWORD_RESET_TIMEOUT"),
		AppName:              v.GetString("APP_NAME"),
		FrontendBaseURL:      strings.TrimRight(v.GetString("FRONTEND_BASE_URL"), "/"),
		DefaultFromEmail:     v.GetString("DEFAULT_FROM_EMAIL"),
		DefaultFromName:      v.GetString("DEFAULT_FROM_NAME"),
		SendgridAPIKey:       v.GetString("SENDGRID_API_KEY"),
		RollbarToken:         v.GetString("ROLLBAR_TOKEN"),
		LLM: LLMConfig{
			Provider:        strings.ToLower(v.GetString("LLM_PROVIDER")),
			AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
			AnthropicModel:  v.GetString("ANTHROPIC_MODEL"),
			OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
			OpenAIModel:     v.GetString("OPENAI_MODEL"),
			OpenAIBaseURL:   v.GetString("OPENAI_BASE_URL"),
			GeminiAPIKey:    v.GetString("GEMINI_API_KEY"),
			GeminiModel:     v.GetString("GEMINI_MODEL"),
			CLIPath:         v.GetString("CLAUDE_CLI_PATH"),
			MaxAttempts:     v.GetInt("LLM_MAX_ATTEMPTS"),
			Timeout:         v.GetDuration("LLM_TIMEOUT"),
			Verify:          v.GetBool("LLM_VERIFY"),
		},
		Embedding: EmbeddingConfig{
			Provider: strings.ToLower(v.GetString("EMBEDDING_PROVIDER")),
			Model:    v.GetString("EMBEDDING_MODEL"),
			APIKey:   embeddingKey,
		},
		Pinecone: PineconeConfig{
			APIKey:    v.GetString("PINECONE_API_KEY"),
			Index:     v.GetString("PINECONE_INDEX"),
			Namespace: v.GetString("PINECONE_NAMESPACE"),
		},
		RedisURL:        v.GetString("REDIS_URL"),
		MCQThreshold:    v.GetFloat64("MCQ_SIMILARITY_THRESHOLD"),
		MCQCacheTTL:     v.GetDuration("MCQ_CACHE_TTL"),
		PracticeWorkers: v.GetInt("PRACTICE_WORKERS"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.IsProduction() && cfg.JWTSecret == devJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in %s", cfg.Env)
	}
	if cfg.PracticeWorkers < 1 {
		cfg.PracticeWorkers = 1
	}
	if cfg.LLM.MaxAttempts < 1 {
		cfg.LLM.MaxAttempts = 1
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}
