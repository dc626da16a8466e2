package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type AuthConfig struct {
	// JWTSecret is the HS256 key shared with the auth service that issues
	// the app's bearer tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	EmbedModel     string  `mapstructure:"embed_model"`
	ChatModel      string  `mapstructure:"chat_model"`
	SummaryModel   string  `mapstructure:"summary_model"`
	SummaryTemp    float64 `mapstructure:"summary_temperature"`
	RecipeModel    string  `mapstructure:"recipe_model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

type RetrievalConfig struct {
	// Threshold is the minimum cosine similarity for a corpus document to be
	// considered relevant; in [0,1], higher = stricter.
	Threshold float64 `mapstructure:"threshold"`
	// MaxResults caps how many matches feed the prompt.
	MaxResults int `mapstructure:"max_results"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("storage.data_dir", defaultDataDir())
	// Secrets default to empty so their env bindings are visible to Unmarshal;
	// validate rejects them if they stay empty.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.embed_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4-turbo")
	v.SetDefault("openai.summary_model", "gpt-3.5-turbo")
	v.SetDefault("openai.summary_temperature", 0.3)
	v.SetDefault("openai.recipe_model", "o4-mini-2025-04-16")
	v.SetDefault("openai.timeout_seconds", 60)
	v.SetDefault("retrieval.threshold", 0.75)
	v.SetDefault("retrieval.max_results", 5)
	v.SetDefault("log.level", "info")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".pkuwise")
}

// Load reads configuration from an optional pkuwise.yaml (current directory
// or $HOME/.pkuwise) with PKUWISE_* environment variables taking precedence,
// e.g. PKUWISE_OPENAI_API_KEY and PKUWISE_AUTH_JWT_SECRET.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("pkuwise")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(defaultDataDir())

	v.SetEnvPrefix("PKUWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; env vars and defaults carry it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("missing required config: OpenAI API key (set PKUWISE_OPENAI_API_KEY)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("missing required config: JWT secret (set PKUWISE_AUTH_JWT_SECRET)")
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		return fmt.Errorf("retrieval.threshold must be in [0,1], got %v", c.Retrieval.Threshold)
	}
	if c.Retrieval.MaxResults < 0 {
		return fmt.Errorf("retrieval.max_results must be >= 0, got %d", c.Retrieval.MaxResults)
	}
	return nil
}
