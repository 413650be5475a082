package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RAGConfig holds settings for the generation backend.
type RAGConfig struct {
	// BaseURL is the root of an OpenAI-compatible chat completions API.
	BaseURL string `mapstructure:"base_url"`

	// APIKey authenticates against the generation backend.
	APIKey string `mapstructure:"api_key"`

	// Model is the completion model identifier.
	Model string `mapstructure:"model"`

	// IndexName identifies the knowledge base the backend retrieves from.
	IndexName string `mapstructure:"index_name"`
}

// Config is the top-level application configuration. It is constructed once
// in main and passed by reference to every component.
type Config struct {
	// ListenAddr is the HTTP listen address for the web surface.
	ListenAddr string `mapstructure:"listen_addr"`

	// CredentialsFile is the OAuth client secret file.
	CredentialsFile string `mapstructure:"credentials_file"`

	// TokenFile is where the OAuth token is persisted between runs.
	TokenFile string `mapstructure:"token_file"`

	// TemplatesDir holds the HTML templates served by the web surface.
	TemplatesDir string `mapstructure:"templates_dir"`

	// PollInterval is the delay between inbox polling cycles.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// ErrorCooldown is the longer delay applied after a failed cycle.
	ErrorCooldown time.Duration `mapstructure:"error_cooldown"`

	// IgnoreSenders lists sender substrings that should never receive an
	// automated reply (no-reply addresses, newsletters, and the like).
	IgnoreSenders []string `mapstructure:"ignore_senders"`

	RAG RAGConfig `mapstructure:"rag"`
}

// Load reads configuration from config.yaml (if present) and the
// environment. Environment variables use the RAGMAIL_ prefix with
// underscores, e.g. RAGMAIL_RAG_API_KEY.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("credentials_file", "credentials.json")
	v.SetDefault("token_file", "token.json")
	v.SetDefault("templates_dir", "./templates")
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("error_cooldown", "60s")
	v.SetDefault("ignore_senders", []string{})
	v.SetDefault("rag.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("rag.model", "llama3-70b-8192")
	v.SetDefault("rag.api_key", "")
	v.SetDefault("rag.index_name", "")

	v.SetEnvPrefix("RAGMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Honor the bare names the deployment already exports.
	_ = v.BindEnv("rag.api_key", "RAGMAIL_RAG_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("rag.index_name", "RAGMAIL_RAG_INDEX_NAME", "INDEX_NAME")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
