package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the QA engine.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Session   SessionConfig   `mapstructure:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig describes the generative model collaborator.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai or ollama
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case "openai":
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("llm.api_key is required for the openai provider")
		}
	case "ollama":
	default:
		return fmt.Errorf("llm.provider must be openai or ollama, got %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be greater than zero")
	}
	return nil
}

// RetrievalConfig describes the vector search collaborator.
type RetrievalConfig struct {
	Mode        string        `mapstructure:"mode"` // http or bleve
	URL         string        `mapstructure:"url"`
	TopKDefault int           `mapstructure:"top_k_default"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
}

func (c RetrievalConfig) Validate() error {
	switch c.Mode {
	case "http":
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("retrieval.url is required when retrieval.mode=http")
		}
	case "bleve":
	default:
		return fmt.Errorf("retrieval.mode must be http or bleve, got %q", c.Mode)
	}
	return nil
}

// CorpusConfig points at the read-only chunk catalog and the local index.
type CorpusConfig struct {
	PostgresURL string `mapstructure:"postgres_url"`
	IndexPath   string `mapstructure:"index_path"`
}

// SessionConfig selects the session object store backend.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend"` // inmemory or redis
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

func (c SessionConfig) Validate() error {
	switch c.Backend {
	case "inmemory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("session.redis_addr is required when session.backend=redis")
		}
	default:
		return fmt.Errorf("session.backend must be inmemory or redis, got %q", c.Backend)
	}
	return nil
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from file and environment. Environment
// variables use the DRAFTQA_ prefix with underscores, e.g.
// DRAFTQA_LLM_API_KEY overrides llm.api_key.
func LoadConfig(path string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix("DRAFTQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("reading config: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("unmarshalling config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.request_timeout", 60*time.Second)

	v.SetDefault("server.address", ":8080")

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://127.0.0.1:11434")
	v.SetDefault("llm.model", "llama3.1:8b")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 300)
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("retrieval.mode", "bleve")
	v.SetDefault("retrieval.top_k_default", 2)
	v.SetDefault("retrieval.timeout", 15*time.Second)
	v.SetDefault("retrieval.retries", 1)

	v.SetDefault("corpus.index_path", "")

	v.SetDefault("session.backend", "inmemory")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("telemetry.enabled", true)
}

// Validate checks cross-section invariants before the server starts.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if c.General.RequestTimeout <= 0 {
		return fmt.Errorf("general.request_timeout must be greater than zero")
	}
	return nil
}
