package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingToken = errors.New("config: HF_TOKEN is not set")
	ErrInvalidToken = errors.New(`config: HF_TOKEN must start with "hf_"`)
)

const tokenPrefix = "hf_"

type Config struct {
	Env             string        `mapstructure:"app_env"`   // local, production
	LogLevel        string        `mapstructure:"log_level"` // debug, info, warn, error
	ServerAddress   string        `mapstructure:"server_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Inference endpoint
	HFToken          string        `mapstructure:"hf_token"`
	HFAPIURL         string        `mapstructure:"hf_api_url"`
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`

	// Sessions and content
	SessionDBPath    string        `mapstructure:"session_db_path"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	QuestionBankPath string        `mapstructure:"question_bank_path"` // empty = embedded bank
}

// Load reads configuration from a .env file (if present), an optional
// config.yaml in the working directory or ./config, and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("app_env", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("server_address", ":8080")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("hf_token", "")
	v.SetDefault("hf_api_url", "https://api-inference.huggingface.co/models/google/flan-t5-xl")
	v.SetDefault("inference_timeout", "60s")
	v.SetDefault("session_db_path", ":memory:")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("question_bank_path", "")

	// HF_TOKEN, SERVER_ADDRESS, ... map onto the lower-case keys above.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the settings the service cannot run without. There is
// no fallback credential: a missing or malformed token is fatal.
func (c *Config) Validate() error {
	if c.HFToken == "" {
		return ErrMissingToken
	}
	if !strings.HasPrefix(c.HFToken, tokenPrefix) {
		return ErrInvalidToken
	}
	if c.HFAPIURL == "" {
		return errors.New("config: HF_API_URL must not be empty")
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("config: INFERENCE_TIMEOUT=%s is not a positive duration", c.InferenceTimeout)
	}
	if c.ServerAddress == "" {
		return errors.New("config: SERVER_ADDRESS must not be empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL=%q: %w", c.LogLevel, err)
	}
	return level, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
