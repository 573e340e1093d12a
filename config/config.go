package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

const (
	ProviderTogether = "together"
	ProviderOllama   = "ollama"

	DefaultTogetherURL = "https://api.together.xyz/v1"
	DefaultOllamaURL   = "http://localhost:11434"
)

type Config struct {
	Token       string   `toml:"token" mapstructure:"token"`
	Host        string   `toml:"host" mapstructure:"host"`
	Port        string   `toml:"port" mapstructure:"port" validate:"required,numeric"`
	Libonnx     string   `toml:"libonnx" mapstructure:"libonnx"`
	LogLevel    string   `toml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string   `toml:"log_format" mapstructure:"log_format" validate:"oneof=text json"`
	CORSOrigins []string `toml:"cors_origins" mapstructure:"cors_origins" validate:"dive,eq=*|http_url"`

	Model   ModelConfig   `toml:"model" mapstructure:"model"`
	Upload  UploadConfig  `toml:"upload" mapstructure:"upload"`
	Session SessionConfig `toml:"session" mapstructure:"session"`
	Chat    ChatConfig    `toml:"chat" mapstructure:"chat"`
}

type ModelConfig struct {
	Path      string   `toml:"path" mapstructure:"path" validate:"required"`
	Labels    []string `toml:"labels" mapstructure:"labels" validate:"min=1,dive,required"`
	ImageSize int      `toml:"image_size" mapstructure:"image_size" validate:"gt=0"`
	Layout    string   `toml:"layout" mapstructure:"layout" validate:"oneof=nhwc nchw"`
	Resample  string   `toml:"resample" mapstructure:"resample" validate:"oneof=nearest linear lanczos"`
	Pad       bool     `toml:"pad" mapstructure:"pad"`
	Softmax   bool     `toml:"softmax" mapstructure:"softmax"`
	Workers   int      `toml:"workers" mapstructure:"workers" validate:"min=1"`
	Timeout   Duration `toml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

type UploadConfig struct {
	Dir      string `toml:"dir" mapstructure:"dir" validate:"required"`
	MaxBytes int64  `toml:"max_bytes" mapstructure:"max_bytes" validate:"gte=0"`
}

type SessionConfig struct {
	TTL           Duration `toml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	SweepInterval Duration `toml:"sweep_interval" mapstructure:"sweep_interval" validate:"gte=0"`
	SharedSlot    bool     `toml:"shared_slot" mapstructure:"shared_slot"`
}

type ChatConfig struct {
	Provider string   `toml:"provider" mapstructure:"provider" validate:"oneof=together ollama"`
	BaseURL  string   `toml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Model    string   `toml:"model" mapstructure:"model" validate:"required"`
	APIKey   string   `toml:"api_key" mapstructure:"api_key"`
	Timeout  Duration `toml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// env holds the variables that override config.toml. TOGETHER_API_KEY keeps the
// name the hosted API documents.
type env struct {
	TogetherAPIKey string `envconfig:"TOGETHER_API_KEY"`
	Host           string `envconfig:"DERMALENS_HOST"`
	Port           string `envconfig:"DERMALENS_PORT"`
	Token          string `envconfig:"DERMALENS_TOKEN"`
	Libonnx        string `envconfig:"DERMALENS_LIBONNX"`
	LogLevel       string `envconfig:"DERMALENS_LOG_LEVEL"`
	ModelPath      string `envconfig:"DERMALENS_MODEL_PATH"`
	UploadDir      string `envconfig:"DERMALENS_UPLOAD_DIR"`
	ChatProvider   string `envconfig:"DERMALENS_CHAT_PROVIDER"`
	ChatModel      string `envconfig:"DERMALENS_CHAT_MODEL"`
	ChatBaseURL    string `envconfig:"DERMALENS_CHAT_BASE_URL"`
}

func Default() Config {
	return Config{
		Token:       "",
		Host:        "0.0.0.0",
		Port:        "5000",
		LogLevel:    "info",
		LogFormat:   "text",
		CORSOrigins: []string{"*"},
		Model: ModelConfig{
			Path:      "model/skin_4class_model.onnx",
			Labels:    []string{"Acne", "Eczema", "Fungal Infection", "Healthy"},
			ImageSize: 224,
			Layout:    "nhwc",
			Resample:  "nearest",
			Workers:   1,
			Timeout:   Duration(30 * time.Second),
		},
		Upload: UploadConfig{
			Dir:      "uploads",
			MaxBytes: 10 << 20,
		},
		Session: SessionConfig{
			TTL:           Duration(time.Hour),
			SweepInterval: Duration(5 * time.Minute),
			SharedSlot:    true,
		},
		Chat: ChatConfig{
			Provider: ProviderTogether,
			Model:    "meta-llama/Llama-3-8b-chat-hf",
			Timeout:  Duration(60 * time.Second),
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds a Config from the defaults, the optional toml file at path, an
// optional .env file in the working directory and the process environment.
func Load(path string) (Config, error) {
	c := Default()
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	c.applyEnv(e)

	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = DefaultTogetherURL
		if c.Chat.Provider == ProviderOllama {
			c.Chat.BaseURL = DefaultOllamaURL
		}
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(e env) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Chat.APIKey, e.TogetherAPIKey)
	set(&c.Host, e.Host)
	set(&c.Port, e.Port)
	set(&c.Token, e.Token)
	set(&c.Libonnx, e.Libonnx)
	set(&c.LogLevel, e.LogLevel)
	set(&c.Model.Path, e.ModelPath)
	set(&c.Upload.Dir, e.UploadDir)
	set(&c.Chat.Provider, e.ChatProvider)
	set(&c.Chat.Model, e.ChatModel)
	set(&c.Chat.BaseURL, e.ChatBaseURL)
}

// Duration reads "30s" style strings from toml.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) D() time.Duration {
	return time.Duration(d)
}

func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
