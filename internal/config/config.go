package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the evaluator service.
type Config struct {
	AppName  string `validate:"required"`
	AppEnv   string `validate:"required"`
	AppPort  string `validate:"required"`
	LogLevel string `validate:"oneof=trace debug info warn error"`

	AIProvider     string `validate:"oneof=bedrock openai anthropic"`
	LenientParsing bool

	BedrockRegions       []string
	BedrockModels        []string
	BedrockDefaultRegion string
	BedrockDefaultModel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModels  []string

	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModels  []string

	MaxUploadMB int `validate:"min=1,max=100"`

	NATSURL     string
	NATSSubject string `validate:"required"`

	OTELEndpoint string
	OTELHeaders  map[string]string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// MaxUploadBytes is the per-document size limit.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Regions lists the selectable regions for the active provider. Only Bedrock
// is region scoped.
func (c Config) Regions() []string {
	if c.AIProvider == "bedrock" {
		return c.BedrockRegions
	}
	return nil
}

// Models lists the selectable models for the active provider.
func (c Config) Models() []string {
	switch c.AIProvider {
	case "openai":
		return c.OpenAIModels
	case "anthropic":
		return c.AnthropicModels
	default:
		return c.BedrockModels
	}
}

// DefaultRegion is preselected in the form.
func (c Config) DefaultRegion() string {
	if c.AIProvider != "bedrock" {
		return ""
	}
	return pickDefault(c.BedrockDefaultRegion, c.BedrockRegions)
}

// DefaultModel is preselected in the form.
func (c Config) DefaultModel() string {
	if c.AIProvider == "bedrock" {
		return pickDefault(c.BedrockDefaultModel, c.BedrockModels)
	}
	return pickDefault("", c.Models())
}

func pickDefault(preferred string, options []string) string {
	for _, o := range options {
		if o == preferred {
			return o
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Evaluator")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("ai.provider", "bedrock")
	v.SetDefault("ai.lenient_parsing", false)
	v.SetDefault("bedrock.regions", "us-east-1,us-west-2,eu-west-1")
	v.SetDefault("bedrock.models", "anthropic.claude-v2:1,anthropic.claude-instant-v1,ai21.j2-ultra-v1,amazon.titan-text-express-v1")
	v.SetDefault("bedrock.default_region", "us-east-1")
	v.SetDefault("bedrock.default_model", "anthropic.claude-v2:1")
	v.SetDefault("openai.models", "gpt-4o-mini,gpt-4o")
	v.SetDefault("anthropic.models", "claude-haiku-4-5,claude-sonnet-4-5")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("nats.subject", "gema.evaluation.completed")

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		LogLevel:             strings.ToLower(v.GetString("log.level")),
		AIProvider:           strings.ToLower(v.GetString("ai.provider")),
		LenientParsing:       v.GetBool("ai.lenient_parsing"),
		BedrockRegions:       splitList(v.GetString("bedrock.regions")),
		BedrockModels:        splitList(v.GetString("bedrock.models")),
		BedrockDefaultRegion: v.GetString("bedrock.default_region"),
		BedrockDefaultModel:  v.GetString("bedrock.default_model"),
		OpenAIAPIKey:         v.GetString("openai.api_key"),
		OpenAIBaseURL:        v.GetString("openai.base_url"),
		OpenAIModels:         splitList(v.GetString("openai.models")),
		AnthropicAPIKey:      v.GetString("anthropic.api_key"),
		AnthropicBaseURL:     v.GetString("anthropic.base_url"),
		AnthropicModels:      splitList(v.GetString("anthropic.models")),
		MaxUploadMB:          v.GetInt("upload.max_mb"),
		NATSURL:              v.GetString("nats.url"),
		NATSSubject:          v.GetString("nats.subject"),
		OTELEndpoint:         v.GetString("otel.endpoint"),
		OTELHeaders:          splitHeaders(v.GetString("otel.headers")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field constraints and provider prerequisites.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(c.Models()) == 0 {
		return fmt.Errorf("no models configured for provider %s", c.AIProvider)
	}

	switch c.AIProvider {
	case "bedrock":
		if len(c.BedrockRegions) == 0 {
			return fmt.Errorf("bedrock regions must be provided")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("openai api key must be provided")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic api key must be provided")
		}
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// splitHeaders parses "k1=v1,k2=v2" as used by OTEL_EXPORTER_OTLP_HEADERS.
func splitHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range splitList(raw) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			headers[key] = strings.TrimSpace(value)
		}
	}
	return headers
}
