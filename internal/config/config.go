// Package config loads service configuration from the environment (and an
// optional .env file) and the per-portal selector document.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend transports.
const (
	TransportHTTP     = "http"
	TransportGRPC     = "grpc"
	TransportDisabled = "disabled"
)

// Reference providers.
const (
	ProviderGemini   = "gemini"
	ProviderClaude   = "claude"
	ProviderOpenAI   = "openai"
	ProviderDisabled = "disabled"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Tracing   TracingConfig   `envPrefix:"TRACING_"`
	Chunk     ChunkConfig     `envPrefix:"CHUNK_"`
	ModelA    BackendConfig   `envPrefix:"MODEL_A_"`
	ModelB    BackendConfig   `envPrefix:"MODEL_B_"`
	Fetch     FetchConfig     `envPrefix:"FETCH_"`
	Extractor ExtractorConfig `envPrefix:"EXTRACTOR_"`
	Reference ReferenceConfig `envPrefix:"REFERENCE_"`

	// PortalsPath overrides the embedded portal selector document.
	PortalsPath string `env:"PORTALS_CONFIG"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `env:"ADDR"             envDefault:":5000"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"150s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"60s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES"   envDefault:"1048576"`
	CORSOrigins     []string      `env:"CORS_ORIGINS"     envDefault:"*"         envSeparator:","`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS"   envDefault:"2"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

// AuthConfig enables bearer-token auth on the summarize routes when
// JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

// Enabled reports whether JWT auth is on.
func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	SampleRatio float64 `env:"SAMPLE_RATIO" envDefault:"1"`
}

// ChunkConfig holds Long-mode chunking bounds.
type ChunkConfig struct {
	MinWords    int    `env:"MIN_WORDS"   envDefault:"100"`
	MaxWords    int    `env:"MAX_WORDS"   envDefault:"150"`
	Delimiter   string `env:"DELIMITER"   envDefault:"।"`
	Parallelism int    `env:"PARALLELISM" envDefault:"1"`
}

// GenerationConfig holds the decoding settings for one length mode.
type GenerationConfig struct {
	MaxLength      int     `env:"MAX_LENGTH"`
	NumBeams       int     `env:"NUM_BEAMS"`
	LengthPenalty  float64 `env:"LENGTH_PENALTY"`
	EarlyStopping  bool    `env:"EARLY_STOPPING"`
	InputMaxLength int     `env:"INPUT_MAX_LENGTH"`
}

// BackendConfig describes how to reach one summarization model.
type BackendConfig struct {
	Transport      string        `env:"TRANSPORT"`
	Endpoint       string        `env:"ENDPOINT"`
	Token          string        `env:"TOKEN"`
	Model          string        `env:"MODEL"`
	Timeout        time.Duration `env:"TIMEOUT"`
	MaxConcurrency int64         `env:"MAX_CONCURRENCY"`
	InputPrefix    string        `env:"INPUT_PREFIX"`
	// HealthPath is appended to Endpoint for HTTP readiness probes.
	HealthPath string `env:"HEALTH_PATH"`

	Short GenerationConfig `envPrefix:"SHORT_"`
	Long  GenerationConfig `envPrefix:"LONG_"`
}

// Enabled reports whether the backend should be registered.
func (b BackendConfig) Enabled() bool { return b.Transport != TransportDisabled }

// FetchConfig holds limits for direct page fetches.
type FetchConfig struct {
	Timeout        time.Duration `env:"TIMEOUT"          envDefault:"15s"`
	MaxBodySize    int64         `env:"MAX_BODY_SIZE"    envDefault:"10485760"`
	MaxRedirects   int           `env:"MAX_REDIRECTS"    envDefault:"5"`
	DenyPrivateIPs bool          `env:"DENY_PRIVATE_IPS" envDefault:"true"`
	UserAgent      string        `env:"USER_AGENT"       envDefault:"NepsumBot/1.0"`
}

// ExtractorConfig configures the generic extraction API. Without an API key
// the readability extractor serves as fallback instead.
type ExtractorConfig struct {
	Endpoint string        `env:"ENDPOINT" envDefault:"https://extractorapi.com/api/v1/extractor"`
	APIKey   string        `env:"API_KEY"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"30s"`
}

// ReferenceConfig selects the provider of reference summaries.
type ReferenceConfig struct {
	Provider  string        `env:"PROVIDER"   envDefault:"disabled"`
	APIKey    string        `env:"API_KEY"`
	Model     string        `env:"MODEL"`
	BaseURL   string        `env:"BASE_URL"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"60s"`
	MaxTokens int           `env:"MAX_TOKENS" envDefault:"1024"`
}

// Enabled reports whether reference summaries and scoring are available.
func (r ReferenceConfig) Enabled() bool { return r.Provider != ProviderDisabled }

// ModelName returns the configured model or the provider's default.
func (r ReferenceConfig) ModelName() string {
	if r.Model != "" {
		return r.Model
	}
	switch r.Provider {
	case ProviderGemini:
		return "gemini-1.5-pro"
	case ProviderClaude:
		return "claude-sonnet-4-5"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return ""
	}
}

// Defaults returns the configuration used before the environment is
// applied. Values that differ per backend or per length mode live here
// rather than in envDefault tags.
func Defaults() Config {
	short := GenerationConfig{MaxLength: 512, NumBeams: 5, LengthPenalty: 0.1, EarlyStopping: true, InputMaxLength: 512}
	long := GenerationConfig{MaxLength: 512, NumBeams: 4, LengthPenalty: 0.1, EarlyStopping: true, InputMaxLength: 1024}
	backend := func(model, prefix string) BackendConfig {
		return BackendConfig{
			Transport:      TransportHTTP,
			Model:          model,
			Timeout:        120 * time.Second,
			MaxConcurrency: 1,
			InputPrefix:    prefix,
			HealthPath:     "/health",
			Short:          short,
			Long:           long,
		}
	}
	return Config{
		ModelA: backend("mt5", "summarize: "),
		ModelB: backend("mbart", ""),
	}
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := Defaults()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("SERVER_ADDR cannot be empty"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_REQUEST_TIMEOUT must be positive"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("SERVER_MAX_BODY_BYTES must be positive"))
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, errors.New("SERVER_RATE_LIMIT_RPS and SERVER_RATE_LIMIT_BURST must not be negative"))
	}
	if c.Auth.Enabled() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be at least 32 characters"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1"))
	}

	if c.Chunk.MinWords <= 0 {
		errs = append(errs, errors.New("CHUNK_MIN_WORDS must be positive"))
	}
	if c.Chunk.MaxWords < c.Chunk.MinWords {
		errs = append(errs, errors.New("CHUNK_MAX_WORDS must not be less than CHUNK_MIN_WORDS"))
	}
	if c.Chunk.Delimiter == "" {
		errs = append(errs, errors.New("CHUNK_DELIMITER cannot be empty"))
	}
	if c.Chunk.Parallelism < 1 {
		errs = append(errs, errors.New("CHUNK_PARALLELISM must be at least 1"))
	}

	errs = append(errs, c.ModelA.validate("MODEL_A_")...)
	errs = append(errs, c.ModelB.validate("MODEL_B_")...)
	if !c.ModelA.Enabled() && !c.ModelB.Enabled() {
		errs = append(errs, errors.New("at least one of MODEL_A_TRANSPORT and MODEL_B_TRANSPORT must be enabled"))
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT must be positive"))
	}
	if c.Fetch.MaxRedirects < 0 || c.Fetch.MaxRedirects > 10 {
		errs = append(errs, errors.New("FETCH_MAX_REDIRECTS must be between 0 and 10"))
	}
	if c.Extractor.APIKey != "" && c.Extractor.Endpoint == "" {
		errs = append(errs, errors.New("EXTRACTOR_ENDPOINT cannot be empty when EXTRACTOR_API_KEY is set"))
	}

	switch c.Reference.Provider {
	case ProviderDisabled:
	case ProviderGemini, ProviderClaude, ProviderOpenAI:
		if c.Reference.APIKey == "" {
			errs = append(errs, fmt.Errorf("REFERENCE_API_KEY is required for provider %q", c.Reference.Provider))
		}
		if c.Reference.Timeout <= 0 {
			errs = append(errs, errors.New("REFERENCE_TIMEOUT must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("REFERENCE_PROVIDER must be one of gemini, claude, openai, disabled; got %q", c.Reference.Provider))
	}

	return errors.Join(errs...)
}

func (b BackendConfig) validate(prefix string) []error {
	var errs []error
	switch b.Transport {
	case TransportDisabled:
		return nil
	case TransportHTTP, TransportGRPC:
	default:
		return []error{fmt.Errorf("%sTRANSPORT must be http, grpc or disabled; got %q", prefix, b.Transport)}
	}
	if strings.TrimSpace(b.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("%sENDPOINT is required when transport is %s", prefix, b.Transport))
	}
	if b.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%sTIMEOUT must be positive", prefix))
	}
	if b.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("%sMAX_CONCURRENCY must be at least 1", prefix))
	}
	for mode, g := range map[string]GenerationConfig{"SHORT_": b.Short, "LONG_": b.Long} {
		if g.MaxLength <= 0 || g.NumBeams <= 0 || g.InputMaxLength <= 0 {
			errs = append(errs, fmt.Errorf("%s%sMAX_LENGTH, NUM_BEAMS and INPUT_MAX_LENGTH must be positive", prefix, mode))
		}
	}
	return errs
}
