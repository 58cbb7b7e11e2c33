// Package config loads the frozen settings object the rest of the
// pipeline is built against: YAML file, optional .env overlay, then
// environment-variable overrides, validated once at process start.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerSettings configures the HTTP ingress.
type ServerSettings struct {
	WebhookPort string `yaml:"webhook_port" validate:"required"`
	MetricsPort string `yaml:"metrics_port" validate:"required"`
}

// IngressSettings configures pkg/ingress's router: API-key auth, the
// sliding-window rate limiter and CORS.
type IngressSettings struct {
	AppName            string   `yaml:"app_name"`
	AppVersion         string   `yaml:"app_version"`
	APIKey             Secret   `yaml:"api_key"`
	RequestsPerMinute  int      `yaml:"requests_per_minute" validate:"required,gt=0"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// DatabaseSettings configures the Postgres repository layer.
type DatabaseSettings struct {
	URL Secret `yaml:"url" validate:"required"`
}

// GitHostSettings configures the Publisher's git-host client.
type GitHostSettings struct {
	AppToken            Secret        `yaml:"app_token" validate:"required"`
	OAuthClientID       string        `yaml:"oauth_client_id"`
	OAuthClientSecret   Secret        `yaml:"oauth_client_secret"`
	WebhookSharedSecret Secret        `yaml:"webhook_shared_secret" validate:"required"`
	OAuthRedirectURL    string        `yaml:"oauth_redirect_url"`
	FrontendURL         string        `yaml:"frontend_url"`
	RPCTimeout          time.Duration `yaml:"rpc_timeout"`
	AllowedRepos        []string      `yaml:"allowed_repos"`
}

// LLMSettings configures the Reasoner's language-model call.
type LLMSettings struct {
	Provider    string        `yaml:"provider" validate:"required,oneof=anthropic openai"`
	APIKey      Secret        `yaml:"api_key" validate:"required"`
	Model       string        `yaml:"model" validate:"required"`
	MaxTokens   int           `yaml:"max_tokens" validate:"required,gt=0"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout" validate:"required"`
}

// SandboxSettings configures the Verifier's container sandbox.
type SandboxSettings struct {
	Image     string        `yaml:"image" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" validate:"required,ne=0"`
	MemoryCap int64         `yaml:"memory_cap_bytes" validate:"required,gt=0"`
	CPUCap    float64       `yaml:"cpu_cap" validate:"required,gt=0"`
	PidsCap   int64         `yaml:"pids_cap" validate:"required,gt=0"`
}

// SanitizerSettings configures the Sanitizer's detection thresholds.
type SanitizerSettings struct {
	EntropyThreshold float64 `yaml:"entropy_threshold" validate:"required,gt=0"`
	MinLength        int     `yaml:"min_length" validate:"required,gt=0"`
	MaxSecretsHalt   int     `yaml:"max_secrets_halt" validate:"required,gt=0"`
}

// ReasonerSettings configures the Reasoner's retry contract.
type ReasonerSettings struct {
	MaxRetries          int     `yaml:"max_retries" validate:"gte=0"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gte=0,lte=1"`
}

// RefinementSettings configures the feedback-driven refinement loop.
type RefinementSettings struct {
	MaxIterations int `yaml:"max_iterations" validate:"required,gt=0"`
}

// Timeouts collects the default timeouts of §5.
type Timeouts struct {
	Clone   time.Duration `yaml:"clone"`
	GitHost time.Duration `yaml:"git_host"`
}

// Settings is the frozen, process-wide configuration object.
type Settings struct {
	Server     ServerSettings     `yaml:"server"`
	Ingress    IngressSettings    `yaml:"ingress"`
	Database   DatabaseSettings   `yaml:"database"`
	GitHost    GitHostSettings    `yaml:"git_host"`
	LLM        LLMSettings        `yaml:"llm"`
	Sandbox    SandboxSettings    `yaml:"sandbox"`
	Sanitizer  SanitizerSettings  `yaml:"sanitizer"`
	Reasoner   ReasonerSettings   `yaml:"reasoner"`
	Refinement RefinementSettings `yaml:"refinement"`
	Timeouts   Timeouts           `yaml:"timeouts"`

	// CloneRoot, SanitizedRoot and ScratchRoot are the three configurable
	// on-disk roots of §6.
	CloneRoot     string `yaml:"clone_root" validate:"required"`
	SanitizedRoot string `yaml:"sanitized_root" validate:"required"`
	ScratchRoot   string `yaml:"scratch_root" validate:"required"`

	// RedisURL backs the webhook delivery-id idempotency set.
	RedisURL Secret `yaml:"redis_url"`

	// AllowManualApplyFallback gates the Publisher's heuristic manual-apply
	// path (DESIGN.md Open Question 1).
	AllowManualApplyFallback bool `yaml:"allow_manual_apply_fallback"`
}

func defaults() Settings {
	return Settings{
		Ingress: IngressSettings{
			AppName:           "neverdown",
			AppVersion:        "dev",
			RequestsPerMinute: 60,
		},
		Sanitizer: SanitizerSettings{
			EntropyThreshold: 4.5,
			MinLength:        16,
			MaxSecretsHalt:   100,
		},
		Reasoner: ReasonerSettings{
			MaxRetries:          3,
			ConfidenceThreshold: 0.7,
		},
		Refinement: RefinementSettings{
			MaxIterations: 3,
		},
		Timeouts: Timeouts{
			Clone:   120 * time.Second,
			GitHost: 30 * time.Second,
		},
		Sandbox: SandboxSettings{
			Timeout: 300 * time.Second,
		},
		LLM: LLMSettings{
			Timeout: 120 * time.Second,
		},
		CloneRoot:                "/var/lib/neverdown/clones",
		SanitizedRoot:            "/var/lib/neverdown/sanitized",
		ScratchRoot:              "/var/lib/neverdown/scratch",
		AllowManualApplyFallback: true,
	}
}

// Load reads a YAML file at path (if it exists), overlays an optional
// .env file from the working directory, applies environment-variable
// overrides, and validates the result. A zero sandbox timeout is rejected
// at this stage per spec §8's boundary behaviour.
func Load(path string) (*Settings, error) {
	settings := defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load() // best-effort local .env overlay; absence is not an error

	applyEnvOverrides(&settings)

	if settings.Sandbox.Timeout == 0 {
		return nil, fmt.Errorf("sandbox.timeout must not be zero")
	}

	v := validator.New()
	if err := v.Struct(&settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &settings, nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		s.Database.URL = Secret(v)
	}
	if v := os.Getenv("GIT_HOST_APP_TOKEN"); v != "" {
		s.GitHost.AppToken = Secret(v)
	}
	if v := os.Getenv("GIT_HOST_WEBHOOK_SECRET"); v != "" {
		s.GitHost.WebhookSharedSecret = Secret(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		s.LLM.APIKey = Secret(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		s.LLM.Provider = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		s.RedisURL = Secret(v)
	}
	if v := os.Getenv("INGRESS_API_KEY"); v != "" {
		s.Ingress.APIKey = Secret(v)
	}
	if v := os.Getenv("GIT_HOST_OAUTH_CLIENT_SECRET"); v != "" {
		s.GitHost.OAuthClientSecret = Secret(v)
	}
	if v := os.Getenv("ALLOWED_REPOS"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		s.GitHost.AllowedRepos = parts
	}
}

// RepoAllowed reports whether repoURL is present in the configured
// allow-list. An empty allow-list means "allow all" (spec §6: "unlisted
// repositories may be refused" — implying the list is opt-in).
func (s *Settings) RepoAllowed(repoURL string) bool {
	if len(s.GitHost.AllowedRepos) == 0 {
		return true
	}
	for _, allowed := range s.GitHost.AllowedRepos {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), strings.TrimSuffix(repoURL, "/")) {
			return true
		}
	}
	return false
}
