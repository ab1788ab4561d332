package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/complyon/ai-gateway/internal/enforce"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Provider      ProviderConfig
	Policy        PolicyConfig
	Scanner       ScannerConfig
	Audit         AuditConfig
	Alert         AlertConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ProviderConfig holds the upstream AI provider configuration. Name selects
// the adapter: "openai" talks to an OpenAI-compatible endpoint with a bearer
// token, "azure" to a named Azure OpenAI deployment with an api-key header.
type ProviderConfig struct {
	Name       string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AzureAPIVersion string
}

// PolicyConfig holds policy file and enforcement configuration
type PolicyConfig struct {
	File            string
	HotReload       bool
	EnforcementMode string
	DebounceWindow  time.Duration
}

// ScannerConfig holds PII detection configuration
type ScannerConfig struct {
	Enabled  bool
	MaxChars int
}

// AuditConfig holds audit emission configuration.
// When ServiceURL is empty, audit records go to the structured log.
type AuditConfig struct {
	ServiceURL  string
	BufferSize  int
	WorkerCount int
	MaxAttempts int
}

// AlertConfig holds alert dispatch configuration.
// When WebhookURL is empty, alerts go to the structured log.
type AlertConfig struct {
	WebhookURL  string
	BufferSize  int
	WorkerCount int
	MaxAttempts int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Provider: ProviderConfig{
			Name:       getEnv("AI_PROVIDER", "openai"),
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			BaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:    getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			MaxRetries: getEnvAsInt("OPENAI_MAX_RETRIES", 3),

			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureAPIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
		},
		Policy: PolicyConfig{
			File:            getEnv("POLICY_FILE", ""),
			HotReload:       getEnvAsBool("POLICY_HOT_RELOAD", true),
			EnforcementMode: getEnv("ENFORCEMENT_MODE", "enforce"),
			DebounceWindow:  getEnvAsDuration("POLICY_RELOAD_DEBOUNCE", 200*time.Millisecond),
		},
		Scanner: ScannerConfig{
			Enabled:  getEnvAsBool("PII_DETECTION_ENABLED", true),
			MaxChars: getEnvAsInt("SCAN_MAX_CHARS", 1<<20),
		},
		Audit: AuditConfig{
			ServiceURL:  getEnv("AUDIT_SERVICE_URL", ""),
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 10000),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 4),
			MaxAttempts: getEnvAsInt("AUDIT_MAX_ATTEMPTS", 3),
		},
		Alert: AlertConfig{
			WebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
			BufferSize:  getEnvAsInt("ALERT_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("ALERT_WORKER_COUNT", 2),
			MaxAttempts: getEnvAsInt("ALERT_MAX_ATTEMPTS", 3),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if _, err := enforce.ParseMode(c.Policy.EnforcementMode); err != nil {
		return fmt.Errorf("invalid enforcement mode %q: must be enforce, warn, or log_only", c.Policy.EnforcementMode)
	}

	if c.Scanner.MaxChars <= 0 {
		return fmt.Errorf("scan max chars must be positive")
	}

	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit buffer size must be positive")
	}
	if c.Audit.WorkerCount <= 0 {
		return fmt.Errorf("audit worker count must be positive")
	}
	if c.Alert.BufferSize <= 0 {
		return fmt.Errorf("alert buffer size must be positive")
	}
	if c.Alert.WorkerCount <= 0 {
		return fmt.Errorf("alert worker count must be positive")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	switch c.Provider.Name {
	case "openai":
		if c.IsProduction() && c.Provider.APIKey == "" {
			return fmt.Errorf("provider API key is required in production")
		}
	case "azure":
		if c.Provider.AzureEndpoint == "" || c.Provider.AzureDeployment == "" {
			return fmt.Errorf("azure provider requires endpoint and deployment")
		}
		if c.IsProduction() && c.Provider.AzureAPIKey == "" {
			return fmt.Errorf("provider API key is required in production")
		}
	default:
		return fmt.Errorf("ai provider must be openai or azure, got %q", c.Provider.Name)
	}

	return nil
}

// EnforcementMode returns the parsed enforcement mode. Validate must have
// accepted the configuration first.
func (c *Config) EnforcementMode() enforce.Mode {
	mode, err := enforce.ParseMode(c.Policy.EnforcementMode)
	if err != nil {
		return enforce.ModeEnforce
	}
	return mode
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
