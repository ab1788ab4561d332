package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/complyon/ai-gateway/config"
	"github.com/complyon/ai-gateway/internal/alert"
	"github.com/complyon/ai-gateway/internal/audit"
	"github.com/complyon/ai-gateway/internal/observability"
	"github.com/complyon/ai-gateway/internal/pii"
	"github.com/complyon/ai-gateway/internal/policy"
	"github.com/complyon/ai-gateway/internal/providers"
	"github.com/complyon/ai-gateway/internal/providers/azure"
	"github.com/complyon/ai-gateway/internal/providers/openai"
	"github.com/complyon/ai-gateway/services/gateway"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Policy
	PolicyStore   *policy.Store
	PolicyWatcher *policy.Watcher

	// Pipeline
	Scanner        *pii.Scanner
	Provider       providers.Provider
	AuditEmitter   *audit.Emitter
	AlertDispatch  *alert.Dispatcher
	GatewayService *gateway.Service
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.Metrics = observability.NewMetrics()

	if err := deps.initPolicy(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize policy: %w", err)
	}

	deps.initScanner(cfg)
	deps.initProvider(cfg)
	deps.initAudit(cfg)
	deps.initAlerts(cfg)

	deps.GatewayService = gateway.NewService(
		deps.Scanner,
		deps.PolicyStore,
		deps.Provider,
		deps.AuditEmitter,
		deps.AlertDispatch,
		deps.Metrics,
		logger,
		cfg.EnforcementMode(),
		cfg.Scanner.Enabled,
	)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initPolicy loads the policy file when configured and starts the hot-reload
// watcher. A missing or invalid file at startup is fatal; later edits that
// fail validation keep the active snapshot.
func (d *Dependencies) initPolicy(ctx context.Context, cfg *config.Config) error {
	d.PolicyStore = policy.NewStore(d.Logger,
		policy.WithReloadHook(d.Metrics.RecordPolicyReload))

	if cfg.Policy.File == "" {
		d.Logger.Info("no policy file configured, using built-in defaults")
		return nil
	}

	if err := d.PolicyStore.Reload(cfg.Policy.File); err != nil {
		return fmt.Errorf("initial policy load failed: %w", err)
	}

	if cfg.Policy.HotReload {
		d.PolicyWatcher = policy.NewWatcher(d.PolicyStore, cfg.Policy.File, cfg.Policy.DebounceWindow, d.Logger)
		if err := d.PolicyWatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start policy watcher: %w", err)
		}
		d.Logger.Info("policy hot reload enabled",
			zap.String("file", cfg.Policy.File))
	}

	return nil
}

func (d *Dependencies) initScanner(cfg *config.Config) {
	detector := pii.NewDetector(
		pii.WithFailureHook(func(t pii.Type) {
			d.Metrics.RecordDetectorFailure(string(t))
			d.Logger.Warn("detector failed, skipping for this request",
				zap.String("type", string(t)))
		}))
	d.Scanner = pii.NewScanner(detector, cfg.Scanner.MaxChars)

	if !cfg.Scanner.Enabled {
		d.Logger.Warn("PII detection disabled, identity rules still apply")
	}
}

func (d *Dependencies) initProvider(cfg *config.Config) {
	switch cfg.Provider.Name {
	case "azure":
		d.Provider = azure.NewAdapter(azure.Config{
			Endpoint:   cfg.Provider.AzureEndpoint,
			APIKey:     cfg.Provider.AzureAPIKey,
			Deployment: cfg.Provider.AzureDeployment,
			APIVersion: cfg.Provider.AzureAPIVersion,
			Timeout:    cfg.Provider.Timeout,
			MaxRetries: cfg.Provider.MaxRetries,
		})
		d.Logger.Info("provider initialized",
			zap.String("provider", d.Provider.Name()),
			zap.String("endpoint", cfg.Provider.AzureEndpoint),
			zap.String("deployment", cfg.Provider.AzureDeployment))
	default:
		d.Provider = openai.NewAdapter(providers.Config{
			APIKey:     cfg.Provider.APIKey,
			BaseURL:    cfg.Provider.BaseURL,
			Timeout:    cfg.Provider.Timeout,
			MaxRetries: cfg.Provider.MaxRetries,
		})
		d.Logger.Info("provider initialized",
			zap.String("provider", d.Provider.Name()),
			zap.String("base_url", cfg.Provider.BaseURL))
	}
}

func (d *Dependencies) initAudit(cfg *config.Config) {
	var sink audit.Sink
	if cfg.Audit.ServiceURL != "" {
		sink = audit.NewHTTPSink(cfg.Audit.ServiceURL, 0)
	} else {
		sink = audit.NewLogSink(d.Logger)
		d.Logger.Info("no audit service configured, audit records go to the log")
	}

	d.AuditEmitter = audit.NewEmitter(sink, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
		MaxAttempts: cfg.Audit.MaxAttempts,
	},
		audit.WithDropHook(d.Metrics.RecordAuditDropped),
		audit.WithOutcomeHook(d.Metrics.RecordAuditOutcome))
}

func (d *Dependencies) initAlerts(cfg *config.Config) {
	var sink alert.Sink
	if cfg.Alert.WebhookURL != "" {
		sink = alert.NewWebhookSink(cfg.Alert.WebhookURL, 0)
	} else {
		sink = alert.NewLogSink(d.Logger)
		d.Logger.Info("no alert webhook configured, alerts go to the log")
	}

	d.AlertDispatch = alert.NewDispatcher(sink, d.Logger, alert.Config{
		BufferSize:  cfg.Alert.BufferSize,
		WorkerCount: cfg.Alert.WorkerCount,
		MaxAttempts: cfg.Alert.MaxAttempts,
	},
		alert.WithDropHook(d.Metrics.RecordAlertDropped),
		alert.WithOutcomeHook(d.Metrics.RecordAlertOutcome))
}

// Start brings up the asynchronous emitters.
func (d *Dependencies) Start() error {
	if err := d.AuditEmitter.Start(); err != nil {
		return fmt.Errorf("failed to start audit emitter: %w", err)
	}
	if err := d.AlertDispatch.Start(); err != nil {
		return fmt.Errorf("failed to start alert dispatcher: %w", err)
	}
	return nil
}

// Close gracefully shuts down all dependencies, draining the audit and
// alert queues within the given timeout.
func (d *Dependencies) Close(timeout time.Duration) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditEmitter != nil {
		if err := d.AuditEmitter.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("audit emitter shutdown: %w", err))
		}
	}
	if d.AlertDispatch != nil {
		if err := d.AlertDispatch.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("alert dispatcher shutdown: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
