package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is the webhook payload for one policy violation.
type Event struct {
	Type       string    `json:"type"` // pii_detected, model_not_allowed, app_not_allowed
	Violations []string  `json:"violations"`
	Action     string    `json:"action"` // computed action that raised the alert
	OrgID      string    `json:"org_id,omitempty"`
	AppID      string    `json:"app_id"`
	UserID     string    `json:"user_id,omitempty"`
	Model      string    `json:"model,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Severity   string    `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink delivers one alert event. Delivery is best-effort by contract.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// WebhookSink posts events as JSON to a configured webhook URL.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts one event.
func (s *WebhookSink) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSink logs events instead of delivering them, for deployments without a
// webhook configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Send logs the event.
func (s *LogSink) Send(_ context.Context, event Event) error {
	s.logger.Warn("policy alert",
		zap.String("type", event.Type),
		zap.String("action", event.Action),
		zap.String("org_id", event.OrgID),
		zap.String("app_id", event.AppID),
		zap.Any("violations", event.Violations),
		zap.String("severity", event.Severity))
	return nil
}

// Config holds dispatcher tuning.
type Config struct {
	BufferSize   int
	WorkerCount  int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultConfig returns production defaults. Alerts are rarer than audit
// records, so the queue is smaller.
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		WorkerCount:  2,
		MaxAttempts:  3,
		RetryBackoff: 500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	return c
}

// Dispatcher fans alert events out to the sink from a bounded queue. Like
// the audit emitter, the request path only enqueues; full queues drop and
// count rather than block.
type Dispatcher struct {
	sink   Sink
	logger *zap.Logger
	config Config

	queue  chan Event
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool

	onDropped func()
	onOutcome func(outcome string)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDropHook registers a callback invoked whenever an event is dropped.
func WithDropHook(hook func()) DispatcherOption {
	return func(d *Dispatcher) {
		d.onDropped = hook
	}
}

// WithOutcomeHook registers a callback observing delivery outcomes
// ("delivered"/"failed").
func WithOutcomeHook(hook func(outcome string)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onOutcome = hook
	}
}

// NewDispatcher creates a dispatcher over the given sink.
func NewDispatcher(sink Sink, logger *zap.Logger, config Config, opts ...DispatcherOption) *Dispatcher {
	config = config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		sink:   sink,
		logger: logger,
		config: config,
		queue:  make(chan Event, config.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the background workers.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("alert dispatcher already started")
	}
	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.started = true
	d.logger.Info("alert dispatcher started",
		zap.Int("worker_count", d.config.WorkerCount),
		zap.Int("buffer_size", d.config.BufferSize))
	return nil
}

// Stop drains the queue, waiting up to timeout for pending deliveries.
func (d *Dispatcher) Stop(timeout time.Duration) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return fmt.Errorf("alert dispatcher not started")
	}
	d.started = false
	// Closed under the lock so a concurrent Dispatch can never send on a
	// closed channel.
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("alert dispatcher stopped")
		return nil
	case <-time.After(timeout):
		d.cancel()
		return fmt.Errorf("alert dispatcher stop timed out after %v", timeout)
	}
}

// Dispatch enqueues an event without blocking, dropping on a full queue.
func (d *Dispatcher) Dispatch(event Event) {
	// The lock is held across the send so Stop cannot close the queue
	// between the started check and the enqueue.
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		d.drop(event, "dispatcher not started")
		return
	}

	select {
	case d.queue <- event:
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		d.drop(event, "queue full")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	backoff := d.config.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-d.ctx.Done():
				return
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
		lastErr = d.sink.Send(ctx, event)
		cancel()

		if lastErr == nil {
			d.observe("delivered")
			return
		}
	}

	d.observe("failed")
	if d.onDropped != nil {
		d.onDropped()
	}
	d.logger.Warn("alert dropped after retries",
		zap.Int("attempts", d.config.MaxAttempts),
		zap.String("type", event.Type),
		zap.Error(lastErr))
}

func (d *Dispatcher) drop(event Event, why string) {
	if d.onDropped != nil {
		d.onDropped()
	}
	d.logger.Warn("alert dropped",
		zap.String("reason", why),
		zap.String("type", event.Type),
		zap.String("app_id", event.AppID))
}

func (d *Dispatcher) observe(outcome string) {
	if d.onOutcome != nil {
		d.onOutcome(outcome)
	}
}
