package audit

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

// Sink accepts audit records. The external store behind it is expected to
// enforce append-only, immutable storage; this package only delivers.
type Sink interface {
	Write(ctx context.Context, record *Record) error
}

// HTTPSink posts records to the external audit service.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a sink posting to baseURL + "/api/v1/logs".
func NewHTTPSink(baseURL string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSink{
		url:    baseURL + "/api/v1/logs",
		client: &http.Client{Timeout: timeout},
	}
}

// Write posts one record as JSON.
func (s *HTTPSink) Write(ctx context.Context, record *Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post audit record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("audit sink returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes records to the structured log. Used when no audit service
// URL is configured, so decisions remain observable in development.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write logs the record as structured fields.
func (s *LogSink) Write(_ context.Context, record *Record) error {
	s.logger.Info("audit record",
		zap.String("id", record.ID.String()),
		zap.String("org_id", record.OrgID),
		zap.String("app_id", record.AppID),
		zap.String("model", record.Model),
		zap.String("prompt_hash", record.PromptHash),
		zap.String("action", record.Metadata.Action),
		zap.Any("risk_flags", record.RiskFlags))
	return nil
}

// Config holds emitter tuning.
type Config struct {
	BufferSize   int           // size of the bounded record queue
	WorkerCount  int           // concurrent delivery workers
	MaxAttempts  int           // delivery attempts per record before dropping
	RetryBackoff time.Duration // base backoff, doubled per attempt
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:   10000,
		WorkerCount:  4,
		MaxAttempts:  3,
		RetryBackoff: 250 * time.Millisecond,
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

// Emitter delivers records to the sink from a bounded queue consumed by
// background workers. The request path only enqueues: Emit never blocks and
// never surfaces sink failures to the caller. When the queue is full the
// record is dropped and counted rather than growing memory or blocking
// producers.
type Emitter struct {
	sink   Sink
	logger *zap.Logger
	config Config

	queue  chan *Record
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool

	onDropped func()
	onOutcome func(outcome string)
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithDropHook registers a callback invoked whenever a record is dropped,
// either on a full queue or after the delivery attempt cap.
func WithDropHook(hook func()) EmitterOption {
	return func(e *Emitter) {
		e.onDropped = hook
	}
}

// WithOutcomeHook registers a callback observing delivery outcomes
// ("delivered"/"failed").
func WithOutcomeHook(hook func(outcome string)) EmitterOption {
	return func(e *Emitter) {
		e.onOutcome = hook
	}
}

// NewEmitter creates an emitter over the given sink.
func NewEmitter(sink Sink, logger *zap.Logger, config Config, opts ...EmitterOption) *Emitter {
	config = config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	e := &Emitter{
		sink:   sink,
		logger: logger,
		config: config,
		queue:  make(chan *Record, config.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the background workers.
func (e *Emitter) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("audit emitter already started")
	}
	for i := 0; i < e.config.WorkerCount; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	e.started = true
	e.logger.Info("audit emitter started",
		zap.Int("worker_count", e.config.WorkerCount),
		zap.Int("buffer_size", e.config.BufferSize))
	return nil
}

// Stop drains the queue, waiting up to timeout for pending deliveries.
func (e *Emitter) Stop(timeout time.Duration) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("audit emitter not started")
	}
	e.started = false
	// Closed under the lock so a concurrent Emit can never send on a closed
	// channel.
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		e.logger.Info("audit emitter stopped")
		return nil
	case <-time.After(timeout):
		e.cancel()
		return fmt.Errorf("audit emitter stop timed out after %v", timeout)
	}
}

// Emit enqueues a record without blocking. Each decision is emitted exactly
// once; on a full queue the record is dropped and counted.
func (e *Emitter) Emit(record *Record) {
	// The lock is held across the send so Stop cannot close the queue
	// between the started check and the enqueue. The send is non-blocking,
	// so the critical section stays short.
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		e.drop(record, "emitter not started")
		return
	}

	select {
	case e.queue <- record:
		e.mu.Unlock()
	default:
		e.mu.Unlock()
		e.drop(record, "queue full")
	}
}

// Pending reports the current queue depth.
func (e *Emitter) Pending() int {
	return len(e.queue)
}

func (e *Emitter) worker(id int) {
	defer e.wg.Done()
	for record := range e.queue {
		e.deliver(id, record)
	}
}

// deliver retries with bounded exponential backoff up to the attempt cap,
// then drops the record. Sink failures never propagate to the request path.
func (e *Emitter) deliver(worker int, record *Record) {
	backoff := e.config.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-e.ctx.Done():
				return
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(e.ctx, 5*time.Second)
		lastErr = e.sink.Write(ctx, record)
		cancel()

		if lastErr == nil {
			e.observe("delivered")
			return
		}
	}

	e.observe("failed")
	if e.onDropped != nil {
		e.onDropped()
	}
	e.logger.Warn("audit record dropped after retries",
		zap.Int("worker_id", worker),
		zap.Int("attempts", e.config.MaxAttempts),
		zap.String("record_id", record.ID.String()),
		zap.Error(lastErr))
}

func (e *Emitter) drop(record *Record, why string) {
	if e.onDropped != nil {
		e.onDropped()
	}
	e.logger.Warn("audit record dropped",
		zap.String("reason", why),
		zap.String("record_id", record.ID.String()),
		zap.String("org_id", record.OrgID))
}

func (e *Emitter) observe(outcome string) {
	if e.onOutcome != nil {
		e.onOutcome(outcome)
	}
}
