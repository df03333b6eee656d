package ingest

import (
	"context"
	"time"

	"github.com/decoynet/decoy-chat-platform/internal/observability/metrics"
	"github.com/decoynet/decoy-chat-platform/internal/store"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

// Manager orchestrates rate limiting, queueing and batching behind a single
// ingestion call. It is constructed once at startup and passed by injection;
// there is no process-wide instance.
type Manager struct {
	queue   *Queue
	limiter *RateLimiter
	batcher *Batcher
	logger  *logging.Logger
	metrics *metrics.QueueMetrics
}

// ManagerConfig bundles the collaborators a Manager orchestrates.
type ManagerConfig struct {
	Queue   *Queue
	Limiter *RateLimiter
	Batcher *Batcher
	Logger  *logging.Logger
	Metrics *metrics.QueueMetrics
}

// NewManager wires the ingestion pipeline.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Queue == nil {
		panic("ingest: queue cannot be nil")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(0, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Batcher == nil {
		cfg.Batcher = NewBatcher(0, nil, cfg.Logger)
	}
	return &Manager{
		queue:   cfg.Queue,
		limiter: cfg.Limiter,
		batcher: cfg.Batcher,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context, workerCount int) {
	m.queue.Start(ctx, workerCount)
	m.logger.Info("ingestion manager started")
}

// AddMessage runs the rate-limit gate, then enqueues a persistence task.
// A nil return means the message was accepted for asynchronous processing;
// later persistence failures surface only through counters and the
// dead-letter list. ErrRateLimited and ErrQueueFull mean the message was
// dropped and the caller must retry.
func (m *Manager) AddMessage(conversationID string, sender store.Sender, text string, priority Priority) error {
	if !m.limiter.AllowMessage() {
		m.metrics.RateLimited("messages")
		m.logger.Warn("message rate limited", "conversation_id", conversationID)
		return ErrRateLimited
	}

	task := Task{
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		Priority:       priority,
		SubmittedAt:    time.Now().UTC(),
		MaxRetries:     defaultMaxRetries,
	}
	if err := m.queue.Submit(task); err != nil {
		return err
	}
	m.batcher.Add(conversationID)
	return nil
}

// AllowConversation checks the conversation-creation window on behalf of the
// external API collaborator.
func (m *Manager) AllowConversation() bool {
	if m.limiter.AllowConversation() {
		return true
	}
	m.metrics.RateLimited("conversations")
	return false
}

// Status is the merged snapshot returned by the status surface.
type Status struct {
	Queue       Stats             `json:"queue"`
	RateLimiter RateLimiterStatus `json:"rate_limiter"`
	Batcher     BatcherState      `json:"batcher"`
	DeadLetter  []DeadTask        `json:"dead_letter_tasks,omitempty"`
}

// Status merges queue stats, rate-limiter occupancy and batcher state.
func (m *Manager) Status() Status {
	return Status{
		Queue:       m.queue.Stats(),
		RateLimiter: m.limiter.Status(),
		Batcher:     m.batcher.State(),
		DeadLetter:  m.queue.DeadLetter(),
	}
}

// Shutdown stops the worker pool and flushes the batcher.
func (m *Manager) Shutdown() {
	m.queue.Stop()
	m.batcher.Flush()
	m.logger.Info("ingestion manager shut down")
}
