package ingest

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decoynet/decoy-chat-platform/internal/observability/metrics"
	"github.com/decoynet/decoy-chat-platform/internal/store"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

// ErrQueueFull is returned when a submit is rejected because the queue is at
// capacity. The caller must back off; the task is not retried internally.
var ErrQueueFull = errors.New("ingest: queue full")

// MessageWriter is the storage collaborator the workers persist through.
type MessageWriter interface {
	AddMessage(ctx context.Context, conversationID string, sender store.Sender, text string) (store.Message, error)
}

const (
	defaultQueueCapacity = 1000
	defaultWorkerCount   = 5
	defaultTakeTimeout   = time.Second
	defaultStopGrace     = 5 * time.Second
	persistTimeout       = 10 * time.Second
)

// Queue is a bounded, concurrency-safe priority queue with an attached worker
// pool. Tasks are dequeued in (priority, submittedAt, arrival) order; retried
// tasks are re-submitted at high priority until their retries are exhausted,
// then moved to the dead-letter list.
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items taskHeap
	cap   int
	seq   uint64

	writer     MessageWriter
	transcript *store.TranscriptStore
	logger     *logging.Logger
	metrics    *metrics.QueueMetrics

	processed atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64

	deadMu     sync.Mutex
	deadLetter []DeadTask

	running   atomic.Bool
	stop      chan struct{}
	wg        sync.WaitGroup
	stopGrace time.Duration
	startedAt time.Time
}

// QueueOption customizes queue behavior.
type QueueOption func(*Queue)

// WithQueueCapacity bounds the number of pending tasks.
func WithQueueCapacity(capacity int) QueueOption {
	return func(q *Queue) {
		if capacity > 0 {
			q.cap = capacity
		}
	}
}

// WithQueueMetrics wires prometheus instrumentation.
func WithQueueMetrics(m *metrics.QueueMetrics) QueueOption {
	return func(q *Queue) {
		q.metrics = m
	}
}

// WithTranscriptStore mirrors successfully persisted messages into the live
// transcript.
func WithTranscriptStore(transcript *store.TranscriptStore) QueueOption {
	return func(q *Queue) {
		q.transcript = transcript
	}
}

// WithStopGrace bounds how long Stop waits for in-flight tasks.
func WithStopGrace(grace time.Duration) QueueOption {
	return func(q *Queue) {
		if grace > 0 {
			q.stopGrace = grace
		}
	}
}

// NewQueue constructs a queue that persists messages through writer.
func NewQueue(writer MessageWriter, logger *logging.Logger, opts ...QueueOption) *Queue {
	if writer == nil {
		panic("ingest: message writer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	q := &Queue{
		cap:       defaultQueueCapacity,
		writer:    writer,
		logger:    logger,
		stopGrace: defaultStopGrace,
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit enqueues a task without blocking. It returns ErrQueueFull when the
// queue is at capacity.
func (q *Queue) Submit(task Task) error {
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now().UTC()
	}
	if task.MaxRetries <= 0 {
		task.MaxRetries = defaultMaxRetries
	}

	q.mu.Lock()
	if q.items.Len() >= q.cap {
		q.mu.Unlock()
		q.logger.Warn("task rejected: queue full",
			"conversation_id", task.ConversationID,
			"queue_size", q.cap,
		)
		return ErrQueueFull
	}
	q.seq++
	task.seq = q.seq
	heap.Push(&q.items, task)
	depth := q.items.Len()
	q.mu.Unlock()

	q.cond.Signal()
	q.metrics.SetQueueDepth(depth)
	q.logger.Debug("task enqueued",
		"conversation_id", task.ConversationID,
		"priority", task.Priority.String(),
		"queue_size", depth,
	)
	return nil
}

// Take removes the highest-priority task, blocking up to timeout. The second
// return value is false when the timeout expires with nothing available, so
// workers can poll their shutdown signal between waits.
func (q *Queue) Take(timeout time.Duration) (Task, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Task{}, false
		}
		// sync.Cond has no timed wait; a one-shot timer broadcasting on
		// expiry gives Wait a deadline.
		timer := time.AfterFunc(remaining, func() {
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		})
		q.cond.Wait()
		timer.Stop()
	}

	task := heap.Pop(&q.items).(Task)
	q.metrics.SetQueueDepth(q.items.Len())
	return task, true
}

// Start launches workerCount consumer goroutines.
func (q *Queue) Start(ctx context.Context, workerCount int) {
	if !q.running.CompareAndSwap(false, true) {
		q.logger.Warn("queue already running")
		return
	}
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	if ctx == nil {
		ctx = context.Background()
	}

	q.stop = make(chan struct{})
	q.startedAt = time.Now().UTC()
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.run(ctx, i+1)
	}
	q.logger.Info("ingest queue started", "workers", workerCount)
}

// Stop signals workers to exit after their current task and waits up to the
// configured grace period. Tasks still queued are discarded.
func (q *Queue) Stop() {
	if !q.running.CompareAndSwap(true, false) {
		return
	}
	close(q.stop)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(q.stopGrace):
		q.logger.Warn("queue stop grace period elapsed with workers still busy")
	}

	q.logger.Info("ingest queue stopped",
		"processed", q.processed.Load(),
		"failed", q.failed.Load(),
	)
}

func (q *Queue) run(ctx context.Context, workerID int) {
	defer q.wg.Done()
	q.logger.Debug("ingest worker started", "worker_id", workerID)

	for {
		select {
		case <-q.stop:
			q.logger.Debug("ingest worker stopping", "worker_id", workerID)
			return
		case <-ctx.Done():
			return
		default:
		}

		task, ok := q.Take(defaultTakeTimeout)
		if !ok {
			continue
		}
		q.process(ctx, task)
	}
}

func (q *Queue) process(ctx context.Context, task Task) {
	persistCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	msg, err := q.writer.AddMessage(persistCtx, task.ConversationID, task.Sender, task.Text)
	if err == nil {
		q.processed.Add(1)
		q.metrics.TaskProcessed()
		q.logger.Debug("task processed",
			"conversation_id", task.ConversationID,
			"message_id", msg.ID,
			"retry", task.RetryCount,
		)
		q.mirrorTranscript(ctx, msg)
		return
	}

	if errors.Is(err, store.ErrConversationNotFound) {
		// Terminal: the conversation will not appear by retrying.
		q.logger.Error("task failed permanently: conversation missing",
			"conversation_id", task.ConversationID,
		)
		q.bury(task, err)
		return
	}

	q.logger.Error("task failed", "error", err, "conversation_id", task.ConversationID)
	if task.RetryCount < task.MaxRetries {
		task.RetryCount++
		task.Priority = PriorityHigh
		q.retried.Add(1)
		q.metrics.TaskRetried()
		if submitErr := q.Submit(task); submitErr != nil {
			q.logger.Error("retry rejected, moving task to dead letter",
				"error", submitErr,
				"conversation_id", task.ConversationID,
			)
			q.bury(task, err)
			return
		}
		q.logger.Info("task retried",
			"conversation_id", task.ConversationID,
			"attempt", task.RetryCount,
			"max_retries", task.MaxRetries,
		)
		return
	}

	q.logger.Error("task failed permanently",
		"conversation_id", task.ConversationID,
		"attempts", task.RetryCount,
	)
	q.bury(task, err)
}

func (q *Queue) bury(task Task, cause error) {
	q.failed.Add(1)
	q.metrics.TaskFailed()

	dead := DeadTask{
		ConversationID: task.ConversationID,
		Sender:         task.Sender,
		RetryCount:     task.RetryCount,
		SubmittedAt:    task.SubmittedAt,
	}
	if cause != nil {
		dead.LastError = cause.Error()
	}
	q.deadMu.Lock()
	q.deadLetter = append(q.deadLetter, dead)
	q.deadMu.Unlock()
}

func (q *Queue) mirrorTranscript(ctx context.Context, msg store.Message) {
	if q.transcript == nil {
		return
	}
	entry := store.TranscriptMessage{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Body:      msg.Text,
		Timestamp: msg.SentAt,
	}
	if err := q.transcript.Append(ctx, msg.ConversationID, entry); err != nil {
		q.logger.Warn("failed to mirror message to transcript", "error", err, "conversation_id", msg.ConversationID)
	}
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Running       bool    `json:"running"`
	QueueSize     int     `json:"queue_size"`
	Processed     int64   `json:"processed"`
	Failed        int64   `json:"failed"`
	Retried       int64   `json:"retried"`
	DeadLetter    int     `json:"dead_letter"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Stats returns current counters. Safe to call concurrently with workers.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	size := q.items.Len()
	q.mu.Unlock()

	q.deadMu.Lock()
	dead := len(q.deadLetter)
	q.deadMu.Unlock()

	stats := Stats{
		Running:    q.running.Load(),
		QueueSize:  size,
		Processed:  q.processed.Load(),
		Failed:     q.failed.Load(),
		Retried:    q.retried.Load(),
		DeadLetter: dead,
	}
	if stats.Running {
		stats.UptimeSeconds = time.Since(q.startedAt).Seconds()
	}
	return stats
}

// DeadLetter returns a copy of the permanently failed tasks.
func (q *Queue) DeadLetter() []DeadTask {
	q.deadMu.Lock()
	defer q.deadMu.Unlock()

	out := make([]DeadTask, len(q.deadLetter))
	copy(out, q.deadLetter)
	return out
}

// taskHeap implements container/heap ordered by Task.before.
type taskHeap []Task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].before(h[j]) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(Task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	*h = old[:n-1]
	return task
}
