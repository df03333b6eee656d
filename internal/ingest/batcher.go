package ingest

import (
	"sync"

	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

const defaultBatchSize = 50

// AnalysisFunc receives a batch of conversation IDs ready for analytics.
type AnalysisFunc func(conversationIDs []string)

// Batcher accumulates conversation identifiers and fires the analysis
// callback once the batch size is reached, bounding memory and amortizing
// downstream work. Callback failures are counted, never propagated.
type Batcher struct {
	mu        sync.Mutex
	batchSize int
	current   []string
	callback  AnalysisFunc
	logger    *logging.Logger

	processedBatches int
	callbackFailures int
}

// NewBatcher creates a batcher; callback may be nil, in which case batches
// are simply discarded when full.
func NewBatcher(batchSize int, callback AnalysisFunc, logger *logging.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Batcher{
		batchSize: batchSize,
		callback:  callback,
		logger:    logger,
	}
}

// Add records a conversation ID, processing the batch when it is full.
// It reports whether a batch was processed by this call.
func (b *Batcher) Add(conversationID string) bool {
	b.mu.Lock()
	b.current = append(b.current, conversationID)
	if len(b.current) < b.batchSize {
		b.mu.Unlock()
		return false
	}
	batch := b.take()
	b.mu.Unlock()

	b.dispatch(batch)
	return true
}

// Flush processes any partial batch, e.g. at shutdown.
func (b *Batcher) Flush() {
	b.mu.Lock()
	batch := b.take()
	b.mu.Unlock()

	if len(batch) > 0 {
		b.dispatch(batch)
	}
}

// BatcherState reports batcher occupancy for the status surface.
type BatcherState struct {
	BatchSize        int `json:"batch_size"`
	CurrentBatchSize int `json:"current_batch_size"`
	ProcessedBatches int `json:"processed_batches"`
	CallbackFailures int `json:"callback_failures"`
}

// State returns a snapshot of the batcher.
func (b *Batcher) State() BatcherState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BatcherState{
		BatchSize:        b.batchSize,
		CurrentBatchSize: len(b.current),
		ProcessedBatches: b.processedBatches,
		CallbackFailures: b.callbackFailures,
	}
}

// take must be called with b.mu held.
func (b *Batcher) take() []string {
	batch := b.current
	b.current = nil
	return batch
}

func (b *Batcher) dispatch(batch []string) {
	if len(batch) == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.mu.Lock()
			b.callbackFailures++
			b.mu.Unlock()
			b.logger.Error("batch analysis callback panicked", "panic", r, "batch_size", len(batch))
		}
	}()

	if b.callback != nil {
		b.callback(batch)
	}

	b.mu.Lock()
	b.processedBatches++
	processed := b.processedBatches
	b.mu.Unlock()
	b.logger.Info("batch processed", "size", len(batch), "batches_total", processed)
}
