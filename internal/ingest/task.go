package ingest

import (
	"time"

	"github.com/decoynet/decoy-chat-platform/internal/store"
)

// Priority orders task processing. Lower values are served first.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityNormal   Priority = 2
	PriorityLow      Priority = 3
)

// String returns the priority name used in logs and status payloads.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// ParsePriority maps a name to a Priority, defaulting to normal.
func ParsePriority(name string) Priority {
	switch name {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "normal", "":
		return PriorityNormal
	case "low":
		return PriorityLow
	}
	return PriorityNormal
}

const defaultMaxRetries = 3

// Task is one queued unit of work: a single message waiting to be persisted.
type Task struct {
	ConversationID string
	Sender         store.Sender
	Text           string
	Priority       Priority
	SubmittedAt    time.Time
	RetryCount     int
	MaxRetries     int

	// seq breaks ties between tasks with equal (priority, submittedAt) so the
	// dequeue order stays stable with respect to arrival order.
	seq uint64
}

// before reports whether t should be dequeued ahead of other.
func (t Task) before(other Task) bool {
	if t.Priority != other.Priority {
		return t.Priority < other.Priority
	}
	if !t.SubmittedAt.Equal(other.SubmittedAt) {
		return t.SubmittedAt.Before(other.SubmittedAt)
	}
	return t.seq < other.seq
}

// DeadTask is the operator-visible record of a permanently failed task.
type DeadTask struct {
	ConversationID string       `json:"conversation_id"`
	Sender         store.Sender `json:"sender"`
	RetryCount     int          `json:"retry_count"`
	SubmittedAt    time.Time    `json:"submitted_at"`
	LastError      string       `json:"last_error,omitempty"`
}
