package store

import "time"

// Sender identifies which side of a decoy conversation produced a message.
type Sender string

const (
	SenderAttacker Sender = "attacker"
	SenderPersona  Sender = "persona"
)

// ConversationStatus tracks the lifecycle of a decoy conversation.
type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusEnded    ConversationStatus = "ended"
	StatusArchived ConversationStatus = "archived"
)

// Message is a single immutable chat message inside a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
}

// Conversation is one exchange between a decoy persona and a suspected
// attacker. Messages are kept ordered by SentAt; EndedAt is only set once the
// status becomes ended.
type Conversation struct {
	ID         string             `json:"id"`
	ProfileID  string             `json:"profile_id"`
	AttackerID string             `json:"attacker_id"`
	ScamType   string             `json:"scam_type,omitempty"`
	Status     ConversationStatus `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	EndedAt    *time.Time         `json:"ended_at,omitempty"`
	Messages   []Message          `json:"messages"`
}

// Duration returns the explicit conversation duration in seconds, or nil when
// the conversation has not ended.
func (c Conversation) Duration() *float64 {
	if c.EndedAt == nil {
		return nil
	}
	d := c.EndedAt.Sub(c.StartedAt).Seconds()
	return &d
}

// EngagementMetric is a derived record recomputed from the message sequence.
// The latest computation overwrites any stored record.
type EngagementMetric struct {
	ConversationID     string   `json:"conversation_id"`
	ResponseTimeAvg    *float64 `json:"response_time_avg,omitempty"`
	ResponseTimeMin    *float64 `json:"response_time_min,omitempty"`
	ResponseTimeMax    *float64 `json:"response_time_max,omitempty"`
	MessageLengthAvg   float64  `json:"message_length_avg"`
	MessageLengthTotal int      `json:"message_length_total"`
	MessageCount       int      `json:"message_count"`
	SentimentAvg       float64  `json:"sentiment_avg"`
}

// SeverityLevel grades how serious a classified attack is.
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "low"
	SeverityMedium   SeverityLevel = "medium"
	SeverityHigh     SeverityLevel = "high"
	SeverityCritical SeverityLevel = "critical"
)

// AttackTypeUnknown is the terminal classification for conversations whose
// text matches no known category. It is a valid result, not an error.
const AttackTypeUnknown = "unknown"

// AttackClassification records one classification pass over a conversation.
// History is kept newest-first; the most recent record is "current".
type AttackClassification struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	AttackType     string        `json:"attack_type"`
	Confidence     float64       `json:"confidence"`
	Techniques     []string      `json:"techniques_detected"`
	Severity       SeverityLevel `json:"severity_level"`
	ClassifiedAt   time.Time     `json:"classified_at"`
}
