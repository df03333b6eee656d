package analytics

import (
	"github.com/decoynet/decoy-chat-platform/internal/engagement"
	"github.com/decoynet/decoy-chat-platform/internal/store"
)

// EngagementSummary is the engagement half of a conversation summary.
type EngagementSummary struct {
	AvgResponseTimeSeconds *float64 `json:"avg_response_time_seconds"`
	MinResponseTimeSeconds *float64 `json:"min_response_time_seconds"`
	MaxResponseTimeSeconds *float64 `json:"max_response_time_seconds"`
	AvgMessageLength       float64  `json:"avg_message_length"`
	TotalTextLength        int      `json:"total_text_length"`
	SentimentScore         float64  `json:"sentiment_score"`
}

// AttackSummary is the classification half of a conversation summary.
type AttackSummary struct {
	AttackType string              `json:"attack_type"`
	Confidence float64             `json:"confidence"`
	Severity   store.SeverityLevel `json:"severity_level"`
	Techniques []string            `json:"techniques_detected"`
}

// ConversationSummary merges engagement metrics and attack analysis for one
// conversation.
type ConversationSummary struct {
	ConversationID  string            `json:"conversation_id"`
	ProfileID       string            `json:"profile_id"`
	AttackerID      string            `json:"attacker_id"`
	DurationSeconds *float64          `json:"duration,omitempty"`
	MessageCount    int               `json:"message_count"`
	Engagement      EngagementSummary `json:"engagement"`
	AttackAnalysis  AttackSummary     `json:"attack_analysis"`
}

// Summarize computes the combined summary for a conversation snapshot.
func Summarize(conversation store.Conversation) ConversationSummary {
	metric := engagement.Metrics(conversation)
	classification := engagement.ClassifyConversation(conversation)

	return ConversationSummary{
		ConversationID:  conversation.ID,
		ProfileID:       conversation.ProfileID,
		AttackerID:      conversation.AttackerID,
		DurationSeconds: conversation.Duration(),
		MessageCount:    metric.MessageCount,
		Engagement: EngagementSummary{
			AvgResponseTimeSeconds: metric.ResponseTimeAvg,
			MinResponseTimeSeconds: metric.ResponseTimeMin,
			MaxResponseTimeSeconds: metric.ResponseTimeMax,
			AvgMessageLength:       metric.MessageLengthAvg,
			TotalTextLength:        metric.MessageLengthTotal,
			SentimentScore:         metric.SentimentAvg,
		},
		AttackAnalysis: AttackSummary{
			AttackType: classification.AttackType,
			Confidence: classification.Confidence,
			Severity:   classification.Severity,
			Techniques: classification.Techniques,
		},
	}
}

// Comparison reports metric deltas between two conversations (second minus
// first).
type Comparison struct {
	ConversationAID      string  `json:"conversation_a_id"`
	ConversationBID      string  `json:"conversation_b_id"`
	MessageCountDiff     int     `json:"message_count_diff"`
	ResponseTimeDiff     float64 `json:"response_time_diff"`
	SentimentDiff        float64 `json:"sentiment_diff"`
	AvgMessageLengthDiff float64 `json:"avg_message_length_diff"`
}

// Compare diffs engagement metrics between two conversations.
func Compare(a, b store.Conversation) Comparison {
	ma := engagement.Metrics(a)
	mb := engagement.Metrics(b)

	return Comparison{
		ConversationAID:      a.ID,
		ConversationBID:      b.ID,
		MessageCountDiff:     mb.MessageCount - ma.MessageCount,
		ResponseTimeDiff:     deref(mb.ResponseTimeAvg) - deref(ma.ResponseTimeAvg),
		SentimentDiff:        mb.SentimentAvg - ma.SentimentAvg,
		AvgMessageLengthDiff: mb.MessageLengthAvg - ma.MessageLengthAvg,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
