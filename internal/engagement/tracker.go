// Package engagement computes derived metrics and attack classifications from
// conversation message sequences. Everything here is a pure function over a
// snapshot: no stored state, safe to call concurrently.
package engagement

import (
	"strings"

	"github.com/decoynet/decoy-chat-platform/internal/store"
)

var positiveWords = []string{"good", "great", "love", "happy", "excellent", "wonderful", "best"}
var negativeWords = []string{"bad", "hate", "sad", "terrible", "worst", "horrible", "angry"}

// ResponseTimes computes (avg, min, max) response latency in seconds over all
// adjacent attacker→persona message pairs. Pairs that are non-adjacent or
// repeat the same sender contribute no sample. All three results are nil when
// no sample exists.
func ResponseTimes(messages []store.Message) (avg, min, max *float64) {
	var samples []float64
	for i := 1; i < len(messages); i++ {
		if messages[i].Sender == store.SenderPersona && messages[i-1].Sender == store.SenderAttacker {
			samples = append(samples, messages[i].SentAt.Sub(messages[i-1].SentAt).Seconds())
		}
	}
	if len(samples) == 0 {
		return nil, nil, nil
	}

	sum := 0.0
	lo, hi := samples[0], samples[0]
	for _, s := range samples {
		sum += s
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	mean := sum / float64(len(samples))
	return &mean, &lo, &hi
}

// MessageLengthStats returns the average and total character length of the
// message texts. The average is 0 for an empty sequence.
func MessageLengthStats(messages []store.Message) (avg float64, total int) {
	if len(messages) == 0 {
		return 0, 0
	}
	for _, msg := range messages {
		total += len(msg.Text)
	}
	return float64(total) / float64(len(messages)), total
}

// Sentiment scores text polarity in [-1, 1] from counts of positive vs.
// negative indicator words, 0 when neither appears.
func Sentiment(text string) float64 {
	lower := strings.ToLower(text)

	pos := 0
	for _, word := range positiveWords {
		if strings.Contains(lower, word) {
			pos++
		}
	}
	neg := 0
	for _, word := range negativeWords {
		if strings.Contains(lower, word) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// ConversationSentiment averages per-message sentiment, 0 when there are no
// messages.
func ConversationSentiment(messages []store.Message) float64 {
	if len(messages) == 0 {
		return 0
	}
	sum := 0.0
	for _, msg := range messages {
		sum += Sentiment(msg.Text)
	}
	return sum / float64(len(messages))
}

// Metrics combines the tracker computations into one EngagementMetric.
// Idempotent: two calls on an unchanged conversation yield identical output.
func Metrics(conversation store.Conversation) store.EngagementMetric {
	messages := conversation.Messages

	avg, min, max := ResponseTimes(messages)
	lengthAvg, lengthTotal := MessageLengthStats(messages)

	return store.EngagementMetric{
		ConversationID:     conversation.ID,
		ResponseTimeAvg:    avg,
		ResponseTimeMin:    min,
		ResponseTimeMax:    max,
		MessageLengthAvg:   lengthAvg,
		MessageLengthTotal: lengthTotal,
		MessageCount:       len(messages),
		SentimentAvg:       ConversationSentiment(messages),
	}
}
