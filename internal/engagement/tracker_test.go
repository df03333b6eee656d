package engagement

import (
	"math"
	"testing"
	"time"

	"github.com/decoynet/decoy-chat-platform/internal/store"
)

var trackerBase = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func msgAt(sender store.Sender, text string, offset time.Duration) store.Message {
	return store.Message{
		ID:             "m",
		ConversationID: "conv-1",
		Sender:         sender,
		Text:           text,
		SentAt:         trackerBase.Add(offset),
	}
}

func TestResponseTimesSinglePair(t *testing.T) {
	messages := []store.Message{
		msgAt(store.SenderAttacker, "hi", 0),
		msgAt(store.SenderPersona, "hello", 5*time.Second),
	}

	avg, min, max := ResponseTimes(messages)
	if avg == nil || min == nil || max == nil {
		t.Fatal("expected response time samples for an adjacent pair")
	}
	if *avg != 5 || *min != 5 || *max != 5 {
		t.Errorf("expected avg=min=max=5, got avg=%v min=%v max=%v", *avg, *min, *max)
	}
}

func TestResponseTimesSkipsRepeatedSender(t *testing.T) {
	messages := []store.Message{
		msgAt(store.SenderAttacker, "hi", 0),
		msgAt(store.SenderAttacker, "are you there?", 2*time.Second),
		msgAt(store.SenderPersona, "yes", 10*time.Second),
	}

	avg, min, max := ResponseTimes(messages)
	if avg == nil {
		t.Fatal("expected one sample")
	}
	// Only the adjacent attacker->persona pair counts: 10s - 2s = 8s.
	if *avg != 8 || *min != 8 || *max != 8 {
		t.Errorf("expected single 8s sample, got avg=%v min=%v max=%v", *avg, *min, *max)
	}
}

func TestResponseTimesNoSamples(t *testing.T) {
	tests := []struct {
		name     string
		messages []store.Message
	}{
		{"empty", nil},
		{"single message", []store.Message{msgAt(store.SenderAttacker, "hi", 0)}},
		{"persona first", []store.Message{
			msgAt(store.SenderPersona, "hi", 0),
			msgAt(store.SenderAttacker, "hello", time.Second),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, min, max := ResponseTimes(tt.messages)
			if avg != nil || min != nil || max != nil {
				t.Errorf("expected nil stats, got avg=%v min=%v max=%v", avg, min, max)
			}
		})
	}
}

func TestResponseTimesMultiplePairs(t *testing.T) {
	messages := []store.Message{
		msgAt(store.SenderAttacker, "a", 0),
		msgAt(store.SenderPersona, "b", 4*time.Second),
		msgAt(store.SenderAttacker, "c", 10*time.Second),
		msgAt(store.SenderPersona, "d", 22*time.Second),
	}

	avg, min, max := ResponseTimes(messages)
	if avg == nil {
		t.Fatal("expected samples")
	}
	if *min != 4 || *max != 12 || *avg != 8 {
		t.Errorf("expected min=4 max=12 avg=8, got min=%v max=%v avg=%v", *min, *max, *avg)
	}
}

func TestMessageLengthStats(t *testing.T) {
	messages := []store.Message{
		msgAt(store.SenderAttacker, "abcd", 0),
		msgAt(store.SenderPersona, "ab", time.Second),
	}

	avg, total := MessageLengthStats(messages)
	if total != 6 || avg != 3 {
		t.Errorf("expected total=6 avg=3, got total=%d avg=%v", total, avg)
	}

	avg, total = MessageLengthStats(nil)
	if total != 0 || avg != 0 {
		t.Errorf("expected zeros for empty input, got total=%d avg=%v", total, avg)
	}
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"neutral", "the sky is blue", 0},
		{"positive", "this is great, I love it", 1},
		{"negative", "this is terrible, I hate it", -1},
		{"mixed", "good but also bad", 0},
		{"mostly positive", "great wonderful but sad", 1.0 / 3.0},
		{"case insensitive", "GREAT", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sentiment(tt.text); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Sentiment(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMetricsIdempotent(t *testing.T) {
	conv := store.Conversation{
		ID: "conv-1",
		Messages: []store.Message{
			msgAt(store.SenderAttacker, "I love you, send money", 0),
			msgAt(store.SenderPersona, "that is great news", 5*time.Second),
		},
	}

	a := Metrics(conv)
	b := Metrics(conv)

	if a.ConversationID != "conv-1" || a.MessageCount != 2 {
		t.Errorf("unexpected metric: %+v", a)
	}
	if *a.ResponseTimeAvg != *b.ResponseTimeAvg || a.SentimentAvg != b.SentimentAvg || a.MessageLengthTotal != b.MessageLengthTotal {
		t.Error("Metrics is not idempotent over an unchanged conversation")
	}
}
