package ingest

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when an admission check rejects a request. The
// message is dropped before enqueueing; the caller must retry later.
var ErrRateLimited = errors.New("ingest: rate limited")

const rateWindow = time.Minute

// RateLimiter applies sliding-window admission control with two independent
// windows: one for messages and one for conversation creation. State is
// purely local to the process.
type RateLimiter struct {
	mu sync.Mutex

	maxMessages      int
	maxConversations int

	messageTimes      []time.Time
	conversationTimes []time.Time

	now func() time.Time
}

// NewRateLimiter creates a limiter with the given per-minute caps.
func NewRateLimiter(maxMessagesPerMinute, maxConversationsPerMinute int) *RateLimiter {
	if maxMessagesPerMinute <= 0 {
		maxMessagesPerMinute = 100
	}
	if maxConversationsPerMinute <= 0 {
		maxConversationsPerMinute = 20
	}
	return &RateLimiter{
		maxMessages:      maxMessagesPerMinute,
		maxConversations: maxConversationsPerMinute,
		now:              time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	rl.now = now
	rl.mu.Unlock()
}

// AllowMessage admits one message if the window has capacity, recording the
// admission timestamp.
func (rl *RateLimiter) AllowMessage() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.messageTimes = evictOld(rl.messageTimes, now)
	if len(rl.messageTimes) >= rl.maxMessages {
		return false
	}
	rl.messageTimes = append(rl.messageTimes, now)
	return true
}

// AllowConversation admits one conversation creation if the window has
// capacity.
func (rl *RateLimiter) AllowConversation() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.conversationTimes = evictOld(rl.conversationTimes, now)
	if len(rl.conversationTimes) >= rl.maxConversations {
		return false
	}
	rl.conversationTimes = append(rl.conversationTimes, now)
	return true
}

// RateLimiterStatus reports window occupancy for the status surface.
type RateLimiterStatus struct {
	MessagesThisMinute        int `json:"messages_this_minute"`
	MaxMessagesPerMinute      int `json:"max_messages_per_minute"`
	MessageCapacityLeft       int `json:"message_capacity_available"`
	ConversationsThisMinute   int `json:"conversations_this_minute"`
	MaxConversationsPerMinute int `json:"max_conversations_per_minute"`
	ConversationCapacityLeft  int `json:"conversation_capacity_available"`
}

// Status returns current window occupancy without consuming capacity.
func (rl *RateLimiter) Status() RateLimiterStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.messageTimes = evictOld(rl.messageTimes, now)
	rl.conversationTimes = evictOld(rl.conversationTimes, now)

	return RateLimiterStatus{
		MessagesThisMinute:        len(rl.messageTimes),
		MaxMessagesPerMinute:      rl.maxMessages,
		MessageCapacityLeft:       rl.maxMessages - len(rl.messageTimes),
		ConversationsThisMinute:   len(rl.conversationTimes),
		MaxConversationsPerMinute: rl.maxConversations,
		ConversationCapacityLeft:  rl.maxConversations - len(rl.conversationTimes),
	}
}

func evictOld(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rateWindow)
	kept := times[:0]
	for _, ts := range times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
