package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Storage used for development and tests.
type MemoryStore struct {
	mu              sync.RWMutex
	conversations   map[string]*Conversation
	metrics         map[string]EngagementMetric
	classifications map[string][]AttackClassification
	now             func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations:   make(map[string]*Conversation),
		metrics:         make(map[string]EngagementMetric),
		classifications: make(map[string][]AttackClassification),
		now:             time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) CreateConversation(_ context.Context, profileID, attackerID, scamType string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &Conversation{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		AttackerID: attackerID,
		ScamType:   scamType,
		Status:     StatusActive,
		StartedAt:  s.now().UTC(),
	}
	s.conversations[conv.ID] = conv
	return cloneConversation(conv), nil
}

func (s *MemoryStore) EndConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	if conv.Status == StatusEnded {
		return nil
	}
	ended := s.now().UTC()
	conv.Status = StatusEnded
	conv.EndedAt = &ended
	return nil
}

func (s *MemoryStore) AddMessage(_ context.Context, conversationID string, sender Sender, text string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return Message{}, ErrConversationNotFound
	}

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		SentAt:         s.now().UTC(),
	}
	conv.Messages = append(conv.Messages, msg)
	return msg, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) ConversationsForProfile(_ context.Context, profileID string) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conversation, 0)
	for _, conv := range s.conversations {
		if conv.ProfileID == profileID {
			out = append(out, cloneConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *MemoryStore) SaveEngagementMetrics(_ context.Context, metric EngagementMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[metric.ConversationID]; !ok {
		return ErrConversationNotFound
	}
	s.metrics[metric.ConversationID] = metric
	return nil
}

func (s *MemoryStore) EngagementMetrics(_ context.Context, conversationID string) (EngagementMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metric, ok := s.metrics[conversationID]
	if !ok {
		return EngagementMetric{}, ErrConversationNotFound
	}
	return metric, nil
}

func (s *MemoryStore) SaveAttackClassification(_ context.Context, c AttackClassification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[c.ConversationID]; !ok {
		return ErrConversationNotFound
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ClassifiedAt.IsZero() {
		c.ClassifiedAt = s.now().UTC()
	}
	// Newest-first history.
	s.classifications[c.ConversationID] = append([]AttackClassification{c}, s.classifications[c.ConversationID]...)
	return nil
}

func (s *MemoryStore) AttackClassifications(_ context.Context, conversationID string) ([]AttackClassification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.classifications[conversationID]
	out := make([]AttackClassification, len(history))
	copy(out, history)
	return out, nil
}

func cloneConversation(conv *Conversation) Conversation {
	out := *conv
	out.Messages = make([]Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	if conv.EndedAt != nil {
		ended := *conv.EndedAt
		out.EndedAt = &ended
	}
	return out
}
