package analytics

import (
	"context"
	"fmt"

	"github.com/decoynet/decoy-chat-platform/internal/engagement"
	"github.com/decoynet/decoy-chat-platform/internal/store"
	"github.com/decoynet/decoy-chat-platform/pkg/logging"
)

// Service exposes the analytics surface over the storage collaborator. It
// holds no derived state: every call recomputes from a fresh snapshot.
type Service struct {
	storage    store.Storage
	transcript *store.TranscriptStore
	logger     *logging.Logger
}

// NewService creates an analytics service. The transcript store is optional.
func NewService(storage store.Storage, transcript *store.TranscriptStore, logger *logging.Logger) *Service {
	if storage == nil {
		panic("analytics: storage cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{storage: storage, transcript: transcript, logger: logger}
}

// Classify recomputes the attack classification for a conversation and
// appends it to the stored history as the new current record.
func (s *Service) Classify(ctx context.Context, conversationID string) (store.AttackClassification, error) {
	conv, err := s.storage.GetConversation(ctx, conversationID)
	if err != nil {
		return store.AttackClassification{}, err
	}

	classification := engagement.ClassifyConversation(conv)
	if err := s.storage.SaveAttackClassification(ctx, classification); err != nil {
		return store.AttackClassification{}, fmt.Errorf("analytics: save classification: %w", err)
	}
	return classification, nil
}

// ClassificationHistory returns stored classifications, newest first.
func (s *Service) ClassificationHistory(ctx context.Context, conversationID string) ([]store.AttackClassification, error) {
	if _, err := s.storage.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.storage.AttackClassifications(ctx, conversationID)
}

// Summary recomputes engagement metrics and attack analysis for one
// conversation, persisting the refreshed metric record (last write wins).
func (s *Service) Summary(ctx context.Context, conversationID string) (ConversationSummary, error) {
	conv, err := s.storage.GetConversation(ctx, conversationID)
	if err != nil {
		return ConversationSummary{}, err
	}

	metric := engagement.Metrics(conv)
	if err := s.storage.SaveEngagementMetrics(ctx, metric); err != nil {
		// The summary itself is derived from the snapshot; a stale stored
		// record only affects later readers.
		s.logger.Warn("failed to persist engagement metrics", "error", err, "conversation_id", conversationID)
	}
	return Summarize(conv), nil
}

// HighRisk returns the profile's conversations whose classification reached
// high or critical severity, most confident first.
func (s *Service) HighRisk(ctx context.Context, profileID string) ([]HighRiskConversation, error) {
	conversations, err := s.storage.ConversationsForProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return HighRiskConversations(conversations), nil
}

// ProfileEffectiveness computes the bait effectiveness score for a profile.
func (s *Service) ProfileEffectiveness(ctx context.Context, profileID string) (BaitEffectiveness, error) {
	conversations, err := s.storage.ConversationsForProfile(ctx, profileID)
	if err != nil {
		return BaitEffectiveness{}, err
	}
	return Effectiveness(profileID, conversations), nil
}

// BuildReport assembles the cross-profile report for the given profiles.
func (s *Service) BuildReport(ctx context.Context, profileIDs []string) (Report, error) {
	profileConversations := make(map[string][]store.Conversation, len(profileIDs))
	for _, profileID := range profileIDs {
		conversations, err := s.storage.ConversationsForProfile(ctx, profileID)
		if err != nil {
			return Report{}, err
		}
		profileConversations[profileID] = conversations
	}
	return GenerateReport(profileConversations), nil
}

// AnalyzeBatch recomputes and stores metrics and classification for a batch
// of conversations. Used as the batcher callback; failures are logged and
// counted by the caller, never propagated.
func (s *Service) AnalyzeBatch(conversationIDs []string) {
	ctx := context.Background()
	for _, conversationID := range conversationIDs {
		conv, err := s.storage.GetConversation(ctx, conversationID)
		if err != nil {
			s.logger.Warn("batch analysis skipped conversation", "error", err, "conversation_id", conversationID)
			continue
		}
		if err := s.storage.SaveEngagementMetrics(ctx, engagement.Metrics(conv)); err != nil {
			s.logger.Warn("batch analysis failed to save metrics", "error", err, "conversation_id", conversationID)
		}
		if err := s.storage.SaveAttackClassification(ctx, engagement.ClassifyConversation(conv)); err != nil {
			s.logger.Warn("batch analysis failed to save classification", "error", err, "conversation_id", conversationID)
		}
	}
}

// Transcript returns the live transcript mirror for a conversation, when a
// transcript store is configured.
func (s *Service) Transcript(ctx context.Context, conversationID string, limit int64) ([]store.TranscriptMessage, error) {
	if s.transcript == nil {
		return nil, nil
	}
	return s.transcript.List(ctx, conversationID, limit)
}
