package store

import (
	"context"
	"errors"
)

// ErrConversationNotFound is returned when an operation references a
// conversation that does not exist. It is terminal and never retried.
var ErrConversationNotFound = errors.New("store: conversation not found")

// Storage is the durable collaborator consumed by the ingest pipeline and the
// analytics surface. Implementations guarantee nothing beyond last-write-wins.
type Storage interface {
	CreateConversation(ctx context.Context, profileID, attackerID, scamType string) (Conversation, error)
	EndConversation(ctx context.Context, id string) error
	AddMessage(ctx context.Context, conversationID string, sender Sender, text string) (Message, error)
	GetConversation(ctx context.Context, id string) (Conversation, error)
	ConversationsForProfile(ctx context.Context, profileID string) ([]Conversation, error)
	SaveEngagementMetrics(ctx context.Context, metric EngagementMetric) error
	EngagementMetrics(ctx context.Context, conversationID string) (EngagementMetric, error)
	SaveAttackClassification(ctx context.Context, c AttackClassification) error
	AttackClassifications(ctx context.Context, conversationID string) ([]AttackClassification, error)
}
