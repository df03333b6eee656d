package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix = "decoy_transcript:"
	transcriptTTL       = 72 * time.Hour
)

// TranscriptMessage is one entry in the live transcript mirror.
type TranscriptMessage struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore keeps a capped, ephemeral per-conversation transcript in
// Redis so operators can watch live decoy exchanges without hitting the
// durable store.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

// NewTranscriptStore creates a transcript store, or nil when Redis is absent.
func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("decoynet.internal.store.transcript"),
		maxMessages: 250,
	}
}

// Append adds a message to the conversation's transcript list, refreshing the
// TTL and trimming to the cap in one pipeline.
func (s *TranscriptStore) Append(ctx context.Context, conversationID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if conversationID == "" {
		return errors.New("store: transcript conversationID required")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("store: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "store.transcript.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: append transcript message: %w", err)
	}
	return nil
}

// List returns up to limit most recent transcript messages, oldest first.
func (s *TranscriptStore) List(ctx context.Context, conversationID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 || limit > s.maxMessages {
		limit = s.maxMessages
	}

	ctx, span := s.tracer.Start(ctx, "store.transcript.list")
	defer span.End()

	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), -limit, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: list transcript messages: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}
