package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgresStore persists conversations, messages and derived analytics records
// to PostgreSQL for long-term history.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store around an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	if db == nil {
		return nil
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateConversation(ctx context.Context, profileID, attackerID, scamType string) (Conversation, error) {
	conv := Conversation{
		ID:         uuid.NewString(),
		ProfileID:  profileID,
		AttackerID: attackerID,
		ScamType:   scamType,
		Status:     StatusActive,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, profile_id, attacker_id, scam_type, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, conv.ProfileID, conv.AttackerID, nullableString(conv.ScamType), conv.Status, conv.StartedAt)
	if err != nil {
		return Conversation{}, fmt.Errorf("store: create conversation: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) EndConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = $1, ended_at = $2
		WHERE id = $3 AND status <> $1`,
		StatusEnded, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: end conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: end conversation: %w", err)
	}
	if affected == 0 {
		// Either missing or already ended; distinguish with a lookup.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("store: end conversation: %w", err)
		}
		if !exists {
			return ErrConversationNotFound
		}
	}
	return nil
}

func (s *PostgresStore) AddMessage(ctx context.Context, conversationID string, sender Sender, text string) (Message, error) {
	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		SentAt:         time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender, body, sent_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ConversationID, msg.Sender, msg.Text, msg.SentAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Message{}, ErrConversationNotFound
		}
		return Message{}, fmt.Errorf("store: add message: %w", err)
	}
	return msg, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (Conversation, error) {
	var (
		conv     Conversation
		scamType sql.NullString
		endedAt  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, attacker_id, scam_type, status, started_at, ended_at
		FROM conversations WHERE id = $1`, id).Scan(
		&conv.ID, &conv.ProfileID, &conv.AttackerID, &scamType, &conv.Status, &conv.StartedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("store: get conversation: %w", err)
	}
	conv.ScamType = scamType.String
	if endedAt.Valid {
		ended := endedAt.Time
		conv.EndedAt = &ended
	}

	conv.Messages, err = s.messagesFor(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (s *PostgresStore) ConversationsForProfile(ctx context.Context, profileID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, attacker_id, scam_type, status, started_at, ended_at
		FROM conversations WHERE profile_id = $1 ORDER BY started_at`, profileID)
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		var (
			conv     Conversation
			scamType sql.NullString
			endedAt  sql.NullTime
		)
		if err := rows.Scan(&conv.ID, &conv.ProfileID, &conv.AttackerID, &scamType,
			&conv.Status, &conv.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("store: list conversations: %w", err)
		}
		conv.ScamType = scamType.String
		if endedAt.Valid {
			ended := endedAt.Time
			conv.EndedAt = &ended
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}

	for i := range out {
		out[i].Messages, err = s.messagesFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) SaveEngagementMetrics(ctx context.Context, metric EngagementMetric) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engagement_metrics (
			conversation_id, response_time_avg, response_time_min, response_time_max,
			message_length_avg, message_length_total, message_count, sentiment_avg, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (conversation_id) DO UPDATE SET
			response_time_avg = EXCLUDED.response_time_avg,
			response_time_min = EXCLUDED.response_time_min,
			response_time_max = EXCLUDED.response_time_max,
			message_length_avg = EXCLUDED.message_length_avg,
			message_length_total = EXCLUDED.message_length_total,
			message_count = EXCLUDED.message_count,
			sentiment_avg = EXCLUDED.sentiment_avg,
			computed_at = EXCLUDED.computed_at`,
		metric.ConversationID, metric.ResponseTimeAvg, metric.ResponseTimeMin, metric.ResponseTimeMax,
		metric.MessageLengthAvg, metric.MessageLengthTotal, metric.MessageCount, metric.SentimentAvg,
		time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("store: save engagement metrics: %w", err)
	}
	return nil
}

func (s *PostgresStore) EngagementMetrics(ctx context.Context, conversationID string) (EngagementMetric, error) {
	var metric EngagementMetric
	err := s.db.QueryRowContext(ctx, `
		SELECT conversation_id, response_time_avg, response_time_min, response_time_max,
		       message_length_avg, message_length_total, message_count, sentiment_avg
		FROM engagement_metrics WHERE conversation_id = $1`, conversationID).Scan(
		&metric.ConversationID, &metric.ResponseTimeAvg, &metric.ResponseTimeMin, &metric.ResponseTimeMax,
		&metric.MessageLengthAvg, &metric.MessageLengthTotal, &metric.MessageCount, &metric.SentimentAvg)
	if errors.Is(err, sql.ErrNoRows) {
		return EngagementMetric{}, ErrConversationNotFound
	}
	if err != nil {
		return EngagementMetric{}, fmt.Errorf("store: get engagement metrics: %w", err)
	}
	return metric, nil
}

func (s *PostgresStore) SaveAttackClassification(ctx context.Context, c AttackClassification) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ClassifiedAt.IsZero() {
		c.ClassifiedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attack_classifications (id, conversation_id, attack_type, confidence, techniques, severity, classified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.ConversationID, c.AttackType, c.Confidence, pq.Array(c.Techniques), c.Severity, c.ClassifiedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("store: save attack classification: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttackClassifications(ctx context.Context, conversationID string) ([]AttackClassification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, attack_type, confidence, techniques, severity, classified_at
		FROM attack_classifications WHERE conversation_id = $1
		ORDER BY classified_at DESC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: list attack classifications: %w", err)
	}
	defer rows.Close()

	out := []AttackClassification{}
	for rows.Next() {
		var c AttackClassification
		if err := rows.Scan(&c.ID, &c.ConversationID, &c.AttackType, &c.Confidence,
			pq.Array(&c.Techniques), &c.Severity, &c.ClassifiedAt); err != nil {
			return nil, fmt.Errorf("store: list attack classifications: %w", err)
		}
		if c.Techniques == nil {
			c.Techniques = []string{}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) messagesFor(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, body, sent_at
		FROM messages WHERE conversation_id = $1 ORDER BY sent_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Text, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("store: list messages: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// isForeignKeyViolation matches error 23503 from either the pgx stdlib driver
// or lib/pq, depending on which opened the handle.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}
