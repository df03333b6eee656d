package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresCreateConversation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO conversations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	conv, err := store.CreateConversation(context.Background(), "p1", "a1", "phishing")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, StatusActive, conv.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEndConversation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE conversations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.EndConversation(context.Background(), "conv-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEndConversationMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE conversations SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := store.EndConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEndConversationAlreadyEnded(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE conversations SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	assert.NoError(t, store.EndConversation(context.Background(), "conv-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddMessage(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := store.AddMessage(context.Background(), "conv-1", SenderPersona, "hello")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, SenderPersona, msg.Sender)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddMessageMissingConversation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO messages").
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := store.AddMessage(context.Background(), "missing", SenderAttacker, "x")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetConversation(t *testing.T) {
	store, mock := newMockStore(t)

	startedAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	endedAt := startedAt.Add(time.Hour)
	mock.ExpectQuery("SELECT id, profile_id, attacker_id, scam_type, status, started_at, ended_at").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "profile_id", "attacker_id", "scam_type", "status", "started_at", "ended_at"}).
			AddRow("conv-1", "p1", "a1", nil, "ended", startedAt, endedAt))
	mock.ExpectQuery("SELECT id, conversation_id, sender, body, sent_at").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender", "body", "sent_at"}).
			AddRow("m1", "conv-1", "attacker", "hi", startedAt).
			AddRow("m2", "conv-1", "persona", "hello", startedAt.Add(5*time.Second)))

	conv, err := store.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, conv.Status)
	require.NotNil(t, conv.Duration())
	assert.Equal(t, 3600.0, *conv.Duration())
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, SenderAttacker, conv.Messages[0].Sender)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetConversationMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, profile_id, attacker_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestPostgresSaveEngagementMetricsUpsert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO engagement_metrics").
		WillReturnResult(sqlmock.NewResult(0, 1))

	avg := 5.0
	metric := EngagementMetric{
		ConversationID:  "conv-1",
		ResponseTimeAvg: &avg,
		MessageCount:    2,
	}
	assert.NoError(t, store.SaveEngagementMetrics(context.Background(), metric))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveAttackClassification(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO attack_classifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveAttackClassification(context.Background(), AttackClassification{
		ConversationID: "conv-1",
		AttackType:     "phishing",
		Confidence:     0.5,
		Techniques:     []string{"verify", "account"},
		Severity:       SeverityMedium,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAttackClassifications(t *testing.T) {
	store, mock := newMockStore(t)

	classifiedAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, conversation_id, attack_type, confidence, techniques, severity, classified_at").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "attack_type", "confidence", "techniques", "severity", "classified_at"}).
			AddRow("c2", "conv-1", "phishing", 0.5, "{verify}", "medium", classifiedAt.Add(time.Minute)).
			AddRow("c1", "conv-1", "unknown", 0.0, "{}", "low", classifiedAt))

	history, err := store.AttackClassifications(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c2", history[0].ID)
	assert.Equal(t, []string{"verify"}, history[0].Techniques)
	assert.NotNil(t, history[1].Techniques)
	assert.NoError(t, mock.ExpectationsWereMet())
}
