package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
)

// The claim is one atomic statement: candidate rows flip to PROCESSING
// before any other replica's poller can select them, so two pollers can
// never pick up the same row.
func TestClaimPendingMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db, zap.NewNop())

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)UPDATE outbox_messages SET status = \$1, claimed_at = \$2.*FOR UPDATE SKIP LOCKED.*RETURNING`).
		WithArgs(domain.OutboxStatusProcessing, sqlmock.AnyArg(), domain.OutboxStatusPending, sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "aggregate_id", "message_type", "topic", "correlation_id", "payload", "status", "created_at", "sent_at"}).
			AddRow("msg-1", "order-1", "OrderCreatedEvent", "order-created", "corr-1", []byte(`{}`), domain.OutboxStatusProcessing, now, nil))

	messages, err := repo.ClaimPendingMessages(context.Background(), 100)
	require.NoError(t, err)

	require.Len(t, messages, 1)
	assert.Equal(t, "msg-1", messages[0].ID)
	assert.Equal(t, "order-created", messages[0].Topic)
	assert.Nil(t, messages[0].SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMessageSentGuardsOnProcessingStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db, zap.NewNop())

	mock.ExpectExec(`UPDATE outbox_messages SET status = \$1, sent_at = \$2`).
		WithArgs(domain.OutboxStatusSent, sqlmock.AnyArg(), "msg-1", domain.OutboxStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkMessageSent(context.Background(), "msg-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkMessageSentAlreadySentIsNotAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db, zap.NewNop())

	mock.ExpectExec(`UPDATE outbox_messages SET status = \$1, sent_at = \$2`).
		WithArgs(domain.OutboxStatusSent, sqlmock.AnyArg(), "msg-1", domain.OutboxStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.MarkMessageSent(context.Background(), "msg-1"))
}

func TestReleaseMessagePutsClaimBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db, zap.NewNop())

	mock.ExpectExec(`UPDATE outbox_messages SET status = \$1, claimed_at = NULL`).
		WithArgs(domain.OutboxStatusPending, "msg-1", domain.OutboxStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReleaseMessage(context.Background(), "msg-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
