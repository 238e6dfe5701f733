package deadletter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/messaging"
	"ecommerce/internal/repository/deadletter_repo"
)

type fakeDeadLetterRepo struct {
	records map[string]*domain.DeadLetterMessage
}

func newFakeDeadLetterRepo() *fakeDeadLetterRepo {
	return &fakeDeadLetterRepo{records: make(map[string]*domain.DeadLetterMessage)}
}

func (r *fakeDeadLetterRepo) CreateMessage(_ context.Context, msg *domain.DeadLetterMessage) error {
	r.records[msg.ID] = msg
	return nil
}

func (r *fakeDeadLetterRepo) GetMessageByID(_ context.Context, id string) (*domain.DeadLetterMessage, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, deadletter_repo.ErrDeadLetterNotFound
	}
	return record, nil
}

func (r *fakeDeadLetterRepo) ListMessages(_ context.Context, limit, offset int) ([]*domain.DeadLetterMessage, error) {
	var out []*domain.DeadLetterMessage
	for _, record := range r.records {
		out = append(out, record)
	}
	return out, nil
}

func (r *fakeDeadLetterRepo) MarkReprocessed(_ context.Context, id string) error {
	record, ok := r.records[id]
	if !ok {
		return deadletter_repo.ErrDeadLetterNotFound
	}
	now := time.Now().UTC()
	record.IsReprocessed = true
	record.ReprocessedAt = &now
	return nil
}

func (r *fakeDeadLetterRepo) MarkDiscarded(_ context.Context, id, reason string) error {
	record, ok := r.records[id]
	if !ok {
		return deadletter_repo.ErrDeadLetterNotFound
	}
	now := time.Now().UTC()
	record.IsDiscarded = true
	record.DiscardedAt = &now
	record.DiscardReason = reason
	return nil
}

type fakeProducer struct {
	produced []messaging.Message
	err      error
}

func (p *fakeProducer) Produce(_ context.Context, msg messaging.Message) error {
	if p.err != nil {
		return p.err
	}
	p.produced = append(p.produced, msg)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func TestCaptureSnapshotsFailure(t *testing.T) {
	repo := newFakeDeadLetterRepo()
	svc := NewDeadLetterService(repo, &fakeProducer{}, zap.NewNop())

	msg := messaging.Message{
		ID:            "msg-1",
		Type:          "OrderCreatedEvent",
		Topic:         "order-created",
		CorrelationID: "corr-1",
		Body:          []byte(`{"order_id":"order-1"}`),
		Headers:       map[string]string{"message_type": "OrderCreatedEvent"},
	}
	first := time.Now().UTC().Add(-time.Hour)
	last := time.Now().UTC()
	failure := messaging.Failure{
		Reason:         "retry and redelivery attempts exhausted",
		Err:            errors.New("handler blew up"),
		RetryCount:     11,
		FirstAttemptAt: first,
		LastAttemptAt:  last,
	}

	require.NoError(t, svc.Capture(context.Background(), msg, failure))

	records, err := svc.List(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "msg-1", record.MessageID)
	assert.Equal(t, "order-created", record.SourceTopic)
	assert.Equal(t, msg.Body, record.Body)
	assert.Equal(t, "handler blew up", record.ExceptionDetail)
	assert.Equal(t, 11, record.RetryCount)
	assert.Equal(t, first, record.FirstAttemptAt)
	assert.Equal(t, "corr-1", record.CorrelationID)
	assert.False(t, record.IsReprocessed)
	assert.False(t, record.IsDiscarded)
}

func capturedRecord(t *testing.T, repo *fakeDeadLetterRepo, svc DeadLetterService) *domain.DeadLetterMessage {
	t.Helper()
	msg := messaging.Message{
		ID:    "msg-1",
		Type:  "OrderCreatedEvent",
		Topic: "order-created",
		Body:  []byte(`{}`),
	}
	require.NoError(t, svc.Capture(context.Background(), msg, messaging.Failure{Reason: "boom"}))
	for _, record := range repo.records {
		return record
	}
	t.Fatal("no record captured")
	return nil
}

func TestReprocessRepublishesOriginalMessage(t *testing.T) {
	repo := newFakeDeadLetterRepo()
	producer := &fakeProducer{}
	svc := NewDeadLetterService(repo, producer, zap.NewNop())
	record := capturedRecord(t, repo, svc)

	require.NoError(t, svc.Reprocess(context.Background(), record.ID))

	require.Len(t, producer.produced, 1)
	assert.Equal(t, "order-created", producer.produced[0].Topic)
	assert.Equal(t, record.Body, producer.produced[0].Body)
	assert.True(t, record.IsReprocessed)
	require.NotNil(t, record.ReprocessedAt)
}

func TestReprocessRefusesDiscardedRecord(t *testing.T) {
	repo := newFakeDeadLetterRepo()
	producer := &fakeProducer{}
	svc := NewDeadLetterService(repo, producer, zap.NewNop())
	record := capturedRecord(t, repo, svc)

	require.NoError(t, svc.Discard(context.Background(), record.ID, "not worth replaying"))

	err := svc.Reprocess(context.Background(), record.ID)
	assert.ErrorIs(t, err, ErrAlreadyDiscarded)
	assert.Empty(t, producer.produced)
}

func TestReprocessNotMarkedWhenPublishFails(t *testing.T) {
	repo := newFakeDeadLetterRepo()
	producer := &fakeProducer{err: errors.New("broker down")}
	svc := NewDeadLetterService(repo, producer, zap.NewNop())
	record := capturedRecord(t, repo, svc)

	require.Error(t, svc.Reprocess(context.Background(), record.ID))
	assert.False(t, record.IsReprocessed)
}

func TestDiscardRequiresReason(t *testing.T) {
	repo := newFakeDeadLetterRepo()
	svc := NewDeadLetterService(repo, &fakeProducer{}, zap.NewNop())
	record := capturedRecord(t, repo, svc)

	assert.Error(t, svc.Discard(context.Background(), record.ID, ""))
	assert.False(t, record.IsDiscarded)

	require.NoError(t, svc.Discard(context.Background(), record.ID, "poison message"))
	assert.True(t, record.IsDiscarded)
	assert.Equal(t, "poison message", record.DiscardReason)
}

func TestGetUnknownRecord(t *testing.T) {
	svc := NewDeadLetterService(newFakeDeadLetterRepo(), &fakeProducer{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
