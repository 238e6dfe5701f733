package messaging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecommerce/internal/metrics"
)

// Handler processes one inbound message. Returning nil acknowledges the
// message; any error is treated as a transient failure and goes through the
// retry/redelivery/dead-letter ladder.
type Handler func(ctx context.Context, msg Message) error

// RetryPolicy bounds the immediate in-process retries of a handler.
// Attempt n sleeps BaseInterval * 2^(n-1) before running, so the defaults
// give base, 2x, 4x spacing.
type RetryPolicy struct {
	MaxAttempts  int
	BaseInterval time.Duration
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	return p.BaseInterval << uint(attempt-1)
}

// RedeliveryScheduler parks a message for delayed redelivery to its original
// topic.
type RedeliveryScheduler interface {
	Schedule(ctx context.Context, msg Message, attempt int, dueAt time.Time) error
}

// Failure describes how a message finally failed.
type Failure struct {
	Reason         string
	Err            error
	RetryCount     int
	FirstAttemptAt time.Time
	LastAttemptAt  time.Time
}

// DeadLetterSink stores messages that exhausted every attempt.
type DeadLetterSink interface {
	Capture(ctx context.Context, msg Message, failure Failure) error
}

// Pipeline is the reliability stage every consumed message passes through:
// immediate retries with exponential backoff, then delayed redelivery per
// the configured schedule, then dead-letter capture. Each message reaches
// exactly one terminal outcome. The pipeline knows nothing about the broker,
// so it is testable in isolation.
type Pipeline struct {
	retry               RetryPolicy
	redeliveryIntervals []time.Duration
	scheduler           RedeliveryScheduler
	deadLetters         DeadLetterSink
	deadLetterEnabled   bool
	logger              *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewPipeline(
	retry RetryPolicy,
	redeliveryIntervals []time.Duration,
	scheduler RedeliveryScheduler,
	deadLetters DeadLetterSink,
	deadLetterEnabled bool,
	logger *zap.Logger,
) *Pipeline {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Pipeline{
		retry:               retry,
		redeliveryIntervals: redeliveryIntervals,
		scheduler:           scheduler,
		deadLetters:         deadLetters,
		deadLetterEnabled:   deadLetterEnabled,
		logger:              logger,
		sleep:               sleepContext,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch runs the handler under the full reliability policy. A nil return
// means the message may be acknowledged: it was either handled, parked for
// redelivery, or dead-lettered. An error means none of those outcomes could
// be secured and the broker should redeliver the message itself.
func (p *Pipeline) Dispatch(ctx context.Context, msg Message, handler Handler) error {
	metrics.MessagesConsumed.WithLabelValues(msg.Topic).Inc()

	firstAttemptAt := p.now()
	var lastErr error

	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.retry.backoff(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = handler(ctx, msg)
		if lastErr == nil {
			return nil
		}

		metrics.HandlerFailures.WithLabelValues(msg.Topic).Inc()
		p.logger.Warn("Message handler failed",
			zap.String("topic", msg.Topic),
			zap.String("message_id", msg.ID),
			zap.String("correlation_id", msg.CorrelationID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.retry.MaxAttempts),
			zap.Error(lastErr))
	}

	metrics.RetriesExhausted.WithLabelValues(msg.Topic).Inc()

	if msg.RedeliveryAttempt < len(p.redeliveryIntervals) {
		return p.scheduleRedelivery(ctx, msg, lastErr)
	}
	return p.deadLetter(ctx, msg, Failure{
		Reason:         "retry and redelivery attempts exhausted",
		Err:            lastErr,
		RetryCount:     p.retry.MaxAttempts*(msg.RedeliveryAttempt+1) - 1,
		FirstAttemptAt: firstAttemptAt,
		LastAttemptAt:  p.now(),
	})
}

func (p *Pipeline) scheduleRedelivery(ctx context.Context, msg Message, cause error) error {
	attempt := msg.RedeliveryAttempt + 1
	dueAt := p.now().Add(p.redeliveryIntervals[msg.RedeliveryAttempt])

	if err := p.scheduler.Schedule(ctx, msg, attempt, dueAt); err != nil {
		p.logger.Error("Failed to schedule message redelivery",
			zap.String("topic", msg.Topic),
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return fmt.Errorf("failed to schedule redelivery: %w", err)
	}

	metrics.RedeliveriesScheduled.WithLabelValues(msg.Topic).Inc()
	p.logger.Info("Message parked for delayed redelivery",
		zap.String("topic", msg.Topic),
		zap.String("message_id", msg.ID),
		zap.String("correlation_id", msg.CorrelationID),
		zap.Int("redelivery_attempt", attempt),
		zap.Time("due_at", dueAt),
		zap.NamedError("cause", cause))
	return nil
}

func (p *Pipeline) deadLetter(ctx context.Context, msg Message, failure Failure) error {
	if !p.deadLetterEnabled {
		p.logger.Error("Dead letter capture disabled, dropping message",
			zap.String("topic", msg.Topic),
			zap.String("message_id", msg.ID),
			zap.Error(failure.Err))
		return nil
	}

	if err := p.deadLetters.Capture(ctx, msg, failure); err != nil {
		p.logger.Error("Failed to capture dead letter",
			zap.String("topic", msg.Topic),
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return fmt.Errorf("failed to capture dead letter: %w", err)
	}

	metrics.DeadLetters.WithLabelValues(msg.Topic).Inc()
	p.logger.Error("Message dead-lettered",
		zap.String("topic", msg.Topic),
		zap.String("message_id", msg.ID),
		zap.String("correlation_id", msg.CorrelationID),
		zap.Int("retry_count", failure.RetryCount),
		zap.Error(failure.Err))
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
