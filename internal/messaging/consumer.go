package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ecommerce/internal/correlation"
)

// ConsumerOptions tunes one consumer instance.
type ConsumerOptions struct {
	Brokers []string
	Topic   string
	GroupID string
	// Prefetch caps the number of messages handled concurrently by this
	// instance, so one slow handler cannot starve the rest.
	Prefetch       int
	HandlerTimeout time.Duration
}

// Consumer pulls messages for one topic and runs every message through the
// reliability pipeline before committing its offset.
type Consumer struct {
	reader   *kafka.Reader
	pipeline *Pipeline
	handler  Handler
	offsets  *offsetTracker
	opts     ConsumerOptions
	logger   *zap.Logger
}

func NewConsumer(opts ConsumerOptions, pipeline *Pipeline, handler Handler, l *zap.Logger) *Consumer {
	if opts.Prefetch < 1 {
		opts.Prefetch = 1
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 25 * time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        opts.Brokers,
		Topic:          opts.Topic,
		GroupID:        opts.GroupID,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		ErrorLogger:    kafka.LoggerFunc(l.Sugar().Errorf),
	})
	return &Consumer{
		reader:   reader,
		pipeline: pipeline,
		handler:  handler,
		offsets:  newOffsetTracker(),
		opts:     opts,
		logger:   l,
	}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer starting message consumption",
		zap.String("topic", c.opts.Topic),
		zap.String("group_id", c.opts.GroupID),
		zap.Int("prefetch", c.opts.Prefetch))

	sem := make(chan struct{}, c.opts.Prefetch)
	var wg sync.WaitGroup

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, kafka.ErrGroupClosed) {
				c.logger.Info("Consumer stopping.", zap.String("topic", c.opts.Topic))
				wg.Wait()
				return nil
			}
			c.logger.Error("Error fetching message from Kafka",
				zap.String("topic", c.opts.Topic), zap.Error(err))
			time.Sleep(1 * time.Second)
			continue
		}

		c.offsets.track(m)

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil
		}

		wg.Add(1)
		go func(m kafka.Message) {
			defer wg.Done()
			defer func() { <-sem }()
			c.process(ctx, m)
		}(m)
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	msg := FromKafkaMessage(m)

	handleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.HandlerTimeout)
	defer cancel()
	handleCtx, _ = correlation.Ensure(correlation.WithID(handleCtx, msg.CorrelationID))

	if err := c.pipeline.Dispatch(handleCtx, msg, c.handler); err != nil {
		// No terminal outcome was secured. The offset is never marked
		// complete, which also holds back every later offset in this
		// partition; the broker redelivers them all after a rebalance.
		c.logger.Error("Message left uncommitted for broker redelivery",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		return
	}

	commitMsg, ok := c.offsets.complete(m)
	if !ok {
		// A lower offset in the partition is still in flight; its
		// completion will carry this one in the same commit.
		return
	}
	commitCtx, cancelCommit := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancelCommit()
	if err := c.reader.CommitMessages(commitCtx, commitMsg); err != nil {
		c.logger.Error("Failed to commit offset for message",
			zap.String("topic", commitMsg.Topic),
			zap.Int("partition", commitMsg.Partition),
			zap.Int64("offset", commitMsg.Offset),
			zap.Error(err))
	}
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka consumer", zap.Error(err))
		return fmt.Errorf("failed to close Kafka consumer: %w", err)
	}
	c.logger.Info("Kafka consumer closed.")
	return nil
}
