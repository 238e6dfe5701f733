package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Channel is the closed set of delivery channels. Configuring anything else
// fails at startup, not silently at runtime.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Sender delivers one notification on one channel. Failures are reported to
// the dispatcher but never propagate into the consuming transaction.
type Sender interface {
	Send(ctx context.Context, recipient, templateKey string, data map[string]string) error
}

// NewSenders builds one sender per configured channel. An unknown channel
// name is a configuration error.
func NewSenders(channels []string, logger *zap.Logger) (map[Channel]Sender, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one notification channel must be configured")
	}
	senders := make(map[Channel]Sender, len(channels))
	for _, name := range channels {
		switch Channel(name) {
		case ChannelEmail:
			senders[ChannelEmail] = &emailSender{logger: logger.With(zap.String("channel", "email"))}
		case ChannelSMS:
			senders[ChannelSMS] = &smsSender{logger: logger.With(zap.String("channel", "sms"))}
		default:
			return nil, fmt.Errorf("unknown notification channel %q", name)
		}
	}
	return senders, nil
}

// emailSender stands in for the real mail gateway; only the boundary
// contract (recipient, template key, data) matters to the core.
type emailSender struct {
	logger *zap.Logger
}

func (s *emailSender) Send(_ context.Context, recipient, templateKey string, data map[string]string) error {
	s.logger.Info("Email notification sent",
		zap.String("recipient", recipient),
		zap.String("template", templateKey),
		zap.Any("data", data))
	return nil
}

type smsSender struct {
	logger *zap.Logger
}

func (s *smsSender) Send(_ context.Context, recipient, templateKey string, data map[string]string) error {
	s.logger.Info("SMS notification sent",
		zap.String("recipient", recipient),
		zap.String("template", templateKey),
		zap.Any("data", data))
	return nil
}
