package service

import (
	"context"

	"github.com/rs/zerolog"
)

// PushSender delivers a mobile push notification to one device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string) error
}

// NoopPushSender logs instead of delivering, used when no push provider
// is configured.
type NoopPushSender struct {
	logger zerolog.Logger
}

// NewNoopPushSender constructs the logging push sender.
func NewNoopPushSender(logger zerolog.Logger) *NoopPushSender {
	return &NoopPushSender{logger: logger.With().Str("component", "push").Logger()}
}

// Send records the push without delivering it anywhere.
func (s *NoopPushSender) Send(ctx context.Context, token, title, body string) error {
	s.logger.Debug().Str("title", title).Msg("push delivery skipped, no provider configured")
	return nil
}
