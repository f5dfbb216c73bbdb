package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender logs messages instead of delivering them. Used when no email
// provider is configured.
type NoopSender struct {
	Log *slog.Logger
}

func (s NoopSender) Send(_ context.Context, msg Message) (Result, error) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("email not sent; no provider configured", slog.Any("to", msg.To), slog.String("subject", msg.Subject))

	now := time.Now()
	return Result{ID: fmt.Sprintf("noop-%d", now.UnixNano()), SentAt: now}, nil
}
