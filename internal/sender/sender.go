// Package sender flushes approved messages out of the review queue. Actual
// delivery belongs to external channels; this service flags records as sent
// and reports the count, which is what the metrics track.
package sender

import (
	"context"
	"log/slog"

	"herald/internal/campaign/store"
	"herald/internal/config"
	"herald/internal/logging"
	"herald/internal/notifications"
	"herald/internal/services"
)

// Service marks approved messages as sent.
type Service struct {
	store    *store.Store
	notifier notifications.Service
	logger   *slog.Logger
}

// NewService builds a sender backed by the campaign store.
func NewService(cfg *config.Config, st *store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "sender"),
	}
}

// SendApproved dispatches every approved, unsent message for an event and
// returns how many went out. Sending with nothing approved is not an error;
// the count is zero.
func (s *Service) SendApproved(ctx context.Context, event string) (int64, error) {
	if event == "" {
		return 0, services.Wrap(services.ErrValidation, "", "send", "event is required", nil)
	}

	count, err := s.store.MarkApprovedSent(ctx, event)
	if err != nil {
		return 0, err
	}

	s.logger.Info("approved messages sent",
		logging.String(logging.FieldEvent, event),
		logging.Int64("count", count))
	if count > 0 {
		if err := s.notifier.NotifyMessagesSent(ctx, event, count); err != nil {
			s.logger.Warn("send notification not delivered", logging.Error(err))
		}
	}
	return count, nil
}
