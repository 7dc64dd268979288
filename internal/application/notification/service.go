package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
)

// Notifier is the outbound notification contract consumed by the lifecycle
// services. Fire-and-forget: implementations must never block the caller on
// delivery nor surface delivery failures.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, typ domainNotification.Type, message, relatedType string, relatedID uuid.UUID)
}

// Service persists notifications and pushes them to the sink asynchronously.
type Service struct {
	repo   domainNotification.Repository
	sink   domainNotification.Sink
	logger zerolog.Logger
}

// NewService creates a notification service.
func NewService(repo domainNotification.Repository, sink domainNotification.Sink, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		sink:   sink,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

// Notify records the event and dispatches it in the background. The record
// write is best effort too: a failed write is logged and the caller's state
// transition stands.
func (s *Service) Notify(ctx context.Context, recipientID uuid.UUID, typ domainNotification.Type, message, relatedType string, relatedID uuid.UUID) {
	n := domainNotification.New(recipientID, typ, message, relatedType, relatedID)
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error().Err(err).
			Str("recipient_id", recipientID.String()).
			Str("type", string(typ)).
			Msg("failed to persist notification")
		return
	}
	// Detached from the request context so an aborted request does not
	// cancel delivery.
	go func() {
		if err := s.sink.Deliver(context.WithoutCancel(ctx), n); err != nil {
			s.logger.Warn().Err(err).
				Str("notification_id", n.NotificationID.String()).
				Msg("notification delivery failed")
		}
	}()
}

// ListForRecipient returns a user's notifications.
func (s *Service) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*domainNotification.Notification, error) {
	return s.repo.ListForRecipient(ctx, recipientID, unreadOnly, limit, offset)
}

// MarkRead marks one of the recipient's notifications as read.
func (s *Service) MarkRead(ctx context.Context, notificationID, recipientID uuid.UUID) error {
	return s.repo.MarkRead(ctx, notificationID, recipientID)
}

// LogSink is a sink that only logs; the default when no push transport is
// configured.
type LogSink struct {
	Logger zerolog.Logger
}

func (l *LogSink) Deliver(_ context.Context, n *domainNotification.Notification) error {
	l.Logger.Info().
		Str("notification_id", n.NotificationID.String()).
		Str("recipient_id", n.RecipientID.String()).
		Str("type", string(n.Type)).
		Msg(n.Message)
	return nil
}
