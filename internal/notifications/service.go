package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/agencysite/internal/domain/notification"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/realtime"
)

var ErrRecipientNotFound = errors.New("recipient not found")

type Store interface {
	Create(ctx context.Context, n notification.Notification) error
	ListForUser(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (notification.Notification, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Service struct {
	store Store
	users UserLookup
	log   *slog.Logger
}

func NewService(store Store, users UserLookup, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, users: users, log: log}
}

// Send stores the notification and then pushes it to the recipient's room.
// The push is best effort: an offline recipient still gets the stored copy.
func (s *Service) Send(ctx context.Context, pub realtime.Publisher, fromUserID string, req notification.SendRequest) (notification.Notification, error) {
	if _, err := s.users.GetByID(ctx, req.ToUserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return notification.Notification{}, ErrRecipientNotFound
		}
		return notification.Notification{}, fmt.Errorf("lookup recipient: %w", err)
	}

	n := notification.New(fromUserID, req)

	if err := s.store.Create(ctx, n); err != nil {
		return notification.Notification{}, fmt.Errorf("store notification: %w", err)
	}

	if pub == nil {
		return n, nil
	}

	delivered := pub.Publish(n.ToUserID, notification.EventNew, n)
	s.log.DebugContext(ctx, "notification published",
		"notification_id", n.ID,
		"to_user_id", n.ToUserID,
		"delivered", delivered,
	)

	return n, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	return s.store.ListForUser(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, recipientID string) (notification.Notification, error) {
	return s.store.MarkRead(ctx, id, recipientID)
}
