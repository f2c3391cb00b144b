package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/agencysite/internal/domain/notification"
)

type NotificationsRepo struct {
	mu    sync.RWMutex
	items map[string]notification.Notification
}

func NewNotificationsRepo() *NotificationsRepo {
	return &NotificationsRepo{items: make(map[string]notification.Notification)}
}

func (r *NotificationsRepo) Create(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	r.items[n.ID] = n
	r.mu.Unlock()
	return nil
}

func (r *NotificationsRepo) ListForUser(_ context.Context, userID string) ([]notification.Notification, error) {
	r.mu.RLock()
	out := make([]notification.Notification, 0)
	for _, n := range r.items {
		if n.ToUserID == userID {
			out = append(out, n)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (r *NotificationsRepo) MarkRead(_ context.Context, id, recipientID string) (notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || n.ToUserID != recipientID {
		return notification.Notification{}, notification.ErrNotFound
	}

	n.Read = true
	r.items[id] = n

	return n, nil
}

// Len is a test helper.
func (r *NotificationsRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
