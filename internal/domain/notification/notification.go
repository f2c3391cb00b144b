package notification

import (
	"errors"
	"time"
)

// EventNew is the realtime event name emitted into the recipient's room.
const EventNew = "newNotification"

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID         string    `json:"id"`
	ToUserID   string    `json:"toUserId"`
	FromUserID string    `json:"fromUserId"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SendRequest struct {
	ToUserID string `json:"toUserId" binding:"required,uuid"`
	Message  string `json:"message" binding:"required,max=2000"`
}
