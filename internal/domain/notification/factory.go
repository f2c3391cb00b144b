package notification

import (
	"time"

	"github.com/google/uuid"
)

func New(fromUserID string, req SendRequest) Notification {
	return Notification{
		ID:         uuid.NewString(),
		ToUserID:   req.ToUserID,
		FromUserID: fromUserID,
		Message:    req.Message,
		Read:       false,
		CreatedAt:  time.Now().UTC(),
	}
}
