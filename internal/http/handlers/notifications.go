package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/agencysite/internal/domain/notification"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/http/middlewares"
	"github.com/geocoder89/agencysite/internal/notifications"
	"github.com/geocoder89/agencysite/internal/realtime"
	"github.com/gin-gonic/gin"
)

type NotificationsService interface {
	Send(ctx context.Context, pub realtime.Publisher, fromUserID string, req notification.SendRequest) (notification.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (notification.Notification, error)
}

type NotificationsHandler struct {
	svc NotificationsService
}

func NewNotificationsHandler(svc NotificationsService) *NotificationsHandler {
	return &NotificationsHandler{svc: svc}
}

// Send stores a notification from the authenticated user and pushes it to
// the recipient's realtime room.
func (h *NotificationsHandler) Send(ctx *gin.Context) {
	from, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req notification.SendRequest

	if !BindJSON(ctx, &req) {
		return
	}

	n, err := h.svc.Send(ctx.Request.Context(), middlewares.PublisherFromContext(ctx), from, req)
	if err != nil {
		if errors.Is(err, notifications.ErrRecipientNotFound) {
			RespondNotFound(ctx, "Recipient not found")
			return
		}
		RespondInternal(ctx, "Could not send notification")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":      true,
		"notification": n,
	})
}

func (h *NotificationsHandler) ListForUser(ctx *gin.Context) {
	caller, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	target := ctx.Param("userId")
	role, _ := middlewares.RoleFromContext(ctx)

	if target != caller && role != user.RoleAdmin {
		RespondForbidden(ctx, "You can only read your own notifications")
		return
	}

	items, err := h.svc.ListForUser(ctx.Request.Context(), target)
	if err != nil {
		RespondInternal(ctx, "Could not list notifications")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *NotificationsHandler) MarkRead(ctx *gin.Context) {
	caller, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	n, err := h.svc.MarkRead(ctx.Request.Context(), ctx.Param("id"), caller)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			RespondNotFound(ctx, "Notification not found")
			return
		}
		RespondInternal(ctx, "Could not update notification")
		return
	}

	ctx.JSON(http.StatusOK, n)
}
