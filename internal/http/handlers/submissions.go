package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/agencysite/internal/domain/submission"
	"github.com/gin-gonic/gin"
)

type SubmissionsStore interface {
	Create(ctx context.Context, req submission.CreateRequest) (submission.Submission, error)
	List(ctx context.Context, filter submission.ListFilter) ([]submission.Submission, error)
	UpdateStatus(ctx context.Context, id string, status submission.Status) (submission.Submission, error)
}

type SubmissionsHandler struct {
	repo SubmissionsStore
}

func NewSubmissionsHandler(repo SubmissionsStore) *SubmissionsHandler {
	return &SubmissionsHandler{repo: repo}
}

func (h *SubmissionsHandler) Submit(ctx *gin.Context) {
	var req submission.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	s, err := h.repo.Create(ctx.Request.Context(), req)
	if err != nil {
		RespondInternal(ctx, "Could not save submission")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Form submitted successfully",
		"submission": s,
	})
}

func (h *SubmissionsHandler) List(ctx *gin.Context) {
	var filter submission.ListFilter

	if raw := ctx.Query("status"); raw != "" {
		status := submission.Status(raw)
		if !status.IsValid() {
			RespondBadRequest(ctx, "Invalid status filter", gin.H{"status": "must be one of Pending, Completed"})
			return
		}
		filter.Status = &status
	}

	items, err := h.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		RespondInternal(ctx, "Could not list submissions")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *SubmissionsHandler) UpdateStatus(ctx *gin.Context) {
	var req submission.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	s, err := h.repo.UpdateStatus(ctx.Request.Context(), ctx.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrNotFound):
			RespondNotFound(ctx, "Submission not found")
		case errors.Is(err, submission.ErrInvalidStatus):
			RespondBadRequest(ctx, "Invalid status", nil)
		default:
			RespondInternal(ctx, "Could not update submission")
		}
		return
	}

	ctx.JSON(http.StatusOK, s)
}
