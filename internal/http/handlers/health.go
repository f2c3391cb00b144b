package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/agencysite/internal/db"
	"github.com/gin-gonic/gin"
)

// GatewayStatus is the part of the persistence gateway the health endpoints read.
type GatewayStatus interface {
	Status() db.Status
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	gw GatewayStatus
}

func NewHealthHandler(gw GatewayStatus) *HealthHandler {
	return &HealthHandler{gw: gw}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports ready only while the gateway holds a live pool.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.gw == nil || !h.gw.Status().Connected {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.gw.Ping(cctx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) DBStatus(ctx *gin.Context) {
	if h.gw == nil {
		RespondUnavailable(ctx, "Database gateway not configured")
		return
	}
	ctx.JSON(http.StatusOK, h.gw.Status())
}
