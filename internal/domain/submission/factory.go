package submission

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest builds a Pending submission from the contact form.
func NewFromCreateRequest(req CreateRequest) Submission {
	return Submission{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   req.Message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}
