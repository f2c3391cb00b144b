package blog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateRequest) Blog {
	return Blog{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		ImageURL:  strings.TrimSpace(req.ImageURL),
		CreatedAt: time.Now().UTC(),
	}
}
