package blog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("blog not found")

type Blog struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"date"`
}

type CreateRequest struct {
	Title    string `json:"title" binding:"required,min=3,max=200"`
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"imageUrl" binding:"omitempty,url,max=2048"`
}

// Page is one keyset page, newest first. A zero After means the first page.
type Page struct {
	Limit          int
	AfterCreatedAt time.Time
	AfterID        string
}
