package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// BlogCursor points at the last blog of a page; the next page starts strictly after it.
type BlogCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeBlogCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(BlogCursor{CreatedAt: createdAt.UTC(), ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeBlogCursor(cursor string) (BlogCursor, error) {
	if cursor == "" {
		return BlogCursor{}, ErrInvalidCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return BlogCursor{}, ErrInvalidCursor
	}

	var c BlogCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return BlogCursor{}, ErrInvalidCursor
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return BlogCursor{}, ErrInvalidCursor
	}
	return c, nil
}
