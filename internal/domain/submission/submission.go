package submission

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

var (
	ErrNotFound      = errors.New("submission not found")
	ErrInvalidStatus = errors.New("invalid submission status")
)

type Submission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"date"`
}

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

type CreateRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"omitempty,max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=Pending Completed"`
}

type ListFilter struct {
	Status *Status
}
