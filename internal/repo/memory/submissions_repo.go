package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/agencysite/internal/domain/submission"
)

type SubmissionsRepo struct {
	mu    sync.RWMutex
	items map[string]submission.Submission
}

func NewSubmissionsRepo() *SubmissionsRepo {
	return &SubmissionsRepo{items: make(map[string]submission.Submission)}
}

func (r *SubmissionsRepo) Create(_ context.Context, req submission.CreateRequest) (submission.Submission, error) {
	s := submission.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[s.ID] = s
	r.mu.Unlock()

	return s, nil
}

func (r *SubmissionsRepo) List(_ context.Context, filter submission.ListFilter) ([]submission.Submission, error) {
	r.mu.RLock()
	out := make([]submission.Submission, 0, len(r.items))
	for _, s := range r.items {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (r *SubmissionsRepo) UpdateStatus(_ context.Context, id string, status submission.Status) (submission.Submission, error) {
	if !status.IsValid() {
		return submission.Submission{}, submission.ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}

	s.Status = status
	r.items[id] = s

	return s, nil
}
