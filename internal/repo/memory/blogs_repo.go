package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/agencysite/internal/domain/blog"
)

type BlogsRepo struct {
	mu    sync.RWMutex
	items map[string]blog.Blog
}

func NewBlogsRepo() *BlogsRepo {
	return &BlogsRepo{items: make(map[string]blog.Blog)}
}

func (r *BlogsRepo) Create(_ context.Context, req blog.CreateRequest) (blog.Blog, error) {
	b := blog.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[b.ID] = b
	r.mu.Unlock()

	return b, nil
}

func (r *BlogsRepo) GetByID(_ context.Context, id string) (blog.Blog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.items[id]
	if !ok {
		return blog.Blog{}, blog.ErrNotFound
	}
	return b, nil
}

// ListPage mirrors the keyset ordering of the postgres repo:
// created_at DESC, id DESC.
func (r *BlogsRepo) ListPage(_ context.Context, page blog.Page) ([]blog.Blog, bool, error) {
	r.mu.RLock()
	all := make([]blog.Blog, 0, len(r.items))
	for _, b := range r.items {
		all = append(all, b)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	out := make([]blog.Blog, 0, page.Limit)
	for _, b := range all {
		if !page.AfterCreatedAt.IsZero() {
			older := b.CreatedAt.Before(page.AfterCreatedAt)
			sameTimeLowerID := b.CreatedAt.Equal(page.AfterCreatedAt) && b.ID < page.AfterID
			if !older && !sameTimeLowerID {
				continue
			}
		}
		out = append(out, b)
		if len(out) == page.Limit+1 {
			break
		}
	}

	hasMore := len(out) > page.Limit
	if hasMore {
		out = out[:page.Limit]
	}

	return out, hasMore, nil
}
