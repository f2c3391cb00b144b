package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/geocoder89/agencysite/internal/db"
	"github.com/geocoder89/agencysite/internal/domain/blog"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/jackc/pgx/v5"
)

const blogColumns = `id, title, content, image_url, created_at`

type BlogsRepo struct {
	base
}

func NewBlogsRepo(conn db.DB, prom *observability.Prom) *BlogsRepo {
	return &BlogsRepo{base{conn: conn, prom: prom}}
}

func (r *BlogsRepo) Create(ctx context.Context, req blog.CreateRequest) (blog.Blog, error) {
	b := blog.NewFromCreateRequest(req)

	err := r.observe("blogs.create", func() error {
		_, err := r.conn.Exec(ctx,
			`INSERT INTO blogs (id, title, content, image_url, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			b.ID, b.Title, b.Content, b.ImageURL, b.CreatedAt,
		)
		return err
	})

	if err != nil {
		return blog.Blog{}, err
	}

	return b, nil
}

func (r *BlogsRepo) GetByID(ctx context.Context, id string) (blog.Blog, error) {
	if !validID(id) {
		return blog.Blog{}, blog.ErrNotFound
	}

	var b blog.Blog

	err := r.observe("blogs.get_by_id", func() error {
		row := r.conn.QueryRow(ctx, `SELECT `+blogColumns+` FROM blogs WHERE id = $1`, id)
		return scanBlog(row, &b)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return blog.Blog{}, blog.ErrNotFound
		}
		return blog.Blog{}, err
	}

	return b, nil
}

// ListPage returns one keyset page ordered by (created_at, id) descending.
// It fetches one extra row to report whether another page exists.
func (r *BlogsRepo) ListPage(ctx context.Context, page blog.Page) ([]blog.Blog, bool, error) {
	query := `SELECT ` + blogColumns + ` FROM blogs`
	args := []any{}

	if !page.AfterCreatedAt.IsZero() {
		query += ` WHERE (created_at, id) < ($1, $2)`
		args = append(args, page.AfterCreatedAt, page.AfterID)
	}

	args = append(args, page.Limit+1)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	out := make([]blog.Blog, 0, page.Limit+1)

	err := r.observe("blogs.list_page", func() error {
		rows, err := r.conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var b blog.Blog
			if err := scanBlog(rows, &b); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, false, err
	}

	hasMore := len(out) > page.Limit
	if hasMore {
		out = out[:page.Limit]
	}

	return out, hasMore, nil
}

func scanBlog(row pgx.Row, b *blog.Blog) error {
	return row.Scan(&b.ID, &b.Title, &b.Content, &b.ImageURL, &b.CreatedAt)
}
