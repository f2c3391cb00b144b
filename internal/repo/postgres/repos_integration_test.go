package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/agencysite/internal/db"
	"github.com/geocoder89/agencysite/internal/domain/blog"
	"github.com/geocoder89/agencysite/internal/domain/notification"
	"github.com/geocoder89/agencysite/internal/domain/submission"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DB_DSN and resets every table. Tests that need
// it are skipped when the variable is unset.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "create pgx pool")
	t.Cleanup(pool.Close)

	require.NoError(t, db.EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE notifications, blogs, submissions, users CASCADE`)
	require.NoError(t, err, "truncate tables")

	return pool
}

func testProm() *observability.Prom {
	return observability.NewProm(prometheus.NewRegistry())
}

func TestUsersRepo_EmailIsUniqueIgnoringCase(t *testing.T) {
	pool := openTestDB(t)
	repo := NewUsersRepo(pool, testProm())
	ctx := context.Background()

	created, err := repo.Create(ctx, user.NewUser{
		Email:        "Jane@Example.com",
		PasswordHash: "hash",
		FullName:     "Jane",
		Role:         user.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", created.Email)

	_, err = repo.Create(ctx, user.NewUser{Email: "JANE@example.com", PasswordHash: "hash", FullName: "Other", Role: user.RoleUser})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "jane@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, user.RoleUser, got.Role)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestSubmissionsRepo_ListAndUpdateStatus(t *testing.T) {
	pool := openTestDB(t)
	repo := NewSubmissionsRepo(pool, testProm())
	ctx := context.Background()

	first, err := repo.Create(ctx, submission.CreateRequest{Name: "Ann", Email: "ann@example.com", Message: "hello"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := repo.Create(ctx, submission.CreateRequest{Name: "Bob", Email: "bob@example.com", Message: "hi"})
	require.NoError(t, err)

	all, err := repo.List(ctx, submission.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	updated, err := repo.UpdateStatus(ctx, first.ID, submission.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusCompleted, updated.Status)
	assert.Equal(t, "hello", updated.Message)

	completed := submission.StatusCompleted
	only, err := repo.List(ctx, submission.ListFilter{Status: &completed})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, first.ID, only[0].ID)

	_, err = repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", submission.StatusCompleted)
	assert.ErrorIs(t, err, submission.ErrNotFound)
}

func TestBlogsRepo_ListPageWalksEveryRowOnce(t *testing.T) {
	pool := openTestDB(t)
	repo := NewBlogsRepo(pool, testProm())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, blog.CreateRequest{Title: "Post title", Content: "body"})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	page := blog.Page{Limit: 2}

	for {
		items, hasMore, err := repo.ListPage(ctx, page)
		require.NoError(t, err)
		for _, b := range items {
			require.False(t, seen[b.ID], "blog %s returned twice", b.ID)
			seen[b.ID] = true
		}
		if !hasMore {
			break
		}
		last := items[len(items)-1]
		page.AfterCreatedAt, page.AfterID = last.CreatedAt, last.ID
	}

	assert.Len(t, seen, 5)
}

func TestNotificationsRepo_MarkReadOnlyForRecipient(t *testing.T) {
	pool := openTestDB(t)
	users := NewUsersRepo(pool, testProm())
	repo := NewNotificationsRepo(pool, testProm())
	ctx := context.Background()

	alice, err := users.Create(ctx, user.NewUser{Email: "alice@example.com", PasswordHash: "h", FullName: "Alice", Role: user.RoleUser})
	require.NoError(t, err)
	bob, err := users.Create(ctx, user.NewUser{Email: "bob@example.com", PasswordHash: "h", FullName: "Bob", Role: user.RoleUser})
	require.NoError(t, err)

	n := notification.New(bob.ID, notification.SendRequest{ToUserID: alice.ID, Message: "ping"})
	require.NoError(t, repo.Create(ctx, n))

	_, err = repo.MarkRead(ctx, n.ID, bob.ID)
	assert.ErrorIs(t, err, notification.ErrNotFound, "non-recipient")

	read, err := repo.MarkRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	assert.Equal(t, bob.ID, read.FromUserID)

	list, err := repo.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
}
