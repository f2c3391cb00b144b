package db

import (
	"context"
	"testing"

	"github.com/geocoder89/agencysite/internal/config"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/repo/memory"
	"github.com/geocoder89/agencysite/internal/security"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsersRepo()
	cfg := config.Config{AdminEmail: "Admin@Agency.test", AdminPassword: "s3cret-pass", AdminName: "Admin"}

	created, err := EnsureAdminUser(ctx, users, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	u, err := users.GetByEmail(ctx, "admin@agency.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)

	ok, err := security.VerifyPassword("s3cret-pass", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	created, err = EnsureAdminUser(ctx, users, cfg)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, users.Count())
}

func TestEnsureAdminUser_NotConfigured(t *testing.T) {
	users := memory.NewUsersRepo()

	created, err := EnsureAdminUser(context.Background(), users, config.Config{AdminEmail: "admin@agency.test"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, users.Count())
}

type recordingDB struct {
	DB
	sql []string
}

func (r *recordingDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.sql = append(r.sql, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestEnsureSchema(t *testing.T) {
	db := &recordingDB{}
	require.NoError(t, EnsureSchema(context.Background(), db))

	require.Len(t, db.sql, 1)
	for _, table := range []string{"users", "submissions", "blogs", "notifications"} {
		assert.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, db.sql[0], "users_email_lower_idx")
}
