package postgres

import (
	"errors"

	"github.com/geocoder89/agencysite/internal/db"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// base is embedded by every repo: the gateway to query through and the
// metrics sink to time each operation against.
type base struct {
	conn db.DB
	prom *observability.Prom
}

func (b base) observe(op string, fn func() error) error {
	if b.prom != nil {
		return b.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// validID filters out ids the uuid columns would reject with 22P02.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
