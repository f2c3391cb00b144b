// Package actorctx carries the authenticated caller on a request context so
// code below the HTTP layer (logging, services) can see who is acting.
package actorctx

import (
	"context"

	"github.com/geocoder89/agencysite/internal/domain/user"
)

type Actor struct {
	UserID string
	Role   user.Role
}

type ctxKey struct{}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	a, ok := From(ctx)
	return a.UserID, ok
}
