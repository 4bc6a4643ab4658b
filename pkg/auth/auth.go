package auth

import (
	"context"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/pkg/errors"
)

const (
	XUserIDHeader   = "X-User-Id"
	XSchoolIDHeader = "X-School-Id"
)

var ErrNoIdentity = errors.New("identity is missing")

type identityKey struct{}

func SetIdentity(ctx context.Context, ident model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

func GetIdentity(ctx context.Context) (model.Identity, error) {
	ident, ok := ctx.Value(identityKey{}).(model.Identity)
	if !ok || ident.UserID == "" {
		return model.Identity{}, ErrNoIdentity
	}
	return ident, nil
}
