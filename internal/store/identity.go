package store

import (
	"context"

	"table-status-backend/internal/auth"
	"table-status-backend/internal/model"
)

// IdentitySource reports the established caller identity, if any.
type IdentitySource interface {
	Current() (auth.Identity, bool)
}

type authorized struct {
	inner Store
	ids   IdentitySource
}

// RequireIdentity rejects every operation with ErrUnauthenticated until ids
// has an identity, and stamps writes with its uid.
func RequireIdentity(inner Store, ids IdentitySource) Store {
	return &authorized{inner: inner, ids: ids}
}

func (a *authorized) Subscribe(ctx context.Context, collection string) (<-chan Update, error) {
	if _, ok := a.ids.Current(); !ok {
		return nil, ErrUnauthenticated
	}
	return a.inner.Subscribe(ctx, collection)
}

func (a *authorized) MergeWrite(ctx context.Context, collection, id string, fields Fields) error {
	identity, ok := a.ids.Current()
	if !ok {
		return ErrUnauthenticated
	}
	fields.UpdatedBy = identity.UID
	return a.inner.MergeWrite(ctx, collection, id, fields)
}

func (a *authorized) ReadAll(ctx context.Context, collection string) ([]model.Table, error) {
	if _, ok := a.ids.Current(); !ok {
		return nil, ErrUnauthenticated
	}
	return a.inner.ReadAll(ctx, collection)
}
