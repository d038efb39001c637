package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqldb "github.com/carbonlog/carbonlog/internal/database/sqlc"
	"github.com/carbonlog/carbonlog/internal/sentinel"
)

// IdentityRepository is the identity directory kept in the identities table.
// Unlike the JSON file directory, Put writes a single row.
type IdentityRepository struct {
	ctx *Context
}

func NewIdentityRepository(dbCtx *Context) *IdentityRepository {
	return &IdentityRepository{ctx: dbCtx}
}

func (r *IdentityRepository) Get(ctx context.Context, id string) (string, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return "", fmt.Errorf("identity repository: missing database context")
	}

	row, err := queries.GetIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("identity %q: %w", id, sentinel.ErrNotFound)
		}
		return "", err
	}
	return row.Sector, nil
}

func (r *IdentityRepository) Exists(ctx context.Context, id string) (bool, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return false, fmt.Errorf("identity repository: missing database context")
	}
	return queries.IdentityExists(ctx, id)
}

func (r *IdentityRepository) Put(ctx context.Context, id, sector string) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return fmt.Errorf("identity repository: missing database context")
	}

	if err := queries.UpsertIdentity(ctx, sqldb.UpsertIdentityParams{Identity: id, Sector: sector}); err != nil {
		return fmt.Errorf("put identity: %w: %w", sentinel.ErrStorageFailure, err)
	}
	return nil
}
