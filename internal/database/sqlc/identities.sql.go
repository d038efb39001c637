package sqldb

import "context"

const getIdentity = `SELECT identity, sector, created_at, updated_at FROM identities WHERE identity = ?`

func (q *Queries) GetIdentity(ctx context.Context, identity string) (Identity, error) {
	row := q.db.QueryRowContext(ctx, getIdentity, identity)
	var i Identity
	err := row.Scan(&i.Identity, &i.Sector, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const identityExists = `SELECT EXISTS(SELECT 1 FROM identities WHERE identity = ?)`

func (q *Queries) IdentityExists(ctx context.Context, identity string) (bool, error) {
	row := q.db.QueryRowContext(ctx, identityExists, identity)
	var exists int64
	err := row.Scan(&exists)
	return exists != 0, err
}

const upsertIdentity = `INSERT INTO identities (identity, sector) VALUES (?, ?)
ON CONFLICT(identity) DO UPDATE SET sector = excluded.sector, updated_at = CURRENT_TIMESTAMP`

type UpsertIdentityParams struct {
	Identity string
	Sector   string
}

func (q *Queries) UpsertIdentity(ctx context.Context, arg UpsertIdentityParams) error {
	_, err := q.db.ExecContext(ctx, upsertIdentity, arg.Identity, arg.Sector)
	return err
}
