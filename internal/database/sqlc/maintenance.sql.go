package sqldb

import "context"

const deleteAllRecords = `DELETE FROM records`

func (q *Queries) DeleteAllRecords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllRecords)
	return err
}

const deleteAllLogs = `DELETE FROM logs`

func (q *Queries) DeleteAllLogs(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllLogs)
	return err
}

const deleteAllIdentities = `DELETE FROM identities`

func (q *Queries) DeleteAllIdentities(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllIdentities)
	return err
}
