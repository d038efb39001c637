package sqldb

import "context"

const ensureLog = `INSERT OR IGNORE INTO logs (partition) VALUES (?)`

func (q *Queries) EnsureLog(ctx context.Context, partition string) error {
	_, err := q.db.ExecContext(ctx, ensureLog, partition)
	return err
}

const deleteRecordsByPartition = `DELETE FROM records WHERE partition = ?`

func (q *Queries) DeleteRecordsByPartition(ctx context.Context, partition string) error {
	_, err := q.db.ExecContext(ctx, deleteRecordsByPartition, partition)
	return err
}

const insertRecord = `INSERT INTO records (
    id, partition, date, sector, total_kg, scope1_kg, scope2_kg, scope3_kg, full_data_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertRecordParams struct {
	ID           string
	Partition    string
	Date         string
	Sector       string
	TotalKg      float64
	Scope1Kg     float64
	Scope2Kg     float64
	Scope3Kg     float64
	FullDataJson string
}

func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertRecord,
		arg.ID,
		arg.Partition,
		arg.Date,
		arg.Sector,
		arg.TotalKg,
		arg.Scope1Kg,
		arg.Scope2Kg,
		arg.Scope3Kg,
		arg.FullDataJson,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const listRecordPayloads = `SELECT seq, full_data_json FROM records WHERE partition = ? ORDER BY seq ASC`

type ListRecordPayloadsRow struct {
	Seq          int64
	FullDataJson string
}

func (q *Queries) ListRecordPayloads(ctx context.Context, partition string) ([]ListRecordPayloadsRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecordPayloads, partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListRecordPayloadsRow
	for rows.Next() {
		var i ListRecordPayloadsRow
		if err := rows.Scan(&i.Seq, &i.FullDataJson); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countRecordsByPartition = `SELECT COUNT(*) FROM records WHERE partition = ?`

func (q *Queries) CountRecordsByPartition(ctx context.Context, partition string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRecordsByPartition, partition)
	var count int64
	err := row.Scan(&count)
	return count, err
}
