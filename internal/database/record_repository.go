package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	sqldb "github.com/carbonlog/carbonlog/internal/database/sqlc"
	"github.com/carbonlog/carbonlog/internal/identity"
	"github.com/carbonlog/carbonlog/internal/metrics"
	"github.com/carbonlog/carbonlog/internal/record"
	"github.com/carbonlog/carbonlog/internal/sentinel"
)

const backendName = "sqlite"

// RecordRepository stores record logs in the records table, one partition per identity token.
type RecordRepository struct {
	ctx     *Context
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRecordRepository returns a repository over dbCtx. logger and m may be nil.
func NewRecordRepository(dbCtx *Context, logger *slog.Logger, m *metrics.Metrics) *RecordRepository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RecordRepository{ctx: dbCtx, logger: logger, metrics: m}
}

func (r *RecordRepository) CreateLog(ctx context.Context, id string) error {
	if err := identity.Validate(id); err != nil {
		return err
	}
	if queriesFromContext(r.ctx) == nil || r.ctx.DB == nil {
		return fmt.Errorf("record repository: missing database context")
	}

	partition := identity.Token(id)
	err := withTx(ctx, r.ctx, func(queries *sqldb.Queries) error {
		if err := queries.DeleteRecordsByPartition(ctx, partition); err != nil {
			return fmt.Errorf("failed to truncate log: %w", err)
		}
		if err := queries.EnsureLog(ctx, partition); err != nil {
			return fmt.Errorf("failed to create log: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create log: %w: %w", sentinel.ErrStorageFailure, err)
	}
	return nil
}

func (r *RecordRepository) Append(ctx context.Context, id string, raw []byte) error {
	if err := identity.Validate(id); err != nil {
		return err
	}
	rec, err := record.Parse(raw)
	if err != nil {
		return err
	}
	if queriesFromContext(r.ctx) == nil || r.ctx.DB == nil {
		return fmt.Errorf("record repository: missing database context")
	}

	partition := identity.Token(id)
	err = withTx(ctx, r.ctx, func(queries *sqldb.Queries) error {
		if err := queries.EnsureLog(ctx, partition); err != nil {
			return fmt.Errorf("failed to create log: %w", err)
		}
		if _, err := queries.InsertRecord(ctx, mapInsertParams(partition, rec)); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		return nil
	})
	if err != nil {
		r.metrics.IncrementAppendFailure(backendName)
		r.logger.Error("append failed", "identity", id, "error", err)
		return fmt.Errorf("append record: %w: %w", sentinel.ErrStorageFailure, err)
	}
	r.metrics.IncrementAppended(backendName)
	return nil
}

func (r *RecordRepository) ReadAll(ctx context.Context, id string) ([]record.Record, error) {
	start := time.Now()
	defer r.metrics.ObserveRead(backendName, start)

	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("record repository: missing database context")
	}

	partition := identity.Token(id)
	rows, err := queries.ListRecordPayloads(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := record.Parse([]byte(row.FullDataJson))
		if err != nil {
			r.metrics.IncrementCorruptRow(backendName)
			r.logger.Warn("skipping malformed row", "partition", partition, "seq", row.Seq, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func mapInsertParams(partition string, rec record.Record) sqldb.InsertRecordParams {
	return sqldb.InsertRecordParams{
		ID:           uuid.NewString(),
		Partition:    partition,
		Date:         rec.Date,
		Sector:       rec.Sector,
		TotalKg:      rec.Totals.Total.InexactFloat64(),
		Scope1Kg:     rec.Totals.Scope1.InexactFloat64(),
		Scope2Kg:     rec.Totals.Scope2.InexactFloat64(),
		Scope3Kg:     rec.Totals.Scope3.InexactFloat64(),
		FullDataJson: string(rec.Raw()),
	}
}
