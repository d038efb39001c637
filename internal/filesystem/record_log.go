package filesystem

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/carbonlog/carbonlog/internal/identity"
	"github.com/carbonlog/carbonlog/internal/metrics"
	"github.com/carbonlog/carbonlog/internal/record"
	"github.com/carbonlog/carbonlog/internal/sentinel"
)

const backendName = "csv"

// PayloadColumn holds the complete record document.
const PayloadColumn = "full_data_json"

// Header is the first row of every record log.
var Header = []string{"date", "sector", "total_kg", "scope1_kg", "scope2_kg", "scope3_kg", PayloadColumn}

// RecordLog keeps one CSV file per identity token under dir.
type RecordLog struct {
	dir     string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRecordLog returns a log rooted at dir. logger and m may be nil.
func NewRecordLog(dir string, logger *slog.Logger, m *metrics.Metrics) *RecordLog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RecordLog{dir: dir, logger: logger, metrics: m}
}

// Path returns the CSV file backing an identity.
func (l *RecordLog) Path(id string) string {
	return filepath.Join(l.dir, identity.Token(id)+".csv")
}

func (l *RecordLog) CreateLog(_ context.Context, id string) error {
	if err := identity.Validate(id); err != nil {
		return err
	}

	header, err := encodeRows(Header)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(l.Path(id), header); err != nil {
		return fmt.Errorf("create log: %w: %w", sentinel.ErrStorageFailure, err)
	}
	return nil
}

func (l *RecordLog) Append(_ context.Context, id string, raw []byte) error {
	if err := identity.Validate(id); err != nil {
		return err
	}
	rec, err := record.Parse(raw)
	if err != nil {
		return err
	}

	if err := l.appendRow(l.Path(id), row(rec)); err != nil {
		l.metrics.IncrementAppendFailure(backendName)
		l.logger.Error("append failed", "identity", id, "error", err)
		return fmt.Errorf("append record: %w: %w", sentinel.ErrStorageFailure, err)
	}
	l.metrics.IncrementAppended(backendName)
	return nil
}

// appendRow writes the encoded row with a single write and truncates back to
// the previous size if the write or sync fails.
func (l *RecordLog) appendRow(path string, fields []string) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}

	//nolint:gosec // G304: path is built from a sanitized identity token
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := info.Size()

	rows := [][]string{fields}
	if size == 0 {
		rows = [][]string{Header, fields}
	}
	data, err := encodeRows(rows...)
	if err != nil {
		_ = f.Close()
		return err
	}

	if _, err := f.Write(data); err != nil {
		return rollback(f, size, fmt.Errorf("failed to write row: %w", err))
	}
	if err := f.Sync(); err != nil {
		return rollback(f, size, fmt.Errorf("failed to sync row: %w", err))
	}
	return f.Close()
}

func rollback(f *os.File, size int64, cause error) error {
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w (truncate error: %w)", cause, err)
	}
	_ = f.Close()
	return cause
}

func (l *RecordLog) ReadAll(_ context.Context, id string) ([]record.Record, error) {
	start := time.Now()
	defer l.metrics.ObserveRead(backendName, start)

	records := []record.Record{}
	path := l.Path(id)

	//nolint:gosec // G304: path is built from a sanitized identity token
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	payload := slices.Index(header, PayloadColumn)
	if payload < 0 {
		payload = len(Header) - 1
	}

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			l.skip(path, parseErr.Line, err)
			continue
		}

		line, _ := reader.FieldPos(0)
		if payload >= len(fields) {
			l.skip(path, line, fmt.Errorf("row has %d fields, payload column is %d", len(fields), payload))
			continue
		}
		rec, err := record.Parse([]byte(fields[payload]))
		if err != nil {
			l.skip(path, line, err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func (l *RecordLog) skip(path string, line int, err error) {
	l.metrics.IncrementCorruptRow(backendName)
	l.logger.Warn("skipping malformed row", "path", path, "line", line, "error", err)
}

func row(rec record.Record) []string {
	return []string{
		rec.Date,
		rec.Sector,
		rec.Totals.Total.String(),
		rec.Totals.Scope1.String(),
		rec.Totals.Scope2.String(),
		rec.Totals.Scope3.String(),
		string(rec.Raw()),
	}
}

func encodeRows(rows ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to encode csv row: %w", err)
	}
	return buf.Bytes(), nil
}
