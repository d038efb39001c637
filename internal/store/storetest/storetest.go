// Package storetest runs the behaviour every store.Log and store.Directory
// implementation must share.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonlog/carbonlog/internal/sentinel"
	"github.com/carbonlog/carbonlog/internal/store"
)

// Entry builds a minimal record document for date with the given total.
func Entry(date string, total float64) []byte {
	return []byte(fmt.Sprintf(
		`{"date":%q,"sector":"retail","calculations":{"totals":{"total":%g,"scope1":0,"scope2":0,"scope3":%g},"scope3":{"travel":%g}}}`,
		date, total, total, total,
	))
}

// RunLog exercises a fresh Log built by newLog.
func RunLog(t *testing.T, newLog func(t *testing.T) store.Log) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown identity reads empty", func(t *testing.T) {
		log := newLog(t)
		records, err := log.ReadAll(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("created log reads empty", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.CreateLog(ctx, "acme"))

		records, err := log.ReadAll(ctx, "acme")
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("round trip keeps the whole document", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.CreateLog(ctx, "acme"))

		doc := `{"date":"2024-01-08","sector":"retail","extra":{"nested":[1,2,{"x":"y"}]},"calculations":{"totals":{"total":12.25},"scope2":{"electricity":12.25}}}`
		require.NoError(t, log.Append(ctx, "acme", []byte(doc)))

		records, err := log.ReadAll(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.JSONEq(t, doc, string(records[0].Raw()))
		assert.Equal(t, "2024-01-08", records[0].Date)
	})

	t.Run("reads in append order", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.CreateLog(ctx, "acme"))

		dates := []string{"2024-01-15", "2024-01-01", "2024-01-08"}
		for i, date := range dates {
			require.NoError(t, log.Append(ctx, "acme", Entry(date, float64(i+1))))
		}

		records, err := log.ReadAll(ctx, "acme")
		require.NoError(t, err)
		require.Len(t, records, len(dates))
		for i, date := range dates {
			assert.Equal(t, date, records[i].Date)
		}
	})

	t.Run("append without create starts the log", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.Append(ctx, "fresh", Entry("2024-01-01", 1)))

		records, err := log.ReadAll(ctx, "fresh")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("create truncates an existing log", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.CreateLog(ctx, "acme"))
		require.NoError(t, log.Append(ctx, "acme", Entry("2024-01-01", 1)))
		require.NoError(t, log.CreateLog(ctx, "acme"))

		records, err := log.ReadAll(ctx, "acme")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("rejects non-object records without writing", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.CreateLog(ctx, "acme"))
		require.NoError(t, log.Append(ctx, "acme", Entry("2024-01-01", 1)))

		err := log.Append(ctx, "acme", []byte(`["not", "an", "object"]`))
		assert.ErrorIs(t, err, sentinel.ErrMalformedInput)

		records, err := log.ReadAll(ctx, "acme")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("rejects identities without a token", func(t *testing.T) {
		log := newLog(t)
		assert.ErrorIs(t, log.CreateLog(ctx, "!!!"), sentinel.ErrMalformedInput)
		assert.ErrorIs(t, log.Append(ctx, "!!!", Entry("2024-01-01", 1)), sentinel.ErrMalformedInput)
	})

	t.Run("identities sharing a token share a log", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.Append(ctx, "a.b", Entry("2024-01-01", 1)))

		records, err := log.ReadAll(ctx, "ab")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("partitions are isolated", func(t *testing.T) {
		log := newLog(t)
		require.NoError(t, log.Append(ctx, "acme", Entry("2024-01-01", 1)))
		require.NoError(t, log.Append(ctx, "globex", Entry("2024-01-01", 2)))
		require.NoError(t, log.Append(ctx, "globex", Entry("2024-01-08", 3)))

		acme, err := log.ReadAll(ctx, "acme")
		require.NoError(t, err)
		globex, err := log.ReadAll(ctx, "globex")
		require.NoError(t, err)
		assert.Len(t, acme, 1)
		assert.Len(t, globex, 2)
	})
}

// RunDirectory exercises a fresh Directory built by newDir.
func RunDirectory(t *testing.T, newDir func(t *testing.T) store.Directory) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing identity", func(t *testing.T) {
		dir := newDir(t)
		exists, err := dir.Exists(ctx, "acme")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = dir.Get(ctx, "acme")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		dir := newDir(t)
		require.NoError(t, dir.Put(ctx, "acme", "manufacturing"))
		require.NoError(t, dir.Put(ctx, "globex", "retail"))

		sector, err := dir.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "manufacturing", sector)

		exists, err := dir.Exists(ctx, "globex")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("put replaces the sector", func(t *testing.T) {
		dir := newDir(t)
		require.NoError(t, dir.Put(ctx, "acme", "manufacturing"))
		require.NoError(t, dir.Put(ctx, "acme", "energy"))

		sector, err := dir.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "energy", sector)
	})

	t.Run("identities are matched exactly", func(t *testing.T) {
		dir := newDir(t)
		require.NoError(t, dir.Put(ctx, "a.b", "retail"))

		exists, err := dir.Exists(ctx, "ab")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
