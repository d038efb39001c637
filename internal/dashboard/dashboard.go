// Package dashboard selects the recent window of an identity's history.
package dashboard

import (
	"slices"
	"strings"

	"github.com/carbonlog/carbonlog/internal/delta"
	"github.com/carbonlog/carbonlog/internal/record"
)

// HistorySize is the number of most recent records shown.
const HistorySize = 3

// Data is what a dashboard renders for one identity.
type Data struct {
	Latest   *record.Record
	Previous *record.Record
	History  []record.Record
	Deltas   delta.Result
}

// Build orders records by date (records sharing a date keep their append
// order) and picks the latest, previous and history window from the end.
// records is not modified.
func Build(records []record.Record) Data {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b record.Record) int {
		return strings.Compare(a.Date, b.Date)
	})

	data := Data{
		History: []record.Record{},
		Deltas:  delta.Zero(),
	}
	n := len(sorted)
	if n == 0 {
		return data
	}

	data.Latest = &sorted[n-1]
	if n > 1 {
		data.Previous = &sorted[n-2]
	}
	data.History = sorted[max(0, n-HistorySize):]
	data.Deltas = delta.Compute(data.Latest, data.Previous)
	return data
}
