// Package delta compares two emission records.
package delta

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/carbonlog/carbonlog/internal/record"
)

// TopN bounds the length of both ranked change lists.
const TopN = 3

// Threshold is the materiality limit in kilograms. Changes whose magnitude is
// at or below it are dropped.
var Threshold = decimal.RequireFromString("0.1")

// Change is the movement of one emission source between two records.
type Change struct {
	Key      string
	Delta    decimal.Decimal
	Current  decimal.Decimal
	Previous decimal.Decimal
}

// Result summarises the movement from a previous record to a current one.
type Result struct {
	TotalDelta   decimal.Decimal
	TopIncreases []Change
	TopDecreases []Change
}

// Zero is the result reported when there is nothing to compare.
func Zero() Result {
	return Result{
		TotalDelta:   decimal.Zero,
		TopIncreases: []Change{},
		TopDecreases: []Change{},
	}
}

// Compute returns the total change and the largest per-source increases and
// decreases between previous and current. Either side being nil yields Zero.
// Sources are compared across the merged scope1/scope2/scope3 view of each
// record, with an absent side counted as zero. Ties rank by key.
func Compute(current, previous *record.Record) Result {
	if current == nil || previous == nil {
		return Zero()
	}

	currentSources := current.Sources()
	previousSources := previous.Sources()

	changes := make([]Change, 0, len(currentSources)+len(previousSources))
	for _, key := range unionKeys(currentSources, previousSources) {
		cur := currentSources[key]
		prev := previousSources[key]
		d := cur.Sub(prev)
		if d.Abs().LessThanOrEqual(Threshold) {
			continue
		}
		changes = append(changes, Change{Key: key, Delta: d, Current: cur, Previous: prev})
	}

	increases := make([]Change, 0, TopN)
	decreases := make([]Change, 0, TopN)
	for _, c := range changes {
		if c.Delta.IsPositive() {
			increases = append(increases, c)
		} else {
			decreases = append(decreases, c)
		}
	}

	slices.SortFunc(increases, func(a, b Change) int {
		if c := b.Delta.Cmp(a.Delta); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	slices.SortFunc(decreases, func(a, b Change) int {
		if c := a.Delta.Cmp(b.Delta); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	return Result{
		TotalDelta:   current.Totals.Total.Sub(previous.Totals.Total),
		TopIncreases: truncate(increases),
		TopDecreases: truncate(decreases),
	}
}

func unionKeys(a, b map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		keys = append(keys, key)
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

func truncate(changes []Change) []Change {
	if len(changes) > TopN {
		return changes[:TopN]
	}
	return changes
}
