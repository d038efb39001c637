package record

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonlog/carbonlog/internal/sentinel"
)

const fullRecord = `{
  "date": "2024-03-04",
  "sector": "manufacturing",
  "notes": {"site": "north", "tags": ["a", "b"]},
  "calculations": {
    "totals": {"total": 130.5, "scope1": 25, "scope2": 15, "scope3": 90.5},
    "scope1": {"fleet_fuel": 25},
    "scope2": {"electricity": 15},
    "scope3": {"travel": 90.5}
  }
}`

func TestParseExtractsSummary(t *testing.T) {
	rec, err := Parse([]byte(fullRecord))
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", rec.Date)
	assert.Equal(t, "manufacturing", rec.Sector)
	assert.True(t, rec.Totals.Total.Equal(decimal.RequireFromString("130.5")))
	assert.True(t, rec.Totals.Scope1.Equal(decimal.NewFromInt(25)))
	assert.True(t, rec.Totals.Scope3.Equal(decimal.RequireFromString("90.5")))
	assert.True(t, rec.Scope2["electricity"].Equal(decimal.NewFromInt(15)))
}

func TestParseKeepsUnknownFields(t *testing.T) {
	rec, err := Parse([]byte(fullRecord))
	require.NoError(t, err)

	assert.JSONEq(t, fullRecord, string(rec.Raw()))

	doc, err := rec.Document()
	require.NoError(t, err)
	assert.Contains(t, doc, "notes")
}

func TestParsePreservesKeyOrderAndNumberText(t *testing.T) {
	input := `{"z": 1.50, "a": 1e2, "date": "2024-01-01"}`
	rec, err := Parse([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, `{"z":1.50,"a":1e2,"date":"2024-01-01"}`, string(rec.Raw()))
}

func TestParseDefaultsMissingCalculations(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"no calculations", `{"date": "2024-01-01"}`},
		{"null calculations", `{"calculations": null}`},
		{"calculations not object", `{"calculations": [1, 2]}`},
		{"null totals", `{"calculations": {"totals": null}}`},
		{"string totals", `{"calculations": {"totals": {"total": "lots"}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Parse([]byte(tc.input))
			require.NoError(t, err)
			assert.True(t, rec.Totals.Total.IsZero())
			assert.True(t, rec.Totals.Scope2.IsZero())
			assert.Empty(t, rec.Sources())
		})
	}
}

func TestParseRejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[]`, `"text"`, `42`, `null`, `{"date":`, ``} {
		_, err := Parse([]byte(input))
		assert.ErrorIs(t, err, sentinel.ErrMalformedInput, "input %q", input)
	}
}

func TestSourcesLaterScopeOverwrites(t *testing.T) {
	rec, err := Parse([]byte(`{"calculations": {
		"scope1": {"shared": 1, "a": 2},
		"scope3": {"shared": 9}
	}}`))
	require.NoError(t, err)

	merged := rec.Sources()
	assert.Len(t, merged, 2)
	assert.True(t, merged["shared"].Equal(decimal.NewFromInt(9)))
	assert.True(t, merged["a"].Equal(decimal.NewFromInt(2)))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(fullRecord), &rec))
	assert.Equal(t, "manufacturing", rec.Sector)

	out, err := json.Marshal(struct {
		Entry Record `json:"entry"`
	}{Entry: rec})
	require.NoError(t, err)

	var wrapped struct {
		Entry json.RawMessage `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(out, &wrapped))
	assert.JSONEq(t, fullRecord, string(wrapped.Entry))
}

func TestZeroRecordMarshalsNull(t *testing.T) {
	out, err := json.Marshal(Record{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}
