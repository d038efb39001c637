// Package record models one dated emission snapshot.
//
// A Record carries a small set of summary fields extracted on parse and the
// complete submitted JSON document. The document is kept byte-for-byte (after
// whitespace compaction), so unknown fields, key order and number spelling all
// survive storage.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/carbonlog/carbonlog/internal/sentinel"
)

// Scope names, in the order their sources are merged.
const (
	Scope1 = "scope1"
	Scope2 = "scope2"
	Scope3 = "scope3"
)

// Totals are the aggregate emissions in kilograms CO2-equivalent.
type Totals struct {
	Total  decimal.Decimal
	Scope1 decimal.Decimal
	Scope2 decimal.Decimal
	Scope3 decimal.Decimal
}

// Record is a parsed emission record.
type Record struct {
	Date   string
	Sector string
	Totals Totals
	Scope1 map[string]decimal.Decimal
	Scope2 map[string]decimal.Decimal
	Scope3 map[string]decimal.Decimal

	raw json.RawMessage
}

// Parse validates that data is a JSON object and extracts its summary fields.
// Missing or mistyped calculations, totals and scope maps read as empty; missing
// or non-numeric values read as zero.
func Parse(data []byte) (Record, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return Record{}, fmt.Errorf("record is not valid JSON: %w", sentinel.ErrMalformedInput)
	}

	dec := json.NewDecoder(bytes.NewReader(compact.Bytes()))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", sentinel.ErrMalformedInput)
	}
	fields, ok := doc.(map[string]any)
	if !ok {
		return Record{}, fmt.Errorf("record must be a JSON object: %w", sentinel.ErrMalformedInput)
	}

	calcs := object(fields["calculations"])
	totals := object(calcs["totals"])

	return Record{
		Date:   text(fields["date"]),
		Sector: text(fields["sector"]),
		Totals: Totals{
			Total:  number(totals["total"]),
			Scope1: number(totals[Scope1]),
			Scope2: number(totals[Scope2]),
			Scope3: number(totals[Scope3]),
		},
		Scope1: sources(calcs[Scope1]),
		Scope2: sources(calcs[Scope2]),
		Scope3: sources(calcs[Scope3]),
		raw:    compact.Bytes(),
	}, nil
}

// Raw returns the stored JSON document.
func (r Record) Raw() json.RawMessage {
	out := make(json.RawMessage, len(r.raw))
	copy(out, r.raw)
	return out
}

// Document decodes the stored JSON into generic values, keeping numbers as json.Number.
func (r Record) Document() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode record document: %w", err)
	}
	return doc, nil
}

// Sources merges the scope1, scope2 and scope3 maps into one view.
// A key present in more than one scope keeps the value of the later scope.
func (r Record) Sources() map[string]decimal.Decimal {
	merged := make(map[string]decimal.Decimal, len(r.Scope1)+len(r.Scope2)+len(r.Scope3))
	for _, scope := range []map[string]decimal.Decimal{r.Scope1, r.Scope2, r.Scope3} {
		for key, value := range scope {
			merged[key] = value
		}
	}
	return merged
}

// MarshalJSON emits the stored document unchanged.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.Raw(), nil
}

// UnmarshalJSON parses data with the same rules as Parse.
func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func text(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func number(v any) decimal.Decimal {
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func sources(v any) map[string]decimal.Decimal {
	m := object(v)
	out := make(map[string]decimal.Decimal, len(m))
	for key, value := range m {
		out[key] = number(value)
	}
	return out
}
