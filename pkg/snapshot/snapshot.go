// Package snapshot provides read-side helpers over dataset snapshots held as
// Arrow records: column extraction, max-date scans and distinct-tuple
// sampling. Snapshots read through the gateway may carry inferred types
// (utf8, date32, timestamp, numerics), so every helper tolerates all of them.
package snapshot

import (
	"fmt"
	"time"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// NumRows returns the row count of a possibly nil record.
func NumRows(rec arrow.Record) int64 {
	if rec == nil {
		return 0
	}
	return rec.NumRows()
}

// Column returns the named column, or nil when the record does not carry it.
func Column(rec arrow.Record, name string) arrow.Array {
	if rec == nil {
		return nil
	}
	indices := rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil
	}
	return rec.Column(indices[0])
}

// Strings returns the non-null values of a column rendered as strings.
func Strings(rec arrow.Record, name string) []string {
	col := Column(rec, name)
	if col == nil {
		return nil
	}
	out := make([]string, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		out = append(out, render(Value(col, i)))
	}
	return out
}

// render formats a cell value for string consumers. Date-typed cells render
// as plain ISO dates so comparisons against generated date strings hold.
func render(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(core.DateLayout)
	}
	return fmt.Sprintf("%v", v)
}

// StringSet returns the non-null values of a column as a membership set.
func StringSet(rec arrow.Record, name string) map[string]bool {
	set := make(map[string]bool)
	for _, v := range Strings(rec, name) {
		set[v] = true
	}
	return set
}

// MaxDate scans a column for its maximum date value. String cells are parsed
// with both the plain date and full timestamp layouts. The second return is
// false when no cell yields a usable date.
func MaxDate(rec arrow.Record, name string) (time.Time, bool) {
	col := Column(rec, name)
	if col == nil {
		return time.Time{}, false
	}
	var max time.Time
	found := false
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		t, ok := cellTime(col, i)
		if !ok {
			continue
		}
		if !found || t.After(max) {
			max = t
			found = true
		}
	}
	return max, found
}

// DistinctRows returns the distinct tuples of the given columns, in first-seen
// order. Columns absent from the record are omitted from the tuples.
func DistinctRows(rec arrow.Record, columns []string) []core.Row {
	if NumRows(rec) == 0 {
		return nil
	}
	cols := make(map[string]arrow.Array, len(columns))
	for _, name := range columns {
		if c := Column(rec, name); c != nil {
			cols[name] = c
		}
	}
	if len(cols) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []core.Row
	for i := 0; i < int(rec.NumRows()); i++ {
		row := make(core.Row, len(cols))
		key := ""
		for _, name := range columns {
			col, ok := cols[name]
			if !ok || col.IsNull(i) {
				continue
			}
			v := Value(col, i)
			row[name] = v
			key += fmt.Sprintf("%v|", v)
		}
		if len(row) == 0 || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

// Value extracts a Go value from an array cell.
func Value(col arrow.Array, i int) any {
	switch c := col.(type) {
	case *array.String:
		return c.Value(i)
	case *array.Int64:
		return c.Value(i)
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	case *array.Float32:
		return float64(c.Value(i))
	case *array.Boolean:
		return c.Value(i)
	case *array.Date32:
		return c.Value(i).ToTime()
	case *array.Timestamp:
		ts, ok := col.DataType().(*arrow.TimestampType)
		if !ok {
			return nil
		}
		return c.Value(i).ToTime(ts.Unit)
	default:
		return nil
	}
}

// cellTime interprets a cell as a date, parsing strings with known layouts.
func cellTime(col arrow.Array, i int) (time.Time, bool) {
	switch v := Value(col, i).(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{core.DateLayout, core.TimestampLayout} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
