// Package merge appends newly synthesized rows to an existing dataset
// snapshot while preserving the snapshot's schema exactly. Column order and
// types are dictated by the existing snapshot, never by the new rows: missing
// columns are null-filled, extra row keys are dropped, and historical rows are
// never reordered or rewritten.
package merge

import (
	"fmt"
	"strconv"
	"time"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Append merges newRows into the existing snapshot. It returns both the full
// merged snapshot and the delta record holding only the new rows, so the
// caller can persist either depending on the configured write mode.
//
// A nil or empty existing snapshot means the dataset is fresh: the spec's
// canonical column set becomes the reference schema. The caller owns both
// returned records and must Release them.
func Append(existing arrow.Record, newRows []core.Row, spec core.DatasetSpec) (arrow.Record, arrow.Record, error) {
	schema := referenceSchema(existing, spec)

	delta, err := BuildRecord(schema, newRows)
	if err != nil {
		return nil, nil, err
	}

	if existing == nil || existing.NumRows() == 0 {
		delta.Retain()
		return delta, delta, nil
	}

	if len(newRows) == 0 {
		existing.Retain()
		return existing, delta, nil
	}

	// Concatenate existing + delta through a table so existing rows pass
	// through untouched.
	table := array.NewTableFromRecords(schema, []arrow.Record{existing, delta})
	defer table.Release()

	reader := array.NewTableReader(table, table.NumRows())
	defer reader.Release()

	if !reader.Next() {
		return nil, nil, fmt.Errorf("merge %s: %w", spec.Name, core.ErrSchemaMismatch)
	}
	combined := reader.Record()
	merged := array.NewRecord(schema, combined.Columns(), combined.NumRows())
	return merged, delta, nil
}

// BuildRecord builds an Arrow record from rows coerced to the given schema.
// Values that cannot be coerced to the target column type become nulls.
func BuildRecord(schema *arrow.Schema, rows []core.Row) (arrow.Record, error) {
	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()

	for _, row := range rows {
		for i, field := range schema.Fields() {
			value, ok := row[field.Name]
			if !ok || value == nil {
				builder.Field(i).AppendNull()
				continue
			}
			appendValue(builder.Field(i), field, value)
		}
	}

	return builder.NewRecord(), nil
}

// referenceSchema picks the schema the merged result must follow.
func referenceSchema(existing arrow.Record, spec core.DatasetSpec) *arrow.Schema {
	if existing != nil && existing.NumRows() > 0 {
		return existing.Schema()
	}
	return InferSchema(spec)
}

// InferSchema derives a schema for a fresh dataset from its canonical column
// order: float64 for known numeric columns, utf8 for everything else.
func InferSchema(spec core.DatasetSpec) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(spec.Columns))
	for _, name := range spec.Columns {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if core.NumericColumns[name] {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields = append(fields, arrow.Field{Name: name, Type: typ, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// appendValue coerces a row value to the builder's type, appending null when
// the value cannot be represented.
func appendValue(b array.Builder, field arrow.Field, value any) {
	switch bldr := b.(type) {
	case *array.StringBuilder:
		bldr.Append(asString(value))
	case *array.Float64Builder:
		if f, ok := asFloat(value); ok {
			bldr.Append(f)
		} else {
			bldr.AppendNull()
		}
	case *array.Int64Builder:
		if f, ok := asFloat(value); ok {
			bldr.Append(int64(f))
		} else {
			bldr.AppendNull()
		}
	case *array.BooleanBuilder:
		if v, ok := value.(bool); ok {
			bldr.Append(v)
		} else {
			bldr.AppendNull()
		}
	case *array.Date32Builder:
		if t, ok := asTime(value); ok {
			bldr.Append(arrow.Date32FromTime(t))
		} else {
			bldr.AppendNull()
		}
	case *array.TimestampBuilder:
		ts, isTimestamp := field.Type.(*arrow.TimestampType)
		t, ok := asTime(value)
		if !isTimestamp || !ok {
			bldr.AppendNull()
			return
		}
		v, err := arrow.TimestampFromTime(t, ts.Unit)
		if err != nil {
			bldr.AppendNull()
			return
		}
		bldr.Append(v)
	default:
		b.AppendNull()
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(core.DateLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{core.TimestampLayout, core.DateLayout} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
