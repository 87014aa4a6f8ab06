// Package gateway provides Dataset Gateway implementations over local CSV
// files and an S3-compatible object store, selected once at startup through a
// factory keyed by backend name.
package gateway

import (
	"fmt"
	"io"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// readCSV decodes a CSV stream into a single combined Arrow record with an
// inferred schema. Empty strings are treated as nulls. io.EOF is returned for
// a stream with no data rows.
//
// Columns the reader infers as dates or timestamps are rewritten back to
// their canonical text form: rows already on disk must re-serialize
// byte-identically when the snapshot is merged and rewritten, and a
// timestamp-typed column would otherwise be at the mercy of the writer's own
// rendering.
func readCSV(r io.Reader) (arrow.Record, error) {
	reader := csv.NewInferringReader(
		r,
		csv.WithChunk(10000),
		csv.WithHeader(true),
		csv.WithNullReader(true, ""),
		csv.WithAllocator(memory.NewGoAllocator()),
	)
	defer reader.Release()

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, io.EOF
	}

	schema := reader.Schema()
	if len(records) == 1 {
		records[0].Retain()
		return normalizeTemporal(records[0]), nil
	}

	// Combine all batches into one record (the snapshots here are small
	// enough to hold in memory).
	table := array.NewTableFromRecords(schema, records)
	defer table.Release()

	tableReader := array.NewTableReader(table, table.NumRows())
	defer tableReader.Release()

	if !tableReader.Next() {
		return nil, io.EOF
	}
	combined := tableReader.Record()
	return normalizeTemporal(array.NewRecord(schema, combined.Columns(), combined.NumRows())), nil
}

// normalizeTemporal replaces date- and timestamp-typed columns with utf8
// columns holding the canonical text layouts. Records without temporal
// columns pass through untouched. Consumes the caller's reference when a new
// record is built.
func normalizeTemporal(rec arrow.Record) arrow.Record {
	temporal := false
	for _, f := range rec.Schema().Fields() {
		switch f.Type.ID() {
		case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
			temporal = true
		}
	}
	if !temporal {
		return rec
	}
	defer rec.Release()

	fields := make([]arrow.Field, 0, rec.Schema().NumFields())
	cols := make([]arrow.Array, 0, rec.Schema().NumFields())
	for i, f := range rec.Schema().Fields() {
		col := rec.Column(i)
		switch f.Type.ID() {
		case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
			conv := temporalToString(col)
			defer conv.Release()
			fields = append(fields, arrow.Field{Name: f.Name, Type: arrow.BinaryTypes.String, Nullable: true})
			cols = append(cols, conv)
		default:
			fields = append(fields, f)
			cols = append(cols, col)
		}
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows())
}

// temporalToString renders a temporal column as text, dates in the plain date
// layout and timestamps in the full timestamp layout.
func temporalToString(col arrow.Array) arrow.Array {
	b := array.NewStringBuilder(memory.NewGoAllocator())
	defer b.Release()

	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			b.AppendNull()
			continue
		}
		switch c := col.(type) {
		case *array.Date32:
			b.Append(c.Value(i).ToTime().Format(core.DateLayout))
		case *array.Date64:
			b.Append(c.Value(i).ToTime().Format(core.DateLayout))
		case *array.Timestamp:
			unit := c.DataType().(*arrow.TimestampType).Unit
			b.Append(c.Value(i).ToTime(unit).Format(core.TimestampLayout))
		default:
			b.AppendNull()
		}
	}
	return b.NewStringArray()
}

// writeCSV encodes a record as CSV with a header row. Nulls are written as
// empty strings, matching the read side.
func writeCSV(w io.Writer, record arrow.Record) error {
	writer := csv.NewWriter(w, record.Schema(),
		csv.WithHeader(true),
		csv.WithNullWriter(""),
	)
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return writer.Error()
}
