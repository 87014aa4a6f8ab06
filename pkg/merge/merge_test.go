package merge

import (
	"testing"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringAt(t *testing.T, rec arrow.Record, col string, i int) string {
	t.Helper()
	idx := rec.Schema().FieldIndices(col)
	require.NotEmpty(t, idx, "column %s", col)
	arr, ok := rec.Column(idx[0]).(*array.String)
	require.True(t, ok, "column %s is not a string column", col)
	return arr.Value(i)
}

func TestAppendPreservesExistingSchema(t *testing.T) {
	// The existing snapshot's column order deliberately differs from the
	// canonical spec order; the existing order must win.
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "customer_id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "customer_email", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "customer_created_date", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	existing, err := BuildRecord(schema, []core.Row{
		{"customer_id": "C-1", "customer_email": "a@example.com", "customer_created_date": "2024-01-01"},
	})
	require.NoError(t, err)
	defer existing.Release()

	newRows := []core.Row{
		{
			"customer_id":           "C-2",
			"customer_email":        "b@example.com",
			"customer_created_date": "2024-01-02",
			"unexpected_column":     "dropped silently",
		},
	}

	merged, delta, err := Append(existing, newRows, core.Customers)
	require.NoError(t, err)
	defer merged.Release()
	defer delta.Release()

	assert.True(t, merged.Schema().Equal(schema), "schema must match the existing snapshot")
	assert.Equal(t, int64(2), merged.NumRows())
	assert.Equal(t, int64(1), delta.NumRows())

	// Existing row content is untouched.
	assert.Equal(t, "C-1", stringAt(t, merged, "customer_id", 0))
	assert.Equal(t, "a@example.com", stringAt(t, merged, "customer_email", 0))
	assert.Equal(t, "C-2", stringAt(t, merged, "customer_id", 1))
}

func TestAppendNullFillsMissingColumns(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "order_id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "order_status", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	existing, err := BuildRecord(schema, []core.Row{
		{"order_id": "O-1", "order_status": "Processed"},
	})
	require.NoError(t, err)
	defer existing.Release()

	merged, delta, err := Append(existing, []core.Row{{"order_id": "O-2"}}, core.Orders)
	require.NoError(t, err)
	defer merged.Release()
	defer delta.Release()

	statusIdx := merged.Schema().FieldIndices("order_status")[0]
	status := merged.Column(statusIdx)
	assert.False(t, status.IsNull(0))
	assert.True(t, status.IsNull(1), "missing column must be null-filled")
}

func TestAppendFreshDatasetUsesCanonicalColumns(t *testing.T) {
	rows := []core.Row{
		{
			"order_id":       "O-1",
			"wdf__client_id": "merchant__electronics",
			"order_status":   "Completed",
			"order_date":     "2024-01-02",
			"customer_id":    "C-1",
		},
	}

	merged, delta, err := Append(nil, rows, core.Orders)
	require.NoError(t, err)
	defer merged.Release()
	defer delta.Release()

	require.Equal(t, len(core.Orders.Columns), merged.Schema().NumFields())
	for i, col := range core.Orders.Columns {
		assert.Equal(t, col, merged.Schema().Field(i).Name)
	}
	assert.Equal(t, int64(1), merged.NumRows())
	assert.Equal(t, "O-1", stringAt(t, merged, "order_id", 0))
}

func TestAppendNoNewRows(t *testing.T) {
	schema := InferSchema(core.Orders)
	existing, err := BuildRecord(schema, []core.Row{{"order_id": "O-1"}})
	require.NoError(t, err)
	defer existing.Release()

	merged, delta, err := Append(existing, nil, core.Orders)
	require.NoError(t, err)
	defer merged.Release()
	defer delta.Release()

	assert.Equal(t, int64(1), merged.NumRows())
	assert.Equal(t, int64(0), delta.NumRows())
}

func TestBuildRecordCoercesNumerics(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "order_unit_price", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "note", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	rec, err := BuildRecord(schema, []core.Row{
		{"order_unit_price": 19.99, "note": 42},
		{"order_unit_price": "7.5"},
		{"order_unit_price": "not a number"},
	})
	require.NoError(t, err)
	defer rec.Release()

	prices := rec.Column(0).(*array.Float64)
	assert.Equal(t, 19.99, prices.Value(0))
	assert.Equal(t, 7.5, prices.Value(1))
	assert.True(t, prices.IsNull(2), "unparsable value becomes null")

	notes := rec.Column(1).(*array.String)
	assert.Equal(t, "42", notes.Value(0))
	assert.True(t, notes.IsNull(1))
}

func TestInferSchemaTypes(t *testing.T) {
	schema := InferSchema(core.OrderLines)
	byName := make(map[string]arrow.DataType)
	for _, f := range schema.Fields() {
		byName[f.Name] = f.Type
	}
	assert.Equal(t, arrow.PrimitiveTypes.Float64, byName["order_unit_price"])
	assert.Equal(t, arrow.BinaryTypes.String, byName["order_line_id"])
}
