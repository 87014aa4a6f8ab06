package gateway

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/merge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (core.Gateway, string) {
	t.Helper()
	dir := t.TempDir()
	gw, err := NewLocalGateway(context.Background(), core.GatewayConfig{Backend: "local", DataDir: dir})
	require.NoError(t, err)
	return gw, dir
}

func TestLocalWriteReadRoundtrip(t *testing.T) {
	gw, dir := newLocal(t)
	ctx := context.Background()

	rec, err := merge.BuildRecord(merge.InferSchema(core.Orders), []core.Row{
		{"order_id": "O-1", "order_status": "Processed", "order_date": "2024-01-02", "customer_id": "C-1", "wdf__client_id": "merchant__clothing"},
		{"order_id": "O-2", "order_status": "Completed", "order_date": "2024-01-03", "customer_id": "C-2", "wdf__client_id": "merchant__electronics"},
	})
	require.NoError(t, err)
	defer rec.Release()

	require.NoError(t, gw.WriteFull(ctx, core.DatasetOrders, rec))

	got, err := gw.Read(ctx, core.DatasetOrders)
	require.NoError(t, err)
	defer got.Release()

	assert.Equal(t, int64(2), got.NumRows())
	idx := got.Schema().FieldIndices("order_id")
	require.NotEmpty(t, idx)

	// No temp files may survive the atomic rename.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLocalReadRewriteKeepsTemporalText(t *testing.T) {
	gw, dir := newLocal(t)
	ctx := context.Background()

	// Date and timestamp text in the canonical layouts, as a run writes them.
	original := "order_line_id,order__order_id,order_date,date\n" +
		"L-1,O-1,2024-03-04 09:15:42.000,2024-03-04 09:15:42.000\n" +
		"L-2,O-2,2024-03-05 23:01:07.000,2024-03-05 23:01:07.000\n"
	path := filepath.Join(dir, "order_lines.csv")
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	got, err := gw.Read(ctx, core.DatasetLines)
	require.NoError(t, err)
	defer got.Release()

	// Inference must not leave a temporal type behind: writing the snapshot
	// back has to reproduce the historical bytes exactly.
	for _, f := range got.Schema().Fields() {
		assert.Equal(t, "utf8", f.Type.Name(), "column %s", f.Name)
	}

	require.NoError(t, gw.WriteFull(ctx, core.DatasetLines, got))
	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(rewritten))
}

func TestLocalReadMissingDataset(t *testing.T) {
	gw, _ := newLocal(t)
	_, err := gw.Read(context.Background(), core.DatasetOrders)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingDataset))
}

func TestLocalReadHeaderOnlyDataset(t *testing.T) {
	gw, dir := newLocal(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.csv"),
		[]byte("order_id,wdf__client_id,order_status,order_date,customer_id\n"), 0o644))

	_, err := gw.Read(context.Background(), core.DatasetOrders)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingDataset))
}

func TestLocalWriteDelta(t *testing.T) {
	gw, dir := newLocal(t)
	ctx := context.Background()

	rec, err := merge.BuildRecord(merge.InferSchema(core.Orders), []core.Row{
		{"order_id": "O-9", "order_status": "Processed", "order_date": "2024-01-02", "customer_id": "C-1", "wdf__client_id": "merchant__clothing"},
	})
	require.NoError(t, err)
	defer rec.Release()

	require.NoError(t, gw.WriteDelta(ctx, core.DatasetOrders, rec))
	_, err = os.Stat(filepath.Join(dir, "deltas", "orders.csv"))
	assert.NoError(t, err)

	// The base snapshot is untouched by delta writes.
	_, err = os.Stat(filepath.Join(dir, "orders.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalMarkerRoundtrip(t *testing.T) {
	gw, _ := newLocal(t)
	ctx := context.Background()

	_, err := gw.ReadMarker(ctx, core.OrdersMarker)
	require.Error(t, err)

	require.NoError(t, gw.WriteMarker(ctx, core.OrdersMarker, "2024-03-04"))
	got, err := gw.ReadMarker(ctx, core.OrdersMarker)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", got)

	// Overwrite semantics.
	require.NoError(t, gw.WriteMarker(ctx, core.OrdersMarker, "2024-03-05"))
	got, err = gw.ReadMarker(ctx, core.OrdersMarker)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", got)
}

func TestFactoryRejectsUnknownBackend(t *testing.T) {
	_, err := DefaultFactory.Create(context.Background(), core.GatewayConfig{Backend: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}
