package watermark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/merge"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markerGateway is an in-memory gateway carrying only marker state.
type markerGateway struct {
	markers map[string]string
}

func newMarkerGateway() *markerGateway {
	return &markerGateway{markers: make(map[string]string)}
}

func (g *markerGateway) Read(context.Context, string) (arrow.Record, error) {
	return nil, fmt.Errorf("not implemented: %w", core.ErrMissingDataset)
}

func (g *markerGateway) WriteFull(context.Context, string, arrow.Record) error  { return nil }
func (g *markerGateway) WriteDelta(context.Context, string, arrow.Record) error { return nil }

func (g *markerGateway) ReadMarker(_ context.Context, name string) (string, error) {
	v, ok := g.markers[name]
	if !ok {
		return "", fmt.Errorf("marker %s not found", name)
	}
	return v, nil
}

func (g *markerGateway) WriteMarker(_ context.Context, name string, value string) error {
	g.markers[name] = value
	return nil
}

func TestFromColumnDerivesMax(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "order_date", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	rec, err := merge.BuildRecord(schema, []core.Row{
		{"order_date": "2024-02-01"},
		{"order_date": "2024-03-05"},
		{"order_date": "2024-01-15"},
	})
	require.NoError(t, err)
	defer rec.Release()

	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := FromColumn(rec, "order_date", epoch)
	assert.Equal(t, "2024-03-05", got.Format(core.DateLayout))
}

func TestFromColumnFallsBackOnEmpty(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, epoch, FromColumn(nil, "order_date", epoch))
}

func TestFromColumnFallsBackOnUnparsable(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "order_date", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	rec, err := merge.BuildRecord(schema, []core.Row{{"order_date": "garbage"}})
	require.NoError(t, err)
	defer rec.Release()

	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, epoch, FromColumn(rec, "order_date", epoch))
}

func TestFromMarker(t *testing.T) {
	gw := newMarkerGateway()
	store := NewStore(gw)
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	// Absent marker defaults to yesterday.
	got := store.FromMarker(context.Background(), core.OrdersMarker, now)
	assert.Equal(t, "2024-03-04", got.Format(core.DateLayout))

	// Malformed marker defaults to yesterday.
	gw.markers[core.OrdersMarker] = "not-a-date"
	got = store.FromMarker(context.Background(), core.OrdersMarker, now)
	assert.Equal(t, "2024-03-04", got.Format(core.DateLayout))

	// Valid marker wins.
	gw.markers[core.OrdersMarker] = "2024-02-20"
	got = store.FromMarker(context.Background(), core.OrdersMarker, now)
	assert.Equal(t, "2024-02-20", got.Format(core.DateLayout))
}

func TestAdvanceMarkerOverwrites(t *testing.T) {
	gw := newMarkerGateway()
	store := NewStore(gw)

	d1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.AdvanceMarker(context.Background(), core.OrdersMarker, d1))
	require.NoError(t, store.AdvanceMarker(context.Background(), core.OrdersMarker, d2))
	assert.Equal(t, "2024-03-05", gw.markers[core.OrdersMarker])
}
