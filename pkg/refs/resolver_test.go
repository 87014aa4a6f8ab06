package refs

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/merge"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingGateway always fails reads.
type failingGateway struct{}

func (failingGateway) Read(context.Context, string) (arrow.Record, error) {
	return nil, fmt.Errorf("boom: %w", core.ErrMissingDataset)
}
func (failingGateway) WriteFull(context.Context, string, arrow.Record) error  { return nil }
func (failingGateway) WriteDelta(context.Context, string, arrow.Record) error { return nil }
func (failingGateway) ReadMarker(context.Context, string) (string, error)     { return "", nil }
func (failingGateway) WriteMarker(context.Context, string, string) error      { return nil }

func TestLoadMissingDatasetYieldsEmptySet(t *testing.T) {
	set := NewResolver(failingGateway{}).Load(context.Background(), core.Products)
	require.NotNil(t, set)
	assert.Equal(t, 0, set.Len())
}

func TestFromRecord(t *testing.T) {
	schema := merge.InferSchema(core.Orders)
	rec, err := merge.BuildRecord(schema, []core.Row{
		{"order_id": "O-1"},
		{"order_id": "O-2"},
		{"order_id": "O-1"}, // duplicate collapses
	})
	require.NoError(t, err)
	defer rec.Release()

	set := FromRecord(rec, "order_id")
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("O-1"))
	assert.True(t, set.Contains("O-2"))
	assert.False(t, set.Contains("O-3"))
}

func TestSetMutableAcrossRun(t *testing.T) {
	set := NewSet()
	assert.Equal(t, "", set.Random(rand.New(rand.NewSource(1))))

	set.Add("C-1")
	set.Add("C-2")
	set.Add("C-2")
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"C-1", "C-2"}, set.IDs())

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		assert.True(t, set.Contains(set.Random(rng)))
	}
}
