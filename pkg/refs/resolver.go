// Package refs loads and tracks the sets of valid foreign-key identifiers
// (customers, orders, products) that keep generated child rows referentially
// valid. Sets are mutable for the duration of a run: identifiers created
// earlier in the same run join the working set and can be referenced by rows
// generated later.
package refs

import (
	"context"
	"math/rand"

	"github.com/TFMV/fabrica/logger"
	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/snapshot"
	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
)

// Set is a mutable collection of valid identifiers for one entity type.
type Set struct {
	ids   []string
	index map[string]bool
}

// NewSet creates an empty identifier set.
func NewSet() *Set {
	return &Set{index: make(map[string]bool)}
}

// Add inserts an identifier if not already present.
func (s *Set) Add(id string) {
	if s.index[id] {
		return
	}
	s.index[id] = true
	s.ids = append(s.ids, id)
}

// Contains reports whether the identifier is in the set.
func (s *Set) Contains(id string) bool {
	return s.index[id]
}

// Random returns a uniformly chosen identifier, or "" when the set is empty.
func (s *Set) Random(rng *rand.Rand) string {
	if len(s.ids) == 0 {
		return ""
	}
	return s.ids[rng.Intn(len(s.ids))]
}

// Len returns the number of identifiers in the set.
func (s *Set) Len() int {
	return len(s.ids)
}

// IDs returns the identifiers in insertion order. Callers must not modify the
// returned slice.
func (s *Set) IDs() []string {
	return s.ids
}

// Resolver builds identifier sets from dataset snapshots.
type Resolver struct {
	gw core.Gateway
}

// NewResolver creates a resolver over the given gateway.
func NewResolver(gw core.Gateway) *Resolver {
	return &Resolver{gw: gw}
}

// Load reads the dataset's snapshot and returns the set of its identifiers.
// An unreadable dataset yields an empty set, never an error: callers skip
// generation that depends on it rather than aborting the run.
func (r *Resolver) Load(ctx context.Context, spec core.DatasetSpec) *Set {
	rec, err := r.gw.Read(ctx, spec.Name)
	if err != nil {
		logger.GetLogger().Warn("reference dataset unreadable, using empty set",
			zap.String("dataset", spec.Name), zap.Error(err))
		return NewSet()
	}
	defer rec.Release()
	return FromRecord(rec, spec.IDColumn)
}

// FromRecord builds an identifier set from an already-loaded snapshot.
func FromRecord(rec arrow.Record, idColumn string) *Set {
	set := NewSet()
	for _, id := range snapshot.Strings(rec, idColumn) {
		set.Add(id)
	}
	return set
}
