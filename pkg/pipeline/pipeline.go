// Package pipeline runs one generation pass: for every dataset it determines
// the missing date range, synthesizes referentially valid rows, merges them
// into the snapshot and persists the result. Datasets are processed
// sequentially in dependency order; a failure in one dataset is recorded and
// never aborts the others.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/TFMV/fabrica/logger"
	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/merge"
	"github.com/TFMV/fabrica/pkg/refs"
	"github.com/TFMV/fabrica/pkg/snapshot"
	"github.com/TFMV/fabrica/pkg/synth"
	"github.com/TFMV/fabrica/pkg/watermark"
	"github.com/TFMV/fabrica/report"
	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
)

// Options tune a runner beyond the synthesis parameters.
type Options struct {
	// OrdersWatermark selects "marker" or "derived" watermarking for orders.
	OrdersWatermark string

	// DeltaOnly writes only new rows per dataset instead of the full snapshot.
	DeltaOnly bool

	// Seed is recorded in the run report for reproducibility.
	Seed int64

	// Backend is recorded in the run report.
	Backend string
}

// Runner executes generation runs over a gateway. Single-writer: concurrent
// runs against the same storage are not supported.
type Runner struct {
	gw     core.Gateway
	marks  *watermark.Store
	params synth.Params
	opts   Options
	log    *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(gw core.Gateway, params synth.Params, opts Options) *Runner {
	if opts.OrdersWatermark == "" {
		opts.OrdersWatermark = "marker"
	}
	return &Runner{
		gw:     gw,
		marks:  watermark.NewStore(gw),
		params: params,
		opts:   opts,
		log:    logger.GetLogger(),
	}
}

// Run processes all datasets for the window ending at today. The random
// source is passed in so runs are reproducible under a fixed seed.
func (r *Runner) Run(ctx context.Context, today time.Time, rng *rand.Rand) *report.RunReport {
	rep := report.NewRunReport(today.Format(core.DateLayout), r.opts.Seed, r.opts.Backend)
	defer rep.Finish()

	s := synth.New(rng, today, r.params)
	products := refs.NewResolver(r.gw).Load(ctx, core.Products)

	customers, custResult := r.runCustomers(ctx, s)
	rep.Add(custResult)

	orders, newOrders, orderResult := r.runOrders(ctx, s, today, customers)
	rep.Add(orderResult)

	newLines, lineResult := r.runLines(ctx, s, newOrders, products)
	rep.Add(lineResult)

	rep.Add(r.runReturns(ctx, s, newLines, orders, customers))
	rep.Add(r.runInventory(ctx, s, products))

	return rep
}

// runCustomers generates new customers and returns the mutable customer id
// set shared with the downstream datasets.
func (r *Runner) runCustomers(ctx context.Context, s *synth.Synthesizer) (*refs.Set, report.DatasetResult) {
	spec := core.Customers
	existing := r.readSnapshot(ctx, spec.Name)
	defer release(existing)

	customers := refs.FromRecord(existing, spec.IDColumn)
	emails := snapshot.StringSet(existing, "customer_email")
	locations := snapshot.DistinctRows(existing, synth.LocationColumns)

	before := watermark.FromColumn(existing, spec.DateColumn, r.params.Epoch)
	rows := s.Customers(before, locations, emails, customers)

	result := r.persist(ctx, spec, existing, rows, before)
	return customers, result
}

// runOrders generates new orders against the customer working set, returning
// the full order id set and the orders created this run. The marker is
// advanced only after a successful persist.
func (r *Runner) runOrders(ctx context.Context, s *synth.Synthesizer, today time.Time, customers *refs.Set) (*refs.Set, []synth.Order, report.DatasetResult) {
	spec := core.Orders
	existing := r.readSnapshot(ctx, spec.Name)
	defer release(existing)

	orders := refs.FromRecord(existing, spec.IDColumn)

	var before time.Time
	if r.opts.OrdersWatermark == "derived" {
		before = watermark.FromColumn(existing, spec.DateColumn, r.params.Epoch)
	} else {
		before = r.marks.FromMarker(ctx, core.OrdersMarker, today)
	}

	rows, newOrders := s.Orders(before, customers, orders)
	if customers.Len() == 0 {
		r.log.Warn("no customers available, skipping order generation")
		return orders, nil, report.DatasetResult{
			Dataset:         spec.Name,
			Skipped:         true,
			WatermarkBefore: before.Format(core.DateLayout),
			WatermarkAfter:  before.Format(core.DateLayout),
		}
	}

	result := r.persist(ctx, spec, existing, rows, before)
	if result.Error == "" {
		for _, o := range newOrders {
			orders.Add(o.ID)
		}
		if r.opts.OrdersWatermark == "marker" && len(rows) > 0 {
			if err := r.marks.AdvanceMarker(ctx, core.OrdersMarker, today); err != nil {
				result.Error = err.Error()
			}
		}
	}
	return orders, newOrders, result
}

// runLines generates order lines for this run's orders.
func (r *Runner) runLines(ctx context.Context, s *synth.Synthesizer, newOrders []synth.Order, products *refs.Set) ([]synth.Line, report.DatasetResult) {
	spec := core.OrderLines
	existing := r.readSnapshot(ctx, spec.Name)
	defer release(existing)

	before := watermark.FromColumn(existing, spec.DateColumn, r.params.Epoch)
	if products.Len() == 0 {
		r.log.Warn("no products available, skipping order line generation")
		return nil, report.DatasetResult{
			Dataset:         spec.Name,
			Skipped:         true,
			WatermarkBefore: before.Format(core.DateLayout),
			WatermarkAfter:  before.Format(core.DateLayout),
		}
	}

	rows, newLines := s.Lines(before, newOrders, products)
	return newLines, r.persist(ctx, spec, existing, rows, before)
}

// runReturns generates returns for a probabilistic subset of this run's lines.
func (r *Runner) runReturns(ctx context.Context, s *synth.Synthesizer, newLines []synth.Line, orders, customers *refs.Set) report.DatasetResult {
	spec := core.Returns
	existing := r.readSnapshot(ctx, spec.Name)
	defer release(existing)

	before := watermark.FromColumn(existing, spec.DateColumn, r.params.Epoch)
	rows := s.Returns(before, newLines, orders, customers)
	return r.persist(ctx, spec, existing, rows, before)
}

// runInventory generates one row per (product, month) pair not yet present.
func (r *Runner) runInventory(ctx context.Context, s *synth.Synthesizer, products *refs.Set) report.DatasetResult {
	spec := core.MonthlyInventory
	existing := r.readSnapshot(ctx, spec.Name)
	defer release(existing)

	before := watermark.FromColumn(existing, spec.DateColumn, r.params.Epoch)
	if products.Len() == 0 {
		r.log.Warn("no products available, skipping inventory generation")
		return report.DatasetResult{
			Dataset:         spec.Name,
			Skipped:         true,
			WatermarkBefore: before.Format(core.DateLayout),
			WatermarkAfter:  before.Format(core.DateLayout),
		}
	}

	rows := s.Inventory(before, existingInventoryPairs(existing), products)
	return r.persist(ctx, spec, existing, rows, before)
}

// persist merges the new rows into the snapshot and writes either the full
// result or only the delta. Zero new rows means the dataset is already up to
// date and nothing is written.
func (r *Runner) persist(ctx context.Context, spec core.DatasetSpec, existing arrow.Record, rows []core.Row, before time.Time) report.DatasetResult {
	result := report.DatasetResult{
		Dataset:         spec.Name,
		RowsGenerated:   len(rows),
		WatermarkBefore: before.Format(core.DateLayout),
		WatermarkAfter:  before.Format(core.DateLayout),
	}

	if len(rows) == 0 {
		r.log.Info("dataset already up to date", zap.String("dataset", spec.Name))
		return result
	}

	merged, delta, err := merge.Append(existing, rows, spec)
	if err != nil {
		result.Error = fmt.Sprintf("merge: %v", err)
		return result
	}
	defer merged.Release()
	defer delta.Release()

	if r.opts.DeltaOnly {
		err = r.gw.WriteDelta(ctx, spec.Name, delta)
	} else {
		err = r.gw.WriteFull(ctx, spec.Name, merged)
	}
	if err != nil {
		result.Error = err.Error()
		r.log.Error("failed to persist dataset",
			zap.String("dataset", spec.Name), zap.Error(err))
		return result
	}

	if max, ok := lastRowDate(rows, spec.DateColumn); ok {
		result.WatermarkAfter = max.Format(core.DateLayout)
	}
	r.log.Info("dataset updated",
		zap.String("dataset", spec.Name),
		zap.Int("rows", len(rows)),
		zap.String("watermark", result.WatermarkAfter))
	return result
}

// readSnapshot loads a dataset, mapping missing or unreadable datasets to a
// nil record so generation proceeds against an empty snapshot.
func (r *Runner) readSnapshot(ctx context.Context, dataset string) arrow.Record {
	rec, err := r.gw.Read(ctx, dataset)
	if err != nil {
		r.log.Info("snapshot unavailable, treating as empty",
			zap.String("dataset", dataset), zap.Error(err))
		return nil
	}
	return rec
}

// existingInventoryPairs collects the (product, month) pairs already present.
func existingInventoryPairs(rec arrow.Record) map[string]bool {
	pairs := make(map[string]bool)
	for _, row := range snapshot.DistinctRows(rec, []string{"product__product_id", "inventory_month"}) {
		product, month := dateString(row["product__product_id"]), dateString(row["inventory_month"])
		if product == "" || month == "" {
			continue
		}
		pairs[synth.InventoryKey(product, month)] = true
	}
	return pairs
}

// lastRowDate scans generated rows for the maximum value of the date column.
func lastRowDate(rows []core.Row, column string) (time.Time, bool) {
	var max time.Time
	found := false
	for _, row := range rows {
		s, ok := row[column].(string)
		if !ok {
			continue
		}
		var t time.Time
		var err error
		if t, err = time.Parse(core.DateLayout, s); err != nil {
			if t, err = time.Parse(core.TimestampLayout, s); err != nil {
				continue
			}
		}
		if !found || t.After(max) {
			max = t
			found = true
		}
	}
	return max, found
}

func dateString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(core.DateLayout)
	default:
		return ""
	}
}

func release(rec arrow.Record) {
	if rec != nil {
		rec.Release()
	}
}
