// Package synth fabricates plausible rows for each dataset, iterating
// calendar days (or months, for inventory) from the dataset's watermark
// through today inclusive. The current date and the random source are passed
// in explicitly so runs are reproducible under a fixed seed.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/refs"
)

// driftEpoch anchors the slow upward price drift applied to numeric fields.
var driftEpoch = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)

// Params holds the tunable generation constants.
type Params struct {
	// Epoch is the fallback watermark for derived datasets that are empty.
	Epoch time.Time

	// CustomersPerDay is the inclusive [min, max] of new customers per day.
	CustomersPerDay [2]int

	// OrdersPerDay is the inclusive [min, max] of new orders per day.
	OrdersPerDay [2]int

	// LinesPerOrder is the inclusive [min, max] of lines per new order.
	LinesPerOrder [2]int

	// ReturnProbability is the chance an eligible order line yields a return.
	ReturnProbability float64
}

// DefaultParams returns the stock generation constants.
func DefaultParams() Params {
	return Params{
		Epoch:             time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		CustomersPerDay:   [2]int{5, 10},
		OrdersPerDay:      [2]int{80, 120},
		LinesPerOrder:     [2]int{1, 3},
		ReturnProbability: 0.4,
	}
}

// Order is a parent record created during the current run, carried so that
// dependent order lines inherit its date, merchant and customer.
type Order struct {
	ID         string
	Merchant   string
	Status     string
	CustomerID string
	Date       time.Time
}

// Line is an order line created during the current run, carried so that
// dependent returns inherit its references.
type Line struct {
	ID         string
	OrderID    string
	ProductID  string
	CustomerID string
	Merchant   string
	Date       time.Time
}

// Synthesizer generates rows for one run. Not safe for concurrent use; a run
// is single-threaded by design.
type Synthesizer struct {
	rng    *rand.Rand
	today  time.Time
	params Params
}

// New creates a synthesizer for a run dated today, drawing randomness from rng.
func New(rng *rand.Rand, today time.Time, params Params) *Synthesizer {
	return &Synthesizer{rng: rng, today: midnight(today), params: params}
}

// NewID generates an identifier as prefix plus a random numeric string,
// retrying a few times against the given set. The identifier space is large
// enough that residual collision probability is treated as negligible.
func (s *Synthesizer) NewID(prefix string, taken *refs.Set) string {
	for attempt := 0; ; attempt++ {
		id := fmt.Sprintf("%s-%d", prefix, 10000000+s.rng.Int63n(9999999999-10000000))
		if taken == nil || !taken.Contains(id) || attempt >= 10 {
			return id
		}
	}
}

// Customers fabricates new customers for each day after the watermark up to
// today. Locations are sampled from the existing snapshot's distinct tuples
// (with a built-in fallback for fresh datasets), emails are kept unique on a
// best-effort basis, and every new id is added to the customers set so
// same-run orders can reference it.
func (s *Synthesizer) Customers(watermark time.Time, locations []core.Row, emails map[string]bool, customers *refs.Set) []core.Row {
	if len(locations) == 0 {
		locations = defaultLocations
	}
	if emails == nil {
		emails = make(map[string]bool)
	}

	var rows []core.Row
	for _, day := range s.days(watermark) {
		for i := 0; i < s.between(s.params.CustomersPerDay); i++ {
			id := s.NewID(core.Customers.IDPrefix, customers)
			first := pick(s.rng, firstNames)
			last := pick(s.rng, lastNames)
			email := s.uniqueEmail(first, last, emails)
			loc := locations[s.rng.Intn(len(locations))]

			row := core.Row{
				"customer_id":                    id,
				"ls__customer_id__customer_name": first + " " + last,
				"customer_email":                 email,
				"customer_created_date":          day.Format(core.DateLayout),
				"wdf__client_id":                 pick(s.rng, merchants),
			}
			for _, col := range LocationColumns {
				row[col] = loc[col]
			}
			rows = append(rows, row)
			customers.Add(id)
		}
	}
	return rows
}

// Orders fabricates new orders for each day after the watermark, each
// referencing a customer from the working set (existing or created this run).
// New ids are checked against the loaded order set. An empty customer set
// skips generation entirely.
func (s *Synthesizer) Orders(watermark time.Time, customers, orders *refs.Set) ([]core.Row, []Order) {
	if customers.Len() == 0 {
		return nil, nil
	}

	var rows []core.Row
	var created []Order
	for _, day := range s.days(watermark) {
		for i := 0; i < s.between(s.params.OrdersPerDay); i++ {
			order := Order{
				ID:         s.NewID(core.Orders.IDPrefix, orders),
				Merchant:   pick(s.rng, merchants),
				Status:     pick(s.rng, orderStatuses),
				CustomerID: customers.Random(s.rng),
				Date:       day,
			}
			rows = append(rows, core.Row{
				"order_id":       order.ID,
				"wdf__client_id": order.Merchant,
				"order_status":   order.Status,
				"order_date":     day.Format(core.DateLayout),
				"customer_id":    order.CustomerID,
			})
			created = append(created, order)
		}
	}
	return rows, created
}

// Lines fabricates order lines for the orders created this run whose date
// falls after the lines watermark. Merchant and customer are copied from the
// parent order; the event timestamp and the duplicated order-date field are
// generated once per line and copied, never randomized independently.
func (s *Synthesizer) Lines(watermark time.Time, orders []Order, products *refs.Set) ([]core.Row, []Line) {
	if len(orders) == 0 || products.Len() == 0 {
		return nil, nil
	}
	watermark = midnight(watermark)

	var rows []core.Row
	var lines []Line
	for _, order := range orders {
		if !order.Date.After(watermark) || order.Date.After(s.today) {
			continue
		}
		drift := s.drift(order.Date)
		for i := 0; i < s.between(s.params.LinesPerOrder); i++ {
			line := Line{
				ID:         s.NewID(core.OrderLines.IDPrefix, nil),
				OrderID:    order.ID,
				ProductID:  products.Random(s.rng),
				CustomerID: order.CustomerID,
				Merchant:   order.Merchant,
				Date:       order.Date,
			}
			stamp := s.timestampOn(order.Date)
			rows = append(rows, core.Row{
				"order_line_id":         line.ID,
				"order__order_id":       line.OrderID,
				"product__product_id":   line.ProductID,
				"customer__customer_id": line.CustomerID,
				"order_unit_price":      round2(s.uniform(5, 200) + drift),
				"order_unit_quantity":   float64(1 + s.rng.Intn(5)),
				"wdf__client_id":        line.Merchant,
				"order_unit_discount":   round2(s.uniform(0, 50)),
				"order_unit_cost":       round2(s.uniform(5, 150) + drift),
				"date":                  stamp,
				"order_date":            stamp,
				"customer_age":          fmt.Sprintf("%dM+", 18+s.rng.Intn(53)),
			})
			lines = append(lines, line)
		}
	}
	return rows, lines
}

// Returns fabricates returns for a probabilistic subset of this run's order
// lines dated after the returns watermark. Lines whose order or customer
// reference does not resolve are skipped rather than producing an orphan row.
func (s *Synthesizer) Returns(watermark time.Time, lines []Line, orders, customers *refs.Set) []core.Row {
	watermark = midnight(watermark)

	var rows []core.Row
	for _, line := range lines {
		if !line.Date.After(watermark) || line.Date.After(s.today) {
			continue
		}
		if !orders.Contains(line.OrderID) || !customers.Contains(line.CustomerID) {
			continue
		}
		if s.rng.Float64() >= s.params.ReturnProbability {
			continue
		}
		drift := s.drift(line.Date)
		stamp := line.Date.Format(core.TimestampLayout)
		rows = append(rows, core.Row{
			"return_id":               s.NewID(core.Returns.IDPrefix, nil),
			"order__order_id":         line.OrderID,
			"product__product_id":     line.ProductID,
			"customer__customer_id":   line.CustomerID,
			"return_unit_cost":        round2(s.uniform(5, 150) + drift),
			"return_unit_quantity":    float64(1 + s.rng.Intn(3)),
			"wdf__client_id":          line.Merchant,
			"return_unit_paid_amount": round2(s.uniform(5, 200) + drift),
			"date":                    stamp,
			"return_date":             stamp,
		})
	}
	return rows
}

// Inventory fabricates one row per (product, month) pair for every month
// after the watermark's month, skipping pairs already present in the
// snapshot. existingPairs is keyed by InventoryKey.
func (s *Synthesizer) Inventory(watermark time.Time, existingPairs map[string]bool, products *refs.Set) []core.Row {
	if products.Len() == 0 {
		return nil
	}
	if existingPairs == nil {
		existingPairs = make(map[string]bool)
	}

	var rows []core.Row
	for month := nextMonth(watermark); !month.After(s.today); month = month.AddDate(0, 1, 0) {
		drift := s.drift(month)
		monthStr := month.Format(core.DateLayout)
		for _, productID := range products.IDs() {
			if existingPairs[InventoryKey(productID, monthStr)] {
				continue
			}
			rows = append(rows, core.Row{
				"monthly_inventory_id": s.NewID(core.MonthlyInventory.IDPrefix, nil),
				"product__product_id":  productID,
				"inventory_month":      monthStr,
				"monthly_quantity_eom": round2(float64(300+s.rng.Intn(1701)) + drift),
				"wdf__client_id":       pick(s.rng, merchants),
				"monthly_quantity_bom": round2(float64(300+s.rng.Intn(1701)) + drift),
				"date":                 month.Format(core.TimestampLayout),
			})
		}
	}
	return rows
}

// InventoryKey builds the uniqueness key for a (product, month) pair.
func InventoryKey(productID, month string) string {
	return productID + "|" + month
}

// days returns every day strictly after the watermark through today inclusive.
func (s *Synthesizer) days(watermark time.Time) []time.Time {
	var out []time.Time
	for day := midnight(watermark).AddDate(0, 0, 1); !day.After(s.today); day = day.AddDate(0, 0, 1) {
		out = append(out, day)
	}
	return out
}

// uniqueEmail builds an email not present in taken, giving up after ten
// attempts. The chosen email is recorded in taken either way.
func (s *Synthesizer) uniqueEmail(first, last string, taken map[string]bool) string {
	var email string
	for attempt := 0; ; attempt++ {
		email = fmt.Sprintf("%s.%s_%d@example.com",
			strings.ToLower(first), strings.ToLower(last), 1+s.rng.Intn(9999))
		if !taken[email] || attempt >= 10 {
			break
		}
	}
	taken[email] = true
	return email
}

// timestampOn combines the given day with a random time of day.
func (s *Synthesizer) timestampOn(day time.Time) string {
	t := time.Date(day.Year(), day.Month(), day.Day(),
		s.rng.Intn(24), s.rng.Intn(60), s.rng.Intn(60), 0, time.UTC)
	return t.Format(core.TimestampLayout)
}

// drift is the deterministic upward creep applied to prices and quantities so
// later data trends higher.
func (s *Synthesizer) drift(date time.Time) float64 {
	days := date.Sub(driftEpoch).Hours() / 24
	if days < 0 {
		return 0
	}
	return days * 0.1
}

func (s *Synthesizer) between(bounds [2]int) int {
	if bounds[1] <= bounds[0] {
		return bounds[0]
	}
	return bounds[0] + s.rng.Intn(bounds[1]-bounds[0]+1)
}

func (s *Synthesizer) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func round2(v float64) float64 {
	if v < 0 {
		v = 0
	}
	return math.Round(v*100) / 100
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
