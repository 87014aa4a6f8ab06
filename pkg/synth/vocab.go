package synth

import "github.com/TFMV/fabrica/pkg/core"

// Closed vocabularies for randomized fields. Values are drawn uniformly; no
// statistical fidelity is intended, only schema and referential validity.

var firstNames = []string{"Emma", "Olivia", "Liam", "Noah", "Ava", "James", "Mark"}

var lastNames = []string{"Smith", "Johnson", "Williams"}

var merchants = []string{
	"merchant__electronics",
	"merchant__clothing",
	"merchant__bigboxretailer",
}

var orderStatuses = []string{"Processed", "Completed", "In Cart", "Canceled"}

// LocationColumns are the customer columns that together form one location
// tuple. Tuples are sampled from the existing customer snapshot so new
// customers reuse plausible geography.
var LocationColumns = []string{
	"customer_city",
	"customer_state",
	"customer_country",
	"geo__customer_city__city_pushpin_longitude",
	"geo__customer_city__city_pushpin_latitude",
}

// defaultLocations seed a fresh customer dataset that has no locations to
// sample from yet.
var defaultLocations = []core.Row{
	{
		"customer_city":    "Seattle",
		"customer_state":   "WA",
		"customer_country": "United States",
		"geo__customer_city__city_pushpin_longitude": -122.3321,
		"geo__customer_city__city_pushpin_latitude":  47.6062,
	},
	{
		"customer_city":    "Austin",
		"customer_state":   "TX",
		"customer_country": "United States",
		"geo__customer_city__city_pushpin_longitude": -97.7431,
		"geo__customer_city__city_pushpin_latitude":  30.2672,
	},
	{
		"customer_city":    "Chicago",
		"customer_state":   "IL",
		"customer_country": "United States",
		"geo__customer_city__city_pushpin_longitude": -87.6298,
		"geo__customer_city__city_pushpin_latitude":  41.8781,
	},
	{
		"customer_city":    "New York",
		"customer_state":   "NY",
		"customer_country": "United States",
		"geo__customer_city__city_pushpin_longitude": -74.006,
		"geo__customer_city__city_pushpin_latitude":  40.7128,
	},
}
