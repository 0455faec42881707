package domain

import "github.com/shopspring/decimal"

// Product carries the sizing attributes the allocation engine reads from the catalog.
type Product struct {
	ProductID         int64
	Name              string
	UnitWeight        decimal.Decimal
	TrainSpacePerUnit decimal.Decimal
}

// Footprint is the space and weight an order consumes on a trip.
type Footprint struct {
	Space  decimal.Decimal
	Weight decimal.Decimal
}
