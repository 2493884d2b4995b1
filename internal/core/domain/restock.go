package domain

// RestockOption is the cheapest way to restock a quantity of one item:
// the lowest-cost catalog entry across all distributors, scaled by the
// requested quantity.
type RestockOption struct {
	DistributorID   int64
	DistributorName string
	UnitCost        float64
	Quantity        int64
	TotalCost       float64
}
