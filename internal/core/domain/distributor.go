package domain

type Distributor struct {
	ID   int64
	Name string
}

// CatalogItem is one priced item in a distributor's catalog.
type CatalogItem struct {
	ItemID   int64
	ItemName string
	Cost     float64
}

// ItemOffer is one distributor's price for an item.
type ItemOffer struct {
	DistributorID   int64   `json:"distributor_id"`
	DistributorName string  `json:"distributor_name"`
	Cost            float64 `json:"cost"`
}
