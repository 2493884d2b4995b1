package port

import (
	"context"

	"github.com/mgreer/candy-depot/internal/core/domain"
)

// StoreRepository is the persistence boundary for items, inventory records,
// distributors and catalog prices. Implementations classify failures with
// the domain error codes; "row absent" outcomes are reported in-band
// (nil pointers, false booleans), never as errors.
type StoreRepository interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
	ListOutOfStock(ctx context.Context) ([]domain.InventoryItem, error)
	ListOverstock(ctx context.Context) ([]domain.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]domain.InventoryItem, error)

	// GetInventoryItem returns nil when no inventory row has the given id.
	GetInventoryItem(ctx context.Context, inventoryID int64) (*domain.InventoryItem, error)

	ListDistributors(ctx context.Context) ([]domain.Distributor, error)

	// ListDistributorCatalog and ListItemOffers return an empty slice both
	// for an entity with no entries and for an unknown entity; the caller
	// decides how to surface the difference, if at all.
	ListDistributorCatalog(ctx context.Context, distributorID int64) ([]domain.CatalogItem, error)
	ListItemOffers(ctx context.Context, itemID int64) ([]domain.ItemOffer, error)

	// CheapestOffer returns the lowest-cost offer for an item, ties broken
	// by lowest distributor id. Nil when no distributor sells the item.
	CheapestOffer(ctx context.Context, itemID int64) (*domain.ItemOffer, error)

	CreateItem(ctx context.Context, name string) (int64, error)
	AddInventory(ctx context.Context, itemID, stock, capacity int64) error

	// UpdateInventory applies the supplied fields to the inventory record
	// whose item column matches itemID. Reports false when no row matched.
	UpdateInventory(ctx context.Context, itemID int64, upd domain.InventoryUpdate) (bool, error)

	// DeleteInventory reports whether a row was removed. Deleting an absent
	// record is a no-op, not a failure.
	DeleteInventory(ctx context.Context, itemID int64) (bool, error)

	CreateDistributor(ctx context.Context, name string) (int64, error)

	// DeleteDistributor removes the distributor and, by cascade, all of its
	// catalog entries. Reports whether a row was removed.
	DeleteDistributor(ctx context.Context, id int64) (bool, error)

	AddCatalogEntry(ctx context.Context, distributorID, itemID int64, cost float64) error

	// UpdateCatalogPrice updates the entry keyed by the (distributor, item)
	// pair. Reports false when no row matched.
	UpdateCatalogPrice(ctx context.Context, distributorID, itemID int64, cost float64) (bool, error)

	// Reset drops and recreates the schema and reapplies the seed fixture.
	Reset(ctx context.Context) error
}
