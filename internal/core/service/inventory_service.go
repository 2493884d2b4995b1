package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mgreer/candy-depot/internal/core/domain"
	"github.com/mgreer/candy-depot/internal/port"
)

// InventoryService enforces the business rules on top of the store: argument
// validation, the stock-threshold classifications, and the cheapest-restock
// computation. One instance serves all concurrent requests; the store engine
// serializes writes, so no locking happens here.
type InventoryService struct {
	store  port.StoreRepository
	cache  port.CacheRepository // optional; nil sends every lookup to the store
	logger *zap.Logger
	group  singleflight.Group
}

func NewInventoryService(store port.StoreRepository, cache port.CacheRepository, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{store: store, cache: cache, logger: logger}
}

func (s *InventoryService) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.store.ListItems(ctx)
}

func (s *InventoryService) ListOutOfStock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.store.ListOutOfStock(ctx)
}

func (s *InventoryService) ListOverstock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.store.ListOverstock(ctx)
}

func (s *InventoryService) ListLowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.store.ListLowStock(ctx)
}

func (s *InventoryService) GetInventoryItem(ctx context.Context, inventoryID int64) (*domain.InventoryItem, error) {
	rec, err := s.store.GetInventoryItem(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewNotFound("no inventory record with that id")
	}
	return rec, nil
}

func (s *InventoryService) ListDistributors(ctx context.Context) ([]domain.Distributor, error) {
	return s.store.ListDistributors(ctx)
}

func (s *InventoryService) ListDistributorCatalog(ctx context.Context, distributorID int64) ([]domain.CatalogItem, error) {
	return s.store.ListDistributorCatalog(ctx, distributorID)
}

func (s *InventoryService) ListItemOffers(ctx context.Context, itemID int64) ([]domain.ItemOffer, error) {
	return s.store.ListItemOffers(ctx, itemID)
}

func (s *InventoryService) CreateItem(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.NewConstraintViolation("item name must not be empty", nil)
	}
	id, err := s.store.CreateItem(ctx, name)
	if err != nil {
		return 0, err
	}
	s.logger.Info("item created", zap.Int64("item_id", id), zap.String("name", name))
	return id, nil
}

// AddInventory does not validate stock against capacity; overstock is a
// queryable condition, not a rejected state.
func (s *InventoryService) AddInventory(ctx context.Context, itemID, stock, capacity int64) error {
	if err := s.store.AddInventory(ctx, itemID, stock, capacity); err != nil {
		return err
	}
	s.logger.Info("inventory added", zap.Int64("item_id", itemID),
		zap.Int64("stock", stock), zap.Int64("capacity", capacity))
	return nil
}

func (s *InventoryService) UpdateInventory(ctx context.Context, itemID int64, upd domain.InventoryUpdate) error {
	if upd.Empty() {
		return domain.NewInvalidArgument("at least one of stock or capacity is required")
	}
	ok, err := s.store.UpdateInventory(ctx, itemID, upd)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFound("no inventory record for that item")
	}
	return nil
}

func (s *InventoryService) DeleteInventory(ctx context.Context, itemID int64) (bool, error) {
	removed, err := s.store.DeleteInventory(ctx, itemID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("inventory removed", zap.Int64("item_id", itemID))
	}
	return removed, nil
}

func (s *InventoryService) CreateDistributor(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.NewConstraintViolation("distributor name must not be empty", nil)
	}
	id, err := s.store.CreateDistributor(ctx, name)
	if err != nil {
		return 0, err
	}
	s.logger.Info("distributor created", zap.Int64("distributor_id", id), zap.String("name", name))
	return id, nil
}

// DeleteDistributor cascades to the distributor's catalog entries, which can
// change the cheapest offer for any item, so the whole offer cache goes.
func (s *InventoryService) DeleteDistributor(ctx context.Context, id int64) (bool, error) {
	removed, err := s.store.DeleteDistributor(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.invalidateAllOffers(ctx)
		s.logger.Info("distributor removed", zap.Int64("distributor_id", id))
	}
	return removed, nil
}

func (s *InventoryService) AddCatalogEntry(ctx context.Context, distributorID, itemID int64, cost float64) error {
	if err := s.store.AddCatalogEntry(ctx, distributorID, itemID, cost); err != nil {
		return err
	}
	s.invalidateOffer(ctx, itemID)
	return nil
}

func (s *InventoryService) UpdateCatalogPrice(ctx context.Context, distributorID, itemID int64, cost float64) error {
	ok, err := s.store.UpdateCatalogPrice(ctx, distributorID, itemID, cost)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFound("no catalog entry for that distributor and item")
	}
	s.invalidateOffer(ctx, itemID)
	return nil
}

// CheapestRestock returns the minimum-cost offer for an item scaled by
// quantity, or nil when no distributor sells the item. The nil result is a
// normal outcome, not an error.
func (s *InventoryService) CheapestRestock(ctx context.Context, itemID, quantity int64) (*domain.RestockOption, error) {
	if quantity <= 0 {
		return nil, domain.NewInvalidArgument("quantity must be positive")
	}

	offer, err := s.cheapestOffer(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, nil
	}

	return &domain.RestockOption{
		DistributorID:   offer.DistributorID,
		DistributorName: offer.DistributorName,
		UnitCost:        offer.Cost,
		Quantity:        quantity,
		TotalCost:       offer.Cost * float64(quantity),
	}, nil
}

// Reset recreates the schema and seed fixture and drops every cached offer.
func (s *InventoryService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.invalidateAllOffers(ctx)
	s.logger.Info("database reset and reseeded")
	return nil
}

// cheapestOffer serves cache-aside: cache errors count as misses, and
// concurrent misses for the same item collapse to one store query.
func (s *InventoryService) cheapestOffer(ctx context.Context, itemID int64) (*domain.ItemOffer, error) {
	if s.cache != nil {
		offer, hit, err := s.cache.GetCheapestOffer(ctx, itemID)
		if err != nil {
			s.logger.Warn("offer cache read failed", zap.Int64("item_id", itemID), zap.Error(err))
		} else if hit {
			return offer, nil
		}
	}

	v, err, _ := s.group.Do(strconv.FormatInt(itemID, 10), func() (any, error) {
		offer, err := s.store.CheapestOffer(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if offer != nil && s.cache != nil {
			if err := s.cache.SetCheapestOffer(ctx, itemID, *offer); err != nil {
				s.logger.Warn("offer cache write failed", zap.Int64("item_id", itemID), zap.Error(err))
			}
		}
		return offer, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ItemOffer), nil
}

func (s *InventoryService) invalidateOffer(ctx context.Context, itemID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateItem(ctx, itemID); err != nil {
		s.logger.Warn("offer cache invalidation failed", zap.Int64("item_id", itemID), zap.Error(err))
	}
}

func (s *InventoryService) invalidateAllOffers(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("offer cache flush failed", zap.Error(err))
	}
}
