package port

import (
	"context"

	"github.com/mgreer/candy-depot/internal/core/domain"
)

// CacheRepository caches cheapest-offer lookups. The cache is advisory:
// every value it holds can be recomputed from the store, so callers treat
// errors as misses. Implementations must be safe for concurrent use.
type CacheRepository interface {
	// GetCheapestOffer returns the cached offer for an item and whether the
	// key was present.
	GetCheapestOffer(ctx context.Context, itemID int64) (*domain.ItemOffer, bool, error)

	SetCheapestOffer(ctx context.Context, itemID int64, offer domain.ItemOffer) error

	// InvalidateItem drops the cached offer for one item.
	InvalidateItem(ctx context.Context, itemID int64) error

	// InvalidateAll drops every cached offer.
	InvalidateAll(ctx context.Context) error
}
