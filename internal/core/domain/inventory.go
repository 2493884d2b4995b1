package domain

// InventoryItem is an inventory row joined with the name of the item it
// tracks. Stock and capacity are caller-supplied and never clamped; overstock
// (stock > capacity) is a reportable condition, not a rejected state.
type InventoryItem struct {
	ID       int64
	ItemID   int64
	Name     string
	Stock    int64
	Capacity int64
}

// InventoryUpdate carries the fields of a partial inventory update.
// A nil field is left unchanged; at least one field must be set.
type InventoryUpdate struct {
	Stock    *int64
	Capacity *int64
}

func (u InventoryUpdate) Empty() bool {
	return u.Stock == nil && u.Capacity == nil
}
