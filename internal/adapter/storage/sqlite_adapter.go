package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/mgreer/candy-depot/internal/core/domain"
)

//go:embed schema.sql
var schemaSQL string

//go:embed seed.sql
var seedSQL string

// SQLiteAdapter implements port.StoreRepository on an embedded SQLite file.
type SQLiteAdapter struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path and applies the schema.
// The connection pool is capped at one connection: SQLite allows a single
// writer, and the busy timeout covers callers queued behind it. Safe to call
// on an existing database.
func Open(path string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteAdapter{db: db}, nil
}

func (s *SQLiteAdapter) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Reset drops all tables, recreates the schema and reapplies the seed
// fixture as one transaction.
func (s *SQLiteAdapter) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageFailure("begin reset", err)
	}
	defer tx.Rollback()

	drops := []string{
		"DROP TABLE IF EXISTS distributor_prices",
		"DROP TABLE IF EXISTS inventory",
		"DROP TABLE IF EXISTS distributors",
		"DROP TABLE IF EXISTS items",
	}
	for _, stmt := range drops {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return domain.NewStorageFailure("drop tables", err)
		}
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return domain.NewStorageFailure("apply schema", err)
	}
	if _, err := tx.ExecContext(ctx, seedSQL); err != nil {
		return domain.NewStorageFailure("seed database", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageFailure("commit reset", err)
	}
	return nil
}

func (s *SQLiteAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM items`)
	if err != nil {
		return nil, domain.NewStorageFailure("list items", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, domain.NewStorageFailure("scan item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageFailure("list items", err)
	}
	return items, nil
}

const inventorySelect = `
	SELECT inventory.id, inventory.item, items.name, inventory.stock, inventory.capacity
	FROM inventory
	JOIN items ON inventory.item = items.id`

func (s *SQLiteAdapter) ListOutOfStock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.queryInventory(ctx, inventorySelect+` WHERE inventory.stock = 0`)
}

func (s *SQLiteAdapter) ListOverstock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.queryInventory(ctx, inventorySelect+` WHERE inventory.stock > inventory.capacity`)
}

// ListLowStock returns records below 35% of capacity. A capacity of zero is
// never low stock; the explicit guard keeps the division defined.
func (s *SQLiteAdapter) ListLowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.queryInventory(ctx, inventorySelect+`
		WHERE inventory.capacity > 0
		AND CAST(inventory.stock AS REAL) / inventory.capacity < 0.35`)
}

func (s *SQLiteAdapter) queryInventory(ctx context.Context, query string, args ...any) ([]domain.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageFailure("list inventory", err)
	}
	defer rows.Close()

	records := []domain.InventoryItem{}
	for rows.Next() {
		var rec domain.InventoryItem
		if err := rows.Scan(&rec.ID, &rec.ItemID, &rec.Name, &rec.Stock, &rec.Capacity); err != nil {
			return nil, domain.NewStorageFailure("scan inventory", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageFailure("list inventory", err)
	}
	return records, nil
}

func (s *SQLiteAdapter) GetInventoryItem(ctx context.Context, inventoryID int64) (*domain.InventoryItem, error) {
	var rec domain.InventoryItem
	err := s.db.QueryRowContext(ctx, inventorySelect+` WHERE inventory.id = ?`, inventoryID).
		Scan(&rec.ID, &rec.ItemID, &rec.Name, &rec.Stock, &rec.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageFailure("get inventory item", err)
	}
	return &rec, nil
}

func (s *SQLiteAdapter) ListDistributors(ctx context.Context) ([]domain.Distributor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM distributors`)
	if err != nil {
		return nil, domain.NewStorageFailure("list distributors", err)
	}
	defer rows.Close()

	distributors := []domain.Distributor{}
	for rows.Next() {
		var d domain.Distributor
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, domain.NewStorageFailure("scan distributor", err)
		}
		distributors = append(distributors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageFailure("list distributors", err)
	}
	return distributors, nil
}

func (s *SQLiteAdapter) ListDistributorCatalog(ctx context.Context, distributorID int64) ([]domain.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT items.id, items.name, distributor_prices.cost
		FROM distributor_prices
		JOIN items ON distributor_prices.item = items.id
		WHERE distributor_prices.distributor = ?`, distributorID)
	if err != nil {
		return nil, domain.NewStorageFailure("list distributor catalog", err)
	}
	defer rows.Close()

	entries := []domain.CatalogItem{}
	for rows.Next() {
		var e domain.CatalogItem
		if err := rows.Scan(&e.ItemID, &e.ItemName, &e.Cost); err != nil {
			return nil, domain.NewStorageFailure("scan catalog entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageFailure("list distributor catalog", err)
	}
	return entries, nil
}

func (s *SQLiteAdapter) ListItemOffers(ctx context.Context, itemID int64) ([]domain.ItemOffer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT distributors.id, distributors.name, distributor_prices.cost
		FROM distributor_prices
		JOIN distributors ON distributor_prices.distributor = distributors.id
		WHERE distributor_prices.item = ?`, itemID)
	if err != nil {
		return nil, domain.NewStorageFailure("list item offers", err)
	}
	defer rows.Close()

	offers := []domain.ItemOffer{}
	for rows.Next() {
		var o domain.ItemOffer
		if err := rows.Scan(&o.DistributorID, &o.DistributorName, &o.Cost); err != nil {
			return nil, domain.NewStorageFailure("scan item offer", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageFailure("list item offers", err)
	}
	return offers, nil
}

// CheapestOffer orders by cost, then distributor id so that price ties
// resolve deterministically to the lowest distributor id.
func (s *SQLiteAdapter) CheapestOffer(ctx context.Context, itemID int64) (*domain.ItemOffer, error) {
	var o domain.ItemOffer
	err := s.db.QueryRowContext(ctx, `
		SELECT distributors.id, distributors.name, distributor_prices.cost
		FROM distributor_prices
		JOIN distributors ON distributor_prices.distributor = distributors.id
		WHERE distributor_prices.item = ?
		ORDER BY distributor_prices.cost ASC, distributor_prices.distributor ASC
		LIMIT 1`, itemID).
		Scan(&o.DistributorID, &o.DistributorName, &o.Cost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStorageFailure("cheapest offer", err)
	}
	return &o, nil
}

func (s *SQLiteAdapter) CreateItem(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO items (name) VALUES (?)`, name)
	if err != nil {
		return 0, classify("create item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.NewStorageFailure("create item", err)
	}
	return id, nil
}

func (s *SQLiteAdapter) AddInventory(ctx context.Context, itemID, stock, capacity int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inventory (item, stock, capacity) VALUES (?, ?, ?)`,
		itemID, stock, capacity)
	if err != nil {
		return classify("add inventory", err)
	}
	return nil
}

func (s *SQLiteAdapter) UpdateInventory(ctx context.Context, itemID int64, upd domain.InventoryUpdate) (bool, error) {
	set := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if upd.Stock != nil {
		set = append(set, "stock = ?")
		args = append(args, *upd.Stock)
	}
	if upd.Capacity != nil {
		set = append(set, "capacity = ?")
		args = append(args, *upd.Capacity)
	}
	if len(set) == 0 {
		return false, domain.NewInvalidArgument("no inventory fields supplied")
	}
	args = append(args, itemID)

	res, err := s.db.ExecContext(ctx,
		"UPDATE inventory SET "+strings.Join(set, ", ")+" WHERE item = ?", args...)
	if err != nil {
		return false, classify("update inventory", err)
	}
	return affected(res, "update inventory")
}

func (s *SQLiteAdapter) DeleteInventory(ctx context.Context, itemID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM inventory WHERE item = ?`, itemID)
	if err != nil {
		return false, domain.NewStorageFailure("delete inventory", err)
	}
	return affected(res, "delete inventory")
}

func (s *SQLiteAdapter) CreateDistributor(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO distributors (name) VALUES (?)`, name)
	if err != nil {
		return 0, classify("create distributor", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.NewStorageFailure("create distributor", err)
	}
	return id, nil
}

func (s *SQLiteAdapter) DeleteDistributor(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM distributors WHERE id = ?`, id)
	if err != nil {
		return false, domain.NewStorageFailure("delete distributor", err)
	}
	return affected(res, "delete distributor")
}

func (s *SQLiteAdapter) AddCatalogEntry(ctx context.Context, distributorID, itemID int64, cost float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO distributor_prices (distributor, item, cost) VALUES (?, ?, ?)`,
		distributorID, itemID, cost)
	if err != nil {
		return classify("add catalog entry", err)
	}
	return nil
}

func (s *SQLiteAdapter) UpdateCatalogPrice(ctx context.Context, distributorID, itemID int64, cost float64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE distributor_prices SET cost = ? WHERE distributor = ? AND item = ?`,
		cost, distributorID, itemID)
	if err != nil {
		return false, classify("update catalog price", err)
	}
	return affected(res, "update catalog price")
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.NewStorageFailure(op, err)
	}
	return n > 0, nil
}

// classify maps driver errors to the domain taxonomy: constraint violations
// (UNIQUE, CHECK, FOREIGN KEY) surface as such, everything else is a storage
// failure.
func classify(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return domain.NewConstraintViolation(op, err)
	}
	return domain.NewStorageFailure(op, err)
}
