package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mgreer/candy-depot/internal/adapter/storage"
	"github.com/mgreer/candy-depot/internal/core/service"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "candy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Reset(context.Background()))

	mux := http.NewServeMux()
	NewHTTPHandler(service.NewInventoryService(store, nil, nil), nil).Register(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestListItems(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/items", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []itemResponse
	decodeBody(t, rec, &items)
	assert.Len(t, items, 17)
}

func TestGetInventoryItem(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/inventory/item/5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rec5 inventoryItemResponse
	decodeBody(t, rec, &rec5)
	assert.Equal(t, inventoryItemResponse{ID: 5, Name: "Necco Wafers", Stock: 14, Capacity: 15}, rec5)
}

func TestGetInventoryItem_NotFound(t *testing.T) {
	mux := newTestMux(t)
	rec := do(t, mux, http.MethodGet, "/inventory/item/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInventoryItem_MalformedID(t *testing.T) {
	mux := newTestMux(t)
	rec := do(t, mux, http.MethodGet, "/inventory/item/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLowStock_SeedMembership(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/low_stock", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []inventoryItemResponse
	decodeBody(t, rec, &records)

	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "Good & Plenty")
	assert.NotContains(t, names, "Circus Peanuts")
}

func TestCreateItem(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/items", `{"name": "Pop Rocks"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, mux, http.MethodPost, "/items", `{"name": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/items", `{"name": "Licorice"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "duplicate name is a store failure on the wire")
}

func TestAddInventory(t *testing.T) {
	mux := newTestMux(t)

	do(t, mux, http.MethodPost, "/items", `{"name": "Pop Rocks"}`)

	rec := do(t, mux, http.MethodPost, "/inventory", `{"itemId": 18, "stock": 5, "capacity": 20}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, mux, http.MethodPost, "/inventory", `{"itemId": 18, "stock": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing capacity")

	rec = do(t, mux, http.MethodPost, "/inventory", `{"itemId": 18, "stock": 5, "capacity": 20}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "item already tracked")
}

func TestUpdateInventory(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPut, "/inventory/5", `{"stock": 2}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPut, "/inventory/5", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no fields supplied")

	rec = do(t, mux, http.MethodPut, "/inventory/999", `{"stock": 2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteInventory_ReportsFoundOrNot(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodDelete, "/inventory/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msg messageResponse
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Item removed from inventory.", msg.Message)
	require.NotNil(t, msg.ItemID)
	assert.Equal(t, int64(5), *msg.ItemID)

	rec = do(t, mux, http.MethodDelete, "/inventory/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Item not found in inventory.", msg.Message)
}

func TestListDistributorCatalog(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/distributors/2/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []pricedItemResponse
	decodeBody(t, rec, &entries)
	assert.Len(t, entries, 15)

	rec = do(t, mux, http.MethodGet, "/distributors/99/items", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "empty catalog surfaces as 404")
}

func TestListItemOffers(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/items/10/distributors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var offers []pricedItemResponse
	decodeBody(t, rec, &offers)
	assert.Len(t, offers, 2)

	rec = do(t, mux, http.MethodGet, "/items/999/distributors", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateDistributor(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/distributors", `{"name": "Sugar Rush Ltd"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPost, "/distributors", `{"name": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/distributors", `{"name": "Candy Corp"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate name")
}

func TestCatalogEntryLifecycle(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/distributor-catalog", `{"distributor_id": 1, "item_id": 5, "cost": 0.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var msg messageResponse
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Item added to catalog successfully", msg.Message)

	rec = do(t, mux, http.MethodPut, "/distributor-catalog", `{"distributor_id": 1, "item_id": 5, "cost": 0.2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Price updated successfully", msg.Message)

	// The updated price is now the cheapest for item 5 (seed best was 0.25)
	rec = do(t, mux, http.MethodGet, "/restock/cheapest?item_id=5&quantity=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var option restockResponse
	decodeBody(t, rec, &option)
	assert.Equal(t, int64(1), option.DistributorID)
	assert.InDelta(t, 2.0, option.TotalCost, 1e-9)

	rec = do(t, mux, http.MethodPut, "/distributor-catalog", `{"distributor_id": 3, "item_id": 5, "cost": 0.2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Item not found in catalog", msg.Message)

	rec = do(t, mux, http.MethodPost, "/distributor-catalog", `{"distributor_id": 1, "item_id": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing cost")
}

func TestCheapestRestock(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/restock/cheapest?item_id=5&quantity=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var option restockResponse
	decodeBody(t, rec, &option)
	assert.Equal(t, restockResponse{
		DistributorID:   2,
		DistributorName: "The Sweet Suite",
		UnitCost:        0.25,
		Quantity:        10,
		TotalCost:       2.5,
	}, option)
}

func TestCheapestRestock_NoOption(t *testing.T) {
	mux := newTestMux(t)

	do(t, mux, http.MethodPost, "/items", `{"name": "Candy Buttons"}`)

	rec := do(t, mux, http.MethodGet, "/restock/cheapest?item_id=18&quantity=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msg messageResponse
	decodeBody(t, rec, &msg)
	assert.Equal(t, "No distributor found for given item", msg.Message)
}

func TestCheapestRestock_BadParams(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/restock/cheapest?item_id=abc&quantity=3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/restock/cheapest?item_id=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/restock/cheapest?item_id=5&quantity=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDistributor_CascadeObservableOverHTTP(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodDelete, "/distributors/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msg messageResponse
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Distributor deleted.", msg.Message)

	// Item 5 was only sold by distributor 2
	rec = do(t, mux, http.MethodGet, "/items/5/distributors", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodDelete, "/distributors/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Distributor not found.", msg.Message)
}

func TestVersionAndHealth(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, apiVersion, rec.Body.String())

	rec = do(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_CORSPreflight(t *testing.T) {
	mux := newTestMux(t)
	wrapped := Middleware(mux, zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/items", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST, PUT, DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestReset_RestoresSeedState(t *testing.T) {
	mux := newTestMux(t)

	do(t, mux, http.MethodDelete, "/inventory/5", "")

	rec := do(t, mux, http.MethodGet, "/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, mux, http.MethodGet, "/inventory/item/5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
