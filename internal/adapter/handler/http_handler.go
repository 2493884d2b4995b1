package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mgreer/candy-depot/internal/core/domain"
	"github.com/mgreer/candy-depot/internal/core/service"
)

const apiVersion = "Candy Depot v1.0"

type HTTPHandler struct {
	inventory *service.InventoryService
	logger    *zap.Logger
}

func NewHTTPHandler(inventory *service.InventoryService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{inventory: inventory, logger: logger}
}

// Register wires every route onto mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /version", h.Version)
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /reset", h.Reset)

	mux.HandleFunc("GET /items", h.ListItems)
	mux.HandleFunc("GET /out_of_stock", h.ListOutOfStock)
	mux.HandleFunc("GET /overstock", h.ListOverstock)
	mux.HandleFunc("GET /low_stock", h.ListLowStock)
	mux.HandleFunc("GET /inventory/item/{id}", h.GetInventoryItem)

	mux.HandleFunc("GET /distributors", h.ListDistributors)
	mux.HandleFunc("GET /distributors/{id}/items", h.ListDistributorCatalog)
	mux.HandleFunc("GET /items/{id}/distributors", h.ListItemOffers)
	mux.HandleFunc("GET /restock/cheapest", h.CheapestRestock)

	mux.HandleFunc("POST /items", h.CreateItem)
	mux.HandleFunc("POST /inventory", h.AddInventory)
	mux.HandleFunc("PUT /inventory/{id}", h.UpdateInventory)
	mux.HandleFunc("DELETE /inventory/{id}", h.DeleteInventory)

	mux.HandleFunc("POST /distributors", h.CreateDistributor)
	mux.HandleFunc("DELETE /distributors/{id}", h.DeleteDistributor)
	mux.HandleFunc("POST /distributor-catalog", h.AddCatalogEntry)
	mux.HandleFunc("PUT /distributor-catalog", h.UpdateCatalogPrice)
}

type itemResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type inventoryItemResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Stock    int64  `json:"stock"`
	Capacity int64  `json:"capacity"`
}

type pricedItemResponse struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

type restockResponse struct {
	DistributorID   int64   `json:"distributor_id"`
	DistributorName string  `json:"distributor_name"`
	UnitCost        float64 `json:"unit_cost"`
	Quantity        int64   `json:"quantity"`
	TotalCost       float64 `json:"total_cost"`
}

type messageResponse struct {
	Message string `json:"message"`
	ItemID  *int64 `json:"item_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type addInventoryRequest struct {
	ItemID   *int64 `json:"itemId"`
	Stock    *int64 `json:"stock"`
	Capacity *int64 `json:"capacity"`
}

type updateInventoryRequest struct {
	Stock    *int64 `json:"stock"`
	Capacity *int64 `json:"capacity"`
}

type catalogEntryRequest struct {
	DistributorID *int64   `json:"distributor_id"`
	ItemID        *int64   `json:"item_id"`
	Cost          *float64 `json:"cost"`
}

func (h *HTTPHandler) Version(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(apiVersion))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.Reset(r.Context()); err != nil {
		h.serverError(w, "reset failed", err)
		return
	}
	w.Write([]byte("OK"))
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context())
	if err != nil {
		h.serverError(w, "list items failed", err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemResponse{ID: it.ID, Name: it.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ListOutOfStock(w http.ResponseWriter, r *http.Request) {
	h.writeInventoryList(w, r, h.inventory.ListOutOfStock)
}

func (h *HTTPHandler) ListOverstock(w http.ResponseWriter, r *http.Request) {
	h.writeInventoryList(w, r, h.inventory.ListOverstock)
}

func (h *HTTPHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	h.writeInventoryList(w, r, h.inventory.ListLowStock)
}

func (h *HTTPHandler) writeInventoryList(w http.ResponseWriter, r *http.Request,
	list func(context.Context) ([]domain.InventoryItem, error)) {
	records, err := list(r.Context())
	if err != nil {
		h.serverError(w, "list inventory failed", err)
		return
	}
	out := make([]inventoryItemResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, inventoryItemResponse{ID: rec.ID, Name: rec.Name, Stock: rec.Stock, Capacity: rec.Capacity})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item ID format"})
		return
	}
	rec, err := h.inventory.GetInventoryItem(r.Context(), id)
	if domain.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Item not found"})
		return
	}
	if err != nil {
		h.serverError(w, "get inventory item failed", err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryItemResponse{ID: rec.ID, Name: rec.Name, Stock: rec.Stock, Capacity: rec.Capacity})
}

func (h *HTTPHandler) ListDistributors(w http.ResponseWriter, r *http.Request) {
	distributors, err := h.inventory.ListDistributors(r.Context())
	if err != nil {
		h.serverError(w, "list distributors failed", err)
		return
	}
	out := make([]itemResponse, 0, len(distributors))
	for _, d := range distributors {
		out = append(out, itemResponse{ID: d.ID, Name: d.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListDistributorCatalog surfaces an empty catalog as 404: the store cannot
// distinguish an unknown distributor from one with no entries.
func (h *HTTPHandler) ListDistributorCatalog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid distributor ID"})
		return
	}
	entries, err := h.inventory.ListDistributorCatalog(r.Context(), id)
	if err != nil {
		h.serverError(w, "list distributor catalog failed", err)
		return
	}
	if len(entries) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No items found for distributor"})
		return
	}
	out := make([]pricedItemResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, pricedItemResponse{ID: e.ItemID, Name: e.ItemName, Cost: e.Cost})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) ListItemOffers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item ID"})
		return
	}
	offers, err := h.inventory.ListItemOffers(r.Context(), id)
	if err != nil {
		h.serverError(w, "list item offers failed", err)
		return
	}
	if len(offers) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No distributors found for item"})
		return
	}
	out := make([]pricedItemResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, pricedItemResponse{ID: o.DistributorID, Name: o.DistributorName, Cost: o.Cost})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) CheapestRestock(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.URL.Query().Get("item_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid or missing item_id"})
		return
	}
	quantity, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid or missing quantity"})
		return
	}

	option, err := h.inventory.CheapestRestock(r.Context(), itemID, quantity)
	if domain.IsInvalidArgument(err) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.serverError(w, "cheapest restock failed", err)
		return
	}
	if option == nil {
		// Normal outcome, not an error: nobody sells this item.
		writeJSON(w, http.StatusOK, messageResponse{Message: "No distributor found for given item"})
		return
	}
	writeJSON(w, http.StatusOK, restockResponse{
		DistributorID:   option.DistributorID,
		DistributorName: option.DistributorName,
		UnitCost:        option.UnitCost,
		Quantity:        option.Quantity,
		TotalCost:       option.TotalCost,
	})
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Item name is required"})
		return
	}
	if _, err := h.inventory.CreateItem(r.Context(), req.Name); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Could not add item"})
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Item added successfully"})
}

func (h *HTTPHandler) AddInventory(w http.ResponseWriter, r *http.Request) {
	var req addInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.ItemID == nil || req.Stock == nil || req.Capacity == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "itemId, stock, and capacity are required"})
		return
	}
	if err := h.inventory.AddInventory(r.Context(), *req.ItemID, *req.Stock, *req.Capacity); err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{Error: "Failed to add to inventory. Item may not exist or may already be tracked."})
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Inventory added successfully."})
}

func (h *HTTPHandler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item ID format"})
		return
	}
	var req updateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	upd := domain.InventoryUpdate{Stock: req.Stock, Capacity: req.Capacity}
	err = h.inventory.UpdateInventory(r.Context(), itemID, upd)
	switch {
	case domain.IsInvalidArgument(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "at least one of stock or capacity is required"})
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Inventory item not found"})
	case err != nil:
		h.serverError(w, "update inventory failed", err)
	default:
		writeJSON(w, http.StatusOK, messageResponse{Message: "Inventory updated successfully."})
	}
}

func (h *HTTPHandler) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item ID format"})
		return
	}
	removed, err := h.inventory.DeleteInventory(r.Context(), itemID)
	if err != nil {
		h.serverError(w, "delete inventory failed", err)
		return
	}
	if removed {
		writeJSON(w, http.StatusOK, messageResponse{Message: "Item removed from inventory.", ItemID: &itemID})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Item not found in inventory."})
}

func (h *HTTPHandler) CreateDistributor(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Distributor name is required"})
		return
	}
	if _, err := h.inventory.CreateDistributor(r.Context(), req.Name); err != nil {
		if domain.IsConstraintViolation(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Distributor name is already taken"})
			return
		}
		h.serverError(w, "create distributor failed", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Distributor added successfully"})
}

func (h *HTTPHandler) DeleteDistributor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid distributor ID"})
		return
	}
	removed, err := h.inventory.DeleteDistributor(r.Context(), id)
	if err != nil {
		h.serverError(w, "delete distributor failed", err)
		return
	}
	if removed {
		writeJSON(w, http.StatusOK, messageResponse{Message: "Distributor deleted."})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Distributor not found."})
}

// AddCatalogEntry and UpdateCatalogPrice report their outcome as a 200-level
// message payload; only malformed bodies are 400s.
func (h *HTTPHandler) AddCatalogEntry(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCatalogEntry(w, r)
	if !ok {
		return
	}
	err := h.inventory.AddCatalogEntry(r.Context(), *req.DistributorID, *req.ItemID, *req.Cost)
	switch {
	case domain.IsConstraintViolation(err):
		writeJSON(w, http.StatusOK, messageResponse{Message: "Failed to add item to catalog: distributor and item must exist and the pair must be new"})
	case err != nil:
		h.serverError(w, "add catalog entry failed", err)
	default:
		writeJSON(w, http.StatusOK, messageResponse{Message: "Item added to catalog successfully"})
	}
}

func (h *HTTPHandler) UpdateCatalogPrice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCatalogEntry(w, r)
	if !ok {
		return
	}
	err := h.inventory.UpdateCatalogPrice(r.Context(), *req.DistributorID, *req.ItemID, *req.Cost)
	switch {
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusOK, messageResponse{Message: "Item not found in catalog"})
	case err != nil:
		h.serverError(w, "update catalog price failed", err)
	default:
		writeJSON(w, http.StatusOK, messageResponse{Message: "Price updated successfully"})
	}
}

func decodeCatalogEntry(w http.ResponseWriter, r *http.Request) (catalogEntryRequest, bool) {
	var req catalogEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return req, false
	}
	if req.DistributorID == nil || req.ItemID == nil || req.Cost == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "distributor_id, item_id, and cost are required"})
		return req, false
	}
	return req, true
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *HTTPHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
