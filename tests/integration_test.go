package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mgreer/candy-depot/internal/adapter/handler"
	"github.com/mgreer/candy-depot/internal/adapter/storage"
	"github.com/mgreer/candy-depot/internal/core/service"
)

type testEnv struct {
	server *httptest.Server
	client *http.Client
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "candy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Reset(context.Background()))

	inventory := service.NewInventoryService(store, nil, zap.NewNop())
	mux := http.NewServeMux()
	handler.NewHTTPHandler(inventory, zap.NewNop()).Register(mux)

	server := httptest.NewServer(handler.Middleware(mux, zap.NewNop()))
	t.Cleanup(server.Close)

	return &testEnv{server: server, client: server.Client()}
}

func (e *testEnv) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func (e *testEnv) send(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func TestIntegration_CatalogLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	// New item, tracked in inventory
	code := env.send(t, http.MethodPost, "/items", `{"name": "Pop Rocks"}`, nil)
	require.Equal(t, http.StatusCreated, code)
	code = env.send(t, http.MethodPost, "/inventory", `{"itemId": 18, "stock": 3, "capacity": 30}`, nil)
	require.Equal(t, http.StatusCreated, code)

	// 3/30 is below the low-stock threshold
	var lowStock []map[string]any
	code = env.get(t, "/low_stock", &lowStock)
	require.Equal(t, http.StatusOK, code)
	found := false
	for _, rec := range lowStock {
		if rec["name"] == "Pop Rocks" {
			found = true
		}
	}
	assert.True(t, found)

	// New distributor starts selling it
	code = env.send(t, http.MethodPost, "/distributors", `{"name": "Sugar Rush Ltd"}`, nil)
	require.Equal(t, http.StatusOK, code)
	code = env.send(t, http.MethodPost, "/distributor-catalog", `{"distributor_id": 4, "item_id": 18, "cost": 0.9}`, nil)
	require.Equal(t, http.StatusOK, code)

	// Price drop shows up in the restock computation
	code = env.send(t, http.MethodPut, "/distributor-catalog", `{"distributor_id": 4, "item_id": 18, "cost": 0.6}`, nil)
	require.Equal(t, http.StatusOK, code)

	var option map[string]any
	code = env.get(t, "/restock/cheapest?item_id=18&quantity=5", &option)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), option["distributor_id"])
	assert.Equal(t, "Sugar Rush Ltd", option["distributor_name"])
	assert.InDelta(t, 0.6, option["unit_cost"].(float64), 1e-9)
	assert.InDelta(t, 3.0, option["total_cost"].(float64), 1e-9)

	// Deleting the distributor cascades its catalog away
	code = env.send(t, http.MethodDelete, "/distributors/4", "", nil)
	require.Equal(t, http.StatusOK, code)

	code = env.get(t, "/items/18/distributors", nil)
	assert.Equal(t, http.StatusNotFound, code)

	var msg map[string]any
	code = env.get(t, "/restock/cheapest?item_id=18&quantity=5", &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "No distributor found for given item", msg["message"])
}

func TestIntegration_SeedScenario(t *testing.T) {
	env := setupTestEnv(t)

	var option map[string]any
	code := env.get(t, "/restock/cheapest?item_id=5&quantity=10", &option)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), option["distributor_id"])
	assert.Equal(t, "The Sweet Suite", option["distributor_name"])
	assert.Equal(t, 0.25, option["unit_cost"])
	assert.Equal(t, float64(10), option["quantity"])
	assert.Equal(t, 2.5, option["total_cost"])
}

func TestIntegration_ResetRestoresFixture(t *testing.T) {
	env := setupTestEnv(t)

	code := env.send(t, http.MethodDelete, "/distributors/2", "", nil)
	require.Equal(t, http.StatusOK, code)
	code = env.get(t, "/items/5/distributors", nil)
	require.Equal(t, http.StatusNotFound, code)

	code = env.get(t, "/reset", nil)
	require.Equal(t, http.StatusOK, code)

	var offers []map[string]any
	code = env.get(t, "/items/5/distributors", &offers)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, offers, 1)
}

// The store serializes writes at the engine level; a burst of mixed
// concurrent requests must all complete without errors or hangs.
func TestIntegration_ConcurrentRequests(t *testing.T) {
	env := setupTestEnv(t)

	const total = 60
	var failures atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var resp *http.Response
			var err error
			switch n % 3 {
			case 0:
				resp, err = env.client.Get(env.server.URL + "/low_stock")
			case 1:
				resp, err = env.client.Get(env.server.URL + "/restock/cheapest?item_id=10&quantity=2")
			default:
				body := fmt.Sprintf(`{"stock": %d}`, 10+n)
				var req *http.Request
				req, err = http.NewRequest(http.MethodPut, env.server.URL+"/inventory/4", strings.NewReader(body))
				if err == nil {
					req.Header.Set("Content-Type", "application/json")
					resp, err = env.client.Do(req)
				}
			}
			if err != nil {
				failures.Add(1)
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
}
