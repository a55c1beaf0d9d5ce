package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopd/shopd/internal/apperr"
	"github.com/shopd/shopd/internal/catalog"
	"github.com/shopd/shopd/internal/orders"
	"github.com/shopd/shopd/internal/users"
)

type memBuyers struct{ byID map[string]*users.User }

func (m *memBuyers) GetByID(_ context.Context, id string) (*users.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

type memProducts struct{ byID map[string]*catalog.Product }

func (m *memProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("product with ID %s not found", id)
}

type memStore struct {
	products map[string]*catalog.Product
	buyers   map[string]*users.User
	orders   map[string]*orders.Order
}

func (m *memStore) Create(_ context.Context, o *orders.Order) error {
	for _, l := range o.Lines {
		p, ok := m.products[l.ProductID]
		if !ok {
			return apperr.NotFound("product with ID %s not found", l.ProductID)
		}
		if p.Stock < l.Quantity {
			return apperr.InsufficientStock(p.Name, p.Stock)
		}
	}
	for _, l := range o.Lines {
		m.products[l.ProductID].Stock -= l.Quantity
	}
	m.orders[o.ID] = o
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*orders.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	cp := *o
	if u, ok := m.buyers[o.BuyerID]; ok {
		cp.Buyer = &orders.Buyer{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f orders.ListFilter, page, limit int) ([]orders.Order, int, error) {
	out := []orders.Order{}
	for _, o := range m.orders {
		if f.BuyerID != "" && o.BuyerID != f.BuyerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, s orders.Status) error {
	o, ok := m.orders[id]
	if !ok {
		return apperr.NotFound("order not found")
	}
	o.Status = s
	return nil
}

type testEnv struct {
	srv     *httptest.Server
	store   *memStore
	buyerID string
	p1, p2  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	buyerID := uuid.NewString()
	p1 := uuid.NewString()
	p2 := uuid.NewString()

	buyers := map[string]*users.User{buyerID: {ID: buyerID, Name: "Ana", Email: "ana@example.com"}}
	products := map[string]*catalog.Product{
		p1: {ID: p1, Name: "Laptop", Price: decimal.RequireFromString("10.00"), Stock: 5},
		p2: {ID: p2, Name: "Mouse", Price: decimal.RequireFromString("7.50"), Stock: 0},
	}
	store := &memStore{products: products, buyers: buyers, orders: map[string]*orders.Order{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := orders.NewService(&memBuyers{byID: buyers}, &memProducts{byID: products}, store, nil, log, "test")

	router := NewRouter()
	(&OrdersHandler{Svc: svc}).Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, buyerID: buyerID, p1: p1, p2: p2}
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestPostOrders(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/orders",
		`{"buyerId":"`+env.buyerID+`","items":[{"productId":"`+env.p1+`","quantity":2}]}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	total, err := decimal.NewFromString(body["total"].(string))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("20.00")), "total = %s", total)
	assert.Equal(t, "pending", body["status"])
	buyer := body["buyer"].(map[string]any)
	assert.Equal(t, "Ana", buyer["name"])
	assert.Equal(t, 3, env.store.products[env.p1].Stock)
}

func TestPostOrdersInsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/orders",
		`{"buyerId":"`+env.buyerID+`","items":[{"productId":"`+env.p1+`","quantity":2},{"productId":"`+env.p2+`","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Insufficient stock for Mouse. Available: 0", body["error"])
	assert.Equal(t, 5, env.store.products[env.p1].Stock)
}

func TestPostOrdersUnknownBuyer(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, http.MethodPost, env.srv.URL+"/orders",
		`{"buyerId":"`+uuid.NewString()+`","items":[{"productId":"`+env.p1+`","quantity":1}]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "user not found", body["error"])
}

func TestGetOrderNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := doJSON(t, http.MethodGet, env.srv.URL+"/orders/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetOrderRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	_, created := doJSON(t, http.MethodPost, env.srv.URL+"/orders",
		`{"buyerId":"`+env.buyerID+`","items":[{"productId":"`+env.p1+`","quantity":1}]}`)

	resp, got := doJSON(t, http.MethodGet, env.srv.URL+"/orders/"+created["id"].(string), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created["id"], got["id"])
}

func TestPutStatusInvalidValue(t *testing.T) {
	env := newTestEnv(t)
	_, created := doJSON(t, http.MethodPost, env.srv.URL+"/orders",
		`{"buyerId":"`+env.buyerID+`","items":[{"productId":"`+env.p1+`","quantity":1}]}`)

	resp, body := doJSON(t, http.MethodPut, env.srv.URL+"/orders/"+created["id"].(string)+"/status",
		`{"status":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Valid statuses")
}

func TestPutStatusUpdates(t *testing.T) {
	env := newTestEnv(t)
	_, created := doJSON(t, http.MethodPost, env.srv.URL+"/orders",
		`{"buyerId":"`+env.buyerID+`","items":[{"productId":"`+env.p1+`","quantity":1}]}`)

	resp, body := doJSON(t, http.MethodPut, env.srv.URL+"/orders/"+created["id"].(string)+"/status",
		`{"status":"processing"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", body["status"])
}

func TestListOrdersPaginationShape(t *testing.T) {
	env := newTestEnv(t)
	_, _ = doJSON(t, http.MethodPost, env.srv.URL+"/orders",
		`{"buyerId":"`+env.buyerID+`","items":[{"productId":"`+env.p1+`","quantity":1}]}`)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/orders?page=1&limit=10", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	pg := body["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pg["currentPage"])
	assert.Equal(t, float64(1), pg["totalOrders"])
	assert.Equal(t, false, pg["hasNextPage"])
}
