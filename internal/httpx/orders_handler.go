package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shopd/shopd/internal/orders"
	"github.com/shopd/shopd/internal/redisx"
)

type OrdersHandler struct {
	Svc   *orders.Service
	Redis *redis.Client // optional read cache for single-order fetches
}

type placeOrderReq struct {
	BuyerID string            `json:"buyerId"`
	Items   []orders.CartItem `json:"items"`
}

type orderPageResp struct {
	Orders     []orders.Order    `json:"orders"`
	Pagination orders.Pagination `json:"pagination"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/buyer/{buyerId}", h.listBuyerOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}/status", h.setStatus)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	o, err := h.Svc.PlaceOrder(r.Context(), req.BuyerID, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.ListFilter{
		BuyerID: r.URL.Query().Get("buyerId"),
		Status:  orders.Status(r.URL.Query().Get("status")),
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	out, pg, err := h.Svc.List(r.Context(), f, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderPageResp{Orders: out, Pagination: pg})
}

func (h *OrdersHandler) listBuyerOrders(w http.ResponseWriter, r *http.Request) {
	buyerID := chi.URLParam(r, "buyerId")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	out, pg, err := h.Svc.ListForBuyer(r.Context(), buyerID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderPageResp{Orders: out, Pagination: pg})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrder, id)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	o, err := h.Svc.SetStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	// refresh the cache so a follow-up GET sees the new status
	h.cacheOrder(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cacheOrder(r *http.Request, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrder, o.ID)
	_ = h.Redis.Set(r.Context(), key, b, redisx.TTLOrderCache).Err()
}
