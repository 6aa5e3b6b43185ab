package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type OrdersHandler struct {
	Checkout *checkout.Service
	Orders   *orders.Service
	Redis    *redis.Client // opsional cache status
}

type checkoutReq struct {
	Items           []checkout.ItemInput `json:"items,omitempty"` // kosong = pakai cart
	ShippingAddress string               `json:"shipping_address"`
}

type setStatusReq struct {
	Status orders.Status `json:"status"`
}

type setPaymentReq struct {
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.orderStatus)
	r.Post("/orders/{id}/status", h.setStatus)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/orders/{id}/payment", h.setPaymentStatus)
	r.Delete("/orders/cancelled", h.purgeCancelled)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user"})
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := timeoutCtx(r, 10*time.Second)
	defer cancel()

	o, err := h.Checkout.Checkout(ctx, checkout.Request{
		UserID:          userID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	orderID := chi.URLParam(r, "id")

	ctx, cancel := timeoutCtx(r, 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, orderID, userID, role)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// orderStatus: polling status ringan. Cache hit dilayani langsung dari
// Redis; miss jatuh ke store dan sekalian mengisi ulang cache-nya.
func (h *OrdersHandler) orderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if body, err := h.Redis.Get(r.Context(), key).Result(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(body))
			return
		}
	}

	ctx, cancel := timeoutCtx(r, 3*time.Second)
	defer cancel()

	st, pay, err := h.Orders.Status(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(r, orderID, st, pay)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         string(st),
		"payment_status": string(pay),
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	all := r.URL.Query().Get("all") == "1"

	ctx, cancel := timeoutCtx(r, 5*time.Second)
	defer cancel()

	out, err := h.Orders.List(ctx, userID, role, all)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	_, role := identity(r)
	if role != orders.RoleAdmin {
		writeErr(w, orders.ErrForbidden)
		return
	}
	orderID := chi.URLParam(r, "id")
	var req setStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := timeoutCtx(r, 10*time.Second)
	defer cancel()

	o, err := h.Orders.SetStatus(ctx, orderID, req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.refreshStatusCache(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	orderID := chi.URLParam(r, "id")

	ctx, cancel := timeoutCtx(r, 10*time.Second)
	defer cancel()

	o, err := h.Orders.Cancel(ctx, orderID, userID, role)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.refreshStatusCache(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	_, role := identity(r)
	if role != orders.RoleAdmin {
		writeErr(w, orders.ErrForbidden)
		return
	}
	orderID := chi.URLParam(r, "id")
	var req setPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := timeoutCtx(r, 5*time.Second)
	defer cancel()

	o, err := h.Orders.SetPaymentStatus(ctx, orderID, req.PaymentStatus)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.refreshStatusCache(r, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) purgeCancelled(w http.ResponseWriter, r *http.Request) {
	_, role := identity(r)

	ctx, cancel := timeoutCtx(r, 30*time.Second)
	defer cancel()

	n, err := h.Orders.PurgeCancelled(ctx, role)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": n})
}

func (h *OrdersHandler) refreshStatusCache(r *http.Request, o *orders.Order) {
	h.cacheStatus(r, o.ID, o.Status, o.PaymentStatus)
}

func (h *OrdersHandler) cacheStatus(r *http.Request, orderID string, st orders.Status, pay orders.PaymentStatus) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body := fmt.Sprintf(`{"status":%q,"payment_status":%q}`, st, pay)
	_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
}
