package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	Cart *cart.Service
}

type addLineReq struct {
	ProductID string `json:"product_id"`
	Qty       int64  `json:"qty"`
}

type updateLineReq struct {
	Qty int64 `json:"qty"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addLine)
	r.Put("/cart/items/{productID}", h.updateLine)
	r.Delete("/cart/items/{productID}", h.removeLine)
	r.Delete("/cart", h.clear)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user"})
		return
	}
	ctx, cancel := timeoutCtx(r, 3*time.Second)
	defer cancel()

	c, err := h.Cart.Snapshot(ctx, userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) addLine(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req addLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if userID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := timeoutCtx(r, 5*time.Second)
	defer cancel()

	c, err := h.Cart.AddLine(ctx, userID, req.ProductID, req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) updateLine(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	productID := chi.URLParam(r, "productID")
	var req updateLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if userID == "" || productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := timeoutCtx(r, 5*time.Second)
	defer cancel()

	c, err := h.Cart.UpdateLineQuantity(ctx, userID, productID, req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	productID := chi.URLParam(r, "productID")
	if userID == "" || productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := timeoutCtx(r, 5*time.Second)
	defer cancel()

	c, err := h.Cart.RemoveLine(ctx, userID, productID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user"})
		return
	}
	ctx, cancel := timeoutCtx(r, 3*time.Second)
	defer cancel()

	if err := h.Cart.Clear(ctx, userID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
