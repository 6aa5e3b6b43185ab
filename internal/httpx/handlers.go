package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/inventory"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
)

// Identity datang dari layer auth di depan; engine percaya header ini
// apa adanya.
const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-User-Role"
)

func identity(r *http.Request) (userID, role string) {
	return r.Header.Get(HeaderUserID), r.Header.Get(HeaderRole)
}

func timeoutCtx(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, orders.ErrConflict),
		errors.Is(err, orders.ErrIllegalTransition),
		errors.Is(err, orders.ErrNotCancellable):
		return http.StatusConflict
	case errors.Is(err, cart.ErrProductInactive),
		errors.Is(err, cart.ErrInvalidQty),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrProductUnavailable),
		errors.Is(err, checkout.ErrNoInventoryRecord):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
