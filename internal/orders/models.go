package orders

import "time"

// Line dibekukan saat order dibuat: nama & harga adalah snapshot,
// tidak pernah di-lookup ulang ke katalog.
type Line struct {
	ProductID      string `json:"product_id"`
	SKUID          string `json:"sku_id"`
	Name           string `json:"name"`
	Qty            int64  `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Lines           []Line        `json:"lines"`
	TotalCents      int64         `json:"total_cents"` // dihitung sekali saat create
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	ShippingAddress string        `json:"shipping_address,omitempty"`
	IdempotencyKey  string        `json:"-"`
	Version         int64         `json:"-"` // optimistic lock untuk transisi status
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
