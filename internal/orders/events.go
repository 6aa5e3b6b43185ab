package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced          = "OrderPlaced"
	EventOrderStatusChanged   = "OrderStatusChanged"
	EventOrderCancelled       = "OrderCancelled"
	EventStockRestored        = "StockRestored"
	EventPaymentStatusChanged = "PaymentStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`                  // payload spesifik
}

// ---- Payload tipe per event ----

type LineQty struct {
	SKUID string `json:"sku_id"`
	Qty   int64  `json:"qty"`
}

type OrderPlacedPayload struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	Lines      []Line `json:"lines"`
	TotalCents int64  `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID       string        `json:"order_id"`
	From          Status        `json:"from"`
	To            Status        `json:"to"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

type OrderCancelledPayload struct {
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	Refunded bool   `json:"refunded"`
}

type StockRestoredPayload struct {
	OrderID string    `json:"order_id"`
	Lines   []LineQty `json:"lines"`
}

type PaymentStatusChangedPayload struct {
	OrderID string        `json:"order_id"`
	Status  PaymentStatus `json:"status"`
	Ref     string        `json:"ref,omitempty"` // referensi transaksi di payment provider
}
