package orders

import (
	"time"

	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Emitter membungkus producer per topic. Nil emitter = event dimatikan
// (test & mode dev jalan tanpa Kafka).
type Emitter struct {
	Placed        *kafkax.Producer
	StatusChanged *kafkax.Producer
	Cancelled     *kafkax.Producer
	StockRestored *kafkax.Producer
	ServiceName   string
}

func (e *Emitter) emit(p *kafkax.Producer, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (e *Emitter) OrderPlaced(o *Order) {
	if e == nil {
		return
	}
	e.emit(e.Placed, EventOrderPlaced, o.ID, OrderPlacedPayload{
		OrderID: o.ID, UserID: o.UserID, Lines: o.Lines, TotalCents: o.TotalCents,
	})
}

func (e *Emitter) OrderStatusChanged(o *Order, from Status) {
	if e == nil {
		return
	}
	e.emit(e.StatusChanged, EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
		OrderID: o.ID, From: from, To: o.Status, PaymentStatus: o.PaymentStatus,
	})
}

func (e *Emitter) OrderCancelled(o *Order, refunded bool) {
	if e == nil {
		return
	}
	e.emit(e.Cancelled, EventOrderCancelled, o.ID, OrderCancelledPayload{
		OrderID: o.ID, UserID: o.UserID, Refunded: refunded,
	})
}

func (e *Emitter) StockRestoredFor(o *Order) {
	if e == nil {
		return
	}
	lines := make([]LineQty, 0, len(o.Lines))
	for _, ln := range o.Lines {
		lines = append(lines, LineQty{SKUID: ln.SKUID, Qty: ln.Qty})
	}
	e.emit(e.StockRestored, EventStockRestored, o.ID, StockRestoredPayload{
		OrderID: o.ID, Lines: lines,
	})
}
