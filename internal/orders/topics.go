package orders

const (
	TopicOrderPlaced          = "order.placed"
	TopicOrderStatusChanged   = "order.status.changed"
	TopicOrderCancelled       = "order.cancelled"
	TopicStockRestored        = "order.stock.restored"
	TopicPaymentStatusChanged = "payment.status.changed" // diproduksi subsistem pembayaran, kita konsumsi
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
