package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransition: satu-satunya kunci keras adalah delivered — sekali
// delivered, tidak ada jalan keluar. Sisanya longgar, termasuk admin
// men-cancel langsung dari shipped; ketatnya cancel user-facing ada di
// Service.Cancel, bukan di sini.
func CanTransition(from, to Status) bool {
	if from == StatusDelivered {
		return to == StatusDelivered
	}
	return true
}

var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentCompleted: true, PaymentFailed: true},
	PaymentCompleted: {PaymentRefunded: true},
	PaymentFailed:    {},
	PaymentRefunded:  {},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return from == to || paymentNext[from][to]
}

// UserCancellable: aturan cancel milik user lebih ketat daripada
// SetStatus milik admin.
func UserCancellable(s Status) bool {
	return s == StatusPending || s == StatusProcessing
}
