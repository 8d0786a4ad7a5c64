package order

// Status is the fulfillment state of an order.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusInProduction Status = "in_production"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
	StatusCancelled    Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusDraft:        {StatusPending: true, StatusCancelled: true},
	StatusPending:      {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:    {StatusInProduction: true, StatusCancelled: true},
	StatusInProduction: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:      {StatusDelivered: true},
	StatusDelivered:    {},
	StatusCancelled:    {},
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition reports whether an order may move from one status to
// another. Transitions are one-directional; delivered and cancelled are
// terminal.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// DeriveStatus maps a payment processor status onto an order status
// transition. It returns an empty Status when the payment status does
// not change the order's state.
func DeriveStatus(paymentStatus string) Status {
	switch paymentStatus {
	case "succeeded":
		return StatusConfirmed
	case "canceled":
		return StatusCancelled
	default:
		return ""
	}
}
