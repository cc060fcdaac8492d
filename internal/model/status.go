package model

// Status is the canonical lifecycle state every raw status string collapses to.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDeclined   Status = "declined"
)

// Payment is the display payment state.
type Payment string

const (
	PaymentPaid      Payment = "paid"
	PaymentUnpaid    Payment = "unpaid"
	PaymentDeclined  Payment = "declined"
	PaymentCancelled Payment = "cancelled"
	PaymentUnknown   Payment = "unknown"
)

// FilterAll disables a facet filter.
const FilterAll = "all"
