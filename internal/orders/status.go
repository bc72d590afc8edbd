package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool { return s == StatusCancelled }

// Cancellable reports whether the user-facing cancel path may run.
// Only pending orders can be cancelled; everything past that needs an
// admin-issued transition.
func (s Status) Cancellable() bool { return s == StatusPending }
