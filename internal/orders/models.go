package orders

import "time"

// LineItem references a product by id only. Name, Price and ImageURL are
// populated from the catalog on reads and are not stored with the order.
type LineItem struct {
	ProductID string  `json:"product"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price,omitempty"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	Comment   string    `json:"comment"`
	ActorID   string    `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type ShippingAddress struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Order struct {
	ID              string          `json:"_id"`
	UserID          string          `json:"user"`
	Items           []LineItem      `json:"items"`
	TotalAmount     float64         `json:"totalAmount"`
	Status          Status          `json:"status"`
	History         []HistoryEntry  `json:"history"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type PlaceOrderInput struct {
	UserID          string
	Items           []LineItem
	TotalAmount     float64
	ShippingAddress ShippingAddress
	PaymentMethod   string
}
