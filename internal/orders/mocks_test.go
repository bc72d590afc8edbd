package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type memProduct struct {
	name  string
	price float64
	stock int
}

// memStore implements Storage in memory with the same all-or-nothing
// semantics as the pgx store: validation happens under the lock before any
// stock moves.
type memStore struct {
	mu       sync.Mutex
	products map[string]*memProduct
	orders   map[string]*Order
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]*memProduct{},
		orders:   map[string]*Order{},
	}
}

func (m *memStore) addProduct(id, name string, price float64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = &memProduct{name: name, price: price, stock: stock}
}

func (m *memStore) removeProduct(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

func (m *memStore) stockOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].stock
}

func (m *memStore) PlaceOrder(_ context.Context, in PlaceOrderInput) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range in.Items {
		p, ok := m.products[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if p.stock < it.Quantity {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Name:      p.name,
				Requested: it.Quantity,
				Available: p.stock,
			}
		}
	}
	for _, it := range in.Items {
		m.products[it.ProductID].stock -= it.Quantity
	}

	now := time.Now()
	o := &Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		Items:           append([]LineItem(nil), in.Items...),
		TotalAmount:     in.TotalAmount,
		Status:          StatusPending,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   "pending",
		CreatedAt:       now,
		UpdatedAt:       now,
		History: []HistoryEntry{{
			Status:    StatusPending,
			Comment:   "Order created",
			ActorID:   in.UserID,
			CreatedAt: now,
		}},
	}
	m.orders[o.ID] = o
	return copyOrder(o), nil
}

func (m *memStore) Get(_ context.Context, orderID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (m *memStore) AppendStatus(_ context.Context, orderID string, e HistoryEntry) (*Order, Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, "", ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return nil, "", ErrInvalidTransition
	}
	old := o.Status
	e.CreatedAt = time.Now()
	o.Status = e.Status
	o.History = append(o.History, e)
	o.UpdatedAt = e.CreatedAt
	return copyOrder(o), old, nil
}

func (m *memStore) Cancel(_ context.Context, orderID string, e HistoryEntry) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if !o.Status.Cancellable() {
		return nil, ErrInvalidTransition
	}
	for _, it := range o.Items {
		if p, ok := m.products[it.ProductID]; ok {
			p.stock += it.Quantity
		}
	}
	e.CreatedAt = time.Now()
	o.Status = e.Status
	o.History = append(o.History, e)
	o.UpdatedAt = e.CreatedAt
	return copyOrder(o), nil
}

func copyOrder(o *Order) *Order {
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	c.History = append([]HistoryEntry(nil), o.History...)
	return &c
}

// capturePublisher records published envelopes.
type capturePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *capturePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, value)
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}
