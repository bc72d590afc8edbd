package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/shopico/shop-api/internal/kafka"
	"github.com/shopico/shop-api/internal/users"
)

// Storage is the persistence contract the service runs on. The pgx Store
// implements it; tests substitute an in-memory version.
type Storage interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error)
	Get(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	AppendStatus(ctx context.Context, orderID string, e HistoryEntry) (*Order, Status, error)
	Cancel(ctx context.Context, orderID string, e HistoryEntry) (*Order, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Cache interface {
	Get(ctx context.Context, orderID string) (*Order, bool)
	Set(ctx context.Context, o *Order)
	Drop(ctx context.Context, orderID string)
}

// Actor is the authenticated identity an operation runs as.
type Actor struct {
	ID   string
	Role users.Role
}

func (a Actor) admin() bool { return a.Role == users.RoleAdmin }

type Service struct {
	Store         Storage
	Cache         Cache
	Created       Publisher // order.created
	StatusChanged Publisher // order.status.changed
	ServiceName   string
	Log           *zap.Logger
}

// Place validates the request shape and hands the all-or-nothing
// reservation to the store. TotalAmount is taken from the caller as-is and
// is not cross-checked against catalog prices.
func (s *Service) Place(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	o, err := s.Store.PlaceOrder(ctx, in)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, o)
	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	s.publish(s.Created, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Items:       items,
		TotalAmount: o.TotalAmount,
	})
	s.Log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)))
	return o, nil
}

// Get returns the order if the actor owns it or is an admin.
func (s *Service) Get(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	if o, ok := s.cacheGet(ctx, orderID); ok {
		return o, s.authorize(o, actor)
	}
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, o)
	return o, s.authorize(o, actor)
}

// History has the same owner-or-admin rule as Get.
func (s *Service) History(ctx context.Context, orderID string, actor Actor) ([]HistoryEntry, error) {
	o, err := s.Get(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	return o.History, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Order, error) {
	return s.Store.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.Store.ListAll(ctx)
}

// UpdateStatus is the admin transition: any valid non-terminal target is
// accepted, no stock side effects.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, newStatus Status, comment, actorID string) (*Order, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	if comment == "" {
		comment = fmt.Sprintf("Status updated to %s", newStatus)
	}

	o, old, err := s.Store.AppendStatus(ctx, orderID, HistoryEntry{
		Status:  newStatus,
		Comment: comment,
		ActorID: actorID,
	})
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, o)
	s.publish(s.StatusChanged, EventOrderStatusChanged, o.ID, StatusChangedPayload{
		OrderID:   o.ID,
		OldStatus: old,
		NewStatus: newStatus,
		ActorID:   actorID,
		Comment:   comment,
	})
	s.Log.Info("order status updated",
		zap.String("order_id", o.ID),
		zap.String("old", string(old)),
		zap.String("new", string(newStatus)),
		zap.String("actor", actorID))
	return o, nil
}

// Cancel is the user-facing path: owner or admin only, pending orders only,
// restores reserved stock.
func (s *Service) Cancel(ctx context.Context, orderID, comment string, actor Actor) (*Order, error) {
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(o, actor); err != nil {
		return nil, err
	}
	if comment == "" {
		comment = "Order cancelled"
	}

	old := o.Status
	o, err = s.Store.Cancel(ctx, orderID, HistoryEntry{
		Status:  StatusCancelled,
		Comment: comment,
		ActorID: actor.ID,
	})
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, o)
	s.publish(s.StatusChanged, EventOrderStatusChanged, o.ID, StatusChangedPayload{
		OrderID:   o.ID,
		OldStatus: old,
		NewStatus: StatusCancelled,
		ActorID:   actor.ID,
		Comment:   comment,
	})
	s.Log.Info("order cancelled",
		zap.String("order_id", o.ID),
		zap.String("actor", actor.ID))
	return o, nil
}

func (s *Service) authorize(o *Order, actor Actor) error {
	if actor.ID == o.UserID || actor.admin() {
		return nil
	}
	return ErrForbidden
}

func (s *Service) publish(p Publisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) cacheGet(ctx context.Context, orderID string) (*Order, bool) {
	if s.Cache == nil {
		return nil, false
	}
	return s.Cache.Get(ctx, orderID)
}

func (s *Service) cacheSet(ctx context.Context, o *Order) {
	if s.Cache != nil {
		s.Cache.Set(ctx, o)
	}
}
