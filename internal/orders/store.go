package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

// PlaceOrder runs the whole reservation in one transaction: every product
// row is locked FOR UPDATE before any stock is checked, so two competing
// orders against the same product serialize instead of overselling. If any
// item fails validation nothing is committed.
func (s *Store) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock in product-id order to avoid deadlocks between concurrent orders.
	locked := make([]LineItem, len(in.Items))
	copy(locked, in.Items)
	sort.Slice(locked, func(i, j int) bool { return locked[i].ProductID < locked[j].ProductID })

	for _, it := range locked {
		var name string
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT name, stock FROM products WHERE id=$1 FOR UPDATE`,
			it.ProductID,
		).Scan(&name, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if err != nil {
			return nil, fmt.Errorf("lock product %s: %w", it.ProductID, err)
		}
		if stock < it.Quantity {
			return nil, &InsufficientStockError{
				ProductID: it.ProductID,
				Name:      name,
				Requested: it.Quantity,
				Available: stock,
			}
		}
	}

	for _, it := range locked {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
			it.ProductID, it.Quantity,
		); err != nil {
			return nil, fmt.Errorf("decrement stock for %s: %w", it.ProductID, err)
		}
	}

	orderID := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, total_amount, status,
			ship_address, ship_city, ship_postal_code, ship_country, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE(NULLIF($9,''), 'card'))`,
		orderID, in.UserID, in.TotalAmount, StatusPending,
		in.ShippingAddress.Address, in.ShippingAddress.City,
		in.ShippingAddress.PostalCode, in.ShippingAddress.Country,
		in.PaymentMethod,
	); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range in.Items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items(order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			orderID, it.ProductID, it.Quantity,
		); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO order_history(order_id, status, comment, actor_id) VALUES ($1, $2, $3, $4)`,
		orderID, StatusPending, "Order created", in.UserID,
	); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return s.Get(ctx, orderID)
}

// AppendStatus sets the order status and appends the matching history entry
// atomically. Returns the updated order and the previous status. Fails with
// ErrInvalidTransition once the order is in a terminal status.
func (s *Store) AppendStatus(ctx context.Context, orderID string, e HistoryEntry) (*Order, Status, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrOrderNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("lock order: %w", err)
	}
	if current.Terminal() {
		return nil, "", ErrInvalidTransition
	}

	if err := s.writeStatus(ctx, tx, orderID, e); err != nil {
		return nil, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("commit status: %w", err)
	}

	o, err := s.Get(ctx, orderID)
	return o, current, err
}

// Cancel transitions a pending order to cancelled and restores the reserved
// stock in the same transaction. Restoration is best-effort per item:
// products deleted since the order was placed are skipped. The pending check
// happens under the row lock, so a second concurrent cancel cannot
// double-restore.
func (s *Store) Cancel(ctx context.Context, orderID string, e HistoryEntry) (*Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if !current.Cancellable() {
		return nil, ErrInvalidTransition
	}

	rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	var items []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	for _, it := range items {
		// RowsAffected 0 means the product is gone; skip it.
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
			it.ProductID, it.Quantity,
		); err != nil {
			return nil, fmt.Errorf("restore stock for %s: %w", it.ProductID, err)
		}
	}

	if err := s.writeStatus(ctx, tx, orderID, e); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	return s.Get(ctx, orderID)
}

func (s *Store) writeStatus(ctx context.Context, tx pgx.Tx, orderID string, e HistoryEntry) error {
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, e.Status,
	); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO order_history(order_id, status, comment, actor_id) VALUES ($1, $2, $3, $4)`,
		orderID, e.Status, e.Comment, e.ActorID,
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, total_amount, status,
			ship_address, ship_city, ship_postal_code, ship_country,
			payment_method, payment_status, created_at, updated_at
		FROM orders WHERE id=$1`, orderID,
	).Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := s.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) loadItems(ctx context.Context, o *Order) error {
	rows, err := s.DB.Query(ctx, `
		SELECT i.product_id, i.quantity,
			COALESCE(p.name, ''), COALESCE(p.price, 0), COALESCE(p.image_url, '')
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id`, o.ID)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Name, &it.Price, &it.ImageURL); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (s *Store) loadHistory(ctx context.Context, o *Order) error {
	rows, err := s.DB.Query(ctx, `
		SELECT status, comment, actor_id, created_at
		FROM order_history WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Status, &e.Comment, &e.ActorID, &e.CreatedAt); err != nil {
			return fmt.Errorf("scan history: %w", err)
		}
		o.History = append(o.History, e)
	}
	return rows.Err()
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.list(ctx, `SELECT id FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *Store) ListAll(ctx context.Context) ([]Order, error) {
	return s.list(ctx, `SELECT id FROM orders ORDER BY created_at DESC`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}
