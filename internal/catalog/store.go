package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store owns product CRUD. Stock is only ever mutated here on admin edits;
// order placement and cancellation adjust it through the orders store.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) Create(ctx context.Context, p *Product) error {
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	err := s.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, image_url, stock, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.Category,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *Store) ByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, name, description, price, image_url, stock, category, created_at, updated_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (s *Store) List(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, description, price, image_url, stock, category, created_at, updated_at
		FROM products ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type UpdateInput struct {
	Name        string
	Description string
	Price       *float64
	ImageURL    string
	Stock       *int
	Category    string
}

func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Product, error) {
	p, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.ImageURL != "" {
		p.ImageURL = in.ImageURL
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Category != "" {
		p.Category = in.Category
	}

	err = s.DB.QueryRow(ctx, `
		UPDATE products SET name=$2, description=$3, price=$4, image_url=$5, stock=$6, category=$7, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		id, p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.Category,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
