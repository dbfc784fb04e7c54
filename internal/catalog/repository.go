package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetAllActive(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetAllActive(ctx context.Context) ([]Product, error) {
	query := `
		SELECT id, name, description, category, brand, tags, ingredients, price, sale_price, rating, stock_count, is_active, created_at, updated_at
		FROM products
		WHERE is_active = true AND stock_count > 0
		ORDER BY rating DESC, stock_count DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying active products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand,
			&p.Tags, &p.Ingredients, &p.Price, &p.SalePrice,
			&p.Rating, &p.StockCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	query := `
		SELECT id, name, description, category, brand, tags, ingredients, price, sale_price, rating, stock_count, is_active, created_at, updated_at
		FROM products
		WHERE id = $1 AND is_active = true`

	p := &Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand,
		&p.Tags, &p.Ingredients, &p.Price, &p.SalePrice,
		&p.Rating, &p.StockCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying product by id: %w", err)
	}
	return p, nil
}
