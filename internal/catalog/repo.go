package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopd/shopd/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ImageURL == "" {
		p.ImageURL = DefaultImageURL
	}
	p.CreatedAt = time.Now().UTC()
	if p.Name == "" || p.Price.IsNegative() || p.Stock < 0 {
		return apperr.Invalid("product needs a name, a non-negative price and non-negative stock")
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price, stock, category, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.CreatedAt,
	)
	if err != nil {
		return apperr.Internal(err, "insert product")
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p *Product) error {
	if p.Price.IsNegative() || p.Stock < 0 {
		return apperr.Invalid("price and stock must be non-negative")
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, price=$4, stock=$5, category=$6, image_url=$7
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL,
	)
	if err != nil {
		return apperr.Internal(err, "update product")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Invalid("product is referenced by existing orders")
		}
		return apperr.Internal(err, "delete product")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, description, price, stock, category, image_url, created_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("product with ID %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "query product")
	}
	return &p, nil
}

// ListAvailable returns products a buyer can still purchase (stock > 0).
func (r *Repo) ListAvailable(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, price, stock, category, image_url, created_at
		FROM products WHERE stock > 0 ORDER BY name`)
	if err != nil {
		return nil, apperr.Internal(err, "query products")
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, apperr.Internal(err, "scan product")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock is the sole stock-mutation primitive: it succeeds only if
// the resulting stock stays non-negative. Runs inside the caller's
// transaction so a later line failing aborts earlier decrements too.
func DecrementStock(ctx context.Context, tx pgx.Tx, productID string, qty int) (bool, error) {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		productID, qty,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
