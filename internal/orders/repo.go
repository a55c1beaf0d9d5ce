package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopd/shopd/internal/apperr"
	"github.com/shopd/shopd/internal/catalog"
)

// Repo is the Postgres-backed order store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// Create takes the stock and inserts the order in one transaction.
// Each line goes through the conditional decrement; the first shortage
// rolls everything back, so earlier lines are never left decremented.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Internal(err, "begin placement tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, l := range o.Lines {
		ok, err := catalog.DecrementStock(ctx, tx, l.ProductID, l.Quantity)
		if err != nil {
			return apperr.Internal(err, "decrement stock")
		}
		if !ok {
			var name string
			var stock int
			err := tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id=$1`, l.ProductID).Scan(&name, &stock)
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("product with ID %s not found", l.ProductID)
			}
			if err != nil {
				return apperr.Internal(err, "query product stock")
			}
			return apperr.InsufficientStock(name, stock)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.BuyerID, o.Total, o.Status, o.CreatedAt,
	)
	if err != nil {
		return apperr.Internal(err, "insert order")
	}
	for _, l := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, product_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, l.ProductID, l.Name, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return apperr.Internal(err, "insert order line")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(err, "commit placement tx")
	}
	return nil
}

// Get returns one order with buyer and product references expanded.
func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	var b Buyer
	err := r.DB.QueryRow(ctx, `
		SELECT o.id, o.buyer_id, o.total, o.status, o.created_at, u.id, u.name, u.email
		FROM orders o JOIN users u ON u.id = o.buyer_id
		WHERE o.id = $1`, id,
	).Scan(&o.ID, &o.BuyerID, &o.Total, &o.Status, &o.CreatedAt, &b.ID, &b.Name, &b.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "query order")
	}
	o.Buyer = &b

	if err := r.loadLines(ctx, map[string]*Order{o.ID: &o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns a page of orders, newest first, plus the unpaged total.
func (r *Repo) List(ctx context.Context, f ListFilter, page, limit int) ([]Order, int, error) {
	where := ""
	args := []any{}
	if f.BuyerID != "" {
		args = append(args, f.BuyerID)
		where = fmt.Sprintf(" WHERE o.buyer_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		if where == "" {
			where = fmt.Sprintf(" WHERE o.status = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND o.status = $%d", len(args))
		}
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(err, "count orders")
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT o.id, o.buyer_id, o.total, o.status, o.created_at, u.id, u.name, u.email
		FROM orders o JOIN users u ON u.id = o.buyer_id%s
		ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args)), args...,
	)
	if err != nil {
		return nil, 0, apperr.Internal(err, "query orders")
	}
	defer rows.Close()

	out := []Order{}
	byID := map[string]*Order{}
	for rows.Next() {
		var o Order
		var b Buyer
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.Total, &o.Status, &o.CreatedAt, &b.ID, &b.Name, &b.Email); err != nil {
			return nil, 0, apperr.Internal(err, "scan order")
		}
		o.Buyer = &b
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Internal(err, "read orders")
	}
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if len(byID) > 0 {
		if err := r.loadLines(ctx, byID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, s)
	if err != nil {
		return apperr.Internal(err, "update order status")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

// loadLines attaches line snapshots, with the live product reference
// expanded when the product still exists.
func (r *Repo) loadLines(ctx context.Context, byID map[string]*Order) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT l.order_id, l.product_id, l.name, l.quantity, l.unit_price,
		       p.id, p.name, p.price
		FROM order_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.order_id = ANY($1)
		ORDER BY l.id`, ids,
	)
	if err != nil {
		return apperr.Internal(err, "query order lines")
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var l Line
		var ref ProductRef
		var refID, refName *string
		var refPrice *string
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice,
			&refID, &refName, &refPrice); err != nil {
			return apperr.Internal(err, "scan order line")
		}
		if refID != nil {
			ref.ID = *refID
			ref.Name = *refName
			if err := ref.Price.Scan(*refPrice); err != nil {
				return apperr.Internal(err, "parse product price")
			}
			l.Product = &ref
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}
