package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is what the buyer submits: a product reference and a quantity.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Line is an immutable snapshot captured at placement time. Later changes
// to the product's name or price never alter historical orders.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`

	// Product is the expanded live reference; nil if the product has been
	// deleted since the order was placed.
	Product *ProductRef `json:"product,omitempty"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProductRef carries the display fields of a referenced product.
type ProductRef struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Buyer carries the display fields of the ordering user.
type Buyer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID        string          `json:"id"`
	BuyerID   string          `json:"buyerId"`
	Buyer     *Buyer          `json:"buyer,omitempty"`
	Lines     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ListFilter narrows List results; zero values mean "no constraint".
type ListFilter struct {
	BuyerID string
	Status  Status
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalOrders int  `json:"totalOrders"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func paginate(total, page, limit int) Pagination {
	pages := (total + limit - 1) / limit
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalOrders: total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}
