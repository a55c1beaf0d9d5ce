package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by catalog administration; the order flow only reads it
// and decrements stock.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
}

const DefaultImageURL = "https://via.placeholder.com/150"
