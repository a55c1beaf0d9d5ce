package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/shopd/shopd/internal/apperr"
	"github.com/shopd/shopd/internal/catalog"
	kafkax "github.com/shopd/shopd/internal/kafka"
	"github.com/shopd/shopd/internal/users"
)

// BuyerStore resolves the ordering user.
type BuyerStore interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// ProductStore is the read side of the catalog used for validation and
// snapshot capture.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Store persists orders. Create must apply the conditional stock
// decrements and the order insert atomically: either every line's stock
// is taken and the order exists, or nothing changed.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter, page, limit int) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id string, s Status) error
}

// EventPublisher is satisfied by kafka.Producer.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	buyers   BuyerStore
	products ProductStore
	store    Store
	pub      EventPublisher // optional
	log      *slog.Logger
	svcName  string
}

func NewService(buyers BuyerStore, products ProductStore, store Store, pub EventPublisher, log *slog.Logger, svcName string) *Service {
	return &Service{buyers: buyers, products: products, store: store, pub: pub, log: log, svcName: svcName}
}

// PlaceOrder validates the whole cart before touching any stock, then
// creates the order and the stock decrements in a single atomic step.
// Validation order is fixed: buyer shape, buyer existence, item shape,
// product existence, stock sufficiency.
func (s *Service) PlaceOrder(ctx context.Context, buyerID string, items []CartItem) (*Order, error) {
	if buyerID == "" || len(items) == 0 {
		return nil, apperr.Invalid("buyer and cart items are required")
	}
	if _, err := uuid.Parse(buyerID); err != nil {
		return nil, apperr.Invalid("invalid buyer ID")
	}
	buyer, err := s.buyers.GetByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, apperr.Invalid("each cart item needs a product ID and a positive quantity")
		}
		if _, err := uuid.Parse(it.ProductID); err != nil {
			return nil, apperr.Invalid("invalid product ID %s", it.ProductID)
		}
	}

	lines := make([]Line, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p.Stock < it.Quantity {
			return nil, apperr.InsufficientStock(p.Name, p.Stock)
		}
		line := Line{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		}
		total = total.Add(line.Subtotal())
		lines = append(lines, line)
	}

	o := &Order{
		ID:        uuid.NewString(),
		BuyerID:   buyer.ID,
		Lines:     lines,
		Total:     total,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	// Create re-checks stock via conditional decrement inside one
	// transaction, so a concurrent placement that won the race surfaces
	// here as InsufficientStock with nothing mutated.
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	placed, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.publishCreated(placed)
	return placed, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("order not found")
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, page, limit int) ([]Order, Pagination, error) {
	page, limit = clampPage(page, limit)
	out, total, err := s.store.List(ctx, f, page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}
	return out, paginate(total, page, limit), nil
}

func (s *Service) ListForBuyer(ctx context.Context, buyerID string, page, limit int) ([]Order, Pagination, error) {
	if _, err := uuid.Parse(buyerID); err != nil {
		return nil, Pagination{}, apperr.Invalid("invalid buyer ID")
	}
	if _, err := s.buyers.GetByID(ctx, buyerID); err != nil {
		return nil, Pagination{}, err
	}
	return s.List(ctx, ListFilter{BuyerID: buyerID}, page, limit)
}

// SetStatus moves an order to any of the four statuses. No transition
// graph is enforced; the reference lifecycle is permissive.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*Order, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("order not found")
	}
	if err := s.store.UpdateStatus(ctx, id, st); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func (s *Service) publishCreated(o *Order) {
	if s.pub == nil {
		return
	}
	items := make([]PlacedItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, PlacedItem{
			ProductID: l.ProductID, Name: l.Name, Quantity: l.Quantity, UnitPrice: l.UnitPrice,
		})
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.svcName,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderCreatedPayload{
			OrderID: o.ID, BuyerID: o.BuyerID, Items: items, Total: o.Total,
		}),
	}
	s.pub.Publish(PartitionKey(o.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
