// Package auditor consumes order.created events and appends them to the
// audit trail, so the log survives even when the synchronous audit write
// path is unavailable.
package auditor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/shopd/shopd/internal/audit"
	kafkax "github.com/shopd/shopd/internal/kafka"
	"github.com/shopd/shopd/internal/orders"
	"github.com/shopd/shopd/internal/redisx"
	"github.com/shopd/shopd/internal/users"
)

type Recorder interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

type Service struct {
	Recorder    Recorder
	Users       UserStore
	Redis       *redis.Client
	Log         *slog.Logger
	ServiceName string
}

// HandleOrderCreated is mounted as the kafka consumer handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	// dedup by event_id so redelivery does not duplicate trail entries
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	entry := &audit.Entry{
		UserID:    p.BuyerID,
		UserEmail: "unknown",
		UserName:  "unknown",
		Action:    audit.ActionOrderPlaced,
		Success:   true,
		Details:   fmt.Sprintf("order %s placed, %d items, total %s", p.OrderID, len(p.Items), p.Total.StringFixed(2)),
	}
	if u, err := s.Users.GetByID(ctx, p.BuyerID); err == nil {
		entry.UserEmail = u.Email
		entry.UserName = u.Name
	}

	if err := s.Recorder.Record(ctx, entry); err != nil {
		return err
	}
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	s.Log.Info("order audit recorded", "order_id", p.OrderID, "buyer_id", p.BuyerID)
	return nil
}
