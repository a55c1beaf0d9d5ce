package redisx

import "time"

const (
	// Cached order JSON as served by GET /orders/{id}: order:{order_id}
	KeyOrder = "order:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
