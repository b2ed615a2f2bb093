package redisx

import "time"

const (
	// Idempotent order placement: idem:order:place:{key} -> {"fp","pending"|"body"}
	KeyIdemOrderPlace = "idem:order:place:%s"

	// Cached GET /orders bodies: orders:seller:{seller_id}, orders:recent
	KeySellerOrders = "orders:seller:%d"
	KeyRecentOrders = "orders:recent"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency        = 24 * time.Hour
	TTLIdempotencyPending = 30 * time.Second
	TTLDedup              = 48 * time.Hour
)
