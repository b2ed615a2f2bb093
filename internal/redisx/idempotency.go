package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInProgress is returned by Begin while another request holds the key.
	ErrInProgress = errors.New("idempotent request still in progress")
	// ErrKeyReused is returned by Begin when the key was first used for a
	// different request.
	ErrKeyReused = errors.New("idempotency key reused with a different request")
)

// idemRecord is the value under an idempotency key. Pending records expire
// quickly so a crashed request does not lock its key for long; completed ones
// keep the response for TTLIdempotency.
type idemRecord struct {
	Fingerprint string          `json:"fp"`
	Pending     bool            `json:"pending,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// Idempotency lets a client resend an order request under the same key and
// get the first response back instead of buying twice.
type Idempotency struct {
	rdb        redis.Cmdable
	pendingTTL time.Duration
}

// NewIdempotency returns a store whose in-progress claims live for pendingTTL
// (TTLIdempotencyPending when zero). It should exceed the request timeout.
func NewIdempotency(rdb redis.Cmdable, pendingTTL time.Duration) *Idempotency {
	if pendingTTL <= 0 {
		pendingTTL = TTLIdempotencyPending
	}
	return &Idempotency{rdb: rdb, pendingTTL: pendingTTL}
}

// Begin claims key for the request identified by fingerprint. When a response
// was already stored for the same request it is returned as replay and the
// caller must not run the request again.
func (i *Idempotency) Begin(ctx context.Context, key, fingerprint string) (replay []byte, err error) {
	k := fmt.Sprintf(KeyIdemOrderPlace, key)
	pending, err := json.Marshal(idemRecord{Fingerprint: fingerprint, Pending: true})
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		claimed, err := i.rdb.SetNX(ctx, k, pending, i.pendingTTL).Result()
		if err != nil {
			return nil, err
		}
		if claimed {
			return nil, nil
		}

		raw, err := i.rdb.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return nil, err
		}

		var rec idemRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode idempotency record %s: %w", k, err)
		}
		switch {
		case rec.Fingerprint != fingerprint:
			return nil, ErrKeyReused
		case rec.Pending:
			return nil, ErrInProgress
		}
		return rec.Body, nil
	}
	return nil, ErrInProgress
}

// Complete stores the response body for later replays of the same request.
func (i *Idempotency) Complete(ctx context.Context, key, fingerprint string, body []byte) error {
	v, err := json.Marshal(idemRecord{Fingerprint: fingerprint, Body: body})
	if err != nil {
		return err
	}
	return i.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderPlace, key), v, TTLIdempotency).Err()
}

// Abort releases key after a failed request so the client can retry.
func (i *Idempotency) Abort(ctx context.Context, key string) error {
	return i.rdb.Del(ctx, fmt.Sprintf(KeyIdemOrderPlace, key)).Err()
}
