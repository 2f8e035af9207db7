// Package redisadapter implements the Cache Adapter's primary production
// backend on top of github.com/redis/go-redis/v9.
package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darkkaiser/pricesearch/internal/engine/cache"
	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
	applog "github.com/darkkaiser/pricesearch/pkg/log"
)

const component = "cache.redisadapter"

// defaultTTL is used when Set is called with a zero or negative ttl.
const defaultTTL = 6 * time.Hour

// defaultNegativeTTL mirrors the fileadapter's negative-cache lifetime.
const defaultNegativeTTL = 60 * time.Second

// wireEntry is the JSON shape written to Redis. It always writes
// product_url on Set; Get tolerates the legacy "url" key on read per
// the documented cache entry shape drift.
type wireEntry struct {
	ProductURL   string `json:"product_url"`
	LegacyURL    string `json:"url,omitempty"`
	Price        int    `json:"price"`
	ProductName  string `json:"product_name,omitempty"`
	Mall         string `json:"mall,omitempty"`
	FreeShipping bool   `json:"free_shipping,omitempty"`
}

// Adapter is a cache.Adapter backed by a single Redis instance.
type Adapter struct {
	client *redis.Client
}

// New wraps an already-constructed *redis.Client. Connection lifecycle
// (dialing, auth, TLS) is the caller's concern; this package only
// speaks the cache.Adapter protocol over it.
func New(client *redis.Client) *Adapter {
	return &Adapter{client: client}
}

// NewFromAddr is a convenience constructor for the common case of a
// single-node Redis reachable by address.
func NewFromAddr(addr, password string, db int) *Adapter {
	return New(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

var _ cache.Adapter = (*Adapter)(nil)

func (a *Adapter) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	raw, err := a.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"key":   key,
			"error": err,
		}).Warn("Redis 조회 실패: 캐시 미스로 처리")
		return cache.Entry{}, false, nil
	}

	entry, ok := decodeWireEntry([]byte(raw))
	if !ok {
		applog.WithComponentAndFields(component, applog.Fields{
			"key": key,
		}).Warn("Redis 캐시 항목 역직렬화 실패 또는 유효성 검증 실패: 캐시 미스로 처리")
		return cache.Entry{}, false, nil
	}

	return entry, true, nil
}

// decodeWireEntry parses a Redis value into a cache.Entry, tolerating the
// legacy "url" key in place of "product_url" per the documented cache entry
// shape drift. The second return is false when the payload doesn't parse
// or decodes to an entry that fails validation.
func decodeWireEntry(raw []byte) (cache.Entry, bool) {
	var wire wireEntry
	if err := json.Unmarshal(raw, &wire); err != nil {
		return cache.Entry{}, false
	}

	productURL := wire.ProductURL
	if productURL == "" {
		// Tolerate the legacy "url" key on read; writes always emit
		// product_url going forward.
		productURL = wire.LegacyURL
	}

	entry := cache.Entry{
		ProductURL:   productURL,
		Price:        wire.Price,
		ProductName:  wire.ProductName,
		Mall:         wire.Mall,
		FreeShipping: wire.FreeShipping,
		CachedAt:     time.Now(),
	}

	if !entry.Valid() {
		return cache.Entry{}, false
	}

	return entry, true
}

func (a *Adapter) Set(ctx context.Context, key string, entry cache.Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	wire := wireEntry{
		ProductURL:   entry.ProductURL,
		Price:        entry.Price,
		ProductName:  entry.ProductName,
		Mall:         entry.Mall,
		FreeShipping: entry.FreeShipping,
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "캐시 항목 직렬화 실패")
	}

	if err := a.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "Redis SET 실패")
	}

	return nil
}

func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "Redis DEL 실패")
	}
	return nil
}

func (a *Adapter) GetNegative(ctx context.Context, key string) (string, bool, error) {
	raw, err := a.client.Get(ctx, cache.NegativeKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"key":   key,
			"error": err,
		}).Warn("Redis 부정 캐시 조회 실패: 미스로 처리")
		return "", false, nil
	}

	return raw, true, nil
}

func (a *Adapter) SetNegative(ctx context.Context, key string, message string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultNegativeTTL
	}

	if err := a.client.Set(ctx, cache.NegativeKey(key), message, ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "Redis 부정 캐시 저장 실패")
	}

	return nil
}

func (a *Adapter) Close() error {
	return a.client.Close()
}
