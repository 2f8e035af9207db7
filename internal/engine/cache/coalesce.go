package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coalescing wraps an Adapter so that concurrent Get/GetNegative calls for
// the same key, arriving while one backend lookup for that key is already
// in flight, share that lookup's result instead of each paying the backend
// round trip independently. It does not coalesce Set/Delete: writes always go straight
// through, since two writers racing on the same key is a correctness
// question for the caller, not something a cache wrapper should paper over.
type Coalescing struct {
	backend Adapter
	group   singleflight.Group
}

// NewCoalescing wraps backend. The returned Adapter implements the full
// Adapter contract and can be used anywhere a plain Adapter is expected.
func NewCoalescing(backend Adapter) *Coalescing {
	return &Coalescing{backend: backend}
}

var _ Adapter = (*Coalescing)(nil)

type getResult struct {
	entry Entry
	found bool
}

func (c *Coalescing) Get(ctx context.Context, key string) (Entry, bool, error) {
	v, err, _ := c.group.Do("get:"+key, func() (interface{}, error) {
		entry, found, err := c.backend.Get(ctx, key)
		return getResult{entry: entry, found: found}, err
	})
	if err != nil {
		return Entry{}, false, err
	}
	r := v.(getResult)
	return r.entry, r.found, nil
}

func (c *Coalescing) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	return c.backend.Set(ctx, key, entry, ttl)
}

func (c *Coalescing) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

type getNegativeResult struct {
	message string
	found   bool
}

func (c *Coalescing) GetNegative(ctx context.Context, key string) (string, bool, error) {
	v, err, _ := c.group.Do("getneg:"+key, func() (interface{}, error) {
		message, found, err := c.backend.GetNegative(ctx, key)
		return getNegativeResult{message: message, found: found}, err
	})
	if err != nil {
		return "", false, err
	}
	r := v.(getNegativeResult)
	return r.message, r.found, nil
}

func (c *Coalescing) SetNegative(ctx context.Context, key string, message string, ttl time.Duration) error {
	return c.backend.SetNegative(ctx, key, message, ttl)
}

func (c *Coalescing) Close() error {
	return c.backend.Close()
}
