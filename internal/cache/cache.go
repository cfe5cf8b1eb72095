// Package cache memoizes expression validation results.
package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/exp/slices"

	"zte.szuro.net/pkg/expression"
)

// ErrorCache keeps validation errors per expression, bounded by entry count.
type ErrorCache struct {
	cache *ristretto.Cache[string, []expression.MacroError]
}

func NewErrorCache(maxEntries int64) (*ErrorCache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []expression.MacroError]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create error cache: %w", err)
	}
	return &ErrorCache{cache: c}, nil
}

func (c *ErrorCache) Get(expr string) ([]expression.MacroError, bool) {
	errs, ok := c.cache.Get(expr)
	if !ok {
		return nil, false
	}
	return slices.Clone(errs), true
}

// Set stores errs with a cost of one. The write is visible to Get once Set returns.
func (c *ErrorCache) Set(expr string, errs []expression.MacroError) {
	c.cache.Set(expr, slices.Clone(errs), 1)
	c.cache.Wait()
}

func (c *ErrorCache) Clear() {
	c.cache.Clear()
}

func (c *ErrorCache) Close() {
	c.cache.Close()
}
