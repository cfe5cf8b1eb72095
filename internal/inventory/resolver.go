package inventory

import (
	"context"

	"zte.szuro.net/pkg/zbx"
)

// Resolver adapts an Inventory to expression.FunctionInfoResolver.
type Resolver struct {
	inv Inventory
}

func NewResolver(inv Inventory) *Resolver {
	return &Resolver{inv: inv}
}

func (r *Resolver) Resolve(ctx context.Context, host, key, function string, _ []string) (zbx.FunctionInfo, error) {
	item, err := r.inv.Lookup(ctx, host, key)
	if err != nil {
		return zbx.FunctionInfo{}, err
	}
	return zbx.LookupFunction(function, item.ValueType)
}
