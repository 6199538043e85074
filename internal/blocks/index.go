// Package blocks evaluates ad-hoc closures at restaurant, saloon and table scope.
package blocks

import (
	"context"
	"sort"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

// BlockStore lists active blocks whose date range contains date.
type BlockStore interface {
	ListBlocksOn(ctx context.Context, date time.Time) ([]model.Block, error)
}

// Index answers whether a table slot is blocked.
type Index struct {
	store BlockStore
}

// NewIndex creates a block index over store.
func NewIndex(store BlockStore) *Index {
	return &Index{store: store}
}

// ListBlocking returns every block excluding requested on date for the table,
// most specific scope first, then by id.
func (x *Index) ListBlocking(ctx context.Context, tableID, saloonID int64, date time.Time, requested interval.TimeInterval) ([]model.Block, error) {
	candidates, err := x.store.ListBlocksOn(ctx, interval.DateOf(date))
	if err != nil {
		return nil, model.WrapStorage("list blocks", err)
	}

	var out []model.Block
	for i := range candidates {
		if candidates[i].Applies(tableID, saloonID, date, requested) {
			out = append(out, candidates[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Scope.Type.Specificity(), out[j].Scope.Type.Specificity()
		if si != sj {
			return si < sj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// IsBlocked reports whether any block applies. Scopes are OR-ed; none takes precedence.
func (x *Index) IsBlocked(ctx context.Context, tableID, saloonID int64, date time.Time, requested interval.TimeInterval) (bool, error) {
	candidates, err := x.store.ListBlocksOn(ctx, interval.DateOf(date))
	if err != nil {
		return false, model.WrapStorage("list blocks", err)
	}
	for i := range candidates {
		if candidates[i].Applies(tableID, saloonID, date, requested) {
			return true, nil
		}
	}
	return false, nil
}
