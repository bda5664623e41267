package branch

import "context"

// Store reads branch and province reference data. Implementations return
// sentinel.ErrNotFound when a row is absent.
type Store interface {
	Find(ctx context.Context, id int64) (*Branch, error)
	ListProvinces(ctx context.Context) ([]Province, error)
	ListByProvince(ctx context.Context, provinceID int64) ([]Branch, error)
}
