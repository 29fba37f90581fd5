package weekly

import "context"

// Filter narrows List results. Week and Month are tri-state: nil means
// no filter.
type Filter struct {
	Service string
	Week    *int
	Month   *int
}

type Repo interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id int64) (*Report, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Report, int, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id int64) (*Report, error)

	// TupleExists reports whether another row already uses the
	// (week, month, service) tuple. excludeID skips the row being
	// updated; pass 0 for creates.
	TupleExists(ctx context.Context, week, month int, service string, excludeID int64) (bool, error)

	// Lookup returns the single row for the tuple, or a not-found fault.
	Lookup(ctx context.Context, service string, week, month int) (*Report, error)
}
