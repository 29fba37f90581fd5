package auditlog

import (
	"context"
)

// Repo is append-only: entries are never updated or deleted.
type Repo interface {
	Append(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id int64) (*Entry, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
}
