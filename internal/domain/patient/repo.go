package patient

import "context"

// Filter narrows List results.
type Filter struct {
	Service string
}

type Repo interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id string) (*Patient, error)
}
