package memory

import (
	"context"
	"fmt"

	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/service/dao"
	"github.com/viant/jobrunner/service/dao/specs"
	"github.com/viant/jobrunner/service/dao/store"
)

// Repository holds specs registered in code.
type Repository struct {
	store *store.MemoryStore[string, spec.Spec]
}

var _ specs.Repository = (*Repository)(nil)

// Add validates and registers a spec, replacing one with the same id.
func (r *Repository) Add(ctx context.Context, aSpec *spec.Spec) error {
	aSpec.Init()
	if err := aSpec.Validate(); err != nil {
		return err
	}
	return r.store.Save(ctx, aSpec)
}

func (r *Repository) Lookup(ctx context.Context, id string) (*spec.Spec, error) {
	ret, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("spec %q: %w", id, err)
	}
	return ret, nil
}

func (r *Repository) Summaries(ctx context.Context) ([]*spec.Summary, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]*spec.Summary, 0, len(all))
	for _, item := range all {
		ret = append(ret, item.Summary())
	}
	return ret, nil
}

// New creates a repository with the supplied specs.
func New(items ...*spec.Spec) (*Repository, error) {
	ret := &Repository{store: store.NewMemoryStore[string, spec.Spec](func(s *spec.Spec) string { return s.ID }, nil)}
	for _, item := range items {
		if item == nil {
			return nil, dao.ErrNilEntity
		}
		if err := ret.Add(context.Background(), item); err != nil {
			return nil, err
		}
	}
	return ret, nil
}
