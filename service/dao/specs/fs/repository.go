package fs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs/url"
	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/service/dao"
	"github.com/viant/jobrunner/service/dao/specs"
	"github.com/viant/jobrunner/service/meta"
)

// Candidate spec document names, in lookup order.
var documentNames = []string{"spec.yml", "spec.yaml", "spec.json"}

// Repository loads specs from <baseURL>/<id>/spec.{yml,yaml,json}. A spec
// without an id takes the directory name. Parsed specs are cached until
// Reload.
type Repository struct {
	meta  *meta.Service
	mux   sync.RWMutex
	cache map[string]*spec.Spec
}

var _ specs.Repository = (*Repository)(nil)

// Lookup returns the spec published under id.
func (r *Repository) Lookup(ctx context.Context, id string) (*spec.Spec, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, fmt.Errorf("spec %q: %w", id, dao.ErrInvalidID)
	}
	r.mux.RLock()
	cached, ok := r.cache[id]
	r.mux.RUnlock()
	if ok {
		return cached, nil
	}
	aSpec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mux.Lock()
	r.cache[id] = aSpec
	r.mux.Unlock()
	return aSpec, nil
}

func (r *Repository) load(ctx context.Context, id string) (*spec.Spec, error) {
	for _, name := range documentNames {
		location := id + "/" + name
		exists, err := r.meta.Exists(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to check spec %s: %w", location, err)
		}
		if !exists {
			continue
		}
		data, err := r.meta.Download(ctx, location)
		if err != nil {
			return nil, err
		}
		return Decode(id, name, data)
	}
	return nil, fmt.Errorf("spec %q: %w", id, dao.ErrNotFound)
}

// Decode parses a spec document named name; the spec id defaults to id.
func Decode(id, name string, data []byte) (*spec.Spec, error) {
	aSpec := &spec.Spec{}
	if err := meta.Decode(name, data, aSpec); err != nil {
		return nil, err
	}
	if aSpec.ID == "" {
		aSpec.ID = id
	}
	aSpec.Init()
	if err := aSpec.Validate(); err != nil {
		return nil, err
	}
	return aSpec, nil
}

// Summaries lists every loadable spec; directories without a valid spec are skipped.
func (r *Repository) Summaries(ctx context.Context) ([]*spec.Summary, error) {
	objects, err := r.meta.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var ret []*spec.Summary
	for _, object := range objects {
		if !object.IsDir() || url.Equals(object.URL(), r.meta.BaseURL()) {
			continue
		}
		aSpec, err := r.Lookup(ctx, object.Name())
		if err != nil {
			continue
		}
		ret = append(ret, aSpec.Summary())
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret, nil
}

// Reload drops cached specs.
func (r *Repository) Reload() {
	r.mux.Lock()
	r.cache = map[string]*spec.Spec{}
	r.mux.Unlock()
}

// New creates a repository reading spec directories through metaService.
func New(metaService *meta.Service) (*Repository, error) {
	if metaService == nil || metaService.BaseURL() == "" {
		return nil, fmt.Errorf("spec base URL was empty")
	}
	return &Repository{
		meta:  metaService,
		cache: map[string]*spec.Spec{},
	}, nil
}
