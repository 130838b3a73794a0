// Package specs defines where job specs are published from.
package specs

import (
	"context"

	"github.com/viant/jobrunner/model/spec"
)

// Repository resolves published specs. Lookup returns an error wrapping
// dao.ErrNotFound for unknown ids.
type Repository interface {
	Lookup(ctx context.Context, id string) (*spec.Spec, error)
	Summaries(ctx context.Context) ([]*spec.Summary, error)
}
