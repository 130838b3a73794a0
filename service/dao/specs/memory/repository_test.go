package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jobrunner/model/spec"
	"github.com/viant/jobrunner/service/dao"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := New(
		&spec.Spec{ID: "b", Execution: &spec.Execution{Application: "true"}},
		&spec.Spec{ID: "a", Name: "A", Execution: &spec.Execution{Application: "true"}},
	)
	require.NoError(t, err)

	aSpec, err := repo.Lookup(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", aSpec.Name)

	_, err = repo.Lookup(ctx, "c")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	summaries, err := repo.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "b", summaries[0].ID)
	assert.Equal(t, "A", summaries[1].Name)

	assert.Error(t, repo.Add(ctx, &spec.Spec{ID: "invalid"}))
	_, err = New(nil)
	assert.ErrorIs(t, err, dao.ErrNilEntity)
}
