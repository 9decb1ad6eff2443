package index_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/course"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/index"
)

func TestResolverMatchesPartialName(t *testing.T) {
	idx, emb := newTestIndex(t)
	ctx := context.Background()

	// Catalog entries embed "title instructor", so pin those exact strings.
	emb.SetVector("Intro to Go Rob Example", []float32{1, 0, 0})
	emb.SetVector("Databases 101", []float32{0, 1, 0})
	require.NoError(t, idx.AddCourse(ctx, &course.Course{Title: "Intro to Go", Instructor: "Rob Example"}, nil))
	require.NoError(t, idx.AddCourse(ctx, &course.Course{Title: "Databases 101"}, nil))

	emb.SetVector("go course", []float32{0.9, 0.1, 0})
	resolver := index.NewResolver(idx, 0)

	title, err := resolver.Resolve(ctx, "go course")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", title)
}

func TestResolverRejectsWeakMatch(t *testing.T) {
	idx, emb := newTestIndex(t)
	ctx := context.Background()

	emb.SetVector("Intro to Go Rob Example", []float32{1, 0, 0})
	require.NoError(t, idx.AddCourse(ctx, &course.Course{Title: "Intro to Go", Instructor: "Rob Example"}, nil))

	// Nearly orthogonal to every catalog entry: best score falls below the
	// acceptance threshold, so the resolver refuses to guess.
	emb.SetVector("medieval poetry", []float32{0, 0.1, 1})
	resolver := index.NewResolver(idx, 0.5)

	_, err := resolver.Resolve(ctx, "medieval poetry")
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrCourseNotFound)
	assert.Contains(t, err.Error(), "medieval poetry")
}

func TestResolverEmptyCatalog(t *testing.T) {
	idx, _ := newTestIndex(t)
	resolver := index.NewResolver(idx, 0)

	_, err := resolver.Resolve(context.Background(), "anything")
	assert.ErrorIs(t, err, index.ErrCourseNotFound)
}

func TestResolverEmptyName(t *testing.T) {
	idx, _ := newTestIndex(t)
	resolver := index.NewResolver(idx, 0)

	_, err := resolver.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, index.ErrCourseNotFound)
}
