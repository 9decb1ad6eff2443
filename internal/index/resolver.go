package index

import (
	"context"
	"errors"
	"fmt"
)

// ErrCourseNotFound is returned by Resolver.Resolve when no catalog entry
// is an acceptable match for the requested name.
var ErrCourseNotFound = errors.New("no matching course found")

// DefaultScoreThreshold is the minimum catalog similarity accepted as a
// course-name match.
const DefaultScoreThreshold = 0.5

// Resolver maps partial or fuzzy course names to exact catalog titles by
// embedding the requested name and taking the best catalog match above a
// fixed acceptance threshold.
type Resolver struct {
	index     *CourseIndex
	threshold float32
}

// NewResolver creates a Resolver. A threshold <= 0 selects
// DefaultScoreThreshold.
func NewResolver(idx *CourseIndex, threshold float32) *Resolver {
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}
	return &Resolver{index: idx, threshold: threshold}
}

// Resolve returns the exact title of the best-matching course. A low-scoring
// best match is rejected rather than guessed: the caller gets
// ErrCourseNotFound and can tell the user which name failed.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty course name", ErrCourseNotFound)
	}
	matches, err := r.index.SearchCatalog(ctx, name, 1)
	if err != nil {
		return "", fmt.Errorf("resolving course name %q: %w", name, err)
	}
	if len(matches) == 0 || matches[0].Score < r.threshold {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}
	return matches[0].ID, nil
}
