package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/index"
)

// OutlineProvider is the slice of the index the outline tool needs.
type OutlineProvider interface {
	CourseOutline(ctx context.Context, title string) (*index.Outline, error)
}

// CourseOutlineTool returns a course's structure: title, link, and the
// numbered lesson list. It answers "what does course X cover" questions
// without a content search.
type CourseOutlineTool struct {
	provider OutlineProvider
	resolver NameResolver
	logger   *slog.Logger
}

// NewCourseOutline creates the outline tool. logger may be nil.
func NewCourseOutline(provider OutlineProvider, resolver NameResolver, logger *slog.Logger) *CourseOutlineTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseOutlineTool{provider: provider, resolver: resolver, logger: logger}
}

// Definition implements Tool.
func (t *CourseOutlineTool) Definition() Definition {
	return Definition{
		Name:        "get_course_outline",
		Description: "Get the full outline of a course: title, link, and all lesson numbers and titles",
		Params: map[string]Param{
			"course_name": {
				Type:        "string",
				Description: "Course title (partial matches work)",
			},
		},
		Required: []string{"course_name"},
	}
}

// Execute implements Tool.
func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	courseName, err := stringArg(args, "course_name")
	if err != nil {
		return Result{}, err
	}
	if courseName == "" {
		return Result{}, fmt.Errorf("missing required argument %q", "course_name")
	}

	title, err := t.resolver.Resolve(ctx, courseName)
	if errors.Is(err, index.ErrCourseNotFound) {
		return Result{Text: fmt.Sprintf("No course found matching '%s'", courseName)}, nil
	}
	if err != nil {
		return Result{}, err
	}

	outline, err := t.provider.CourseOutline(ctx, title)
	if err != nil {
		return Result{}, err
	}
	if outline == nil {
		// Resolver pointed at a title the catalog no longer has; a
		// concurrent re-ingest can cause this window.
		return Result{Text: fmt.Sprintf("No course found matching '%s'", courseName)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", outline.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(outline.Lessons))
	for _, l := range outline.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", l.Number, l.Title)
	}

	t.logger.Debug("course outline", "course", outline.Title, "lessons", len(outline.Lessons))
	return Result{
		Text:    strings.TrimRight(b.String(), "\n"),
		Sources: []Source{{Text: outline.Title, Link: outline.Link}},
	}, nil
}
