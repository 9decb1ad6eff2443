package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/index"
)

// Searcher is the slice of the index the content tool needs.
type Searcher interface {
	SearchContent(ctx context.Context, query string, topK int, f index.Filter) ([]index.Match, error)
}

// NameResolver maps fuzzy course names to exact titles.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// CourseSearch is the content search tool. It resolves an optional course
// name, runs a filtered similarity search, and formats excerpts with their
// course and lesson context for the model.
type CourseSearch struct {
	searcher   Searcher
	resolver   NameResolver
	maxResults int
	logger     *slog.Logger
}

// NewCourseSearch creates the content search tool. maxResults caps how many
// excerpts a single call returns; logger may be nil.
func NewCourseSearch(searcher Searcher, resolver NameResolver, maxResults int, logger *slog.Logger) *CourseSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseSearch{
		searcher:   searcher,
		resolver:   resolver,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Definition implements Tool.
func (t *CourseSearch) Definition() Definition {
	return Definition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		Params: map[string]Param{
			"query": {
				Type:        "string",
				Description: "What to search for in the course content",
			},
			"course_name": {
				Type:        "string",
				Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": {
				Type:        "integer",
				Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
		Required: []string{"query"},
	}
}

// Execute implements Tool.
func (t *CourseSearch) Execute(ctx context.Context, args map[string]any) (Result, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return Result{}, err
	}
	if query == "" {
		return Result{}, fmt.Errorf("missing required argument %q", "query")
	}
	courseName, err := stringArg(args, "course_name")
	if err != nil {
		return Result{}, err
	}
	lessonNumber, err := intArg(args, "lesson_number")
	if err != nil {
		return Result{}, err
	}

	var filter index.Filter
	if courseName != "" {
		title, err := t.resolver.Resolve(ctx, courseName)
		if errors.Is(err, index.ErrCourseNotFound) {
			return Result{Text: fmt.Sprintf("No course found matching '%s'", courseName)}, nil
		}
		if err != nil {
			return Result{}, err
		}
		filter.CourseTitle = title
	}
	filter.LessonNumber = lessonNumber

	matches, err := t.searcher.SearchContent(ctx, query, t.maxResults, filter)
	if err != nil {
		return Result{}, err
	}
	if len(matches) == 0 {
		return Result{Text: emptyMessage(filter)}, nil
	}
	sortTies(matches)

	var (
		blocks  []string
		sources []Source
	)
	for _, m := range matches {
		title := m.Metadata[index.MetaCourseTitle]
		header := fmt.Sprintf("[%s]", title)
		label := title
		if lesson := m.Metadata[index.MetaLessonNumber]; lesson != "" {
			header = fmt.Sprintf("[%s - Lesson %s]", title, lesson)
			label = fmt.Sprintf("%s - Lesson %s", title, lesson)
		}
		blocks = append(blocks, header+"\n"+m.Text)
		sources = append(sources, Source{Text: label, Link: m.Metadata[index.MetaLessonLink]})
	}

	t.logger.Debug("content search",
		"query", query,
		"course", filter.CourseTitle,
		"results", len(matches),
	)
	return Result{Text: strings.Join(blocks, "\n\n"), Sources: sources}, nil
}

// sortTies keeps the backend's score ordering but breaks equal scores by
// course title and chunk position so output is stable across backends.
func sortTies(matches []index.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		ti := matches[i].Metadata[index.MetaCourseTitle]
		tj := matches[j].Metadata[index.MetaCourseTitle]
		if ti != tj {
			return ti < tj
		}
		ci, _ := strconv.Atoi(matches[i].Metadata[index.MetaChunkIndex])
		cj, _ := strconv.Atoi(matches[j].Metadata[index.MetaChunkIndex])
		return ci < cj
	})
}

func emptyMessage(f index.Filter) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if f.CourseTitle != "" {
		fmt.Fprintf(&b, " in course '%s'", f.CourseTitle)
	}
	if f.LessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *f.LessonNumber)
	}
	b.WriteString(".")
	return b.String()
}
