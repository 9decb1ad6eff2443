package index_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/course"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/index"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/testutil"
)

func newTestIndex(t *testing.T) (*index.CourseIndex, *testutil.Embedder) {
	t.Helper()
	emb := testutil.NewEmbedder(3)
	return index.New(index.NewMemoryBackend(emb), nil), emb
}

func goCourse() (*course.Course, []course.Chunk) {
	crs := &course.Course{
		Title:      "Intro to Go",
		Link:       "https://example.com/go",
		Instructor: "Rob Example",
		Lessons: []course.Lesson{
			{Number: 0, Title: "Setup", Link: "https://example.com/go/0"},
			{Number: 1, Title: "Basics", Link: "https://example.com/go/1"},
		},
	}
	chunks := []course.Chunk{
		{Text: "Course Intro to Go Lesson 0 content: installing the toolchain", CourseTitle: crs.Title, LessonNumber: 0, Index: 0},
		{Text: "Course Intro to Go Lesson 1 content: declaring variables", CourseTitle: crs.Title, LessonNumber: 1, Index: 1},
		{Text: "Course Intro to Go Lesson 1 content: writing functions", CourseTitle: crs.Title, LessonNumber: 1, Index: 2},
	}
	return crs, chunks
}

func TestAddCourseAndMembership(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	crs, chunks := goCourse()
	require.NoError(t, idx.AddCourse(ctx, crs, chunks))

	ok, err := idx.HasCourse(ctx, "Intro to Go")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.HasCourse(ctx, "Intro to Rust")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := idx.CourseCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = idx.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAddCourseReplacesPreviousChunks(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	crs, chunks := goCourse()
	require.NoError(t, idx.AddCourse(ctx, crs, chunks))

	// Re-ingest with a single chunk; the three originals must be gone.
	replacement := []course.Chunk{
		{Text: "Course Intro to Go Lesson 0 content: revised setup guide", CourseTitle: crs.Title, LessonNumber: 0, Index: 0},
	}
	require.NoError(t, idx.AddCourse(ctx, crs, replacement))

	n, err := idx.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = idx.CourseCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddCourseRejectsEmptyTitle(t *testing.T) {
	idx, _ := newTestIndex(t)
	err := idx.AddCourse(context.Background(), &course.Course{}, nil)
	assert.Error(t, err)
}

func TestSearchContentRankingAndFilter(t *testing.T) {
	idx, emb := newTestIndex(t)
	ctx := context.Background()

	crs, chunks := goCourse()
	emb.SetVector(chunks[0].Text, []float32{1, 0, 0})
	emb.SetVector(chunks[1].Text, []float32{0, 1, 0})
	emb.SetVector(chunks[2].Text, []float32{0, 0, 1})
	require.NoError(t, idx.AddCourse(ctx, crs, chunks))

	emb.SetVector("how do I declare variables", []float32{0.1, 1, 0})
	matches, err := idx.SearchContent(ctx, "how do I declare variables", 2, index.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, chunks[1].Text, matches[0].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	// Restricting to lesson 0 must exclude the better-scoring lesson 1 chunk.
	lesson := 0
	matches, err = idx.SearchContent(ctx, "how do I declare variables", 2, index.Filter{
		CourseTitle:  "Intro to Go",
		LessonNumber: &lesson,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, chunks[0].Text, matches[0].Text)
	assert.Equal(t, "0", matches[0].Metadata[index.MetaLessonNumber])
}

func TestSearchContentEmptyIndex(t *testing.T) {
	idx, _ := newTestIndex(t)
	matches, err := idx.SearchContent(context.Background(), "anything", 5, index.Filter{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearchContentFilterExcludesOtherCourses(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	crs, chunks := goCourse()
	require.NoError(t, idx.AddCourse(ctx, crs, chunks))

	other := &course.Course{Title: "Databases 101"}
	otherChunks := []course.Chunk{
		{Text: "Course Databases 101 Lesson 0 content: relational basics", CourseTitle: other.Title, LessonNumber: 0, Index: 0},
	}
	require.NoError(t, idx.AddCourse(ctx, other, otherChunks))

	matches, err := idx.SearchContent(ctx, "basics", 10, index.Filter{CourseTitle: "Databases 101"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Databases 101", matches[0].Metadata[index.MetaCourseTitle])
}

func TestCourseTitlesInsertionOrder(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	first, firstChunks := goCourse()
	require.NoError(t, idx.AddCourse(ctx, first, firstChunks))
	require.NoError(t, idx.AddCourse(ctx, &course.Course{Title: "Databases 101"}, nil))

	titles, err := idx.CourseTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Intro to Go", "Databases 101"}, titles)
}

func TestCourseOutline(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	crs, chunks := goCourse()
	require.NoError(t, idx.AddCourse(ctx, crs, chunks))

	out, err := idx.CourseOutline(ctx, "Intro to Go")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "Intro to Go", out.Title)
	assert.Equal(t, "https://example.com/go", out.Link)
	require.Len(t, out.Lessons, 2)
	assert.Equal(t, "Setup", out.Lessons[0].Title)
	assert.Equal(t, 1, out.Lessons[1].Number)
	assert.Equal(t, "https://example.com/go/1", out.Lessons[1].Link)

	out, err = idx.CourseOutline(ctx, "Unknown Course")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestChunkMetadataCarriesLessonLink(t *testing.T) {
	idx, emb := newTestIndex(t)
	ctx := context.Background()

	crs, chunks := goCourse()
	emb.SetVector(chunks[0].Text, []float32{1, 0, 0})
	require.NoError(t, idx.AddCourse(ctx, crs, chunks))

	emb.SetVector("setup", []float32{1, 0, 0})
	matches, err := idx.SearchContent(ctx, "setup", 1, index.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "https://example.com/go/0", matches[0].Metadata[index.MetaLessonLink])
}

func TestFilterMatches(t *testing.T) {
	md := map[string]string{
		index.MetaCourseTitle:  "Intro to Go",
		index.MetaLessonNumber: "1",
	}

	assert.True(t, index.Filter{}.Matches(md))
	assert.True(t, index.Filter{CourseTitle: "Intro to Go"}.Matches(md))

	one := 1
	assert.True(t, index.Filter{CourseTitle: "Intro to Go", LessonNumber: &one}.Matches(md))

	two := 2
	assert.False(t, index.Filter{LessonNumber: &two}.Matches(md))
	assert.False(t, index.Filter{CourseTitle: "Other"}.Matches(md))
}
