package course

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, c *Chunker, text string) []string {
	t.Helper()
	var out []string
	for chunk := range c.Split(text) {
		out = append(out, chunk)
	}
	return out
}

func TestNewChunker_Validation(t *testing.T) {
	_, err := NewChunker(0, 0)
	assert.Error(t, err)

	_, err = NewChunker(100, 100)
	assert.Error(t, err)

	_, err = NewChunker(100, -1)
	assert.Error(t, err)

	c, err := NewChunker(100, 20)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	c, err := NewChunker(100, 10)
	require.NoError(t, err)

	assert.Empty(t, collect(t, c, ""))
	assert.Empty(t, collect(t, c, "   \n\t  "))
}

func TestSplit_SingleShortText(t *testing.T) {
	c, err := NewChunker(200, 20)
	require.NoError(t, err)

	chunks := collect(t, c, "One sentence here. And another one.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "One sentence here. And another one.", chunks[0])
}

func TestSplit_RespectsMaxSize(t *testing.T) {
	c, err := NewChunker(80, 20)
	require.NoError(t, err)

	text := "The first sentence is right here. The second sentence follows it. " +
		"The third sentence arrives next. The fourth sentence closes it out."
	chunks := collect(t, c, text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 80, "chunk %q exceeds max", chunk)
	}
}

func TestSplit_OverlapCarriesTrailingSentences(t *testing.T) {
	c, err := NewChunker(60, 25)
	require.NoError(t, err)

	text := "Alpha fact stated here. Beta fact stated here. Gamma fact stated here. Delta fact stated here."
	chunks := collect(t, c, text)
	require.Greater(t, len(chunks), 1)

	// Each successor chunk starts with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		firstSentence := chunks[i][:strings.Index(chunks[i], ".")+1]
		assert.True(t, strings.HasSuffix(chunks[i-1], firstSentence),
			"chunk %d should overlap with chunk %d", i, i-1)
	}
}

func TestSplit_LongSentenceKeptWhole(t *testing.T) {
	c, err := NewChunker(30, 10)
	require.NoError(t, err)

	long := "This single sentence is far longer than the configured maximum chunk size."
	chunks := collect(t, c, long+" Short one follows.")
	require.Len(t, chunks, 2)
	assert.Equal(t, long, chunks[0])
	assert.Greater(t, len(chunks[0]), 30)
}

func TestSplit_EverySentencePreservedInOrder(t *testing.T) {
	c, err := NewChunker(70, 15)
	require.NoError(t, err)

	sentences := []string{
		"First things come first.",
		"Second ideas follow naturally.",
		"Third points wrap everything up.",
	}
	joined := strings.Join(sentences, " ")
	all := strings.Join(collect(t, c, joined), " ")
	for _, s := range sentences {
		assert.Contains(t, all, s)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c, err := NewChunker(90, 25)
	require.NoError(t, err)

	text := "Determinism matters for idempotent ingestion. The same input yields the same output. " +
		"Repeated runs must agree exactly. No randomness is involved anywhere."
	first := collect(t, c, text)
	second := collect(t, c, text)
	assert.True(t, slices.Equal(first, second))
}

func TestSplit_Restartable(t *testing.T) {
	c, err := NewChunker(50, 10)
	require.NoError(t, err)

	seq := c.Split("One fine sentence. Two fine sentences. Three fine sentences. Four fine sentences.")

	// Consuming the sequence twice yields identical results.
	var a, b []string
	for s := range seq {
		a = append(a, s)
	}
	for s := range seq {
		b = append(b, s)
	}
	assert.Equal(t, a, b)
}

func TestSplitSentences_Abbreviations(t *testing.T) {
	got := splitSentences("Dr. Smith wrote this. See e.g. the appendix for details. It ends here.")
	require.Len(t, got, 3)
	assert.Equal(t, "Dr. Smith wrote this.", got[0])
	assert.Equal(t, "See e.g. the appendix for details.", got[1])
}

func TestSplitSentences_NormalizesWhitespace(t *testing.T) {
	got := splitSentences("Line one\ncontinues here.   Line two\tfollows.")
	require.Len(t, got, 2)
	assert.Equal(t, "Line one continues here.", got[0])
	assert.Equal(t, "Line two follows.", got[1])
}

func TestChunkCourse_PrefixAndSequence(t *testing.T) {
	c, err := NewChunker(800, 100)
	require.NoError(t, err)

	crs := &Course{
		Title: "Intro to Testing",
		Lessons: []Lesson{
			{Number: 0, Title: "Setup", Content: "Install the tools. Configure the environment."},
			{Number: 1, Title: "Assertions", Content: "Assertions verify behavior. They fail loudly."},
		},
	}

	chunks := c.ChunkCourse(crs)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, 0, chunks[0].LessonNumber)
	assert.Equal(t, 1, chunks[1].LessonNumber)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "Course Intro to Testing Lesson 0 content: "))
	assert.True(t, strings.HasPrefix(chunks[1].Text, "Course Intro to Testing Lesson 1 content: "))
	assert.Contains(t, chunks[1].Text, "Assertions verify behavior.")
}
