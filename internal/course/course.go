// Package course defines the course document model and the two pure
// transformations applied during ingestion: parsing structured course
// documents and splitting lesson text into overlapping chunks.
//
// The package has no side effects and no external dependencies; everything
// here is deterministic given the same input, which keeps ingestion
// idempotent at the corpus level.
package course

import "fmt"

// Course is a parsed course document. The title acts as the primary key
// across the corpus; Link and Instructor may be empty.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is one lesson block inside a course document. Numbers are unique
// within a course but need not be contiguous.
type Lesson struct {
	Number  int
	Title   string
	Link    string
	Content string
}

// Chunk is a bounded, overlapping span of a lesson's text. Index increases
// monotonically across all lessons of one course and is used for stable
// retrieval ordering. Chunks are immutable once built; re-ingesting a course
// regenerates them wholesale.
type Chunk struct {
	Text         string
	CourseTitle  string
	LessonNumber int
	Index        int
}

// FormatError reports a malformed course document. Ingestion treats it as a
// per-file failure: the file is logged and skipped, the batch continues.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed course document at line %d: %s", e.Line, e.Reason)
}
