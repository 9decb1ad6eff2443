// Package index implements the dual-collection vector index for course
// materials: a catalog collection over course metadata used for fuzzy
// course-name resolution, and a content collection over lesson chunks used
// for answering queries.
//
// The actual embedding and nearest-neighbor machinery sits behind the
// Backend interface; this package owns collection naming, metadata layout,
// filter semantics, and the atomic per-course replace contract.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/course"
)

// Collection names shared by every backend.
const (
	CollectionCatalog = "course_catalog"
	CollectionContent = "course_content"
)

// Metadata keys stored alongside documents.
const (
	MetaCourseTitle  = "course_title"
	MetaCourseLink   = "course_link"
	MetaInstructor   = "instructor"
	MetaLessonNumber = "lesson_number"
	MetaLessonLink   = "lesson_link"
	MetaChunkIndex   = "chunk_index"
	MetaLessons      = "lessons_json"
)

// Document is one entry in a backend collection. Text is what gets embedded.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Match is a single ranked search result.
type Match struct {
	ID       string
	Score    float32 // cosine similarity
	Text     string
	Metadata map[string]string
}

// Filter restricts a search by exact metadata equality. The zero value
// matches every document; both fields set combine with AND semantics.
type Filter struct {
	CourseTitle  string
	LessonNumber *int
}

// Metadata returns the filter as metadata key/value pairs, or nil for the
// zero filter. Backends match documents whose metadata contains every pair.
func (f Filter) Metadata() map[string]string {
	if f.CourseTitle == "" && f.LessonNumber == nil {
		return nil
	}
	m := make(map[string]string, 2)
	if f.CourseTitle != "" {
		m[MetaCourseTitle] = f.CourseTitle
	}
	if f.LessonNumber != nil {
		m[MetaLessonNumber] = strconv.Itoa(*f.LessonNumber)
	}
	return m
}

// Matches reports whether document metadata satisfies the filter.
func (f Filter) Matches(md map[string]string) bool {
	for k, v := range f.Metadata() {
		if md[k] != v {
			return false
		}
	}
	return true
}

// Embedder turns text into embedding vectors. Implemented by
// gemini.Embedder in production and testutil.Embedder in tests.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Backend is the similarity-search service boundary. Implementations must
// treat Replace as one isolated step: documents matching the filter are
// never partially visible alongside the replacement set.
//
// Query on an empty or missing collection returns an empty result, never an
// error.
type Backend interface {
	// Upsert inserts documents, replacing any existing document with the
	// same ID within the collection.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Replace atomically deletes every document matching filter and inserts
	// docs in their place.
	Replace(ctx context.Context, collection string, filter Filter, docs []Document) error

	// Query returns up to topK documents ranked by similarity to text,
	// restricted to documents matching filter.
	Query(ctx context.Context, collection, text string, topK int, filter Filter) ([]Match, error)

	// Get performs an exact ID lookup. Returns (nil, nil) when absent.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// List returns all documents of a collection in insertion order,
	// without similarity scoring.
	List(ctx context.Context, collection string) ([]Document, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)
}

// CourseIndex is the dual-collection index over one Backend.
// It is safe for concurrent readers; AddCourse serializes per course title
// through the backend's Replace isolation.
type CourseIndex struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a CourseIndex. logger may be nil.
func New(backend Backend, logger *slog.Logger) *CourseIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseIndex{backend: backend, logger: logger}
}

// outlineLesson is the shape serialized into catalog metadata so the course
// outline survives without re-reading source documents.
type outlineLesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Outline is the stored course structure, used by the outline tool.
type Outline struct {
	Title   string
	Link    string
	Lessons []course.Lesson
}

// AddCourse indexes a course: one catalog entry embedding the title and
// instructor, and all content chunks. Re-adding an existing title replaces
// its previous catalog entry and chunks; the old chunks are never visible
// once the call returns and never partially visible during it.
func (x *CourseIndex) AddCourse(ctx context.Context, crs *course.Course, chunks []course.Chunk) error {
	if crs.Title == "" {
		return fmt.Errorf("index: course title is empty")
	}

	lessons := make([]outlineLesson, 0, len(crs.Lessons))
	for _, l := range crs.Lessons {
		lessons = append(lessons, outlineLesson{Number: l.Number, Title: l.Title, Link: l.Link})
	}
	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("index: marshaling lessons for %q: %w", crs.Title, err)
	}

	embedInput := crs.Title
	if crs.Instructor != "" {
		embedInput += " " + crs.Instructor
	}
	entry := Document{
		ID:   crs.Title,
		Text: embedInput,
		Metadata: map[string]string{
			MetaCourseTitle: crs.Title,
			MetaCourseLink:  crs.Link,
			MetaInstructor:  crs.Instructor,
			MetaLessons:     string(lessonsJSON),
		},
	}

	docs := make([]Document, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, Document{
			ID:   fmt.Sprintf("%s::%d", crs.Title, ch.Index),
			Text: ch.Text,
			Metadata: map[string]string{
				MetaCourseTitle:  ch.CourseTitle,
				MetaLessonNumber: strconv.Itoa(ch.LessonNumber),
				MetaChunkIndex:   strconv.Itoa(ch.Index),
				MetaLessonLink:   lessonLink(crs, ch.LessonNumber),
			},
		})
	}

	// Content first, catalog last: a course only becomes visible in the
	// corpus-membership record once its chunks are fully indexed.
	byTitle := Filter{CourseTitle: crs.Title}
	if err := x.backend.Replace(ctx, CollectionContent, byTitle, docs); err != nil {
		return fmt.Errorf("index: replacing content for %q: %w", crs.Title, err)
	}
	if err := x.backend.Upsert(ctx, CollectionCatalog, []Document{entry}); err != nil {
		return fmt.Errorf("index: upserting catalog entry for %q: %w", crs.Title, err)
	}

	x.logger.Debug("indexed course", "title", crs.Title, "chunks", len(docs))
	return nil
}

// HasCourse reports corpus membership using an exact catalog ID lookup,
// not semantic search. Ingestion uses it to skip already-indexed courses.
func (x *CourseIndex) HasCourse(ctx context.Context, title string) (bool, error) {
	doc, err := x.backend.Get(ctx, CollectionCatalog, title)
	if err != nil {
		return false, fmt.Errorf("index: catalog lookup for %q: %w", title, err)
	}
	return doc != nil, nil
}

// SearchContent runs a ranked similarity search over content chunks.
// Searching an empty index returns an empty slice.
func (x *CourseIndex) SearchContent(ctx context.Context, query string, topK int, f Filter) ([]Match, error) {
	matches, err := x.backend.Query(ctx, CollectionContent, query, topK, f)
	if err != nil {
		return nil, fmt.Errorf("index: content search: %w", err)
	}
	return matches, nil
}

// SearchCatalog runs a ranked similarity search over catalog entries.
func (x *CourseIndex) SearchCatalog(ctx context.Context, query string, topK int) ([]Match, error) {
	matches, err := x.backend.Query(ctx, CollectionCatalog, query, topK, Filter{})
	if err != nil {
		return nil, fmt.Errorf("index: catalog search: %w", err)
	}
	return matches, nil
}

// CourseTitles returns all indexed course titles in insertion order.
func (x *CourseIndex) CourseTitles(ctx context.Context) ([]string, error) {
	docs, err := x.backend.List(ctx, CollectionCatalog)
	if err != nil {
		return nil, fmt.Errorf("index: listing catalog: %w", err)
	}
	titles := make([]string, 0, len(docs))
	for _, d := range docs {
		titles = append(titles, d.ID)
	}
	return titles, nil
}

// CourseCount returns the number of indexed courses.
func (x *CourseIndex) CourseCount(ctx context.Context) (int, error) {
	n, err := x.backend.Count(ctx, CollectionCatalog)
	if err != nil {
		return 0, fmt.Errorf("index: counting catalog: %w", err)
	}
	return n, nil
}

// ChunkCount returns the number of indexed content chunks.
func (x *CourseIndex) ChunkCount(ctx context.Context) (int, error) {
	n, err := x.backend.Count(ctx, CollectionContent)
	if err != nil {
		return 0, fmt.Errorf("index: counting content: %w", err)
	}
	return n, nil
}

// CourseOutline returns the stored outline for an exact course title, or
// (nil, nil) when the course is not indexed.
func (x *CourseIndex) CourseOutline(ctx context.Context, title string) (*Outline, error) {
	doc, err := x.backend.Get(ctx, CollectionCatalog, title)
	if err != nil {
		return nil, fmt.Errorf("index: fetching outline for %q: %w", title, err)
	}
	if doc == nil {
		return nil, nil
	}

	var stored []outlineLesson
	if raw := doc.Metadata[MetaLessons]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("index: corrupt lesson metadata for %q: %w", title, err)
		}
	}
	out := &Outline{Title: title, Link: doc.Metadata[MetaCourseLink]}
	for _, l := range stored {
		out.Lessons = append(out.Lessons, course.Lesson{Number: l.Number, Title: l.Title, Link: l.Link})
	}
	return out, nil
}

func lessonLink(crs *course.Course, number int) string {
	for _, l := range crs.Lessons {
		if l.Number == number {
			return l.Link
		}
	}
	return ""
}
