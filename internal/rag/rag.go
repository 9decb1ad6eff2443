// Package rag wires the pipeline together: document ingestion into the
// course index, and query answering through the tool-calling loop with
// per-session conversation history.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/agent"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/course"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/index"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/search"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/session"
)

// documentExtensions are the file types ingestion considers.
var documentExtensions = []string{".txt", ".md"}

// Options tunes a System.
type Options struct {
	// MaxResults caps excerpts per content search. Zero selects 5.
	MaxResults int

	// ScoreThreshold is the course-name acceptance threshold. Zero selects
	// index.DefaultScoreThreshold.
	ScoreThreshold float32

	// MaxToolRounds caps tool rounds per query. Zero selects
	// agent.DefaultMaxToolRounds.
	MaxToolRounds int

	// GenerateRPS throttles generation calls. Zero disables throttling.
	GenerateRPS float64

	// Logger may be nil.
	Logger *slog.Logger
}

// QueryResult is one answered question.
type QueryResult struct {
	Answer    string
	Sources   []search.Source
	SessionID string
}

// IngestStats summarizes one folder ingestion.
type IngestStats struct {
	Courses int
	Chunks  int
}

// Analytics describes the indexed corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System is the orchestrator. Safe for concurrent queries; ingestion of
// the same course title must not run concurrently with itself.
type System struct {
	index    *index.CourseIndex
	chunker  *course.Chunker
	sessions *session.Manager
	loop     *agent.Loop
	logger   *slog.Logger
}

// New assembles the pipeline: tool registry, resolver, and agent loop over
// the given index and generator.
func New(idx *index.CourseIndex, generator agent.Generator, sessions *session.Manager, chunker *course.Chunker, opts Options) (*System, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	resolver := index.NewResolver(idx, opts.ScoreThreshold)
	registry := search.NewRegistry()
	if err := registry.Register(
		search.NewCourseSearch(idx, resolver, maxResults, logger),
		search.NewCourseOutline(idx, resolver, logger),
	); err != nil {
		return nil, fmt.Errorf("rag: registering tools: %w", err)
	}

	var limiter *rate.Limiter
	if opts.GenerateRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.GenerateRPS), 1)
	}
	loop := agent.NewLoop(generator, registry, agent.Options{
		MaxToolRounds: opts.MaxToolRounds,
		Limiter:       limiter,
		Logger:        logger,
	})

	return &System{
		index:    idx,
		chunker:  chunker,
		sessions: sessions,
		loop:     loop,
		logger:   logger,
	}, nil
}

// Query answers one question. An empty sessionID starts a new session; the
// completed exchange is recorded so follow-ups carry context.
func (s *System) Query(ctx context.Context, query, sessionID string) (*QueryResult, error) {
	if sessionID == "" {
		sessionID = s.sessions.Create()
	}

	system := systemPrompt
	if history := s.sessions.History(sessionID); history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	answer, err := s.loop.Run(ctx, system, "Answer this question about course materials: "+query)
	if err != nil {
		return nil, fmt.Errorf("rag: answering query: %w", err)
	}
	s.sessions.AddExchange(sessionID, query, answer.Text)

	return &QueryResult{
		Answer:    answer.Text,
		Sources:   answer.Sources,
		SessionID: sessionID,
	}, nil
}

// ClearSession drops a session's history.
func (s *System) ClearSession(id string) {
	s.sessions.Clear(id)
}

// IngestFile parses, chunks, and indexes one course document, replacing
// any previously indexed course with the same title.
func (s *System) IngestFile(ctx context.Context, path string) (*course.Course, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("rag: reading %s: %w", path, err)
	}
	crs, err := course.Parse(string(data))
	if err != nil {
		return nil, 0, fmt.Errorf("rag: parsing %s: %w", path, err)
	}
	chunks := s.chunker.ChunkCourse(crs)
	if err := s.index.AddCourse(ctx, crs, chunks); err != nil {
		return nil, 0, err
	}
	s.logger.Info("ingested course", "title", crs.Title, "chunks", len(chunks), "file", filepath.Base(path))
	return crs, len(chunks), nil
}

// IngestFolder ingests every course document in dir, skipping titles that
// are already indexed. A malformed or failing file is logged and skipped;
// it never aborts the rest of the batch.
func (s *System) IngestFolder(ctx context.Context, dir string) (IngestStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestStats{}, fmt.Errorf("rag: reading documents folder: %w", err)
	}

	var stats IngestStats
	for _, entry := range entries {
		if entry.IsDir() || !isDocument(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", "file", entry.Name(), "error", err)
			continue
		}
		crs, err := course.Parse(string(data))
		if err != nil {
			var formatErr *course.FormatError
			if errors.As(err, &formatErr) {
				s.logger.Warn("skipping malformed document", "file", entry.Name(), "error", err)
			} else {
				s.logger.Warn("skipping document", "file", entry.Name(), "error", err)
			}
			continue
		}

		exists, err := s.index.HasCourse(ctx, crs.Title)
		if err != nil {
			s.logger.Warn("skipping document, membership check failed", "file", entry.Name(), "error", err)
			continue
		}
		if exists {
			s.logger.Debug("course already indexed", "title", crs.Title)
			continue
		}

		chunks := s.chunker.ChunkCourse(crs)
		if err := s.index.AddCourse(ctx, crs, chunks); err != nil {
			s.logger.Warn("skipping document, indexing failed", "file", entry.Name(), "error", err)
			continue
		}
		s.logger.Info("ingested course", "title", crs.Title, "chunks", len(chunks), "file", entry.Name())
		stats.Courses++
		stats.Chunks += len(chunks)
	}
	return stats, nil
}

// Analytics returns corpus statistics for the API.
func (s *System) Analytics(ctx context.Context) (*Analytics, error) {
	titles, err := s.index.CourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: listing courses: %w", err)
	}
	return &Analytics{TotalCourses: len(titles), CourseTitles: titles}, nil
}

func isDocument(name string) bool {
	return slices.Contains(documentExtensions, strings.ToLower(filepath.Ext(name)))
}
