package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryBackend is an in-process Backend with exhaustive cosine scoring.
// It backs tests and small single-node deployments where running Postgres
// is not worth it. Safe for concurrent use.
type MemoryBackend struct {
	embedder Embedder

	mu          sync.RWMutex
	collections map[string]map[string]memoryDoc
	nextSeq     uint64
}

type memoryDoc struct {
	doc       Document
	embedding []float32
	seq       uint64
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(embedder Embedder) *MemoryBackend {
	return &MemoryBackend{
		embedder:    embedder,
		collections: make(map[string]map[string]memoryDoc),
	}
}

// Upsert implements Backend.
func (b *MemoryBackend) Upsert(ctx context.Context, collection string, docs []Document) error {
	embeddings, err := b.embedAll(ctx, docs)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.insertLocked(collection, docs, embeddings)
	return nil
}

// Replace implements Backend. The delete and insert happen under one lock
// acquisition, so readers observe either the old set or the new set.
func (b *MemoryBackend) Replace(ctx context.Context, collection string, filter Filter, docs []Document) error {
	embeddings, err := b.embedAll(ctx, docs)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, md := range b.collections[collection] {
		if filter.Matches(md.doc.Metadata) {
			delete(b.collections[collection], id)
		}
	}
	b.insertLocked(collection, docs, embeddings)
	return nil
}

// Query implements Backend.
func (b *MemoryBackend) Query(ctx context.Context, collection, text string, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	vecs, err := b.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("memory backend: embedding query: %w", err)
	}
	query := vecs[0]

	b.mu.RLock()
	defer b.mu.RUnlock()

	matches := make([]Match, 0, topK)
	for _, md := range b.collections[collection] {
		if !filter.Matches(md.doc.Metadata) {
			continue
		}
		matches = append(matches, Match{
			ID:       md.doc.ID,
			Score:    cosineSimilarity(query, md.embedding),
			Text:     md.doc.Text,
			Metadata: md.doc.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Get implements Backend.
func (b *MemoryBackend) Get(ctx context.Context, collection, id string) (*Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	md, ok := b.collections[collection][id]
	if !ok {
		return nil, nil
	}
	doc := md.doc
	return &doc, nil
}

// List implements Backend.
func (b *MemoryBackend) List(ctx context.Context, collection string) ([]Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := make([]memoryDoc, 0, len(b.collections[collection]))
	for _, md := range b.collections[collection] {
		all = append(all, md)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	docs := make([]Document, 0, len(all))
	for _, md := range all {
		docs = append(docs, md.doc)
	}
	return docs, nil
}

// Count implements Backend.
func (b *MemoryBackend) Count(ctx context.Context, collection string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.collections[collection]), nil
}

func (b *MemoryBackend) embedAll(ctx context.Context, docs []Document) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("memory backend: embedding documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("memory backend: embedder returned %d vectors for %d documents", len(embeddings), len(docs))
	}
	return embeddings, nil
}

func (b *MemoryBackend) insertLocked(collection string, docs []Document, embeddings [][]float32) {
	coll := b.collections[collection]
	if coll == nil {
		coll = make(map[string]memoryDoc)
		b.collections[collection] = coll
	}
	for i, d := range docs {
		seq := b.nextSeq
		if prev, ok := coll[d.ID]; ok {
			seq = prev.seq
		} else {
			b.nextSeq++
		}
		coll[d.ID] = memoryDoc{doc: d, embedding: embeddings[i], seq: seq}
	}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
