// Package testutil provides shared test doubles: a deterministic embedder
// and a scripted generator.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
)

// Embedder is a deterministic in-memory embedder. Unknown texts get a
// unit vector derived from their SHA-256 hash, so equal texts always embed
// equally and distinct texts almost never collide. Tests that need
// controlled similarity plant exact vectors with SetVector.
type Embedder struct {
	mu        sync.Mutex
	dim       int
	overrides map[string][]float32
	err       error
	calls     int
}

// NewEmbedder creates an Embedder producing vectors of the given dimension.
func NewEmbedder(dim int) *Embedder {
	return &Embedder{dim: dim, overrides: make(map[string][]float32)}
}

// SetVector pins the embedding returned for an exact text.
func (e *Embedder) SetVector(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides[text] = vec
}

// SetError makes every subsequent Embed call fail with err.
func (e *Embedder) SetError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns how many times Embed has been invoked.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Embed returns one vector per input text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := e.overrides[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = hashVector(text, e.dim)
	}
	return out, nil
}

func hashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	sum := sha256.Sum256([]byte(text))
	buf := sum[:]
	var norm float64
	for i := range vec {
		if len(buf) < 4 {
			sum = sha256.Sum256(sum[:])
			buf = sum[:]
		}
		v := float32(binary.BigEndian.Uint32(buf[:4])%2000)/1000 - 1
		buf = buf[4:]
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
