// Package vectorstore defines the contract for storing chunk embeddings and
// answering nearest-neighbor queries over them.
package vectorstore

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrDimensionMismatch is returned when an entry's embedding length
	// differs from the store's configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrModelMismatch is returned when entries embedded with a different
	// model are upserted into an existing index. The index must be rebuilt.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

// IndexEntry is one indexed chunk: its text, its embedding, and enough
// metadata to point the reader back at the source document.
type IndexEntry struct {
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Seq        int       `json:"seq"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
}

// ScoredEntry pairs an entry with its similarity to a query embedding.
type ScoredEntry struct {
	Entry IndexEntry `json:"entry"`
	Score float32    `json:"score"`
}

// Meta identifies the embedding space of the index. Stored alongside the
// entries so a model change between index time and query time is detectable.
type Meta struct {
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
}

// Store is the vector store contract. Query results come back in descending
// similarity order, never more than k of them.
type Store interface {
	Upsert(ctx context.Context, model string, entries []IndexEntry) error
	Query(ctx context.Context, embedding []float32, k int) ([]ScoredEntry, error)
	Count(ctx context.Context) (int, error)
	// Meta returns nil when the store holds no entries.
	Meta(ctx context.Context) (*Meta, error)
	Reset(ctx context.Context) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 for
// mismatched or zero-norm vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// RankTopK sorts scored entries by descending score, stably so equal scores
// keep insertion order, and truncates to k.
func RankTopK(scored []ScoredEntry, k int) []ScoredEntry {
	if k <= 0 || len(scored) == 0 {
		return nil
	}
	// insertion sort keeps ties in insertion order
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Score > scored[j-1].Score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}
