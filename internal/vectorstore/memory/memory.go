// Package memory implements the vector store contract over an in-process
// slice. Entries do not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"turbott/internal/vectorstore"
)

type Store struct {
	mu      sync.RWMutex
	meta    *vectorstore.Meta
	entries []vectorstore.IndexEntry
}

func New() *Store {
	return &Store{}
}

func (s *Store) Upsert(_ context.Context, model string, entries []vectorstore.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta == nil {
		s.meta = &vectorstore.Meta{
			EmbeddingModel: model,
			Dimension:      len(entries[0].Embedding),
		}
	}
	if s.meta.EmbeddingModel != model {
		return fmt.Errorf("%w: index built with %q, got %q",
			vectorstore.ErrModelMismatch, s.meta.EmbeddingModel, model)
	}
	for _, e := range entries {
		if len(e.Embedding) != s.meta.Dimension {
			return fmt.Errorf("%w: want %d, got %d",
				vectorstore.ErrDimensionMismatch, s.meta.Dimension, len(e.Embedding))
		}
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *Store) Query(_ context.Context, embedding []float32, k int) ([]vectorstore.ScoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta != nil && len(embedding) != s.meta.Dimension {
		return nil, fmt.Errorf("%w: want %d, got %d",
			vectorstore.ErrDimensionMismatch, s.meta.Dimension, len(embedding))
	}

	scored := make([]vectorstore.ScoredEntry, 0, len(s.entries))
	for _, e := range s.entries {
		scored = append(scored, vectorstore.ScoredEntry{
			Entry: e,
			Score: vectorstore.CosineSimilarity(embedding, e.Embedding),
		})
	}
	return vectorstore.RankTopK(scored, k), nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Store) Meta(_ context.Context) (*vectorstore.Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil, nil
	}
	meta := *s.meta
	return &meta, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.meta = nil
	return nil
}

func (s *Store) DeleteByDocumentID(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	if len(s.entries) == 0 {
		s.meta = nil
	}
	return nil
}
