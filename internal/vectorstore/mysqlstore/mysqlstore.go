// Package mysqlstore implements the vector store contract on MySQL through
// gorm. Embeddings persist across restarts; similarity ranking still happens
// in process after loading the candidate chunks.
package mysqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"turbott/internal/model"
	"turbott/internal/repository"
	"turbott/internal/vectorstore"
)

type Store struct {
	chunks *repository.ChunkRepository
	meta   *repository.IndexMetaRepository
}

func New(db *gorm.DB) *Store {
	return &Store{
		chunks: repository.NewChunkRepository(db),
		meta:   repository.NewIndexMetaRepository(db),
	}
}

// Migrate creates the chunk and index meta tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Chunk{}, &model.IndexMeta{}); err != nil {
		return fmt.Errorf("auto migrate vector store tables failed: %w", err)
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, embModel string, entries []vectorstore.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	meta, err := s.meta.Get()
	if err != nil {
		return err
	}
	dimension := len(entries[0].Embedding)
	if meta == nil {
		if err := s.meta.Set(embModel, dimension); err != nil {
			return err
		}
	} else {
		if meta.EmbeddingModel != embModel {
			return fmt.Errorf("%w: index built with %q, got %q",
				vectorstore.ErrModelMismatch, meta.EmbeddingModel, embModel)
		}
		dimension = meta.Dimension
	}

	chunks := make([]model.Chunk, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != dimension {
			return fmt.Errorf("%w: want %d, got %d",
				vectorstore.ErrDimensionMismatch, dimension, len(e.Embedding))
		}
		chunks[i] = model.Chunk{
			DocumentID: e.DocumentID,
			Source:     e.Source,
			Seq:        e.Seq,
			Content:    e.Text,
		}
		chunks[i].SetEmbedding(e.Embedding)
	}
	return s.chunks.CreateBatch(chunks)
}

func (s *Store) Query(_ context.Context, embedding []float32, k int) ([]vectorstore.ScoredEntry, error) {
	meta, err := s.meta.Get()
	if err != nil {
		return nil, err
	}
	if meta != nil && len(embedding) != meta.Dimension {
		return nil, fmt.Errorf("%w: want %d, got %d",
			vectorstore.ErrDimensionMismatch, meta.Dimension, len(embedding))
	}

	all, err := s.chunks.ListAll()
	if err != nil {
		return nil, err
	}

	scored := make([]vectorstore.ScoredEntry, 0, len(all))
	for i := range all {
		vec := all[i].EmbeddingVector()
		scored = append(scored, vectorstore.ScoredEntry{
			Entry: vectorstore.IndexEntry{
				DocumentID: all[i].DocumentID,
				Source:     all[i].Source,
				Seq:        all[i].Seq,
				Text:       all[i].Content,
				Embedding:  vec,
			},
			Score: vectorstore.CosineSimilarity(embedding, vec),
		})
	}
	return vectorstore.RankTopK(scored, k), nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	n, err := s.chunks.Count()
	return int(n), err
}

func (s *Store) Meta(_ context.Context) (*vectorstore.Meta, error) {
	n, err := s.chunks.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	meta, err := s.meta.Get()
	if err != nil || meta == nil {
		return nil, err
	}
	return &vectorstore.Meta{
		EmbeddingModel: meta.EmbeddingModel,
		Dimension:      meta.Dimension,
	}, nil
}

func (s *Store) Reset(_ context.Context) error {
	if err := s.chunks.DeleteAll(); err != nil {
		return err
	}
	return s.meta.Clear()
}

func (s *Store) DeleteByDocumentID(_ context.Context, documentID string) error {
	if err := s.chunks.DeleteByDocumentID(documentID); err != nil {
		return err
	}
	// an emptied index must accept a new embedding model again
	n, err := s.chunks.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.meta.Clear()
	}
	return nil
}

var _ vectorstore.Store = (*Store)(nil)
