package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"turbott/internal/model"
)

type IndexMetaRepository struct {
	db *gorm.DB
}

func NewIndexMetaRepository(db *gorm.DB) *IndexMetaRepository {
	return &IndexMetaRepository{db: db}
}

// Get returns the index meta row, or nil when the index has never been built.
func (r *IndexMetaRepository) Get() (*model.IndexMeta, error) {
	var meta model.IndexMeta
	if err := r.db.First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get index meta failed: %w", err)
	}
	return &meta, nil
}

// Set writes the single meta row, replacing any previous one.
func (r *IndexMetaRepository) Set(embeddingModel string, dimension int) error {
	if err := r.db.Where("1 = 1").Delete(&model.IndexMeta{}).Error; err != nil {
		return fmt.Errorf("clear index meta failed: %w", err)
	}
	meta := model.IndexMeta{EmbeddingModel: embeddingModel, Dimension: dimension}
	if err := r.db.Create(&meta).Error; err != nil {
		return fmt.Errorf("set index meta failed: %w", err)
	}
	return nil
}

func (r *IndexMetaRepository) Clear() error {
	if err := r.db.Where("1 = 1").Delete(&model.IndexMeta{}).Error; err != nil {
		return fmt.Errorf("clear index meta failed: %w", err)
	}
	return nil
}
