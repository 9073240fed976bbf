package model

import "time"

// IndexMeta is a single-row table identifying the embedding space the index
// was built in. Queried before retrieval so a model change is caught instead
// of silently comparing vectors from different spaces.
type IndexMeta struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EmbeddingModel string    `gorm:"size:128;not null" json:"embedding_model"`
	Dimension      int       `gorm:"not null" json:"dimension"`
	UpdatedAt      time.Time `json:"updated_at"`
}
