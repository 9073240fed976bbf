package app

import (
	"context"
	"log"

	"turbott/internal/ai"
)

// EmbeddingClient is what the embedder needs from the hosted embedding API.
type EmbeddingClient interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

// EmbeddingCache holds previously computed vectors. Implementations are
// best-effort; errors are treated as misses.
type EmbeddingCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool, error)
	Set(ctx context.Context, model, text string, vec []float32) error
}

// Embedder wraps the embedding API with an optional cache. All embeddings in
// this process go through one Embedder, so index and query vectors always
// come from the same model.
type Embedder struct {
	client EmbeddingClient
	cache  EmbeddingCache
	cfg    ai.EmbeddingConfig
}

func NewEmbedder(client EmbeddingClient, cache EmbeddingCache, cfg ai.EmbeddingConfig) *Embedder {
	return &Embedder{client: client, cache: cache, cfg: cfg}
}

// Model returns the embedding model identifier this embedder uses.
func (e *Embedder) Model() string {
	return e.cfg.Model
}

// EmbedText returns the vector for one text, consulting the cache first.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if vec, hit, err := e.cache.Get(ctx, e.cfg.Model, text); err == nil && hit {
			return vec, nil
		} else if err != nil {
			log.Printf("embedding cache get failed: %v", err)
		}
	}

	vec, err := e.client.Embed(ctx, e.cfg, text)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, e.cfg.Model, text, vec); err != nil {
			log.Printf("embedding cache set failed: %v", err)
		}
	}
	return vec, nil
}

// EmbedBatch returns one vector per text, in order. Cached texts are served
// locally; only the misses go to the API.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if e.cache != nil {
			vec, hit, err := e.cache.Get(ctx, e.cfg.Model, t)
			if err != nil {
				log.Printf("embedding cache get failed: %v", err)
			} else if hit {
				vectors[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		fetched, err := e.client.EmbedBatch(ctx, e.cfg, missTexts)
		if err != nil {
			return nil, err
		}
		for j, idx := range missIdx {
			vectors[idx] = fetched[j]
			if e.cache != nil {
				if err := e.cache.Set(ctx, e.cfg.Model, missTexts[j], fetched[j]); err != nil {
					log.Printf("embedding cache set failed: %v", err)
				}
			}
		}
	}
	return vectors, nil
}
