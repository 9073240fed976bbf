package app

import (
	"context"
	"fmt"
	"strings"

	"turbott/internal/vectorstore"
)

const defaultTopK = 3

// Retriever embeds a question and fetches the most similar indexed chunks.
type Retriever struct {
	store    vectorstore.Store
	embedder *Embedder
}

func NewRetriever(store vectorstore.Store, embedder *Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Retrieve returns at most k chunks in descending similarity order.
// Fails with ErrEmptyIndex when nothing has been indexed, and with
// ErrModelMismatch when the index was built with a different embedding model.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]vectorstore.ScoredEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	if k <= 0 {
		k = defaultTopK
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrEmptyIndex
	}

	meta, err := r.store.Meta(ctx)
	if err != nil {
		return nil, err
	}
	if meta != nil && meta.EmbeddingModel != r.embedder.Model() {
		return nil, fmt.Errorf("%w: index built with %q, configured %q; reindex required",
			ErrModelMismatch, meta.EmbeddingModel, r.embedder.Model())
	}

	queryVec, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, err
	}
	return r.store.Query(ctx, queryVec, k)
}
