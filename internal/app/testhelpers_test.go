package app

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"turbott/internal/ai"
)

// embeddingVocab backs the deterministic test embedder: a text's vector is
// the count of each vocabulary word it contains.
var embeddingVocab = []string{"ai", "computer", "science", "banana", "fruit"}

func vocabEmbed(text string) []float32 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	vec := make([]float32, len(embeddingVocab))
	for _, w := range words {
		for i, v := range embeddingVocab {
			if w == v {
				vec[i]++
			}
		}
	}
	return vec
}

type fakeEmbeddingClient struct {
	mu       sync.Mutex
	calls    int
	embedded []string
	err      error
}

func (f *fakeEmbeddingClient) Embed(_ context.Context, _ ai.EmbeddingConfig, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(context.Background(), ai.EmbeddingConfig{}, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbeddingClient) EmbedBatch(_ context.Context, _ ai.EmbeddingConfig, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	f.embedded = append(f.embedded, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vocabEmbed(t)
	}
	return out, nil
}

type fakeChatClient struct {
	answer   string
	err      error
	messages []ai.ChatMessage
}

func (f *fakeChatClient) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeChatClient) StreamComplete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error) {
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	mid := len(f.answer) / 2
	for _, part := range []string{f.answer[:mid], f.answer[mid:]} {
		if part == "" {
			continue
		}
		if err := onChunk(part); err != nil {
			return "", err
		}
	}
	return f.answer, nil
}

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]float32
	getErr  error
	hits    int
	misses  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]float32)}
}

func (f *fakeCache) Get(_ context.Context, model, text string) ([]float32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	vec, ok := f.data[model+"\x00"+text]
	if ok {
		f.hits++
	} else {
		f.misses++
	}
	return vec, ok, nil
}

func (f *fakeCache) Set(_ context.Context, model, text string, vec []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[model+"\x00"+text] = vec
	return nil
}

type fakePublisher struct {
	jobs []IngestJob
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, job IngestJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}
