package app

import (
	"context"
	"fmt"
	"strings"

	"turbott/internal/ai"
	"turbott/internal/vectorstore"
)

// ChatClient is what the generator needs from the chat-completion API.
type ChatClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

const generatorSystemPrompt = "You are a helpful assistant. Answer the user's question based only on the " +
	"provided context. If the context does not contain enough information to answer, " +
	"say that you don't know. Do not make up facts. Keep the answer concise."

// maxHistoryTurns caps how many prior exchanges condition the model, keeping
// long sessions inside the prompt window.
const maxHistoryTurns = 8

// Generator builds a context-grounded prompt and calls the chat-completion API.
type Generator struct {
	client ChatClient
	cfg    ai.ChatConfig
}

func NewGenerator(client ChatClient, cfg ai.ChatConfig) *Generator {
	return &Generator{client: client, cfg: cfg}
}

// Generate answers the question from the retrieved chunks, which are embedded
// into the prompt in retrieval order. Prior turns of the conversation are
// replayed as chat messages so follow-up questions keep their context. Fails
// with ErrNoAnswer when the model returns an empty response.
func (g *Generator) Generate(ctx context.Context, question string, history []ConversationTurn, chunks []vectorstore.ScoredEntry) (string, error) {
	messages, err := g.buildMessages(question, history, chunks)
	if err != nil {
		return "", err
	}

	answer, err := g.client.Complete(ctx, g.cfg, messages)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrNoAnswer
	}
	return answer, nil
}

// GenerateStream is Generate with the answer delivered incrementally through
// onChunk as the model produces it. The full answer is returned at the end.
func (g *Generator) GenerateStream(ctx context.Context, question string, history []ConversationTurn, chunks []vectorstore.ScoredEntry, onChunk func(chunk string) error) (string, error) {
	messages, err := g.buildMessages(question, history, chunks)
	if err != nil {
		return "", err
	}

	answer, err := g.client.StreamComplete(ctx, g.cfg, messages, onChunk)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrNoAnswer
	}
	return answer, nil
}

func (g *Generator) buildMessages(question string, history []ConversationTurn, chunks []vectorstore.ScoredEntry) ([]ai.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	var contextBlock strings.Builder
	for _, c := range chunks {
		contextBlock.WriteString("\n---\n")
		fmt.Fprintf(&contextBlock, "[source: %s]\n", c.Entry.Source)
		contextBlock.WriteString(c.Entry.Text)
	}
	if len(chunks) > 0 {
		contextBlock.WriteString("\n---")
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]ai.ChatMessage, 0, 2*len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: generatorSystemPrompt})
	for _, turn := range history {
		messages = append(messages,
			ai.ChatMessage{Role: "user", Content: turn.Question},
			ai.ChatMessage{Role: "assistant", Content: turn.Answer},
		)
	}

	userContent := "Context:" + contextBlock.String() + "\n\nQuestion: " + question + "\n\nAnswer:"
	messages = append(messages, ai.ChatMessage{Role: "user", Content: userContent})
	return messages, nil
}
