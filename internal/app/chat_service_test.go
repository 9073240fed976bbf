package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turbott/internal/ai"
	"turbott/internal/chunker"
	"turbott/internal/loader"
	"turbott/internal/vectorstore/memory"
)

type chatFixture struct {
	chat  *ChatService
	index *IndexService
	llm   *fakeChatClient
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	store := memory.New()
	embedder := NewEmbedder(&fakeEmbeddingClient{}, newFakeCache(), testEmbeddingCfg)
	llm := &fakeChatClient{answer: "AI is a field of computer science."}

	index := NewIndexService(loader.New(nil), chunker.New(1000, 200, 100), embedder, store, nil, 10)
	retriever := NewRetriever(store, embedder)
	generator := NewGenerator(llm, ai.ChatConfig{Model: "test-chat-model"})
	return &chatFixture{
		chat:  NewChatService(retriever, generator, 3),
		index: index,
		llm:   llm,
	}
}

func (f *chatFixture) ingest(t *testing.T, name, text string) {
	t.Helper()
	_, err := f.index.IngestText(context.Background(), name, "txt", text)
	require.NoError(t, err)
}

func TestAskEndToEnd(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")
	f.ingest(t, "food.txt", "A banana is a yellow fruit.")

	session := f.chat.CreateSession()
	result, err := f.chat.Ask(context.Background(), session.ID, "What is AI?")
	require.NoError(t, err)

	assert.Equal(t, "AI is a field of computer science.", result.Answer)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, "AI is a field of computer science.", result.Sources[0].Entry.Text)
	assert.Equal(t, "intro.txt", result.Sources[0].Entry.Source)

	turns, err := f.chat.History(session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "What is AI?", turns[0].Question)
	assert.Equal(t, result.Answer, turns[0].Answer)
	assert.Equal(t, result.Sources, turns[0].Sources)
	assert.False(t, turns[0].Timestamp.IsZero())
}

func TestAskRepeatedQuestionSameSources(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")
	f.ingest(t, "food.txt", "A banana is a yellow fruit.")

	session := f.chat.CreateSession()
	ctx := context.Background()
	first, err := f.chat.Ask(ctx, session.ID, "What is AI?")
	require.NoError(t, err)
	second, err := f.chat.Ask(ctx, session.ID, "What is AI?")
	require.NoError(t, err)

	assert.Equal(t, first.Sources, second.Sources, "retrieval is deterministic")
}

func TestAskFollowUpCarriesHistory(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")

	session := f.chat.CreateSession()
	ctx := context.Background()
	first, err := f.chat.Ask(ctx, session.ID, "What is AI?")
	require.NoError(t, err)

	f.llm.answer = "It studies intelligent agents."
	_, err = f.chat.Ask(ctx, session.ID, "What does it study?")
	require.NoError(t, err)

	msgs := f.llm.messages
	require.Len(t, msgs, 4, "system, prior question, prior answer, current question")
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "What is AI?", msgs[1].Content)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, first.Answer, msgs[2].Content)
	assert.Contains(t, msgs[3].Content, "Question: What does it study?")
}

func TestAskStream(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")

	session := f.chat.CreateSession()
	var parts []string
	result, err := f.chat.AskStream(context.Background(), session.ID, "What is AI?",
		func(chunk string) error {
			parts = append(parts, chunk)
			return nil
		})
	require.NoError(t, err)

	var streamed string
	for _, p := range parts {
		streamed += p
	}
	assert.Equal(t, result.Answer, streamed, "streamed chunks assemble into the answer")
	require.NotEmpty(t, result.Sources)

	turns, err := f.chat.History(session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1, "streamed turns are recorded like blocking ones")
	assert.Equal(t, result.Answer, turns[0].Answer)
}

func TestAskStreamEmptyIndex(t *testing.T) {
	f := newChatFixture(t)
	session := f.chat.CreateSession()

	_, err := f.chat.AskStream(context.Background(), session.ID, "What is AI?",
		func(string) error { return nil })
	require.ErrorIs(t, err, ErrEmptyIndex)
}

func TestAskEmptyIndexKeepsServiceUsable(t *testing.T) {
	f := newChatFixture(t)
	session := f.chat.CreateSession()
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, session.ID, "What is AI?")
	require.ErrorIs(t, err, ErrEmptyIndex)

	turns, err := f.chat.History(session.ID)
	require.NoError(t, err)
	assert.Empty(t, turns, "failed turn must not be recorded")

	f.ingest(t, "intro.txt", "AI is a field of computer science.")
	result, err := f.chat.Ask(ctx, session.ID, "What is AI?")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Answer)
}

func TestAskGenerationFailureLeavesHistoryIntact(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")

	session := f.chat.CreateSession()
	ctx := context.Background()
	_, err := f.chat.Ask(ctx, session.ID, "What is AI?")
	require.NoError(t, err)

	f.llm.err = ai.ErrGenerationAPI
	_, err = f.chat.Ask(ctx, session.ID, "And what else?")
	require.ErrorIs(t, err, ai.ErrGenerationAPI)

	turns, err := f.chat.History(session.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestAskUnknownSession(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")

	_, err := f.chat.Ask(context.Background(), "no-such-session", "What is AI?")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")

	session := f.chat.CreateSession()
	assert.NotEmpty(t, session.ID)

	infos := f.chat.ListSessions()
	require.Len(t, infos, 1)
	assert.Equal(t, session.ID, infos[0].ID)
	assert.Zero(t, infos[0].TurnCount)

	_, err := f.chat.Ask(context.Background(), session.ID, "What is AI?")
	require.NoError(t, err)

	require.NoError(t, f.chat.ClearSession(session.ID))
	turns, err := f.chat.History(session.ID)
	require.NoError(t, err)
	assert.Empty(t, turns, "clear drops turns but keeps the session")

	require.NoError(t, f.chat.DeleteSession(session.ID))
	require.ErrorIs(t, f.chat.DeleteSession(session.ID), ErrSessionNotFound)
	_, err = f.chat.History(session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExportSession(t *testing.T) {
	f := newChatFixture(t)
	f.ingest(t, "intro.txt", "AI is a field of computer science.")

	session := f.chat.CreateSession()
	_, err := f.chat.Ask(context.Background(), session.ID, "What is AI?")
	require.NoError(t, err)

	export, err := f.chat.ExportSession(session.ID)
	require.NoError(t, err)
	assert.Contains(t, export, "Question: What is AI?")
	assert.Contains(t, export, "Answer: AI is a field of computer science.")
	assert.Contains(t, export, "- [intro.txt]")
	assert.Contains(t, export, strings.Repeat("=", 80))
}

func TestExportTruncatesLongSources(t *testing.T) {
	f := newChatFixture(t)
	long := "ai " + strings.Repeat("computer science ", 40)
	f.ingest(t, "long.txt", long)

	session := f.chat.CreateSession()
	_, err := f.chat.Ask(context.Background(), session.ID, "What is AI?")
	require.NoError(t, err)

	export, err := f.chat.ExportSession(session.ID)
	require.NoError(t, err)
	assert.Contains(t, export, "...")
	for _, line := range strings.Split(export, "\n") {
		if strings.HasPrefix(line, "- [long.txt]") {
			assert.LessOrEqual(t, len([]rune(line)), len("- [long.txt] ")+203)
		}
	}
}
