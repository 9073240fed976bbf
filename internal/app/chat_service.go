package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"turbott/internal/vectorstore"
)

// ConversationTurn is one question/answer exchange with the chunks that
// grounded it. Appended per ask, never mutated afterwards.
type ConversationTurn struct {
	Timestamp time.Time                 `json:"timestamp"`
	Question  string                    `json:"question"`
	Sources   []vectorstore.ScoredEntry `json:"sources"`
	Answer    string                    `json:"answer"`
}

type chatSession struct {
	id        string
	createdAt time.Time

	mu    sync.Mutex
	turns []ConversationTurn
}

func (s *chatSession) historySnapshot() []ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *chatSession) append(question string, sources []vectorstore.ScoredEntry, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, ConversationTurn{
		Timestamp: time.Now(),
		Question:  question,
		Sources:   sources,
		Answer:    answer,
	})
}

// SessionInfo is the externally visible view of a chat session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TurnCount int       `json:"turn_count"`
}

// AskResult carries the answer and the chunks it was grounded on.
type AskResult struct {
	Answer  string                    `json:"answer"`
	Sources []vectorstore.ScoredEntry `json:"sources"`
}

// ChatService orchestrates the per-turn pipeline: retrieve, generate, record.
// Sessions and their turns live in memory only and are discarded on restart.
type ChatService struct {
	retriever *Retriever
	generator *Generator
	topK      int

	mu       sync.RWMutex
	sessions map[string]*chatSession
}

func NewChatService(retriever *Retriever, generator *Generator, topK int) *ChatService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ChatService{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		sessions:  make(map[string]*chatSession),
	}
}

func (s *ChatService) CreateSession() SessionInfo {
	session := &chatSession{
		id:        uuid.New().String(),
		createdAt: time.Now(),
	}
	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()
	return SessionInfo{ID: session.id, CreatedAt: session.createdAt}
}

func (s *ChatService) ListSessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		session.mu.Lock()
		infos = append(infos, SessionInfo{
			ID:        session.id,
			CreatedAt: session.createdAt,
			TurnCount: len(session.turns),
		})
		session.mu.Unlock()
	}
	return infos
}

// Ask runs one turn: retrieve top-k chunks for the question, generate an
// answer from them, append the turn. A failed turn leaves the session's
// history untouched and the service usable.
func (s *ChatService) Ask(ctx context.Context, sessionID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sources, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return nil, err
	}
	answer, err := s.generator.Generate(ctx, question, session.historySnapshot(), sources)
	if err != nil {
		return nil, err
	}

	session.append(question, sources, answer)
	return &AskResult{Answer: answer, Sources: sources}, nil
}

// AskStream is Ask with the answer streamed through onChunk as the model
// produces it. The turn is recorded only once the full answer has arrived.
func (s *ChatService) AskStream(ctx context.Context, sessionID, question string, onChunk func(chunk string) error) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sources, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return nil, err
	}
	answer, err := s.generator.GenerateStream(ctx, question, session.historySnapshot(), sources, onChunk)
	if err != nil {
		return nil, err
	}

	session.append(question, sources, answer)
	return &AskResult{Answer: answer, Sources: sources}, nil
}

// History returns the session's turns in order.
func (s *ChatService) History(sessionID string) ([]ConversationTurn, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	out := make([]ConversationTurn, len(session.turns))
	copy(out, session.turns)
	return out, nil
}

// ClearSession drops the session's turns but keeps the session alive.
func (s *ChatService) ClearSession(sessionID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	session.mu.Lock()
	session.turns = nil
	session.mu.Unlock()
	return nil
}

func (s *ChatService) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// ExportSession renders the conversation as a plain-text transcript.
func (s *ChatService) ExportSession(sessionID string) (string, error) {
	turns, err := s.History(sessionID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&sb, "Timestamp: %s\n", turn.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(&sb, "Question: %s\n", turn.Question)
		fmt.Fprintf(&sb, "Answer: %s\n", turn.Answer)
		sb.WriteString("Sources:\n")
		for _, src := range turn.Sources {
			text := src.Entry.Text
			if runes := []rune(text); len(runes) > 200 {
				text = string(runes[:200]) + "..."
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", src.Entry.Source, text)
		}
		sb.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")
	}
	return sb.String(), nil
}

func (s *ChatService) session(id string) (*chatSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
