package app

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrEmptyIndex means no documents have been indexed yet.
	ErrEmptyIndex = errors.New("index is empty")
	// ErrNoAnswer means the model produced an empty response.
	ErrNoAnswer = errors.New("model produced no answer")
	// ErrModelMismatch means the index was built with a different embedding
	// model than the one configured now; the index must be rebuilt.
	ErrModelMismatch = errors.New("index embedding model mismatch")
)
