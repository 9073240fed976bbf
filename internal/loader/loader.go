package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"turbott/internal/pkg/docxextract"
	"turbott/internal/pkg/pdfextract"
)

var (
	// ErrUnsupportedFormat is returned for file extensions outside the
	// accepted set.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction wraps failures to read or parse an individual file.
	ErrExtraction = errors.New("document extraction failed")
)

// Document is a loaded file normalized to plain text. Immutable after load.
type Document struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Format string `json:"format"`
	Text   string `json:"text"`
}

// Failure records one file the loader skipped, with the cause.
type Failure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (f Failure) Reason() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Loader reads documents from disk and dispatches text extraction by file
// extension.
type Loader struct {
	extensions map[string]bool
}

// New builds a Loader accepting the given extensions (with leading dot,
// matched case-insensitively). With no extensions it accepts .pdf, .docx
// and .txt.
func New(extensions []string) *Loader {
	if len(extensions) == 0 {
		extensions = []string{".pdf", ".docx", ".txt"}
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = true
	}
	return &Loader{extensions: set}
}

// LoadDirectory walks dir and loads every file with an accepted extension.
// Per-file failures are collected and returned alongside the successes; they
// never abort the batch.
func (l *Loader) LoadDirectory(dir string) ([]Document, []Failure, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("stat documents dir failed: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("not a directory: %s", dir)
	}

	var docs []Document
	var failures []Failure
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			failures = append(failures, Failure{Path: path, Err: fmt.Errorf("%w: %v", ErrExtraction, walkErr)})
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !l.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		doc, loadErr := l.LoadFile(path)
		if loadErr != nil {
			failures = append(failures, Failure{Path: path, Err: loadErr})
			return nil
		}
		docs = append(docs, *doc)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk documents dir failed: %w", err)
	}
	return docs, failures, nil
}

// LoadFile loads a single document, dispatching by extension.
func (l *Loader) LoadFile(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !l.extensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrExtraction, path, err)
	}
	defer f.Close()

	var text string
	var format string
	switch ext {
	case ".pdf":
		format = "pdf"
		text, err = pdfextract.ExtractText(f)
	case ".docx":
		format = "docx"
		text, err = docxextract.ExtractText(f)
	case ".txt":
		format = "txt"
		var raw []byte
		raw, err = io.ReadAll(f)
		text = string(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s: no extractable text", ErrExtraction, path)
	}

	return &Document{
		Path:   path,
		Name:   filepath.Base(path),
		Format: format,
		Text:   text,
	}, nil
}
