package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"turbott/internal/chunker"
	"turbott/internal/loader"
	"turbott/internal/vectorstore"
)

// Document statuses as ingestion progresses.
const (
	DocStatusPending = "pending"
	DocStatusIndexed = "indexed"
	DocStatusFailed  = "failed"
)

// DocumentStatus is the registry entry for one ingested document.
type DocumentStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Format     string    `json:"format"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IngestJob is the payload handed to the async index worker.
type IngestJob struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Format     string `json:"format"`
	Text       string `json:"text"`
}

// IngestPublisher hands ingest jobs to the message broker.
type IngestPublisher interface {
	Publish(ctx context.Context, job IngestJob) error
}

// IngestReport summarizes one directory indexing run.
type IngestReport struct {
	Indexed     []DocumentStatus `json:"indexed"`
	Failed      []FailureReport  `json:"failed"`
	TotalChunks int              `json:"total_chunks"`
}

type FailureReport struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

var ErrIngestEnqueue = errors.New("ingest job enqueue failed")

// IndexService runs the ingestion pipeline: extracted document text is
// chunked, embedded in batches, and upserted into the vector store.
type IndexService struct {
	loader    *loader.Loader
	chunker   *chunker.Chunker
	embedder  *Embedder
	store     vectorstore.Store
	publisher IngestPublisher
	batchSize int

	mu    sync.RWMutex
	docs  map[string]*DocumentStatus
	order []string
}

func NewIndexService(
	ld *loader.Loader,
	ck *chunker.Chunker,
	embedder *Embedder,
	store vectorstore.Store,
	publisher IngestPublisher,
	batchSize int,
) *IndexService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &IndexService{
		loader:    ld,
		chunker:   ck,
		embedder:  embedder,
		store:     store,
		publisher: publisher,
		batchSize: batchSize,
		docs:      make(map[string]*DocumentStatus),
	}
}

// IndexDirectory loads every supported file under dir and ingests it.
// Per-file failures are collected into the report, never fatal to the batch.
func (s *IndexService) IndexDirectory(ctx context.Context, dir string) (*IngestReport, error) {
	docs, failures, err := s.loader.LoadDirectory(dir)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{}
	for _, f := range failures {
		report.Failed = append(report.Failed, FailureReport{Path: f.Path, Reason: f.Reason()})
	}

	for _, doc := range docs {
		id := s.register(doc.Name, doc.Format)
		status, err := s.ingest(ctx, id, doc.Name, doc.Text)
		if err != nil {
			log.Printf("index %s failed: %v", doc.Name, err)
			report.Failed = append(report.Failed, FailureReport{Path: doc.Path, Reason: err.Error()})
			continue
		}
		report.Indexed = append(report.Indexed, *status)
		report.TotalChunks += status.ChunkCount
	}
	return report, nil
}

// Reindex clears the store and the registry, then indexes dir from scratch.
func (s *IndexService) Reindex(ctx context.Context, dir string) (*IngestReport, error) {
	if err := s.store.Reset(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs = make(map[string]*DocumentStatus)
	s.order = nil
	s.mu.Unlock()
	return s.IndexDirectory(ctx, dir)
}

// IngestText ingests already-extracted text synchronously.
func (s *IndexService) IngestText(ctx context.Context, name, format, text string) (*DocumentStatus, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}
	id := s.register(name, format)
	return s.ingest(ctx, id, name, text)
}

// EnqueueText registers a pending document and hands the text to the index
// worker through the broker. The returned status is the pending record.
func (s *IndexService) EnqueueText(ctx context.Context, name, format, text string) (*DocumentStatus, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrInvalidInput
	}
	if s.publisher == nil {
		return nil, ErrIngestEnqueue
	}

	id := s.register(name, format)
	job := IngestJob{DocumentID: id, Name: name, Format: format, Text: text}
	if err := s.publisher.Publish(ctx, job); err != nil {
		s.setFailed(id, err)
		return nil, fmt.Errorf("%w: %v", ErrIngestEnqueue, err)
	}
	return s.status(id), nil
}

// ProcessJob runs the pipeline for a job consumed from the broker.
func (s *IndexService) ProcessJob(ctx context.Context, job IngestJob) error {
	if _, ok := s.lookup(job.DocumentID); !ok {
		// job from a previous process lifetime; re-register so status is visible
		s.registerWithID(job.DocumentID, job.Name, job.Format)
	}
	_, err := s.ingest(ctx, job.DocumentID, job.Name, job.Text)
	return err
}

// ListDocuments returns registry entries in registration order.
func (s *IndexService) ListDocuments() []DocumentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DocumentStatus, 0, len(s.order))
	for _, id := range s.order {
		if d, ok := s.docs[id]; ok {
			out = append(out, *d)
		}
	}
	return out
}

// ingest chunks, embeds and upserts one document, updating its registry entry.
func (s *IndexService) ingest(ctx context.Context, id, name, text string) (*DocumentStatus, error) {
	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		err := fmt.Errorf("document %s produced no chunks", name)
		s.setFailed(id, err)
		return nil, err
	}

	var vectors [][]float32
	for i := 0; i < len(chunks); i += s.batchSize {
		end := i + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := s.embedder.EmbedBatch(ctx, chunks[i:end])
		if err != nil {
			s.setFailed(id, err)
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		err := errors.New("embedding count mismatch")
		s.setFailed(id, err)
		return nil, err
	}

	entries := make([]vectorstore.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = vectorstore.IndexEntry{
			DocumentID: id,
			Source:     name,
			Seq:        i,
			Text:       chunks[i],
			Embedding:  vectors[i],
		}
	}
	if err := s.store.Upsert(ctx, s.embedder.Model(), entries); err != nil {
		s.setFailed(id, err)
		return nil, err
	}

	s.mu.Lock()
	if d, ok := s.docs[id]; ok {
		d.Status = DocStatusIndexed
		d.ChunkCount = len(entries)
		d.Error = ""
	}
	s.mu.Unlock()
	return s.status(id), nil
}

func (s *IndexService) register(name, format string) string {
	return s.registerWithID(uuid.New().String(), name, format)
}

func (s *IndexService) registerWithID(id, name, format string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = &DocumentStatus{
		ID:        id,
		Name:      name,
		Format:    format,
		Status:    DocStatusPending,
		CreatedAt: time.Now(),
	}
	s.order = append(s.order, id)
	return id
}

func (s *IndexService) lookup(id string) (DocumentStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return DocumentStatus{}, false
	}
	return *d, true
}

func (s *IndexService) status(id string) *DocumentStatus {
	d, ok := s.lookup(id)
	if !ok {
		return nil
	}
	return &d
}

func (s *IndexService) setFailed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[id]; ok {
		d.Status = DocStatusFailed
		d.Error = err.Error()
	}
}
