package retrieval

import (
	"context"
	"time"
)

// VectorStore is the interface for the similarity-searchable document corpus.
// The default implementation uses SQLite with brute-force cosine similarity;
// a pgvector- or ANN-backed implementation can replace it without touching
// the rest of the pipeline.
type VectorStore interface {
	// Search returns the documents most similar to vector, filtered to
	// score >= threshold, sorted descending by score (ties ascending by
	// document ID), truncated to maxResults. An empty result is not an error.
	Search(ctx context.Context, vector []float32, threshold float32, maxResults int) ([]Match, error)

	// Insert adds documents to the corpus. Used to seed the store; the
	// serving pipeline itself never writes.
	Insert(ctx context.Context, docs []Document) error

	// Count returns the number of documents in the corpus.
	Count(ctx context.Context) (int, error)
}

// Document is one entry of the PKU knowledge corpus.
type Document struct {
	ID        string
	Source    string // provenance label, e.g. document title or citation key
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Match is a retrieved document with its similarity score.
type Match struct {
	ID      string
	Source  string
	Content string
	Score   float32
}
