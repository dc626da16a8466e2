package retrieval

import (
	"context"
	"fmt"
)

// EmbeddingClient converts free text into a fixed-dimension embedding vector.
// Implemented by llm.Client.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever combines embedding and vector search to find relevant documents.
type Retriever struct {
	embedder   EmbeddingClient
	store      VectorStore
	threshold  float32
	maxResults int
}

// NewRetriever creates a Retriever backed by the given embedder and store.
// threshold is the minimum cosine similarity for a document to count as
// relevant; maxResults caps the number of matches per query.
func NewRetriever(embedder EmbeddingClient, store VectorStore, threshold float32, maxResults int) *Retriever {
	return &Retriever{
		embedder:   embedder,
		store:      store,
		threshold:  threshold,
		maxResults: maxResults,
	}
}

// Retrieve embeds the query and returns the most similar documents above the
// threshold. An empty result means no document was relevant enough; callers
// fall back to ungrounded answering, it is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Match, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.store.Search(ctx, vec, r.threshold, r.maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching corpus: %w", err)
	}
	return matches, nil
}
