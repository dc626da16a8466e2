package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type fakeStore struct {
	matches []Match
	err     error

	gotVector     []float32
	gotThreshold  float32
	gotMaxResults int
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, threshold float32, maxResults int) ([]Match, error) {
	f.gotVector = vector
	f.gotThreshold = threshold
	f.gotMaxResults = maxResults
	return f.matches, f.err
}

func (f *fakeStore) Insert(ctx context.Context, docs []Document) error { return nil }
func (f *fakeStore) Count(ctx context.Context) (int, error)            { return len(f.matches), nil }

func TestRetrieve_PassesThresholdAndCap(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	store := &fakeStore{matches: []Match{{ID: "a", Score: 0.9}}}
	r := NewRetriever(embedder, store, 0.75, 5)

	matches, err := r.Retrieve(context.Background(), "what is phe?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(store.gotVector, []float32{0.1, 0.2}) {
		t.Errorf("store received wrong vector: %v", store.gotVector)
	}
	if store.gotThreshold != 0.75 {
		t.Errorf("store received threshold %f, want 0.75", store.gotThreshold)
	}
	if store.gotMaxResults != 5 {
		t.Errorf("store received maxResults %d, want 5", store.gotMaxResults)
	}
	if len(matches) != 1 || matches[0].ID != "a" {
		t.Errorf("unexpected matches: %v", matches)
	}
}

func TestRetrieve_EmbedFailure(t *testing.T) {
	wantErr := errors.New("embedding service down")
	embedder := &fakeEmbedder{err: wantErr}
	store := &fakeStore{}
	r := NewRetriever(embedder, store, 0.75, 5)

	_, err := r.Retrieve(context.Background(), "query")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped embed error, got %v", err)
	}
	if store.gotVector != nil {
		t.Error("store should not be searched when embedding fails")
	}
}

func TestRetrieve_SearchFailure(t *testing.T) {
	wantErr := errors.New("corpus unreachable")
	embedder := &fakeEmbedder{vector: []float32{1}}
	store := &fakeStore{err: wantErr}
	r := NewRetriever(embedder, store, 0.75, 5)

	_, err := r.Retrieve(context.Background(), "query")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped search error, got %v", err)
	}
}

func TestRetrieve_EmptyResultIsNotError(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	store := &fakeStore{matches: nil}
	r := NewRetriever(embedder, store, 0.75, 5)

	matches, err := r.Retrieve(context.Background(), "something off-topic")
	if err != nil {
		t.Fatalf("empty retrieval should not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %v", matches)
	}
}
