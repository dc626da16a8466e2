package retrieval

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Compile-time check that SQLiteStore implements VectorStore.
var _ VectorStore = (*SQLiteStore)(nil)

// SQLiteStore provides brute-force cosine similarity search over the
// pku_documents table. Embeddings are stored as little-endian float32 blobs.
//
// Brute force is fine at this corpus size (hundreds of curated documents);
// if the corpus ever grows past ~100K rows, swap in an ANN-capable backend
// behind the VectorStore interface.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an existing *sql.DB for vector operations.
// The pku_documents table must already exist (created via migrations).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// idScore holds only the ID and score during the scan phase of Search.
// Full document rows are fetched only for the winners.
type idScore struct {
	ID    string
	Score float32
}

// Search scans all document embeddings, keeps those scoring >= threshold, and
// returns at most maxResults of them sorted descending by score. Equal scores
// are ordered ascending by document ID so identical inputs always produce an
// identical result sequence.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, threshold float32, maxResults int) ([]Match, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	// Phase 1: scan only id + embedding to find the top candidates.
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM pku_documents`)
	if err != nil {
		return nil, fmt.Errorf("querying document embeddings: %w", err)
	}
	defer rows.Close()

	h := &idScoreHeap{}
	heap.Init(h)

	// Reusable buffer for decoding embeddings to avoid per-row allocations.
	var buf []float32

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}
		if len(buf) != len(vector) {
			return nil, fmt.Errorf("dimension mismatch for %s: corpus %d, query %d", id, len(buf), len(vector))
		}

		score := cosine(vector, buf, queryNorm)
		if score < threshold {
			continue
		}
		cand := idScore{ID: id, Score: score}
		if h.Len() < maxResults {
			heap.Push(h, cand)
		} else if better(cand, (*h)[0]) {
			(*h)[0] = cand
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if h.Len() == 0 {
		return nil, nil
	}

	// Phase 2: fetch source/content only for the winners.
	top := make([]idScore, h.Len())
	for i := len(top) - 1; i >= 0; i-- {
		top[i] = heap.Pop(h).(idScore)
	}
	scores := make(map[string]float32, len(top))
	queryArgs := make([]interface{}, len(top))
	for i, c := range top {
		scores[c.ID] = c.Score
		queryArgs[i] = c.ID
	}

	fullQuery := `SELECT id, source, content FROM pku_documents WHERE id IN (?` +
		strings.Repeat(",?", len(top)-1) + `)`
	fullRows, err := s.db.QueryContext(ctx, fullQuery, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("fetching matched documents: %w", err)
	}
	defer fullRows.Close()

	var results []Match
	for fullRows.Next() {
		var m Match
		if err := fullRows.Scan(&m.ID, &m.Source, &m.Content); err != nil {
			return nil, fmt.Errorf("scanning matched document: %w", err)
		}
		m.Score = scores[m.ID]
		results = append(results, m)
	}
	if err := fullRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matched documents: %w", err)
	}

	// The IN query doesn't preserve order: sort by score descending, ID ascending.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results, nil
}

// better reports whether candidate a outranks b: higher score wins, equal
// scores fall back to the smaller document ID.
func better(a, b idScore) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// Insert adds documents to the pku_documents table.
func (s *SQLiteStore) Insert(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO pku_documents (id, source, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		blob := encodeFloat32s(d.Embedding)
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(d.ID, d.Source, d.Content, blob, createdAt.Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of documents in the corpus.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pku_documents").Scan(&count)
	return count, err
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it to avoid per-row allocations during search scans.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes cosine similarity as dot(a,b) / (aNorm * bNorm).
// aNorm is the precomputed L2 norm of vector a.
func cosine(a, b []float32, aNorm float32) float32 {
	var dot float64
	var bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// idScoreHeap is a min-heap of idScore: the root is the current worst
// candidate (lowest score, with the larger ID losing on ties).
type idScoreHeap []idScore

func (h idScoreHeap) Len() int { return len(h) }
func (h idScoreHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].ID > h[j].ID
}
func (h idScoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idScoreHeap) Push(x interface{}) { *h = append(*h, x.(idScore)) }
func (h *idScoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
