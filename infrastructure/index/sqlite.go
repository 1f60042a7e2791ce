// Package index provides read-only access to the on-disk retrieval indexes
// the domain agents search for grounding passages. Each domain owns one
// SQLite database of passages with pre-computed embeddings; queries are
// embedded at search time and ranked by cosine similarity.
package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ahrav/go-triage/internal/domain"
	"github.com/ahrav/go-triage/internal/ports"
)

// passagesTable is the required schema of an index database:
//
//	CREATE TABLE passages (
//	    id        INTEGER PRIMARY KEY,
//	    content   TEXT NOT NULL,
//	    metadata  TEXT,           -- JSON object of string pairs
//	    embedding BLOB NOT NULL   -- little-endian float32 vector
//	);
const passagesTable = "passages"

// SQLiteOpener opens SQLite index databases read-only and validates them
// before handing out search handles.
type SQLiteOpener struct {
	embedder ports.Embedder
	logger   *zap.Logger
}

var _ ports.IndexOpener = (*SQLiteOpener)(nil)

// NewSQLiteOpener creates an opener that embeds queries with the given
// embedder. A nil logger disables logging.
func NewSQLiteOpener(embedder ports.Embedder, logger *zap.Logger) (*SQLiteOpener, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteOpener{embedder: embedder, logger: logger}, nil
}

// Open opens the index database at location in read-only mode and verifies
// the passages table is present and non-empty. Any failure means the index
// is unusable; callers translate that into their own recovery.
func (o *SQLiteOpener) Open(ctx context.Context, location string) (ports.Index, error) {
	if _, err := os.Stat(location); err != nil {
		return nil, fmt.Errorf("index file %s: %w", location, err)
	}

	db, err := sql.Open("sqlite", "file:"+location+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", location, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify index %s: %w", location, err)
	}

	var count int
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+passagesTable)
	if err := row.Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("index %s is corrupt or has wrong schema: %w", location, err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("index %s contains no passages", location)
	}

	o.logger.Debug("opened retrieval index",
		zap.String("location", location),
		zap.Int("passages", count))

	return &sqliteIndex{
		db:       db,
		embedder: o.embedder,
		location: location,
	}, nil
}

// sqliteIndex is a read-only search handle over one index database.
type sqliteIndex struct {
	db       *sql.DB
	embedder ports.Embedder
	location string
}

var _ ports.Index = (*sqliteIndex)(nil)

// Search embeds the query and returns the k most similar passages ordered
// by non-increasing cosine similarity. Ties keep rowid order, which is the
// index-native insertion order.
func (ix *sqliteIndex) Search(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx,
		"SELECT content, metadata, embedding FROM "+passagesTable+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}
	defer rows.Close()

	type scored struct {
		text       string
		source     map[string]string
		similarity float64
	}

	var candidates []scored
	for rows.Next() {
		var content string
		var metaJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan passage row: %w", err)
		}

		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("index %s holds a malformed embedding: %w", ix.location, err)
		}

		var source map[string]string
		if metaJSON.Valid && metaJSON.String != "" {
			// Malformed metadata is tolerated; the passage text still grounds.
			_ = json.Unmarshal([]byte(metaJSON.String), &source)
		}

		candidates = append(candidates, scored{
			text:       content,
			source:     source,
			similarity: cosineSimilarity(queryVec, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	// Stable sort keeps index-native order for equal similarities.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	passages := make([]domain.Passage, len(candidates))
	for i, c := range candidates {
		passages[i] = domain.Passage{
			Ordinal:    i + 1,
			Text:       c.text,
			Source:     c.source,
			Similarity: c.similarity,
		}
	}
	return passages, nil
}

// Close releases the database handle.
func (ix *sqliteIndex) Close() error { return ix.db.Close() }

// decodeEmbedding decodes a little-endian float32 blob into a vector.
func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// EncodeEmbedding encodes a vector as a little-endian float32 blob.
// Index builders use this; the triage pipeline itself only reads.
func EncodeEmbedding(vec []float32) []byte {
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Dimension mismatches and zero vectors score zero rather than erroring so a
// single bad row cannot sink a whole search.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
