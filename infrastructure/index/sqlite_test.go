package index

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-triage/internal/testutils"
)

// buildIndexDB writes a small index database with the given passages and
// returns its path.
func buildIndexDB(t *testing.T, passages []testPassage) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test_index.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE passages (
		id        INTEGER PRIMARY KEY,
		content   TEXT NOT NULL,
		metadata  TEXT,
		embedding BLOB NOT NULL
	)`)
	require.NoError(t, err)

	for _, p := range passages {
		_, err = db.Exec(
			"INSERT INTO passages (content, metadata, embedding) VALUES (?, ?, ?)",
			p.content, p.metadata, EncodeEmbedding(p.embedding))
		require.NoError(t, err)
	}
	return path
}

type testPassage struct {
	content   string
	metadata  string
	embedding []float32
}

func TestSQLiteOpener_OpenMissingFile(t *testing.T) {
	embedder := testutils.NewMockEmbedder([]float32{1, 0})
	opener, err := NewSQLiteOpener(embedder, nil)
	require.NoError(t, err)

	_, err = opener.Open(context.Background(), filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}

func TestSQLiteOpener_OpenRejectsEmptyIndex(t *testing.T) {
	path := buildIndexDB(t, nil)
	embedder := testutils.NewMockEmbedder([]float32{1, 0})
	opener, err := NewSQLiteOpener(embedder, nil)
	require.NoError(t, err)

	_, err = opener.Open(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no passages")
}

func TestSQLiteOpener_OpenRejectsWrongSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	embedder := testutils.NewMockEmbedder([]float32{1, 0})
	opener, err := NewSQLiteOpener(embedder, nil)
	require.NoError(t, err)

	_, err = opener.Open(context.Background(), path)
	assert.Error(t, err)
}

func TestSQLiteIndex_SearchRanksBySimilarity(t *testing.T) {
	path := buildIndexDB(t, []testPassage{
		{content: "orthogonal passage", metadata: `{"doc": "a.md"}`, embedding: []float32{0, 1}},
		{content: "best match", metadata: `{"doc": "b.md"}`, embedding: []float32{1, 0}},
		{content: "diagonal passage", metadata: "", embedding: []float32{1, 1}},
	})

	// The query embeds to a unit vector along the first axis.
	embedder := testutils.NewMockEmbedder([]float32{1, 0})
	opener, err := NewSQLiteOpener(embedder, nil)
	require.NoError(t, err)

	ix, err := opener.Open(context.Background(), path)
	require.NoError(t, err)
	defer ix.Close()

	passages, err := ix.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Len(t, passages, 3)

	assert.Equal(t, "best match", passages[0].Text)
	assert.Equal(t, "diagonal passage", passages[1].Text)
	assert.Equal(t, "orthogonal passage", passages[2].Text)

	assert.Equal(t, 1, passages[0].Ordinal)
	assert.Equal(t, 2, passages[1].Ordinal)
	assert.Equal(t, 3, passages[2].Ordinal)
	assert.InDelta(t, 1.0, passages[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, passages[2].Similarity, 1e-9)

	assert.Equal(t, map[string]string{"doc": "b.md"}, passages[0].Source)
	assert.Nil(t, passages[1].Source, "empty metadata yields no source")
}

func TestSQLiteIndex_SearchHonoursK(t *testing.T) {
	path := buildIndexDB(t, []testPassage{
		{content: "one", embedding: []float32{1, 0}},
		{content: "two", embedding: []float32{0.9, 0.1}},
		{content: "three", embedding: []float32{0, 1}},
		{content: "four", embedding: []float32{0.5, 0.5}},
	})

	embedder := testutils.NewMockEmbedder([]float32{1, 0})
	opener, err := NewSQLiteOpener(embedder, nil)
	require.NoError(t, err)

	ix, err := opener.Open(context.Background(), path)
	require.NoError(t, err)
	defer ix.Close()

	passages, err := ix.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, passages, 2)

	none, err := ix.Search(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteIndex_TiesKeepInsertionOrder(t *testing.T) {
	// Identical embeddings: similarity ties across all rows.
	path := buildIndexDB(t, []testPassage{
		{content: "first inserted", embedding: []float32{1, 1}},
		{content: "second inserted", embedding: []float32{1, 1}},
		{content: "third inserted", embedding: []float32{1, 1}},
	})

	embedder := testutils.NewMockEmbedder([]float32{1, 1})
	opener, err := NewSQLiteOpener(embedder, nil)
	require.NoError(t, err)

	ix, err := opener.Open(context.Background(), path)
	require.NoError(t, err)
	defer ix.Close()

	passages, err := ix.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, passages, 3)
	assert.Equal(t, "first inserted", passages[0].Text)
	assert.Equal(t, "second inserted", passages[1].Text)
	assert.Equal(t, "third inserted", passages[2].Text)
}

func TestSQLiteIndex_EmbedFailurePropagates(t *testing.T) {
	path := buildIndexDB(t, []testPassage{
		{content: "one", embedding: []float32{1, 0}},
	})

	embedder := testutils.NewMockEmbedder([]float32{1, 0}).
		WithEmbedError(assert.AnError)
	opener, err := NewSQLiteOpener(embedder, nil)
	require.NoError(t, err)

	ix, err := opener.Open(context.Background(), path)
	require.NoError(t, err)
	defer ix.Close()

	_, err = ix.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75}
	decoded, err := decodeEmbedding(EncodeEmbedding(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "dimension mismatch scores zero")
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector scores zero")
}
