package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/rag"
)

func TestChunk_PrintsChunksAndTables(t *testing.T) {
	notes := writeFile(t, "notes.txt", "alpha beta gamma delta epsilon zeta eta theta")
	sales := writeFile(t, "sales.csv", "region,amount\nnorth,10\nsouth,20\n")

	out, err := run(t, "chunk", "--chunk-size", "20", "--overlap", "5", notes, sales)

	require.NoError(t, err)
	assert.Contains(t, out, "table sales.csv: 2 rows\n")
	assert.Contains(t, out, "--- notes.txt #0 (16 chars) ---\nalpha beta gamma\n")
	assert.Contains(t, out, "--- notes.txt #2 (14 chars) ---\nzeta eta theta\n")
	assert.Contains(t, out, "3 chunks\n")
}

func TestChunk_JSON(t *testing.T) {
	notes := writeFile(t, "notes.txt", "alpha beta gamma delta epsilon zeta eta theta")

	out, err := run(t, "chunk", "--json", "--chunk-size", "20", "--overlap", "5", notes)
	require.NoError(t, err)

	var chunks []rag.Chunk
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	require.Len(t, chunks, 3)
	assert.Equal(t, "delta epsilon zeta", chunks[1].Text)
	assert.Equal(t, "notes.txt", chunks[1].Metadata.Source)
	assert.Equal(t, rag.FileTypeTXT, chunks[1].Metadata.FileType)
}

func TestChunk_Errors(t *testing.T) {
	notes := writeFile(t, "notes.txt", "text")

	_, err := run(t, "chunk", "--chunk-size", "10", "--overlap", "10", notes)
	assert.ErrorContains(t, err, "overlap must be smaller")

	_, err = run(t, "chunk", notes+".missing")
	assert.ErrorContains(t, err, "read ")

	_, err = run(t, "chunk")
	assert.Error(t, err)
}
