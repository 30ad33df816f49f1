package cli

import (
	"aegis-rag-go/internal/model"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintHits(t *testing.T) {
	hits := []model.RetrievalHit{
		{
			ID:         "handbook-2",
			Content:    strings.Repeat("x", 300),
			Meta:       model.ChunkMeta{DocID: "handbook", ChunkID: 2, TotalChunks: 4, Source: "handbook.pdf"},
			Score:      2.5,
			Highlights: []string{"annual <em>leave</em>", "<em>leave</em> policy"},
		},
		{
			ID:      "faq-0",
			Content: "short answer",
			Meta:    model.ChunkMeta{DocID: "faq", ChunkID: 0, TotalChunks: 1, Source: "faq.md"},
			Score:   1,
		},
	}

	var buf bytes.Buffer
	printHits(&buf, hits, false)
	out := buf.String()
	assert.Contains(t, out, "1. handbook-2  [handbook.pdf 3/4]  score=2.500")
	assert.Contains(t, out, "annual <em>leave</em> ... <em>leave</em> policy")
	assert.Contains(t, out, "2. faq-0  [faq.md 1/1]")
	assert.Contains(t, out, "short answer")

	buf.Reset()
	printHits(&buf, hits[:1], true)
	assert.Contains(t, buf.String(), strings.Repeat("x", 300))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview("abc", 5))
	assert.Equal(t, "ab...", preview("abcdef", 2))
	assert.Equal(t, "你好...", preview("你好世界", 2))
}
