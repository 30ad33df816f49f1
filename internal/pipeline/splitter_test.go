package pipeline

import (
	"aegis-rag-go/internal/model"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_Windows(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		overlap   int
		want      []string
	}{
		{"overlapping windows", "ABCDEFGHIJ", 4, 1, []string{"ABCD", "DEFG", "GHIJ"}},
		{"no overlap", "ABCDEFGHIJ", 5, 0, []string{"ABCDE", "FGHIJ"}},
		{"short text single chunk", "short", 500, 100, []string{"short"}},
		{"exact fit", "ABCD", 4, 1, []string{"ABCD"}},
		{"trailing partial window", "ABCDEFG", 4, 1, []string{"ABCD", "DEFG"}},
		{"whitespace trimmed", "  AB  CD  ", 5, 0, []string{"AB", "CD"}},
		{"multibyte counted as runes", "你好世界和平", 4, 2, []string{"你好世界", "世界和平"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitText(tt.text, tt.chunkSize, tt.overlap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitText_EmptyAndBlank(t *testing.T) {
	got, err := SplitText("", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = SplitText("   \n\t  ", 3, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplitText_DropsBlankWindows(t *testing.T) {
	text := "AAAA" + strings.Repeat(" ", 8) + "BBBB"
	got, err := SplitText(text, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAA", "BBBB"}, got)
}

func TestSplitText_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 4, 4},
		{"overlap larger than size", 4, 9},
		{"negative overlap", 4, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitText("ABCDEFGHIJ", tt.chunkSize, tt.overlap)
			assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
			assert.Nil(t, got)
		})
	}
}

func TestSplitText_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	first, err := SplitText(text, 120, 30)
	require.NoError(t, err)
	second, err := SplitText(text, 120, 30)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplitText_ChunksBoundedAndCoverText(t *testing.T) {
	text := strings.Repeat("abcdefghij", 37) // 370 字符，无空白
	const size, overlap = 50, 15
	chunks, err := SplitText(text, size, overlap)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), size, "chunk %d", i)
		assert.NotEqual(t, "", strings.TrimSpace(c))
	}
	assert.True(t, strings.HasPrefix(text, chunks[0]))
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		assert.Equal(t, prev[len(prev)-overlap:], chunks[i][:overlap], "overlap between chunk %d and %d", i-1, i)
	}
}
