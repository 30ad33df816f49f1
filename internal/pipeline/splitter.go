package pipeline

import (
	"aegis-rag-go/internal/model"
	"fmt"
	"strings"
)

// SplitText 将文本按固定窗口大小切分为相互重叠的分块。
// 窗口以 rune 计长；每个窗口去除首尾空白，为空则丢弃；窗口到达文本末尾即停止，
// 否则下一个窗口从 end-overlap 开始。
func SplitText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size 必须大于 0, 当前为 %d", model.ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap 必须满足 0 <= overlap < chunk_size, 当前为 %d/%d", model.ErrInvalidConfiguration, overlap, chunkSize)
	}

	runes := []rune(text)
	n := len(runes)
	var chunks []string
	for start := 0; start < n; {
		end := start + chunkSize
		if end > n {
			end = n
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == n {
			break
		}
		start = end - overlap
	}
	return chunks, nil
}
