package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"
)

// docIDHashLen 是 doc_id 末尾路径摘要的十六进制位数。
const docIDHashLen = 8

// DocIDFromPath 由文件路径推导稳定的 doc_id："{可读部分}-{路径摘要}"。
// 可读部分为小写的路径（含扩展名），非字母数字字符合并为 '-'；摘要取原始路径 sha256 的前 8 位，
// 因此 report.pdf 与 report.docx、a/b.pdf 与 a-b.pdf 得到不同的 doc_id。
// 同一路径总是得到相同的 doc_id，重新入库时覆盖旧分块。路径不含字母数字时返回空串。
func DocIDFromPath(path string) string {
	name := filepath.ToSlash(path)
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteRune('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(name))
	return slug + "-" + hex.EncodeToString(sum[:])[:docIDHashLen]
}
