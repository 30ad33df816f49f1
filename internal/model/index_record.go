// Package model 定义了应用的数据模型。
package model

import "fmt"

// ChunkMeta 是分块记录中的嵌套元数据对象。
type ChunkMeta struct {
	DocID       string `json:"doc_id"`
	ChunkID     int    `json:"chunk_id"`
	TotalChunks int    `json:"total_chunks"`
	Source      string `json:"source"`
}

// IndexRecord 代表存储在 Elasticsearch 中的分块文档结构。
type IndexRecord struct {
	Content string    `json:"content"`
	Meta    ChunkMeta `json:"meta"`
}

// ID 返回记录在索引中的文档 ID，格式为 "{doc_id}-{chunk_id}"。
func (r IndexRecord) ID() string {
	return ChunkKey(r.Meta.DocID, r.Meta.ChunkID)
}

// ChunkKey 生成分块的复合键。相同的 doc_id 与 chunk_id 总是得到相同的键，重复入库即覆盖。
func ChunkKey(docID string, chunkID int) string {
	return fmt.Sprintf("%s-%d", docID, chunkID)
}

// RetrievalHit 是一次检索返回的单条命中结果。
type RetrievalHit struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Meta       ChunkMeta `json:"meta"`
	Score      float64   `json:"score"`
	Highlights []string  `json:"highlights,omitempty"`
}
