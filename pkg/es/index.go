package es

import (
	"aegis-rag-go/internal/model"
	"aegis-rag-go/pkg/log"
	"context"
	"fmt"
)

// IndexMapping 是分块索引的固定结构：content 全文检索，meta.doc_id/meta.source 精确匹配，
// meta.chunk_id/meta.total_chunks 为整数。
const IndexMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	},
	"mappings": {
		"properties": {
			"content": { "type": "text" },
			"meta": {
				"properties": {
					"doc_id": { "type": "keyword" },
					"chunk_id": { "type": "integer" },
					"total_chunks": { "type": "integer" },
					"source": { "type": "keyword" }
				}
			}
		}
	}
}`

// EnsureIndex 检查索引是否存在，如果不存在则按 IndexMapping 创建。已存在的索引不会被修改。
func EnsureIndex(ctx context.Context, client Client, name string) error {
	exists, err := client.IndexExists(ctx, name)
	if err != nil {
		log.Errorf("检查索引 '%s' 是否存在时出错: %v", name, err)
		return fmt.Errorf("%w: 检查索引 '%s': %v", model.ErrIndexCreation, name, err)
	}
	if exists {
		log.Infof("索引 '%s' 已存在", name)
		return nil
	}

	if err := client.CreateIndex(ctx, name, IndexMapping); err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", name, err)
		return fmt.Errorf("%w: 创建索引 '%s': %v", model.ErrIndexCreation, name, err)
	}
	log.Infof("索引 '%s' 创建成功", name)
	return nil
}
