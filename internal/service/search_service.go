// Package service 提供了检索与问答相关的业务逻辑。
package service

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/model"
	"aegis-rag-go/pkg/es"
	"aegis-rag-go/pkg/log"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// 高亮片段参数：每条命中最多返回 2 个约 150 字符的片段。
const (
	highlightFragmentSize = 150
	highlightFragments    = 2
)

var sourceFields = []string{"content", "meta.doc_id", "meta.chunk_id", "meta.total_chunks", "meta.source"}

// SearchService 接口定义了检索操作。
type SearchService interface {
	// Search 在 content 字段上执行相关度排序的 match 查询，按得分从高到低返回。
	// 无命中时返回空切片；搜索引擎故障时返回包装了 model.ErrSearch 的错误。
	Search(ctx context.Context, query string, size int) ([]model.RetrievalHit, error)
	// ListChunks 不带查询条件地浏览索引中的分块。
	ListChunks(ctx context.Context, limit int) ([]model.RetrievalHit, error)
}

type searchService struct {
	esClient  es.Client
	indexName string
	timeout   time.Duration
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(esClient es.Client, esCfg config.ElasticsearchConfig, retrievalCfg config.RetrievalConfig) SearchService {
	return &searchService{
		esClient:  esClient,
		indexName: esCfg.IndexName,
		timeout:   retrievalCfg.Timeout,
	}
}

func (s *searchService) Search(ctx context.Context, query string, size int) ([]model.RetrievalHit, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size 必须大于 0, 当前为 %d", model.ErrInvalidConfiguration, size)
	}
	log.Infof("[SearchService] 开始检索, query: '%s', size: %d", query, size)

	esQuery := map[string]interface{}{
		"size":    size,
		"_source": sourceFields,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": query,
			},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"content": map[string]interface{}{
					"fragment_size":       highlightFragmentSize,
					"number_of_fragments": highlightFragments,
				},
			},
		},
	}
	hits, err := s.search(ctx, esQuery)
	if err != nil {
		return nil, err
	}
	log.Infof("[SearchService] 检索完成, query: '%s', 返回 %d 条结果", query, len(hits))
	return hits, nil
}

func (s *searchService) ListChunks(ctx context.Context, limit int) ([]model.RetrievalHit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit 必须大于 0, 当前为 %d", model.ErrInvalidConfiguration, limit)
	}
	return s.search(ctx, map[string]interface{}{
		"size":    limit,
		"_source": sourceFields,
		"query":   map[string]interface{}{"match_all": map[string]interface{}{}},
	})
}

func (s *searchService) search(ctx context.Context, body map[string]interface{}) ([]model.RetrievalHit, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.esClient.Search(ctx, s.indexName, body)
	if err != nil {
		log.Errorf("[SearchService] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("%w: %v", model.ErrSearch, err)
	}

	hits := make([]model.RetrievalHit, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		var record model.IndexRecord
		if err := json.Unmarshal(h.Source, &record); err != nil {
			log.Errorf("[SearchService] 解析命中文档 '%s' 失败: %v", h.ID, err)
			return nil, fmt.Errorf("%w: 解析命中文档 '%s': %v", model.ErrSearch, h.ID, err)
		}
		hits = append(hits, model.RetrievalHit{
			ID:         h.ID,
			Content:    record.Content,
			Meta:       record.Meta,
			Score:      h.Score,
			Highlights: h.Highlight["content"],
		})
	}
	return hits, nil
}
