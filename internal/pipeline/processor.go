// Package pipeline 定义了文档入库的核心流程：提取 -> 切块 -> 逐块索引。
package pipeline

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/model"
	"aegis-rag-go/internal/repository"
	"aegis-rag-go/pkg/es"
	"aegis-rag-go/pkg/log"
	"aegis-rag-go/pkg/storage"
	"aegis-rag-go/pkg/tasks"
	"aegis-rag-go/pkg/tika"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Processor 封装了文档入库的所有依赖和逻辑。
// store 与 jobRepo 可以为 nil：命令行工具不经过暂存区，也不写入库台账。
type Processor struct {
	extractor tika.Extractor
	esClient  es.Client
	indexName string
	cfg       config.IngestionConfig
	store     storage.ObjectStore
	jobRepo   repository.IngestJobRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	extractor tika.Extractor,
	esClient es.Client,
	esCfg config.ElasticsearchConfig,
	ingestCfg config.IngestionConfig,
	store storage.ObjectStore,
	jobRepo repository.IngestJobRepository,
) *Processor {
	return &Processor{
		extractor: extractor,
		esClient:  esClient,
		indexName: esCfg.IndexName,
		cfg:       ingestCfg,
		store:     store,
		jobRepo:   jobRepo,
	}
}

// Ingest 将已提取的文本切块并逐块写入索引，返回成功写入的分块数。
//
// 写入按分块进行，不具备事务性：失败时索引中保留已写入的前缀。同一 doc_id 重新入库会按
// "{doc_id}-{chunk_id}" 覆盖旧记录，因此调用方可以直接重试。单块写入失败的处理方式由
// ingestion.on_write_error 决定：abort 在第一次失败时停止，continue 记录错误后继续。
func (p *Processor) Ingest(ctx context.Context, docID, source, text string, chunkSize, overlap int) (int, error) {
	if strings.TrimSpace(docID) == "" {
		return 0, fmt.Errorf("%w: doc_id 不能为空", model.ErrInvalidConfiguration)
	}
	chunks, err := SplitText(text, chunkSize, overlap)
	if err != nil {
		return 0, err
	}
	total := len(chunks)
	log.Infof("[Processor] 文本分块完成, DocID: %s, 内容长度: %d 字符, chunkSize: %d, overlap: %d, 共 %d 个分块",
		docID, utf8.RuneCountInString(text), chunkSize, overlap, total)
	p.saveJob(docID, source, total, 0, model.IngestStatusRunning, nil)

	indexed := 0
	aborted := false
	var writeErrs []error
	for i, chunk := range chunks {
		record := model.IndexRecord{
			Content: chunk,
			Meta: model.ChunkMeta{
				DocID:       docID,
				ChunkID:     i,
				TotalChunks: total,
				Source:      source,
			},
		}
		if err := p.esClient.IndexDocument(ctx, p.indexName, record.ID(), record); err != nil {
			log.Errorf("[Processor] 索引分块 %d/%d 失败, ID: %s, Error: %v", i+1, total, record.ID(), err)
			writeErrs = append(writeErrs, fmt.Errorf("%w: %s: %v", model.ErrIndexWrite, record.ID(), err))
			if p.cfg.OnWriteError != config.WriteErrorContinue {
				aborted = true
				break
			}
			continue
		}
		indexed++
	}

	if !aborted && p.cfg.PruneStale {
		p.pruneStale(ctx, docID, total)
	}

	err = errors.Join(writeErrs...)
	status := model.IngestStatusSucceeded
	switch {
	case err != nil && indexed > 0:
		status = model.IngestStatusPartial
	case err != nil:
		status = model.IngestStatusFailed
	}
	p.saveJob(docID, source, total, indexed, status, err)

	if err != nil {
		log.Warnw("[Processor] 文档入库未完全成功", "docID", docID, "indexed", indexed, "total", total, "aborted", aborted)
		return indexed, err
	}
	log.Infof("[Processor] 已将 %d 个分块索引到 %s, DocID: %s", indexed, p.indexName, docID)
	return indexed, nil
}

// IngestReader 调用文本提取服务后执行 Ingest。未指定的切块参数按 IngestionConfig.ChunkParams 补全。
func (p *Processor) IngestReader(ctx context.Context, docID, source, fileName string, r io.Reader, chunkSize, overlap int) (int, error) {
	chunkSize, overlap = p.cfg.ChunkParams(chunkSize, overlap)

	text, err := p.extractor.ExtractText(ctx, r, fileName)
	if err != nil {
		log.Errorf("[Processor] 提取文本失败, FileName: %s, Error: %v", fileName, err)
		p.saveJob(docID, source, 0, 0, model.IngestStatusFailed, err)
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("%w: 文件 '%s' 提取的文本内容为空", model.ErrExtraction, fileName)
		log.Warnf("[Processor] %v", err)
		p.saveJob(docID, source, 0, 0, model.IngestStatusFailed, err)
		return 0, err
	}
	return p.Ingest(ctx, docID, source, text, chunkSize, overlap)
}

// IngestFile 读取本地文件并入库，source 为文件路径。
func (p *Processor) IngestFile(ctx context.Context, docID, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: 打开文件 '%s' 失败: %v", model.ErrExtraction, path, err)
	}
	defer f.Close()

	log.Infof("[Processor] 开始处理文件, DocID: %s, Path: %s", docID, path)
	return p.IngestReader(ctx, docID, path, filepath.Base(path), f, 0, 0)
}

// Process 处理来自 Kafka 的入库任务：从暂存区下载文件、入库，成功后删除暂存对象。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	if p.store == nil {
		return errors.New("未配置对象存储，无法处理暂存文件")
	}
	log.Infof("[Processor] 开始处理入库任务, DocID: %s, Object: %s", task.DocID, task.ObjectName)

	object, err := p.store.Get(ctx, task.ObjectName)
	if err != nil {
		return err
	}
	defer object.Close()

	n, err := p.IngestReader(ctx, task.DocID, task.Source, task.FileName, object, task.ChunkSize, task.Overlap)
	if err != nil {
		return fmt.Errorf("文档 '%s' 入库失败（已写入 %d 个分块）: %w", task.DocID, n, err)
	}

	if err := p.store.Remove(ctx, task.ObjectName); err != nil {
		log.Warnf("[Processor] 清理暂存对象失败: %v", err)
	}
	return nil
}

// pruneStale 删除同一文档中 chunk_id >= total 的旧分块，这些分块来自分块数更多的上一次入库。
func (p *Processor) pruneStale(ctx context.Context, docID string, total int) {
	query := map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": []map[string]interface{}{
				{"term": map[string]interface{}{"meta.doc_id": docID}},
				{"range": map[string]interface{}{"meta.chunk_id": map[string]interface{}{"gte": total}}},
			},
		},
	}
	deleted, err := p.esClient.DeleteByQuery(ctx, p.indexName, query)
	if err != nil {
		log.Warnf("[Processor] 清理旧分块失败, DocID: %s, Error: %v", docID, err)
		return
	}
	if deleted > 0 {
		log.Infof("[Processor] 已清理 %d 个旧分块, DocID: %s", deleted, docID)
	}
}

func (p *Processor) saveJob(docID, source string, total, indexed int, status string, jobErr error) {
	if p.jobRepo == nil {
		return
	}
	job := &model.IngestJob{
		DocID:         docID,
		Source:        source,
		TotalChunks:   total,
		IndexedChunks: indexed,
		Status:        status,
	}
	if jobErr != nil {
		job.LastError = jobErr.Error()
	}
	if err := p.jobRepo.Save(job); err != nil {
		log.Warnf("[Processor] 更新入库台账失败, DocID: %s, Error: %v", docID, err)
	}
}
