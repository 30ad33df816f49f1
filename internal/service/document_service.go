package service

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/model"
	"aegis-rag-go/internal/pipeline"
	"aegis-rag-go/internal/repository"
	"aegis-rag-go/pkg/kafka"
	"aegis-rag-go/pkg/log"
	"aegis-rag-go/pkg/storage"
	"aegis-rag-go/pkg/tasks"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrLedgerDisabled 表示未配置 MySQL，入库台账不可用。
var ErrLedgerDisabled = errors.New("ingest ledger is not configured")

// ErrQueueDisabled 表示未配置对象存储或 Kafka，无法异步入库上传文件。
var ErrQueueDisabled = errors.New("upload queue is not configured")

// Ingester 将已提取的文本切块入库。
type Ingester interface {
	Ingest(ctx context.Context, docID, source, text string, chunkSize, overlap int) (int, error)
}

// DocumentService 接口定义了文档入库相关的业务操作。
type DocumentService interface {
	// IngestText 同步入库一段已提取的文本。为 0 的切块参数使用配置值（见 IngestionConfig.ChunkParams）。
	IngestText(ctx context.Context, docID, source, text string, chunkSize, overlap int) (int, error)
	// StageUpload 将上传文件写入暂存区并投递入库任务，返回投递的任务。
	StageUpload(ctx context.Context, docID, fileName string, r io.Reader, size int64) (*tasks.IngestTask, error)
	GetIngestStatus(docID string) (*model.IngestJob, error)
}

type documentService struct {
	ingester  Ingester
	store     storage.ObjectStore
	producer  kafka.TaskProducer
	jobRepo   repository.IngestJobRepository
	ingestCfg config.IngestionConfig
}

// NewDocumentService 创建一个新的 DocumentService 实例。store、producer、jobRepo 可以为 nil。
func NewDocumentService(ingester Ingester, store storage.ObjectStore, producer kafka.TaskProducer, jobRepo repository.IngestJobRepository, ingestCfg config.IngestionConfig) DocumentService {
	return &documentService{
		ingester:  ingester,
		store:     store,
		producer:  producer,
		jobRepo:   jobRepo,
		ingestCfg: ingestCfg,
	}
}

func (s *documentService) IngestText(ctx context.Context, docID, source, text string, chunkSize, overlap int) (int, error) {
	chunkSize, overlap = s.ingestCfg.ChunkParams(chunkSize, overlap)
	if source == "" {
		source = docID
	}
	return s.ingester.Ingest(ctx, docID, source, text, chunkSize, overlap)
}

func (s *documentService) StageUpload(ctx context.Context, docID, fileName string, r io.Reader, size int64) (*tasks.IngestTask, error) {
	if s.store == nil || s.producer == nil {
		return nil, ErrQueueDisabled
	}
	fileName = filepath.Base(fileName)
	if docID == "" {
		docID = pipeline.DocIDFromPath(fileName)
	}
	if docID == "" {
		return nil, fmt.Errorf("%w: 无法从文件名 '%s' 推导 doc_id", model.ErrInvalidConfiguration, fileName)
	}

	objectName := fmt.Sprintf("staging/%s/%s", uuid.NewString(), fileName)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.Put(ctx, objectName, r, size, contentType); err != nil {
		return nil, err
	}

	task := tasks.IngestTask{
		DocID:      docID,
		Source:     fileName,
		ObjectName: objectName,
		FileName:   fileName,
		ChunkSize:  s.ingestCfg.ChunkSize,
		Overlap:    s.ingestCfg.Overlap,
	}
	if err := s.producer.ProduceIngestTask(ctx, task); err != nil {
		// 投递失败时清理暂存对象，避免残留
		if rmErr := s.store.Remove(ctx, objectName); rmErr != nil {
			log.Warnf("[DocumentService] 清理暂存对象失败: %v", rmErr)
		}
		return nil, fmt.Errorf("投递入库任务失败: %w", err)
	}
	log.Infof("[DocumentService] 已暂存并投递入库任务, DocID: %s, Object: %s", docID, objectName)
	return &task, nil
}

func (s *documentService) GetIngestStatus(docID string) (*model.IngestJob, error) {
	if s.jobRepo == nil {
		return nil, ErrLedgerDisabled
	}
	return s.jobRepo.FindByDocID(docID)
}
