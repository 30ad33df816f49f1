package repository

import (
	"aegis-rag-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngestJobRepository 定义了对 ingest_jobs 表的数据操作接口。
type IngestJobRepository interface {
	// Save 按 doc_id 插入或覆盖最近一次入库的记录。
	Save(job *model.IngestJob) error
	FindByDocID(docID string) (*model.IngestJob, error)
}

type ingestJobRepository struct {
	db *gorm.DB
}

// NewIngestJobRepository 创建一个新的 IngestJobRepository 实例。
func NewIngestJobRepository(db *gorm.DB) IngestJobRepository {
	return &ingestJobRepository{db: db}
}

func (r *ingestJobRepository) Save(job *model.IngestJob) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source", "total_chunks", "indexed_chunks", "status", "last_error", "updated_at"}),
	}).Create(job).Error
}

func (r *ingestJobRepository) FindByDocID(docID string) (*model.IngestJob, error) {
	var job model.IngestJob
	if err := r.db.Where("doc_id = ?", docID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}
