package model

import "time"

// 入库任务状态
const (
	IngestStatusRunning   = "running"
	IngestStatusSucceeded = "succeeded"
	IngestStatusPartial   = "partial"
	IngestStatusFailed    = "failed"
)

// IngestJob 对应于数据库中的 ingest_jobs 表，记录每个文档最近一次入库的结果。
// 只记录运行状态，不保存文档内容。
type IngestJob struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocID         string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"docId"`
	Source        string    `gorm:"type:varchar(1024)" json:"source"`
	TotalChunks   int       `gorm:"not null;default:0" json:"totalChunks"`
	IndexedChunks int       `gorm:"not null;default:0" json:"indexedChunks"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	LastError     string    `gorm:"type:text" json:"lastError"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (IngestJob) TableName() string {
	return "ingest_jobs"
}
