// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestTask represents a staged upload waiting to be extracted, chunked and indexed.
type IngestTask struct {
	DocID      string `json:"doc_id"`
	Source     string `json:"source"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	ChunkSize  int    `json:"chunk_size,omitempty"`
	Overlap    int    `json:"overlap,omitempty"`
}
