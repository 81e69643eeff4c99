// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "lexsmart-go/internal/model"

// IngestTask represents the data structure for a regulation ingestion job.
type IngestTask struct {
	Code       string         `json:"code"`
	ObjectName string         `json:"object_name"`
	FileName   string         `json:"file_name"`
	IndexName  string         `json:"index_name"`
	Namespace  string         `json:"namespace"`
	Metadata   model.Metadata `json:"metadata"`
}
