// Package model contains the metadata record shared by the storage layers,
// the API and the worker.
package model

import "time"

// FileStatus describes where an accepted upload is in its lifecycle.
type FileStatus string

const (
	StatusUploaded   FileStatus = "uploaded"
	StatusProcessing FileStatus = "processing"
	StatusProcessed  FileStatus = "processed"
	StatusFailed     FileStatus = "failed"
)

// FileRecord is the metadata row written for every stored upload.
type FileRecord struct {
	ID string `json:"id"`
	// FileName is the sanitized client file name.
	FileName string `json:"fileName"`
	// FileType is the content type the client declared.
	FileType string `json:"fileType"`
	// MediaType is the type detected from the content.
	MediaType       string     `json:"mediaType"`
	Size            int64      `json:"size"`
	StoragePath     string     `json:"storagePath"`
	TransformedPath *string    `json:"transformedPath,omitempty"`
	Status          FileStatus `json:"status"`
	ErrorMessage    *string    `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
}

// Expired reports whether the record outlived its retention at now.
func (r *FileRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
