package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-intel/constants"
)

// UploadedDocument is a file accepted into an ingestion run.
type UploadedDocument struct {
	ID            uuid.UUID                `json:"id"`
	RunID         string                   `json:"run_id"`
	Filename      string                   `json:"filename"`
	MimeType      string                   `json:"mime_type"`
	Size          int64                    `json:"size"`
	ContentHash   string                   `json:"content_hash"`
	Format        string                   `json:"format"`
	ExtractedText string                   `json:"extracted_text,omitempty"`
	Status        constants.DocumentStatus `json:"status"`
	ErrorMessage  *string                  `json:"error_message,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// IsTerminal reports whether processing of the document has finished.
func (d UploadedDocument) IsTerminal() bool {
	return d.Status == constants.DocumentCompleted || d.Status == constants.DocumentFailed
}
