package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/price-intel/internal/common"
)

// Document is one uploaded file as received from a caller.
type Document struct {
	Filename string
	MimeType string
	Data     []byte
}

// Size returns the payload length in bytes.
func (d Document) Size() int64 { return int64(len(d.Data)) }

// TextExtractor turns raw bytes into plain text. Failures are reported inside the
// Result so a batch keeps going.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) Result
}

type Result struct {
	Filename string
	Format   string // constants.PDF | SPREADSHEET | GAEB | TXT
	MimeType string
	Text     string
	Pages    int
	Sheets   []string
	Method   string // "fitz" | "pdftotext" | "pdf-raw" | "excelize" | "gaeb-xml" | "text"
	// Positions is set for GAEB files only.
	Positions []GAEBPosition
	Warnings  []string
	Duration  time.Duration
	Err       *common.AppError
}

// Failed reports whether Text is a placeholder rather than document content.
func (r Result) Failed() bool { return r.Err != nil }
