package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxPages  int    // 0 = no limit

	// OCR for scanned PDFs. Empty Tesseract disables it.
	Tesseract     string
	TesseractLang string // default "deu+eng"
	TessdataDir   string
	Pdftoppm      string // default "pdftoppm"
	DPI           int    // default 300
}

// Extractor converts uploaded bytes into text. It is safe for concurrent use.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *zap.Logger
	pages  func(data []byte, maxPages int) ([]string, error)
}

func NewExtractor(cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract != "" {
		if cfg.TesseractLang == "" {
			cfg.TesseractLang = "deu+eng"
		}
		if cfg.Pdftoppm == "" {
			cfg.Pdftoppm = "pdftoppm"
		}
		if cfg.DPI <= 0 {
			cfg.DPI = 300
		}
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger, pages: fitzPages}
}

// WithRunner swaps the command runner used for the pdftotext and OCR fallbacks.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract picks a strategy from the file extension, refined by content sniffing.
// It never fails: on error Result.Text holds a placeholder and Result.Err is set.
func (e *Extractor) Extract(ctx context.Context, doc Document) Result {
	start := time.Now()
	format, mime := DetectFormat(doc)
	res := Result{Filename: doc.Filename, Format: format, MimeType: mime}

	e.logger.Debug("extract.start",
		zap.String("file", doc.Filename),
		zap.String("format", format),
		zap.String("mime", mime),
		zap.Int64("bytes", doc.Size()),
	)

	var err error
	switch format {
	case constants.PDF:
		err = e.extractPDF(ctx, doc, &res)
	case constants.SPREADSHEET:
		err = extractSpreadsheet(doc, &res)
	case constants.GAEB:
		err = extractGAEB(doc, &res)
	case constants.TXT:
		res.Method = "text"
		res.Text = Normalize(string(doc.Data))
		if res.Text == "" {
			err = fmt.Errorf("no text content")
		}
	default:
		err = fmt.Errorf("unsupported file type %q", mime)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = common.NewExtractionError(err.Error(), err)
		res.Text = Placeholder(doc.Filename, err.Error())
		e.logger.Warn("extract.failed",
			zap.String("file", doc.Filename),
			zap.String("format", format),
			zap.Strings("warnings", res.Warnings),
			zap.Error(err),
		)
		return res
	}

	e.logger.Info("extract.ok",
		zap.String("file", doc.Filename),
		zap.String("format", format),
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("chars", len(res.Text)),
		zap.Int64("duration_ms", res.Duration.Milliseconds()),
	)
	return res
}

// Placeholder is the text stored for a document whose content could not be read.
func Placeholder(filename, reason string) string {
	return fmt.Sprintf("[extraction failed for %s: %s]", filename, reason)
}

// DetectFormat resolves the source format. Sniffed content wins over the
// extension for PDF, OOXML and GAEB XML; otherwise the extension decides.
func DetectFormat(doc Document) (format, mime string) {
	ext := constants.NormalizeExt(filepath.Ext(doc.Filename))
	byExt := constants.MapExtToFormat(ext)

	m := mimetype.Detect(doc.Data)
	mime = m.String()
	if doc.MimeType != "" && (m.Is("application/octet-stream") || m.Is("text/plain")) {
		mime = doc.MimeType
	}

	switch {
	case m.Is("application/pdf"):
		return constants.PDF, mime
	case m.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
		m.Is("application/vnd.ms-excel"):
		return constants.SPREADSHEET, mime
	case isXML(m) && looksLikeGAEB(doc.Data):
		return constants.GAEB, mime
	}
	return byExt, mime
}

func isXML(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/xml") || m.Is("application/xml") {
			return true
		}
	}
	return false
}

func looksLikeGAEB(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	return strings.Contains(string(head), "<GAEB")
}
