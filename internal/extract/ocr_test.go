package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanRunner fakes pdftoppm by writing page images and tesseract by echoing
// a per-page text.
type scanRunner struct {
	pages    int
	failOn   string
	calls    []string
	ocrError error
}

func (s *scanRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	switch name {
	case "pdftotext":
		return nil, []byte("Syntax Error"), errors.New("exit status 1")
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= s.pages; i++ {
			img := prefix + "-" + strconv.Itoa(i) + ".png"
			if err := os.WriteFile(img, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		page := filepath.Base(args[0])
		if s.ocrError != nil || page == s.failOn {
			return nil, []byte("Error in pixReadStream"), errors.New("exit status 1")
		}
		return []byte("Text von " + page + " ||||| Tabelle"), nil, nil
	}
	return nil, nil, errors.New("unexpected " + name)
}

func newScanExtractor(r Runner) *Extractor {
	e := NewExtractor(Config{Tesseract: "tesseract", MaxPages: 5}, nil).WithRunner(r)
	e.pages = func([]byte, int) ([]string, error) { return []string{"", ""}, nil }
	return e
}

func TestExtractPDF_OCRFallback(t *testing.T) {
	r := &scanRunner{pages: 2}
	res := newScanExtractor(r).Extract(context.Background(), Document{Filename: "scan.pdf", Data: []byte("%PDF-1.4\n%%EOF")})

	require.False(t, res.Failed(), res.Text)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "--- Page 1 ---\nText von page-1.png")
	assert.Contains(t, res.Text, "--- Page 2 ---\nText von page-2.png")
	assert.NotContains(t, res.Text, "|||")
	assert.Equal(t, []string{"pdftotext", "pdftoppm", "tesseract", "tesseract"}, r.calls)
	assert.Contains(t, res.Warnings, "fitz: no text layer")
}

func TestExtractPDF_OCRPartialPageFailure(t *testing.T) {
	r := &scanRunner{pages: 2, failOn: "page-1.png"}
	res := newScanExtractor(r).Extract(context.Background(), Document{Filename: "scan.pdf", Data: []byte("%PDF-1.4\n%%EOF")})

	require.False(t, res.Failed())
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "Text von page-2.png")
}

func TestExtractPDF_OCRFailsThenRaw(t *testing.T) {
	r := &scanRunner{pages: 1, ocrError: errors.New("boom")}
	res := newScanExtractor(r).Extract(context.Background(), Document{Filename: "scan.pdf", Data: []byte("%PDF-1.4\n%%EOF")})

	require.True(t, res.Failed())
	var sawOCR bool
	for _, w := range res.Warnings {
		if strings.HasPrefix(w, "ocr: tesseract failed on all 1 pages") {
			sawOCR = true
		}
	}
	assert.True(t, sawOCR, res.Warnings)
}

func TestPageNumber(t *testing.T) {
	assert.Equal(t, 10, pageNumber("/tmp/x/page-10.png"))
	assert.Equal(t, 2, pageNumber("/tmp/x/page-02.png"))
}
