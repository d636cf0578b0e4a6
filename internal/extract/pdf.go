package extract

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// fitzPages returns the text of every page, in order.
func fitzPages(data []byte, maxPages int) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		txt, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

// extractPDF tries go-fitz, then pdftotext, then OCR when configured, then a
// raw scan of text operators.
func (e *Extractor) extractPDF(ctx context.Context, doc Document, res *Result) error {
	pages, err := e.pages(doc.Data, e.cfg.MaxPages)
	if err == nil && hasText(pages) {
		res.Method = "fitz"
		res.Pages = len(pages)
		res.Text = labelPages(pages)
		return nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, "fitz: "+err.Error())
	} else {
		res.Warnings = append(res.Warnings, "fitz: no text layer")
	}

	text, n, err := e.pdfToText(ctx, doc.Data)
	if err == nil && strings.TrimSpace(text) != "" {
		res.Method = "pdftotext"
		res.Pages = n
		res.Text = labelPages(strings.Split(text, "\f")[:n])
		return nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	if e.cfg.Tesseract != "" {
		text, n, err := e.pdfOCR(ctx, doc.Data)
		if err == nil && strings.TrimSpace(text) != "" {
			res.Method = "pdf-ocr"
			res.Pages = n
			res.Text = labelPages(strings.Split(text, "\f"))
			return nil
		}
		if err != nil {
			res.Warnings = append(res.Warnings, "ocr: "+err.Error())
		}
	}
	e.logger.Debug("extract.pdf.raw_fallback", zap.String("file", doc.Filename), zap.Strings("warnings", res.Warnings))

	raw := rawPDFText(doc.Data)
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("no extractable text in pdf")
	}
	res.Method = "pdf-raw"
	res.Pages = 1
	res.Text = Normalize(raw)
	return nil
}

func (e *Extractor) pdfToText(ctx context.Context, data []byte) (string, int, error) {
	f, err := os.CreateTemp("", "priceintel-*.pdf")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("pdftotext: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", f.Name(), "-")
	if err != nil {
		return "", 0, toolErr("pdftotext", err, errb)
	}
	text := strings.TrimRight(string(out), "\f")
	// A form-feed \f is used as page separator by default
	return text, 1 + strings.Count(text, "\f"), nil
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

func labelPages(pages []string) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", i+1)
		b.WriteString(Normalize(p))
	}
	return b.String()
}

var (
	reStream    = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
	reTj        = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj`)
	reTJ        = regexp.MustCompile(`(?s)\[(.*?)\]\s*TJ`)
	reTJString  = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	reTextBlock = regexp.MustCompile(`(?s)BT(.*?)ET`)
)

// rawPDFText pulls literal strings shown by Tj/TJ out of every content stream,
// inflating Flate streams when possible.
func rawPDFText(data []byte) string {
	var chunks [][]byte
	for _, m := range reStream.FindAllSubmatch(data, -1) {
		if inflated, err := inflate(m[1]); err == nil {
			chunks = append(chunks, inflated)
		} else {
			chunks = append(chunks, m[1])
		}
	}
	if len(chunks) == 0 {
		chunks = append(chunks, data)
	}

	var lines []string
	for _, c := range chunks {
		for _, block := range reTextBlock.FindAllSubmatch(c, -1) {
			var line strings.Builder
			for _, tj := range reTj.FindAllSubmatch(block[1], -1) {
				line.WriteString(unescapePDF(string(tj[1])))
			}
			for _, arr := range reTJ.FindAllSubmatch(block[1], -1) {
				for _, s := range reTJString.FindAllSubmatch(arr[1], -1) {
					line.WriteString(unescapePDF(string(s[1])))
				}
			}
			if l := strings.TrimSpace(line.String()); l != "" {
				lines = append(lines, l)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func inflate(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, 32<<20))
}

var pdfEscapes = strings.NewReplacer(`\n`, "\n", `\r`, "", `\t`, " ", `\(`, "(", `\)`, ")", `\\`, `\`)

func unescapePDF(s string) string {
	return pdfEscapes.Replace(s)
}
