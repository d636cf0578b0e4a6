package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// box-drawing and pipe runs tesseract emits for table borders
var reBoxNoise = regexp.MustCompile(`[│┃|]{2,}|[─━_]{4,}`)

// pdfOCR renders pages with pdftoppm and runs tesseract on each. Pages are
// joined with form feeds; a page that fails OCR is skipped.
func (e *Extractor) pdfOCR(ctx context.Context, data []byte) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "priceintel-ocr-*")
	if err != nil {
		return "", 0, err
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", 0, err
	}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, in, prefix)...); err != nil {
		return "", 0, toolErr("pdftoppm", err, errb)
	}

	images, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(images, func(i, j int) bool { return pageNumber(images[i]) < pageNumber(images[j]) })
	if len(images) == 0 {
		return "", 0, fmt.Errorf("pdftoppm produced no images")
	}

	pages := make([]string, 0, len(images))
	var failed int
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			failed++
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	if failed == len(images) {
		return "", 0, fmt.Errorf("tesseract failed on all %d pages", failed)
	}
	return strings.Join(pages, "\f"), len(pages), nil
}

func (e *Extractor) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", toolErr("tesseract", err, errb)
	}
	return reBoxNoise.ReplaceAllString(string(out), " "), nil
}

// pageNumber reads N from ".../page-N.png". pdftoppm zero-pads to the page
// count width, so lexical order is not enough.
func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndexByte(base, '-')
	n, _ := strconv.Atoi(base[i+1:])
	return n
}
