package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/price-intel/constants"
)

type stubRunner struct {
	out  string
	err  error
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.args = append([]string{name}, args...)
	if s.err != nil {
		return nil, []byte("boom"), s.err
	}
	return []byte(s.out), nil, nil
}

const rawPDF = "%PDF-1.4\n1 0 obj\n<< /Length 80 >>\nstream\nBT /F1 12 Tf 72 712 Td (Steckdose setzen 45,00 EUR) Tj ET\nBT [(Kabel ) -20 (verlegen)] TJ ET\nendstream\nendobj\n%%EOF"

func newPDFExtractor(pages func([]byte, int) ([]string, error), r Runner) *Extractor {
	e := NewExtractor(Config{Pdftotext: "pdftotext"}, nil).WithRunner(r)
	e.pages = pages
	return e
}

func TestExtractPDF_PageLabels(t *testing.T) {
	e := newPDFExtractor(func([]byte, int) ([]string, error) {
		return []string{"Angebot Nr. 1", "Summe  540,00"}, nil
	}, &stubRunner{err: errors.New("unused")})

	res := e.Extract(context.Background(), Document{Filename: "a.pdf", Data: []byte(rawPDF)})

	require.False(t, res.Failed())
	assert.Equal(t, constants.PDF, res.Format)
	assert.Equal(t, "fitz", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "--- Page 1 ---\nAngebot Nr. 1\n\n--- Page 2 ---\nSumme 540,00", res.Text)
}

func TestExtractPDF_FallsBackToPdftotext(t *testing.T) {
	runner := &stubRunner{out: "Seite eins\fSeite zwei\f"}
	e := newPDFExtractor(func([]byte, int) ([]string, error) {
		return nil, errors.New("cannot open document")
	}, runner)

	res := e.Extract(context.Background(), Document{Filename: "a.pdf", Data: []byte(rawPDF)})

	require.False(t, res.Failed())
	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "--- Page 2 ---\nSeite zwei")
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix"}, runner.args[:6])
	assert.Contains(t, res.Warnings, "fitz: cannot open document")
}

func TestExtractPDF_RawScanFallback(t *testing.T) {
	e := newPDFExtractor(func([]byte, int) ([]string, error) {
		return nil, errors.New("broken xref")
	}, &stubRunner{err: errors.New("exit status 1")})

	res := e.Extract(context.Background(), Document{Filename: "a.pdf", Data: []byte(rawPDF)})

	require.False(t, res.Failed())
	assert.Equal(t, "pdf-raw", res.Method)
	assert.Equal(t, "Steckdose setzen 45,00 EUR\nKabel verlegen", res.Text)
}

func TestExtractPDF_AllStrategiesFail(t *testing.T) {
	e := newPDFExtractor(func([]byte, int) ([]string, error) {
		return nil, errors.New("broken")
	}, &stubRunner{err: errors.New("exit status 1")})

	res := e.Extract(context.Background(), Document{Filename: "scan.pdf", Data: []byte("%PDF-1.4\n%%EOF")})

	require.True(t, res.Failed())
	assert.Equal(t, "[extraction failed for scan.pdf: no extractable text in pdf]", res.Text)
}
