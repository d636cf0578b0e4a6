package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecRunner_MissingTool(t *testing.T) {
	r := execRunner{logger: zap.NewNop()}

	_, _, err := r.Run(context.Background(), "/nonexistent/bin/pdftotext", "-v")

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Missing)
	assert.Equal(t, "pdftotext", te.Tool)
	assert.EqualError(t, err, "pdftotext is not installed")
}

func TestExecRunner_ExitCodeAndStderr(t *testing.T) {
	r := execRunner{logger: zap.NewNop()}

	out, _, err := r.Run(context.Background(), "sh", "-c", "printf partial; echo 'Syntax Error' >&2; exit 3")

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Missing)
	assert.Equal(t, 3, te.ExitCode)
	assert.Equal(t, "Syntax Error", te.Stderr)
	assert.Equal(t, "partial", string(out))
}

func TestToolErr_WrapsPlainErrors(t *testing.T) {
	err := toolErr("tesseract", errors.New("exit status 1"), []byte("  Error opening data file\n"))
	assert.EqualError(t, err, "tesseract: exit status 1: Error opening data file")

	missing := &ToolError{Tool: "pdftoppm", Missing: true}
	assert.Same(t, missing, toolErr("pdftoppm", missing, nil))
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 4}

	n, err := b.Write([]byte("abcdef"))

	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.True(t, b.overflow)
	assert.Equal(t, "abcd", b.String())
}
