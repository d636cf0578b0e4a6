package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxToolOutput caps what one pdftotext or tesseract call may write to stdout.
const maxToolOutput = 64 << 20

// Runner executes the external PDF tools (pdftotext, pdftoppm, tesseract).
// Tests replace it to avoid needing poppler or tesseract installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ToolError describes a failed external tool call. Missing is set when the
// binary is not on PATH, which callers report differently from a crash.
type ToolError struct {
	Tool     string
	Missing  bool
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	switch {
	case e.Missing:
		return e.Tool + " is not installed"
	case e.Stderr != "":
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
	default:
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
}

func (e *ToolError) Unwrap() error { return e.Err }

// toolErr normalizes a Runner failure. Errors that are already a ToolError
// pass through; stubbed runners return plain errors.
func toolErr(tool string, err error, stderr []byte) error {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Tool: tool, Err: err, Stderr: truncate(strings.TrimSpace(string(stderr)), 200)}
}

type execRunner struct {
	logger *zap.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	tool := toolName(name)
	if _, err := exec.LookPath(name); err != nil {
		r.logger.Warn("extract.tool.missing", zap.String("tool", tool), zap.Error(err))
		return nil, nil, &ToolError{Tool: tool, Missing: true, ExitCode: -1, Err: err}
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	out := &cappedBuffer{max: maxToolOutput}
	var errb bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &errb

	err := cmd.Run()
	took := time.Since(start)

	if err == nil && out.overflow {
		err = fmt.Errorf("output exceeds %d bytes", maxToolOutput)
	}
	if err != nil {
		te := &ToolError{Tool: tool, ExitCode: -1, Err: err, Stderr: truncate(strings.TrimSpace(errb.String()), 200)}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			te.ExitCode = exitErr.ExitCode()
		}
		r.logger.Warn("extract.tool.failed",
			zap.String("tool", tool),
			zap.Int("exit_code", te.ExitCode),
			zap.Int64("duration_ms", took.Milliseconds()),
			zap.String("stderr", truncate(errb.String(), 8<<10)),
			zap.Error(err),
		)
		return out.Bytes(), errb.Bytes(), te
	}

	r.logger.Debug("extract.tool.ok",
		zap.String("tool", tool),
		zap.Int64("duration_ms", took.Milliseconds()),
		zap.Int("stdout_bytes", out.Len()),
	)
	return out.Bytes(), errb.Bytes(), nil
}

// toolName strips a configured absolute path down to the binary name for logs.
func toolName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// cappedBuffer keeps the first max bytes and drops the rest. It reports full
// writes so the child process is not killed by a broken pipe.
type cappedBuffer struct {
	bytes.Buffer
	max      int
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.Len(); room < len(p) {
		b.overflow = true
		if room > 0 {
			b.Buffer.Write(p[:room])
		}
		return len(p), nil
	}
	return b.Buffer.Write(p)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
