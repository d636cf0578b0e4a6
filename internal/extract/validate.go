package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/common"
)

// Limits bounds what a single batch may contain.
type Limits struct {
	MaxFileBytes int64
	MaxFiles     int
	// AllowedExt overrides constants.AllowedExtensions when non-empty.
	AllowedExt map[string]struct{}
}

// DefaultLimits returns 10MB per file and 5 files per batch.
func DefaultLimits() Limits {
	return Limits{MaxFileBytes: constants.DefaultMaxFileBytes, MaxFiles: constants.DefaultMaxFiles}
}

// Rejection is a file refused before any parser touched it.
type Rejection struct {
	Filename string
	Err      *common.AppError
}

// ValidateBatch splits docs into accepted and rejected files. It inspects only
// names and sizes. Files past MaxFiles and repeated names (case-insensitive)
// are rejected; the first occurrence of a name is kept.
func ValidateBatch(docs []Document, limits Limits) (accepted []Document, rejected []Rejection) {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = constants.DefaultMaxFileBytes
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = constants.DefaultMaxFiles
	}
	allowed := limits.AllowedExt
	if len(allowed) == 0 {
		allowed = constants.AllowedExtensions
	}

	seen := make(map[string]struct{}, len(docs))
	reject := func(d Document, msg string) {
		rejected = append(rejected, Rejection{Filename: d.Filename, Err: common.NewValidationError(msg, common.ErrValidation)})
	}

	for i, d := range docs {
		name := strings.TrimSpace(d.Filename)
		if i >= limits.MaxFiles {
			reject(d, fmt.Sprintf("batch exceeds %d files", limits.MaxFiles))
			continue
		}
		if name == "" {
			reject(d, "filename is required")
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			reject(d, fmt.Sprintf("duplicate filename %q in batch", name))
			continue
		}
		seen[key] = struct{}{}

		ext := constants.NormalizeExt(filepath.Ext(name))
		if _, ok := allowed[ext]; !ok {
			reject(d, fmt.Sprintf("extension %q is not allowed", ext))
			continue
		}
		if d.Size() == 0 {
			reject(d, "file is empty")
			continue
		}
		if d.Size() > limits.MaxFileBytes {
			reject(d, fmt.Sprintf("file size %d exceeds limit of %d bytes", d.Size(), limits.MaxFileBytes))
			continue
		}
		accepted = append(accepted, d)
	}
	return accepted, rejected
}
