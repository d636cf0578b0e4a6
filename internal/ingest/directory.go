package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/extract"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// LoadDirectory walks root and reads every file with an allowed extension.
// Unreadable files are counted and skipped; hidden entries are skipped when
// requested. Documents are returned sorted by path.
func LoadDirectory(root string, skipHidden bool) ([]extract.Document, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)

	docs := make([]extract.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			stats.Failed++
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		docs = append(docs, extract.Document{Filename: filepath.ToSlash(rel), Data: data})
	}
	return docs, stats, nil
}

// Batches splits docs into consecutive groups of at most size documents.
func Batches(docs []extract.Document, size int) [][]extract.Document {
	if size <= 0 {
		size = constants.DefaultMaxFiles
	}
	var out [][]extract.Document
	for len(docs) > 0 {
		n := min(size, len(docs))
		out = append(out, docs[:n])
		docs = docs[n:]
	}
	return out
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
