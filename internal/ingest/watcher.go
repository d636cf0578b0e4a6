package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/constants"
	"github.com/joseph-ayodele/price-intel/internal/extract"
)

type WatchConfig struct {
	Root       string
	SkipHidden bool
	// Debounce coalesces bursts of writes (copies, editor saves) into one batch.
	Debounce time.Duration
}

// Watch emits batches of documents that were created or written under
// cfg.Root (recursively) after it returned. Directories created later are
// watched too. The channel closes when ctx is done.
func Watch(ctx context.Context, cfg WatchConfig, logger *zap.Logger) (<-chan []extract.Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Root == "" {
		return nil, errors.New("root path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addTree(w, cfg.Root, cfg.SkipHidden); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan []extract.Document)
	go func() {
		defer close(out)
		defer func() { _ = w.Close() }()

		pending := map[string]struct{}{}
		timer := time.NewTimer(cfg.Debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && isHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := addTree(w, e.Name, cfg.SkipHidden); err != nil {
							logger.Warn("ingest.watch.add_dir_failed", zap.String("path", e.Name), zap.Error(err))
						}
						continue
					}
				}
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				if !constants.IsAllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				pending[e.Name] = struct{}{}
				timer.Reset(cfg.Debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("ingest.watch.error", zap.Error(err))
			case <-timer.C:
				docs := readPending(cfg.Root, pending, logger)
				clear(pending)
				if len(docs) == 0 {
					continue
				}
				logger.Info("ingest.watch.batch", zap.Int("files", len(docs)))
				select {
				case out <- docs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func addTree(w *fsnotify.Watcher, root string, skipHidden bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if skipHidden && path != root && isHidden(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// readPending reads the collected paths in sorted order. Files that vanished
// or cannot be read are skipped.
func readPending(root string, pending map[string]struct{}, logger *zap.Logger) []extract.Document {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	docs := make([]extract.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("ingest.watch.read_failed", zap.String("path", p), zap.Error(err))
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		docs = append(docs, extract.Document{Filename: filepath.ToSlash(rel), Data: data})
	}
	return docs
}
