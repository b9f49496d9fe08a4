// Package download exports captured subtitles from the store to plain files
// on disk.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"subsniff/internal/store"
	"subsniff/pkg/log"
)

const maxConcurrentSaves = 4

type Manager struct {
	store *store.Store
	dir   string
}

func NewManager(st *store.Store, dir string) *Manager {
	return &Manager{store: st, dir: dir}
}

// Save writes one capture to the download directory and returns the file
// path. An already existing file is left alone; saving the same capture
// twice is a no-op, not an error.
func (m *Manager) Save(ctx context.Context, name string) (string, error) {
	capture, ok, err := m.store.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("load capture %q: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("capture %q not found", name)
	}
	return m.write(capture)
}

func (m *Manager) write(capture store.Capture) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	path := filepath.Join(m.dir, capture.Name)
	if _, err := os.Stat(path); err == nil {
		log.Debug("skipping %s, file already exists", capture.Name)
		return path, nil
	}
	if err := os.WriteFile(path, capture.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", capture.Name, err)
	}
	log.Info("saved %s (%d bytes)", path, len(capture.Data))
	return path, nil
}

// BatchResult summarizes a SaveAll run. Per-capture failures are collected
// rather than aborting the batch.
type BatchResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// SaveAll exports every stored capture with bounded concurrency.
func (m *Manager) SaveAll(ctx context.Context) (BatchResult, error) {
	captures, err := m.store.List(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list captures: %w", err)
	}

	var (
		mu     sync.Mutex
		result BatchResult
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSaves)
	for _, capture := range captures {
		capture := capture
		g.Go(func() error {
			_, err := m.Save(ctx, capture.Name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, err.Error())
				return nil
			}
			result.Succeeded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}
