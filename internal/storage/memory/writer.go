// Package memory keeps deployed files and metadata rows in process memory.
// It backs the simulated deployment target and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Writer is the simulated deployment target. Files live under a virtual root.
type Writer struct {
	mu    sync.RWMutex
	root  string
	files map[string][]byte
	fail  map[string]error
}

// NewWriter creates a simulated target rooted at root (display only).
func NewWriter(root string) *Writer {
	if root == "" {
		root = "memory://production"
	}
	return &Writer{
		root:  strings.TrimRight(root, "/"),
		files: make(map[string][]byte),
		fail:  make(map[string]error),
	}
}

// Write stores a copy of content at path.
func (w *Writer) Write(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.fail[path]; ok {
		return fmt.Errorf("write %s/%s: %w", w.root, path, err)
	}
	w.files[path] = append([]byte(nil), content...)
	return nil
}

// Exists reports whether path has been written.
func (w *Writer) Exists(_ context.Context, path string) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[path]
	return ok, nil
}

// Cleanup drops every file from earlier runs.
func (w *Writer) Cleanup(_ context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.files)
	w.files = make(map[string][]byte)
	return n, nil
}

// FailOn makes every later write to path return err.
func (w *Writer) FailOn(path string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail[path] = err
}

// File returns a copy of the stored content of path.
func (w *Writer) File(path string) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.files[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Paths lists stored paths in lexical order.
func (w *Writer) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Root returns the virtual root of the target.
func (w *Writer) Root() string {
	return w.root
}
