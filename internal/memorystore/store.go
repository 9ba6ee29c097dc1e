// Package memorystore persists learning entries in an append-only,
// human-readable markdown file.
//
// Each entry is a block:
//
//	## Correction: Use approach B instead of approach A
//	**Date:** 2026-10-16
//	**Confidence:** HIGH
//	**Context:** Applies when choosing between approach A and approach B.
//
//	Use approach B instead of approach A. ...
//
//	---
//
// Appends hold an exclusive lock on a sibling ".lock" file and replace the
// store with a temp file via rename, so lock-free readers only ever see a
// complete file.
package memorystore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
)

// ErrEmptyPath indicates the store was created without a location.
var ErrEmptyPath = errors.New("memory store path cannot be empty")

// FileStore is a learning.Store backed by a single markdown file.
type FileStore struct {
	path   string
	logger *logging.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l.Named("memorystore")
		}
	}
}

// NewFileStore creates a store at path. A leading "~/" is expanded to the
// user's home directory. The file is not created until the first append.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}

	s := &FileStore{path: abs, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the absolute location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// LoadAll reads every entry in append order. A missing file is an empty
// store.
func (s *FileStore) LoadAll(ctx context.Context) ([]learning.LearningEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug(ctx, "memory store absent, treating as empty", zap.String("path", s.path))
			return []learning.LearningEntry{}, nil
		}
		return nil, &learning.StoreReadError{Path: s.path, Err: err}
	}

	entries, err := DecodeEntries(bytes.NewReader(data))
	if err != nil {
		readErr := &learning.StoreReadError{Path: s.path, Err: err}
		var pe *parseError
		if errors.As(err, &pe) {
			readErr.Line = pe.line
			readErr.Err = pe.err
		}
		return nil, readErr
	}
	if entries == nil {
		entries = []learning.LearningEntry{}
	}

	s.logger.Debug(ctx, "memory store loaded",
		zap.String("path", s.path),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// Append persists entry as a new block at the end of the store. The write is
// all-or-nothing: on failure the store is left exactly as it was.
func (s *FileStore) Append(ctx context.Context, entry learning.LearningEntry) error {
	if err := ctx.Err(); err != nil {
		return s.writeErr(entry, err)
	}

	block, err := EncodeEntry(entry)
	if err != nil {
		return s.writeErr(entry, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return s.writeErr(entry, fmt.Errorf("creating store directory: %w", err))
	}

	release, err := lockFile(s.path + ".lock")
	if err != nil {
		return s.writeErr(entry, err)
	}
	defer func() {
		if err := release(); err != nil {
			s.logger.Warn(ctx, "failed to release store lock", zap.Error(err))
		}
	}()

	existing, mode, err := readExisting(s.path)
	if err != nil {
		return s.writeErr(entry, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(existing) + len(block) + 1)
	buf.Write(existing)
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	if len(existing) > 0 {
		buf.WriteByte('\n')
	}
	buf.Write(block)

	if err := writeAtomic(s.path, buf.Bytes(), mode); err != nil {
		return s.writeErr(entry, err)
	}

	s.logger.Debug(ctx, "entry appended",
		zap.String("path", s.path),
		zap.String("title", entry.Title),
		zap.String("confidence", string(entry.Confidence)),
	)
	return nil
}

func (s *FileStore) writeErr(entry learning.LearningEntry, err error) error {
	return &learning.StoreWriteError{Path: s.path, Title: entry.Title, Err: err}
}

// readExisting returns the current store content and file mode. A missing
// file yields empty content and 0600.
func readExisting(path string) ([]byte, os.FileMode, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0600, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("stat store: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading store: %w", err)
	}
	return data, info.Mode().Perm(), nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	tmpPath := path + ".tmp." + randomSuffix()
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Atomic rename (prevents partial read)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing store: %w", err)
	}

	syncDir(filepath.Dir(path))
	return nil
}

// syncDir makes the rename durable. Best-effort: some platforms cannot
// fsync directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// randomSuffix generates a random suffix for temp files.
func randomSuffix() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Ensure FileStore implements learning.Store.
var _ learning.Store = (*FileStore)(nil)
