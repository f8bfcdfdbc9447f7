package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// RootDirName is the directory created under the base path that owns
	// every namespace directory.
	RootDirName = ".chartboost"

	// HiddenSentinel is never reported by List.
	HiddenSentinel = ".nomedia"

	// InProgressSuffix marks files still being written.
	InProgressSuffix = ".tmp"
)

// Store is the directory-backed asset cache. It keeps no in-memory index:
// every call goes to the filesystem, so a Store can be shared freely
// between goroutines. Only Read is serialized.
type Store struct {
	root   string
	logger zerolog.Logger

	readMu sync.Mutex
}

// NewStore creates the cache root under basePath and every namespace
// directory inside it. Existing directories are left untouched.
// Only a failure to create the root itself is returned; a namespace
// directory that cannot be created is logged and retried lazily by Write.
func NewStore(basePath string, logger zerolog.Logger) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("cache base path is required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve cache base path: %w", err)
	}

	root := filepath.Join(abs, RootDirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &OpError{Op: "init", Path: root, Err: err}
	}

	s := &Store{
		root:   root,
		logger: logger.With().Str("component", "cache").Logger(),
	}

	for _, ns := range Namespaces() {
		dir := filepath.Join(root, ns.Dir())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.fail("init", dir, err)
		}
	}

	return s, nil
}

// Root returns the absolute cache root directory.
func (s *Store) Root() string {
	return s.root
}

// NamespaceDir returns the absolute directory of ns.
func (s *Store) NamespaceDir(ns Namespace) (string, error) {
	if !ns.Valid() {
		return "", ErrInvalidNamespace
	}
	return filepath.Join(s.root, ns.Dir()), nil
}

// Resolve returns the absolute path of filename inside ns.
// filename may contain subdirectories but must stay inside the namespace.
func (s *Store) Resolve(ns Namespace, filename string) (string, error) {
	dir, err := s.NamespaceDir(ns)
	if err != nil {
		return "", err
	}
	if filename == "" {
		return "", ErrInvalidName
	}

	full := filepath.Join(dir, filepath.FromSlash(filename))
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidName
	}
	return full, nil
}

// Exists reports whether the entry is a regular, non-empty file.
// Any failure is treated as "not cached".
func (s *Store) Exists(ns Namespace, filename string) bool {
	path, err := s.Resolve(ns, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.fail("exists", path, err)
		}
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// Write stores data as ns/filename. Data goes to a temporary file carrying
// InProgressSuffix and is renamed into place once complete.
func (s *Store) Write(ns Namespace, filename string, data []byte) error {
	path, err := s.Resolve(ns, filename)
	if err != nil {
		observeOp("write", err)
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.fail("write", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*"+InProgressSuffix)
	if err != nil {
		return s.fail("write", path, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return s.fail("write", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return s.fail("write", path, err)
	}

	StoreBytesWritten.Add(float64(len(data)))
	observeOp("write", nil)
	s.logger.Debug().
		Str("namespace", ns.Dir()).
		Str("file", filename).
		Int("bytes", len(data)).
		Msg("Cached asset")
	return nil
}

// Read returns the content of ns/filename. Reads are serialized per Store.
func (s *Store) Read(ns Namespace, filename string) ([]byte, error) {
	path, err := s.Resolve(ns, filename)
	if err != nil {
		observeOp("read", err)
		return nil, err
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, s.fail("read", path, err)
	}
	observeOp("read", nil)
	return data, nil
}

// Delete removes the file or directory tree at path and reports whether
// anything was removed. path must lie inside the cache root; the root and
// the namespace directories themselves are protected.
func (s *Store) Delete(path string) (bool, error) {
	clean := filepath.Clean(path)
	if !s.deletable(clean) {
		observeOp("delete", ErrProtectedPath)
		return false, &OpError{Op: "delete", Path: clean, Err: ErrProtectedPath}
	}

	if _, err := os.Lstat(clean); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			observeOp("delete", nil)
			return false, nil
		}
		return false, s.fail("delete", clean, err)
	}

	if err := os.RemoveAll(clean); err != nil {
		return false, s.fail("delete", clean, err)
	}
	observeOp("delete", nil)
	return true, nil
}

// List returns the sorted file names stored directly in ns, skipping the
// hidden sentinel and in-progress writes.
func (s *Store) List(ns Namespace) ([]string, error) {
	dir, err := s.NamespaceDir(ns)
	if err != nil {
		observeOp("list", err)
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, s.fail("list", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == HiddenSentinel || strings.HasSuffix(name, InProgressSuffix) {
			continue
		}
		names = append(names, name)
	}
	observeOp("list", nil)
	return names, nil
}

func (s *Store) deletable(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if _, isNamespace := ParseNamespace(rel); isNamespace {
		return false
	}
	return true
}

// fail logs a failed operation and wraps it as an OpError.
func (s *Store) fail(op, path string, err error) error {
	observeOp(op, err)
	s.logger.Warn().
		Err(err).
		Str("operation", op).
		Str("path", path).
		Msg("Cache operation failed")
	return &OpError{Op: op, Path: path, Err: err}
}
