package cache

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
)

// FolderSizeKey is the JSON key carrying the total root size in a FolderInfo.
const FolderSizeKey = ".chartboost-internal-folder-size"

// FolderEntry describes one immediate child of the cache root.
type FolderEntry struct {
	Name    string `json:"-"`
	Size    int64  `json:"size"`
	Entries int    `json:"count"`
}

// FolderInfo is a point-in-time snapshot of the cache root.
type FolderInfo struct {
	TotalSize int64
	Children  []FolderEntry
}

// MarshalJSON emits the total under FolderSizeKey and every child keyed by name.
func (f FolderInfo) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Children)+1)
	for _, child := range f.Children {
		out[child.Name] = child
	}
	out[FolderSizeKey] = f.TotalSize
	return json.Marshal(out)
}

// FolderSize returns the recursive size of every regular file under path.
// A path naming a regular file yields that file's size. Entries that
// cannot be read are logged and skipped.
func (s *Store) FolderSize(path string) (int64, error) {
	if _, err := os.Lstat(path); err != nil {
		return 0, s.fail("size", path, err)
	}

	var total int64
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn().Err(err).Str("path", p).Msg("Skipping unreadable cache entry")
			if d != nil && d.IsDir() && p != path {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.logger.Warn().Err(err).Str("path", p).Msg("Skipping unreadable cache entry")
			return nil
		}
		total += info.Size()
		return nil
	})
	if walkErr != nil {
		return total, s.fail("size", path, walkErr)
	}
	observeOp("size", nil)
	return total, nil
}

// FolderInfo reports the total root size and, for every immediate child of
// the root, its recursive size and direct entry count.
func (s *Store) FolderInfo() (FolderInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return FolderInfo{}, s.fail("info", s.root, err)
	}

	info := FolderInfo{Children: make([]FolderEntry, 0, len(entries))}
	for _, entry := range entries {
		childPath := filepath.Join(s.root, entry.Name())
		size, err := s.FolderSize(childPath)
		if err != nil {
			continue
		}

		count := 0
		if entry.IsDir() {
			children, err := os.ReadDir(childPath)
			if err != nil {
				s.fail("info", childPath, err)
			}
			count = len(children)
		}

		info.Children = append(info.Children, FolderEntry{
			Name:    entry.Name(),
			Size:    size,
			Entries: count,
		})
		info.TotalSize += size
		FolderBytes.WithLabelValues(entry.Name()).Set(float64(size))
	}

	observeOp("info", nil)
	return info, nil
}
