package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// newTestStore returns a Store rooted in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestNewStore_CreatesEmptyNamespaces(t *testing.T) {
	store := newTestStore(t)

	for _, ns := range Namespaces() {
		dir := filepath.Join(store.Root(), ns.Dir())
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("namespace %s: stat error = %v", ns, err)
		}
		if !info.IsDir() {
			t.Errorf("namespace %s: %s is not a directory", ns, dir)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("namespace %s: readdir error = %v", ns, err)
		}
		if len(entries) != 0 {
			t.Errorf("namespace %s: got %d entries, want 0", ns, len(entries))
		}
	}
}

func TestNewStore_Idempotent(t *testing.T) {
	base := t.TempDir()
	first, err := NewStore(base, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := first.Write(NamespaceImage, "keep.png", []byte("data")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	second, err := NewStore(base, zerolog.Nop())
	if err != nil {
		t.Fatalf("second NewStore() error = %v", err)
	}
	if !second.Exists(NamespaceImage, "keep.png") {
		t.Error("existing entry should survive re-initialisation")
	}
	if second.Root() != filepath.Join(base, RootDirName) {
		t.Errorf("Root() = %q, want %q", second.Root(), filepath.Join(base, RootDirName))
	}
}

func TestNewStore_EmptyBasePath(t *testing.T) {
	if _, err := NewStore("", zerolog.Nop()); err == nil {
		t.Error("NewStore(\"\") should fail")
	}
}

func TestStore_Resolve(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name     string
		ns       Namespace
		filename string
		wantErr  error
		want     string
	}{
		{
			name:     "plain file",
			ns:       NamespaceImage,
			filename: "banner.png",
			want:     filepath.Join(store.Root(), "images", "banner.png"),
		},
		{
			name:     "nested template file",
			ns:       NamespaceTemplateMetadata,
			filename: "tpl-1/index.html",
			want:     filepath.Join(store.Root(), "templates", "tpl-1", "index.html"),
		},
		{
			name:     "invalid namespace",
			ns:       Namespace(0),
			filename: "x",
			wantErr:  ErrInvalidNamespace,
		},
		{
			name:     "empty name",
			ns:       NamespaceVideo,
			filename: "",
			wantErr:  ErrInvalidName,
		},
		{
			name:     "escaping name",
			ns:       NamespaceVideo,
			filename: "../images/banner.png",
			wantErr:  ErrInvalidName,
		},
		{
			name:     "namespace directory itself",
			ns:       NamespaceVideo,
			filename: ".",
			wantErr:  ErrInvalidName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Resolve(tt.ns, tt.filename)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStore_Exists(t *testing.T) {
	store := newTestStore(t)

	if err := store.Write(NamespaceScript, "full.js", []byte("console.log(1)")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	emptyPath, _ := store.Resolve(NamespaceScript, "empty.js")
	if err := os.WriteFile(emptyPath, nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	dirPath, _ := store.Resolve(NamespaceScript, "folder.js")
	if err := os.Mkdir(dirPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tests := []struct {
		filename string
		want     bool
	}{
		{"full.js", true},
		{"empty.js", false},
		{"missing.js", false},
		{"folder.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := store.Exists(NamespaceScript, tt.filename); got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestStore_WriteAndRead(t *testing.T) {
	store := newTestStore(t)
	payload := []byte("<html></html>")

	if err := store.Write(NamespaceHTML, "ad.html", payload); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := store.Read(NamespaceHTML, "ad.html")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Read() = %q, want %q", got, payload)
	}

	names, err := store.List(NamespaceHTML)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != "ad.html" {
		t.Errorf("List() = %v, want [ad.html] (no leftover temp files)", names)
	}
}

func TestStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	data, err := store.Read(NamespaceImage, "missing.png")
	if err == nil {
		t.Fatal("Read() of missing file should fail")
	}
	if data != nil {
		t.Errorf("Read() data = %v, want nil", data)
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("Read() error = %v, want ErrIO", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read() error = %v, want wrapped os.ErrNotExist", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "read" {
		t.Errorf("Read() error = %#v, want *OpError with Op read", err)
	}
}

func TestStore_ConcurrentReads(t *testing.T) {
	store := newTestStore(t)
	if err := store.Write(NamespaceImage, "shared.png", []byte("pixels")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := store.Read(NamespaceImage, "shared.png")
			if err != nil {
				errs <- err
				return
			}
			if string(data) != "pixels" {
				errs <- errors.New("unexpected content " + string(data))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestStore_List_SkipsHiddenAndInProgress(t *testing.T) {
	store := newTestStore(t)
	dir, _ := store.NamespaceDir(NamespaceVideo)

	for _, name := range []string{"b.mp4", "a.mp4", HiddenSentinel, "c.mp4" + InProgressSuffix} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	names, err := store.List(NamespaceVideo)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a.mp4", "b.mp4"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestStore_ListInvalidNamespace(t *testing.T) {
	store := newTestStore(t)
	names, err := store.List(Namespace(99))
	if !errors.Is(err, ErrInvalidNamespace) {
		t.Errorf("List() error = %v, want ErrInvalidNamespace", err)
	}
	if len(names) != 0 {
		t.Errorf("List() = %v, want empty", names)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	if err := store.Write(NamespaceTemplateMetadata, "tpl/a.html", []byte("a")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	filePath, _ := store.Resolve(NamespaceTemplateMetadata, "tpl/a.html")
	templatesDir, _ := store.NamespaceDir(NamespaceTemplateMetadata)

	tests := []struct {
		name        string
		path        string
		wantRemoved bool
		wantErr     error
	}{
		{"existing file", filePath, true, nil},
		{"already removed", filePath, false, nil},
		{"template subdirectory", filepath.Join(templatesDir, "tpl"), true, nil},
		{"namespace directory", templatesDir, false, ErrProtectedPath},
		{"cache root", store.Root(), false, ErrProtectedPath},
		{"outside root", filepath.Dir(store.Root()), false, ErrProtectedPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removed, err := store.Delete(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("Delete() unexpected error = %v", err)
			}
			if removed != tt.wantRemoved {
				t.Errorf("Delete() = %v, want %v", removed, tt.wantRemoved)
			}
		})
	}

	if _, err := os.Stat(templatesDir); err != nil {
		t.Errorf("namespace directory must survive: %v", err)
	}
}

func TestStore_FolderSizeIsRecursiveAndAdditive(t *testing.T) {
	store := newTestStore(t)
	writes := map[string]string{
		"tpl-1/index.html": "0123456789",
		"tpl-1/style.css":  "abc",
		"tpl-2/deep/x.js":  "abcdefg",
		"loose.json":       "{}",
	}
	for name, body := range writes {
		if err := store.Write(NamespaceTemplateMetadata, name, []byte(body)); err != nil {
			t.Fatalf("Write(%s) error = %v", name, err)
		}
	}

	dir, _ := store.NamespaceDir(NamespaceTemplateMetadata)
	total, err := store.FolderSize(dir)
	if err != nil {
		t.Fatalf("FolderSize() error = %v", err)
	}
	if total != 22 {
		t.Errorf("FolderSize() = %d, want 22", total)
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var sum int64
	for _, child := range children {
		size, err := store.FolderSize(filepath.Join(dir, child.Name()))
		if err != nil {
			t.Fatalf("FolderSize(%s) error = %v", child.Name(), err)
		}
		sum += size
	}
	if sum != total {
		t.Errorf("sum of children = %d, want %d", sum, total)
	}
}

func TestStore_FolderSizeMissingPath(t *testing.T) {
	store := newTestStore(t)
	size, err := store.FolderSize(filepath.Join(store.Root(), "nope"))
	if err == nil {
		t.Error("FolderSize() of missing path should fail")
	}
	if size != 0 {
		t.Errorf("FolderSize() = %d, want 0", size)
	}
}

func TestStore_FolderInfo(t *testing.T) {
	store := newTestStore(t)
	if err := store.Write(NamespaceImage, "a.png", []byte("1234")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Write(NamespaceImage, "b.png", []byte("56")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), LegacySentinel), []byte("id"), 0o644); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}

	info, err := store.FolderInfo()
	if err != nil {
		t.Fatalf("FolderInfo() error = %v", err)
	}
	if info.TotalSize != 8 {
		t.Errorf("TotalSize = %d, want 8", info.TotalSize)
	}
	if len(info.Children) != len(Namespaces())+1 {
		t.Errorf("len(Children) = %d, want %d", len(info.Children), len(Namespaces())+1)
	}

	var images *FolderEntry
	for i := range info.Children {
		if info.Children[i].Name == "images" {
			images = &info.Children[i]
		}
	}
	if images == nil {
		t.Fatal("images child missing from FolderInfo")
	}
	if images.Size != 6 || images.Entries != 2 {
		t.Errorf("images = %+v, want size 6 and 2 entries", *images)
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if string(decoded[FolderSizeKey]) != "8" {
		t.Errorf("%s = %s, want 8", FolderSizeKey, decoded[FolderSizeKey])
	}
	if string(decoded["images"]) != `{"size":6,"count":2}` {
		t.Errorf("images = %s, want {\"size\":6,\"count\":2}", decoded["images"])
	}
}
