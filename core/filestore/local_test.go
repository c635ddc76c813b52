package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/you-humble/sttqueue/core/domain"
)

func newTestStore(t *testing.T) *localStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	return s
}

// TestSaveUniqueSuffixes verifies repeated uploads get increasing suffixes
// and never overwrite earlier content.
func TestSaveUniqueSuffixes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := []string{"lecture.mp4", "lecture(1).mp4", "lecture(2).mp4", "lecture(3).mp4"}
	for i, name := range want {
		body := strings.Repeat(string(rune('a'+i)), 10)
		saved, err := s.SaveUnique(ctx, strings.NewReader(body), "20250730", "lecture.mp4")
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if saved.Stored != name {
			t.Fatalf("save %d stored = %q, want %q", i, saved.Stored, name)
		}
		if saved.Name != "20250730/"+name {
			t.Fatalf("save %d name = %q", i, saved.Name)
		}
		if saved.Written != 10 {
			t.Fatalf("save %d written = %d", i, saved.Written)
		}
	}

	for i, name := range want {
		data, err := os.ReadFile(filepath.Join(s.BaseDir(), "20250730", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if got := string(data); got != strings.Repeat(string(rune('a'+i)), 10) {
			t.Fatalf("%s content = %q", name, got)
		}
	}
}

// TestSaveUniqueConcurrent checks concurrent uploads of one name stay distinct.
func TestSaveUniqueConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	names := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			saved, err := s.SaveUnique(ctx, bytes.NewReader([]byte{byte(i)}), "20250730", "same.wav")
			names[i], errs[i] = saved.Stored, err
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("save %d: %v", i, errs[i])
		}
		if seen[names[i]] {
			t.Fatalf("duplicate stored name %q", names[i])
		}
		seen[names[i]] = true
	}

	files, err := s.files(filepath.Join(s.BaseDir(), "20250730"), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != n {
		t.Fatalf("files = %v, want %d entries and no temp files", files, n)
	}
}

// TestSaveUniqueRejectsEmptyBody ensures no file is created for empty input.
func TestSaveUniqueRejectsEmptyBody(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveUnique(context.Background(), strings.NewReader(""), "20250730", "empty.mp4")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want invalid input", err)
	}

	entries, err := os.ReadDir(filepath.Join(s.BaseDir(), "20250730"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("leftover entries: %v", entries)
	}
}

// TestSaveOwnedSeparatesOwners gives each owner its own name and lets an
// owner replace only its own file.
func TestSaveOwnedSeparatesOwners(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	save := func(owner, body string) string {
		t.Helper()
		saved, err := s.SaveOwned(ctx, strings.NewReader(body), "20250730", "lecture.txt", owner)
		if err != nil {
			t.Fatalf("save %s: %v", owner, err)
		}
		return saved.Stored
	}

	if got := save("job-a", "first"); got != "lecture.txt" {
		t.Fatalf("job-a stored = %q", got)
	}
	if got := save("job-b", "second"); got != "lecture(1).txt" {
		t.Fatalf("job-b stored = %q", got)
	}
	if got := save("job-a", "first again"); got != "lecture.txt" {
		t.Fatalf("job-a rewrite stored = %q", got)
	}
	if got := save("job-c", ""); got != "lecture(2).txt" {
		t.Fatalf("job-c stored = %q", got)
	}

	want := map[string]string{
		"lecture.txt":    "first again",
		"lecture(1).txt": "second",
		"lecture(2).txt": "",
	}
	for name, body := range want {
		data, err := os.ReadFile(filepath.Join(s.BaseDir(), "20250730", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != body {
			t.Fatalf("%s content = %q, want %q", name, data, body)
		}
	}

	files, err := s.files(filepath.Join(s.BaseDir(), "20250730"), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(files, []string{"lecture(1).txt", "lecture(2).txt", "lecture.txt"}) {
		t.Fatalf("files = %v", files)
	}
}

// TestSaveOwnedSkipsUnownedFile leaves a file without an owner marker alone.
func TestSaveOwnedSkipsUnownedFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.Save(ctx, strings.NewReader("legacy"), "20250730/lecture.txt", -1); err != nil {
		t.Fatalf("seed: %v", err)
	}

	saved, err := s.SaveOwned(ctx, strings.NewReader("new"), "20250730", "lecture.txt", "job-a")
	if err != nil {
		t.Fatalf("save owned: %v", err)
	}
	if saved.Stored != "lecture(1).txt" {
		t.Fatalf("stored = %q", saved.Stored)
	}

	data, err := os.ReadFile(filepath.Join(s.BaseDir(), "20250730", "lecture.txt"))
	if err != nil || string(data) != "legacy" {
		t.Fatalf("legacy file = %q, %v", data, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

// TestSaveFailureLeavesNoFile verifies a failed write never exposes a partial file.
func TestSaveFailureLeavesNoFile(t *testing.T) {
	s := newTestStore(t)

	r := io.MultiReader(strings.NewReader("partial"), failingReader{})
	if _, _, err := s.Save(context.Background(), r, "20250730/out.txt", -1); err == nil {
		t.Fatal("expected save error")
	}

	if _, err := s.Open(context.Background(), "20250730/out.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("open error = %v, want not found", err)
	}
}

// TestOpenAndTree covers reads, listing filters and traversal rejection.
func TestOpenAndTree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"20250731/b.txt", "20250731/a.txt", "20250730/c.txt", "20250730/skip.log"} {
		if _, _, err := s.Save(ctx, strings.NewReader(name), name, -1); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.BaseDir(), "20250801"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	obj, err := s.Open(ctx, "20250731/a.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(obj.Content)
	obj.Content.Close()
	if string(data) != "20250731/a.txt" || obj.Size != int64(len(data)) {
		t.Fatalf("content = %q size = %d", data, obj.Size)
	}

	txt := func(name string) bool { return strings.HasSuffix(name, ".txt") }

	tree, err := s.Tree(txt, true)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	want := map[string][]string{
		"20250730": {"c.txt"},
		"20250731": {"a.txt", "b.txt"},
	}
	if !reflect.DeepEqual(tree, want) {
		t.Fatalf("tree = %v, want %v", tree, want)
	}

	full, err := s.Tree(txt, false)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if files, ok := full["20250801"]; !ok || len(files) != 0 {
		t.Fatalf("empty partition missing: %v", full)
	}

	if _, err := s.Open(ctx, "../outside.txt"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}
