package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/you-humble/sttqueue/core/domain"

	"github.com/google/uuid"
)

// maxCandidates bounds the "(n)" suffix scan of SaveUnique.
const maxCandidates = 100_000

type Object struct {
	Content io.ReadSeekCloser
	Size    int64
	ModTime time.Time
}

type Saved struct {
	// Name is the store key, "<dir>/<stored>".
	Name    string
	Stored  string
	Written int64
	Hash    string
}

type localStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*localStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir is empty")
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}

	return &localStore{baseDir: abs}, nil
}

func (s *localStore) BaseDir() string {
	return s.baseDir
}

// Save writes reader to filename through a temp file and a rename, so a
// reader never observes a partially written file.
func (s *localStore) Save(
	ctx context.Context,
	reader io.Reader,
	filename string,
	size int64,
) (int64, string, error) {
	select {
	case <-ctx.Done():
		return 0, "", ctx.Err()
	default:
	}

	fullPath, err := s.fullFilePath(filename)
	if err != nil {
		return 0, "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, "", fmt.Errorf("mkdir: %w", err)
	}

	tempPath, written, hash, err := s.writeTemp(filepath.Dir(fullPath), reader)
	if err != nil {
		return 0, "", err
	}
	defer os.Remove(tempPath)

	if err := os.Rename(tempPath, fullPath); err != nil {
		return 0, "", fmt.Errorf("rename temp file: %w", err)
	}

	return written, hash, nil
}

// SaveUnique stores reader under dir with the first free name among
// name, name(1), name(2), ... The content is fully written before the final
// name is claimed with a hard link, which fails if the name already exists,
// so concurrent writers never overwrite each other.
func (s *localStore) SaveUnique(
	ctx context.Context,
	reader io.Reader,
	dir, name string,
) (Saved, error) {
	select {
	case <-ctx.Done():
		return Saved{}, ctx.Err()
	default:
	}

	dirPath, err := s.fullFilePath(dir)
	if err != nil {
		return Saved{}, err
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return Saved{}, fmt.Errorf("mkdir: %w", err)
	}

	tempPath, written, hash, err := s.writeTemp(dirPath, reader)
	if err != nil {
		return Saved{}, err
	}
	defer os.Remove(tempPath)

	if written == 0 {
		return Saved{}, domain.Invalid("body is empty")
	}

	for n := 0; n < maxCandidates; n++ {
		candidate := Candidate(name, n)
		err := os.Link(tempPath, filepath.Join(dirPath, candidate))
		if err == nil {
			return Saved{
				Name:    filepath.ToSlash(filepath.Join(dir, candidate)),
				Stored:  candidate,
				Written: written,
				Hash:    hash,
			}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return Saved{}, fmt.Errorf("link %s: %w", candidate, err)
		}
	}

	return Saved{}, fmt.Errorf("no free name for %s in %s", name, dir)
}

// SaveOwned stores reader under dir with the first name among name, name(1),
// name(2), ... that is free or already owned by owner. Ownership is claimed
// by creating a hidden ".<name>.owner" marker with O_EXCL, so two owners
// never share a name, while the same owner writing again replaces its own
// file. An empty body is allowed.
func (s *localStore) SaveOwned(
	ctx context.Context,
	reader io.Reader,
	dir, name, owner string,
) (Saved, error) {
	select {
	case <-ctx.Done():
		return Saved{}, ctx.Err()
	default:
	}

	if owner == "" {
		return Saved{}, domain.Invalid("empty owner")
	}

	dirPath, err := s.fullFilePath(dir)
	if err != nil {
		return Saved{}, err
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return Saved{}, fmt.Errorf("mkdir: %w", err)
	}

	tempPath, written, hash, err := s.writeTemp(dirPath, reader)
	if err != nil {
		return Saved{}, err
	}
	defer os.Remove(tempPath)

	for n := 0; n < maxCandidates; n++ {
		candidate := Candidate(name, n)
		target := filepath.Join(dirPath, candidate)

		ok, err := claim(target, owner)
		if err != nil {
			return Saved{}, err
		}
		if !ok {
			continue
		}

		if err := os.Rename(tempPath, target); err != nil {
			return Saved{}, fmt.Errorf("rename temp file: %w", err)
		}
		return Saved{
			Name:    filepath.ToSlash(filepath.Join(dir, candidate)),
			Stored:  candidate,
			Written: written,
			Hash:    hash,
		}, nil
	}

	return Saved{}, fmt.Errorf("no free name for %s in %s", name, dir)
}

func ownerPath(target string) string {
	return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".owner")
}

// claim reports whether target may be written by owner.
func claim(target, owner string) (bool, error) {
	marker := ownerPath(target)

	f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		current, err := os.ReadFile(marker)
		if err != nil {
			return false, fmt.Errorf("read owner of %s: %w", filepath.Base(target), err)
		}
		return string(current) == owner, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", filepath.Base(target), err)
	}

	_, werr := f.WriteString(owner)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(marker)
		return false, fmt.Errorf("write owner of %s: %w", filepath.Base(target), werr)
	}

	// a file written without a marker belongs to nobody we know of
	if _, err := os.Lstat(target); err == nil {
		_ = os.Remove(marker)
		return false, nil
	}
	return true, nil
}

func (s *localStore) writeTemp(dir string, reader io.Reader) (string, int64, string, error) {
	f, err := os.CreateTemp(dir, ".part-"+uuid.NewString()+"-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()

	hasher := sha256.New()
	written, err := io.Copy(f, io.TeeReader(reader, hasher))
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return "", 0, "", fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", 0, "", fmt.Errorf("close file: %w", err)
	}

	return tempPath, written, hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *localStore) Open(ctx context.Context, filename string) (Object, error) {
	select {
	case <-ctx.Done():
		return Object{}, ctx.Err()
	default:
	}

	fullPath, err := s.fullFilePath(filename)
	if err != nil {
		return Object{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Object{}, fmt.Errorf("open %s: %w", filename, domain.ErrNotFound)
		}
		return Object{}, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Object{}, fmt.Errorf("open %s: %w", filename, domain.ErrNotFound)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return Object{}, fmt.Errorf("open file: %w", err)
	}

	return Object{Content: f, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *localStore) Delete(ctx context.Context, filename string) error {
	fullPath, err := s.fullFilePath(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	_ = os.Remove(ownerPath(fullPath))
	return nil
}

// Path resolves filename to an absolute path inside the store.
func (s *localStore) Path(filename string) (string, error) {
	return s.fullFilePath(filename)
}

// Tree lists every first-level directory with its sorted files accepted by
// keep. Directories without accepted files are omitted when skipEmpty is set.
func (s *localStore) Tree(keep func(name string) bool, skipEmpty bool) (map[string][]string, error) {
	dirs, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read base dir: %w", err)
	}

	tree := make(map[string][]string)
	for _, d := range dirs {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		files, err := s.files(filepath.Join(s.baseDir, d.Name()), keep)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 && skipEmpty {
			continue
		}
		tree[d.Name()] = files
	}

	return tree, nil
}

// Files lists the sorted regular files directly under the base dir.
func (s *localStore) Files(keep func(name string) bool) ([]string, error) {
	return s.files(s.baseDir, keep)
}

func (s *localStore) files(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if keep != nil && !keep(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	return files, nil
}

func (s *localStore) fullFilePath(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", domain.Invalid("empty filename")
	}

	clean := filepath.Clean(filename)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", domain.Invalid("invalid filename: %s", filename)
	}

	return filepath.Join(s.baseDir, clean), nil
}

// OpenReader adapts Open for the replicator.
func (s *localStore) OpenReader(ctx context.Context, filename string) (io.ReadCloser, int64, error) {
	obj, err := s.Open(ctx, filename)
	if err != nil {
		return nil, 0, err
	}
	return obj.Content, obj.Size, nil
}
