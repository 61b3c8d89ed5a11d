package drafts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/maskedit/internal/logger"
)

// FileStore keeps one JSON document per draft under a directory. Every write
// goes to a temp file renamed over the target, so a crash never leaves a
// partially written draft behind.
type FileStore struct {
	dir string
	log *zap.Logger
	mu  sync.Mutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create draft directory: %w", err)
	}
	return &FileStore{dir: dir, log: logger.Named(log, "drafts.file")}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) read(id string) (Draft, error) {
	if err := checkID(id); err != nil {
		return Draft{}, ErrNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, err
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft %s: %w", id, err)
	}
	if d.Masks == nil {
		d.Masks = map[Category]string{}
	}
	return d, nil
}

func (s *FileStore) write(d Draft) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.ID, err)
	}
	f, err := os.CreateTemp(s.dir, ".draft-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path(d.ID)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *FileStore) Add(ctx context.Context, d Draft) (Draft, error) {
	out, err := s.AddMany(ctx, []Draft{d})
	if err != nil {
		return Draft{}, err
	}
	return out[0], nil
}

func (s *FileStore) AddMany(_ context.Context, ds []Draft) ([]Draft, error) {
	if err := ValidateBatch(ds); err != nil {
		return nil, err
	}
	ts := now()
	out := make([]Draft, 0, len(ds))
	for _, d := range ds {
		p, err := prepare(d, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range out {
		if err := s.write(d); err != nil {
			for _, done := range out[:i] {
				_ = os.Remove(s.path(done.ID))
			}
			return nil, err
		}
	}
	s.log.Debug("drafts added", zap.Int("count", len(out)))
	return out, nil
}

func (s *FileStore) Get(_ context.Context, id string) (Draft, error) {
	return s.read(id)
}

func (s *FileStore) List(_ context.Context) ([]Draft, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Draft
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		d, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.log.Warn("skipping unreadable draft", zap.String("file", name), zap.Error(err))
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Draft) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *FileStore) Update(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, err := s.read(d.ID)
	if err != nil {
		return err
	}
	d.CreatedAt = old.CreatedAt
	p, err := prepare(d, now())
	if err != nil {
		return err
	}
	return s.write(p)
}

func (s *FileStore) Remove(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Clear(ctx context.Context) error {
	list, err := s.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range list {
		if err := os.Remove(s.path(d.ID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *FileStore) GetMask(_ context.Context, id string, c Category) (string, bool, error) {
	if err := checkCategory(c); err != nil {
		return "", false, err
	}
	d, err := s.read(id)
	if err != nil {
		return "", false, err
	}
	v, ok := d.Mask(c)
	return v, ok, nil
}

func (s *FileStore) SetMask(_ context.Context, id string, c Category, encoded string) error {
	if err := checkCategory(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.read(id)
	if err != nil {
		return err
	}
	if encoded == "" {
		delete(d.Masks, c)
	} else {
		d.Masks[c] = encoded
	}
	d.UpdatedAt = now()
	return s.write(d)
}

func (s *FileStore) Close() error { return nil }
