package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledass/Auto-accepting-repo/internal/domain"
)

// FileRepo keeps the user set in memory and mirrors it to a single JSON file
// holding a list of integers. The file is rewritten in full on every new
// registration (temp file + rename), so a reader never sees a torn list.
type FileRepo struct {
	path string

	mu    sync.Mutex
	ids   []domain.UserID
	index map[domain.UserID]struct{}
}

// OpenFile loads the list at path. A missing file is an empty store.
func OpenFile(path string) (*FileRepo, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("users file path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	r := &FileRepo{path: path, index: map[domain.UserID]struct{}{}}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return r, nil
	case err != nil:
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return r, nil
	}

	var list []int64
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, v := range list {
		id := domain.UserID(v)
		if _, dup := r.index[id]; dup {
			continue
		}
		r.index[id] = struct{}{}
		r.ids = append(r.ids, id)
	}
	return r, nil
}

// Close is a no-op; every mutation is already on disk.
func (r *FileRepo) Close() error { return nil }

func (r *FileRepo) Contains(_ context.Context, id domain.UserID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.index[id]
	return ok, nil
}

// Add persists before returning. If the write fails the id is dropped from
// memory again and the error is returned.
func (r *FileRepo) Add(_ context.Context, id domain.UserID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[id]; ok {
		return false, nil
	}

	r.index[id] = struct{}{}
	r.ids = append(r.ids, id)
	if err := r.persistLocked(); err != nil {
		delete(r.index, id)
		r.ids = r.ids[:len(r.ids)-1]
		return false, fmt.Errorf("persist user %d: %w", id, err)
	}
	return true, nil
}

func (r *FileRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids), nil
}

func (r *FileRepo) All(_ context.Context) ([]domain.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.UserID(nil), r.ids...), nil
}

func (r *FileRepo) persistLocked() error {
	list := make([]int64, len(r.ids))
	for i, id := range r.ids {
		list[i] = int64(id)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
