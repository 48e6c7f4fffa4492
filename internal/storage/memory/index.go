// Package memory implements storage.IndexStore in process memory. Nothing is
// persisted; it backs throwaway indexes such as a single MCP session.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/storage"
)

// DSN selects this store wherever a database path is expected.
const DSN = ":memory:"

type InMemoryIndexStore struct {
	mu      sync.RWMutex
	nextID  int64
	files   map[string]models.FileRecord // path -> record
	symbols map[int64][]models.SymbolRecord
	meta    map[string]string
}

func NewInMemoryIndexStore() *InMemoryIndexStore {
	return &InMemoryIndexStore{
		files:   make(map[string]models.FileRecord),
		symbols: make(map[int64][]models.SymbolRecord),
		meta:    make(map[string]string),
	}
}

func (s *InMemoryIndexStore) Close() error { return nil }

func (s *InMemoryIndexStore) upsert(rec models.FileRecord) int64 {
	if old, ok := s.files[rec.Path]; ok {
		rec.ID = old.ID
		rec.CreatedAt = old.CreatedAt
	} else {
		s.nextID++
		rec.ID = s.nextID
		if rec.CreatedAt == 0 {
			rec.CreatedAt = rec.MTime
		}
	}
	s.files[rec.Path] = rec
	return rec.ID
}

func (s *InMemoryIndexStore) known(id int64) bool {
	for _, f := range s.files {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (s *InMemoryIndexStore) UpsertFile(_ context.Context, rec models.FileRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsert(rec), nil
}

func (s *InMemoryIndexStore) ReplaceSymbols(_ context.Context, fileID int64, symbols []models.SymbolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known(fileID) {
		return fmt.Errorf("replace symbols of file %d: %w", fileID, storage.ErrNotFound)
	}
	s.symbols[fileID] = append([]models.SymbolRecord(nil), symbols...)
	return nil
}

func (s *InMemoryIndexStore) SaveFile(
	_ context.Context,
	rec models.FileRecord,
	symbols []models.SymbolRecord,
	replace bool,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.upsert(rec)
	if replace {
		s.symbols[id] = append([]models.SymbolRecord(nil), symbols...)
	}
	return id, nil
}

func (s *InMemoryIndexStore) GetFile(_ context.Context, path string) (*models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", path, storage.ErrNotFound)
	}
	return &f, nil
}

func (s *InMemoryIndexStore) sortedFiles() []models.FileRecord {
	out := make([]models.FileRecord, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *InMemoryIndexStore) ListFiles(_ context.Context) ([]models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedFiles(), nil
}

func (s *InMemoryIndexStore) ListSymbols(_ context.Context, filter models.SymbolFilter) ([]models.SymbolHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name := strings.ToLower(filter.Name)
	var hits []models.SymbolHit
	for _, f := range s.sortedFiles() {
		if filter.FilePath != "" && f.Path != filter.FilePath {
			continue
		}
		syms := append([]models.SymbolRecord(nil), s.symbols[f.ID]...)
		sort.SliceStable(syms, func(i, j int) bool {
			if syms[i].Line != syms[j].Line {
				return syms[i].Line < syms[j].Line
			}
			return syms[i].Col < syms[j].Col
		})
		for _, sym := range syms {
			if name != "" && !strings.Contains(strings.ToLower(sym.Name), name) {
				continue
			}
			if filter.Kind != "" && sym.Kind != filter.Kind {
				continue
			}
			hits = append(hits, models.SymbolHit{Symbol: sym, File: f.Path, FileID: f.ID})
			if filter.Limit > 0 && len(hits) == filter.Limit {
				return hits, nil
			}
		}
	}
	return hits, nil
}

func (s *InMemoryIndexStore) FilesDeclaring(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, f := range s.sortedFiles() {
		for _, sym := range s.symbols[f.ID] {
			if strings.EqualFold(sym.Name, name) {
				out = append(out, f.Path)
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryIndexStore) PruneMissing(_ context.Context, observed map[string]struct{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for p, f := range s.files {
		if _, ok := observed[p]; ok {
			continue
		}
		delete(s.files, p)
		delete(s.symbols, f.ID)
		n++
	}
	return n, nil
}

func (s *InMemoryIndexStore) SetMeta(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}

func (s *InMemoryIndexStore) GetMeta(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.meta[key]
	if !ok {
		return "", fmt.Errorf("meta %s: %w", key, storage.ErrNotFound)
	}
	return v, nil
}

func (s *InMemoryIndexStore) Status(_ context.Context) (models.IndexStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := models.IndexStatus{Files: len(s.files), Root: s.meta[storage.MetaRoot]}
	for _, syms := range s.symbols {
		st.Symbols += len(syms)
	}
	if ms, err := strconv.ParseInt(s.meta[storage.MetaLastRun], 10, 64); err == nil {
		t := time.UnixMilli(ms)
		st.LastRun = &t
	}
	return st, nil
}

var _ storage.IndexStore = (*InMemoryIndexStore)(nil)
