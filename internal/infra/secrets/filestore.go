package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"hookd/internal/domain"
)

// FileStore is a file-backed secret store: a JSON document keyed
// user -> tool name -> auth object. Lookups are served from an in-memory
// snapshot; Reload swaps the snapshot atomically.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]map[string]*domain.AuthConfig
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &FileStore{
		path:    path,
		logger:  logger.Named("secrets"),
		entries: make(map[string]map[string]*domain.AuthConfig),
	}
	if err := store.Reload(); err != nil {
		store.logger.Warn("secret store unavailable", zap.String("path", path), zap.Error(err))
	}
	return store
}

// Reload re-reads the backing file. A missing file clears the store
// without error; a malformed file keeps the previous snapshot.
func (s *FileStore) Reload() error {
	if s.path == "" {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.entries = make(map[string]map[string]*domain.AuthConfig)
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read secrets: %w", err)
	}

	var decoded map[string]map[string]*domain.AuthConfig
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}
	if decoded == nil {
		decoded = make(map[string]map[string]*domain.AuthConfig)
	}

	s.mu.Lock()
	s.entries = decoded
	s.mu.Unlock()
	return nil
}

// Lookup implements the credential resolver's secret-store interface.
// The returned auth object is a copy.
func (s *FileStore) Lookup(user, tool string) (*domain.AuthConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTool, ok := s.entries[user]
	if !ok {
		return nil, false
	}
	auth, ok := byTool[tool]
	if !ok || auth == nil {
		return nil, false
	}
	copied := *auth
	return &copied, true
}
