// Package registry persists the escalation registry as a single JSON
// document on disk.
//
// Separate hook invocations run as unsynchronized OS processes that each
// load, mutate and rewrite the whole registry. To keep that read-modify-write
// cycle from losing updates, the store serializes access with an advisory
// lock file next to the registry; writers take the lock for the whole cycle
// via Lock, and saves are atomic (temp file + rename) so readers never see a
// partial document.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/escalated/internal/escalation"
)

// Errors for store operations. ErrCorrupted is reported through logs only on
// the Load path (a corrupt file is treated as absent per policy) but is
// retained as a sentinel for callers that inspect LoadStrict.
var (
	ErrCorrupted   = errors.New("registry file corrupted")
	ErrLockTimeout = errors.New("timed out waiting for registry lock")
)

const (
	// lockRetryInterval is the poll interval while waiting on the lock file.
	lockRetryInterval = 25 * time.Millisecond

	// lockStaleAfter is the age past which a leftover lock file from a dead
	// process is broken.
	lockStaleAfter = 30 * time.Second

	// defaultLockTimeout bounds how long a caller waits for the lock.
	defaultLockTimeout = 10 * time.Second
)

// FileStore implements escalation.Store on a JSON file.
type FileStore struct {
	path     string
	lockPath string
	logger   *zap.Logger

	// mu serializes goroutines within this process; the lock file serializes
	// processes.
	mu sync.Mutex
}

// NewFileStore creates a store backed by the JSON file at path. The parent
// directory is created if missing.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("registry path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	return &FileStore{
		path:     path,
		lockPath: path + ".lock",
		logger:   logger,
	}, nil
}

// Lock acquires the advisory lock file, waiting up to the default timeout or
// until ctx is done. Stale locks left by dead processes are broken after
// lockStaleAfter.
func (s *FileStore) Lock(ctx context.Context) (func(), error) {
	s.mu.Lock()

	deadline := time.Now().Add(defaultLockTimeout)
	for {
		f, err := os.OpenFile(s.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return s.unlock, nil
		}
		if !os.IsExist(err) {
			s.mu.Unlock()
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		if info, statErr := os.Stat(s.lockPath); statErr == nil {
			if time.Since(info.ModTime()) > lockStaleAfter {
				s.logger.Warn("breaking stale registry lock",
					zap.String("lock", s.lockPath),
					zap.Duration("age", time.Since(info.ModTime())))
				os.Remove(s.lockPath)
				continue
			}
		}

		if time.Now().After(deadline) {
			s.mu.Unlock()
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			s.mu.Unlock()
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (s *FileStore) unlock() {
	if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove registry lock", zap.Error(err))
	}
	s.mu.Unlock()
}

// Load reads the registry. A missing file is the signal to initialize
// defaults, not an error. A corrupt file is logged and treated as absent;
// crashing the caller over tracker state is never acceptable.
func (s *FileStore) Load(ctx context.Context) (*escalation.Registry, error) {
	reg, err := s.LoadStrict(ctx)
	if err == nil {
		return reg, nil
	}
	if errors.Is(err, ErrCorrupted) {
		s.logger.Warn("registry file corrupted, starting fresh",
			zap.String("path", s.path),
			zap.Error(err))
		return freshRegistry(), nil
	}
	return nil, err
}

// LoadStrict is Load without the corrupt-file fallback, for callers that must
// distinguish "no prior data" from "corrupt data".
func (s *FileStore) LoadStrict(_ context.Context) (*escalation.Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return freshRegistry(), nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var reg escalation.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	reg.Normalize()
	return &reg, nil
}

// Save persists the registry atomically and stamps lastUpdated.
func (s *FileStore) Save(_ context.Context, reg *escalation.Registry) error {
	reg.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename registry: %w", err)
	}

	return nil
}

// Path returns the registry file path.
func (s *FileStore) Path() string {
	return s.path
}

func freshRegistry() *escalation.Registry {
	return escalation.NewRegistry(escalation.DefaultRegistryConfig())
}
