package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/uscchron/chronicle/internal/logging"
)

// LocalCache is a read-through cache over an optional remote BlobStore,
// keyed by "<collection>/<filename>" (spec.md §5). A watcher on the cache
// directory picks up archives an operator drops in by hand without
// requiring an ingest restart, adapted from the teacher's file-watcher
// debounce pattern in pkg/sync.
type LocalCache struct {
	dir     string
	remote  BlobStore
	logger  *logging.Logger
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	dirty map[string]bool
}

// NewLocalCache creates a cache rooted at dir, optionally backed by remote.
// remote may be nil.
func NewLocalCache(dir string, remote BlobStore, logger *logging.Logger) (*LocalCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch cache dir: %w", err)
	}

	c := &LocalCache{
		dir:     dir,
		remote:  remote,
		logger:  logger.With("fetch"),
		watcher: w,
		dirty:   make(map[string]bool),
	}
	go c.watchLoop()
	return c, nil
}

// Close stops the directory watcher.
func (c *LocalCache) Close() error {
	return c.watcher.Close()
}

// watchLoop records the keys of externally-dropped files in c.dirty and logs
// them. Get does not consult c.dirty: it reads the disk on every call, so a
// recovery drop is seen by the next read-through either way.
func (c *LocalCache) watchLoop() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			key, err := filepath.Rel(c.dir, event.Name)
			if err != nil {
				continue
			}
			c.mu.Lock()
			c.dirty[key] = true
			c.mu.Unlock()
			c.logger.Debug("cache file changed externally", logging.Fields{"key": key})
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("cache watcher error", logging.Fields{"error": err.Error()})
		}
	}
}

// Get returns the cached bytes for key, fetching from disk, then the remote
// store, in that order. ok=false means neither has it.
func (c *LocalCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := filepath.Join(c.dir, filepath.FromSlash(key))
	if data, err := os.ReadFile(path); err == nil {
		return data, true, nil
	} else if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("read cache file %s: %w", key, err)
	}

	if c.remote == nil {
		return nil, false, nil
	}
	data, ok, err := c.remote.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := c.Put(ctx, key, data); err != nil {
		c.logger.Warn("failed to populate local cache from remote", logging.Fields{"key": key, "error": err.Error()})
	}
	return data, true, nil
}

// Put writes data to the local cache and, if configured, the remote store.
// Both writes are idempotent (spec.md §5: "races between concurrent writes
// produce identical content").
func (c *LocalCache) Put(ctx context.Context, key string, data []byte) error {
	path := filepath.Join(c.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache subdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file %s: %w", key, err)
	}
	if c.remote != nil {
		if err := c.remote.Put(ctx, key, data); err != nil {
			return fmt.Errorf("write remote blob %s: %w", key, err)
		}
	}
	return nil
}
