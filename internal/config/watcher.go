package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// debounceDelay coalesces the bursts of write events editors emit for
// a single save.
const debounceDelay = 100 * time.Millisecond

// Store holds the current Config behind an atomic pointer so request
// handlers read a consistent snapshot without locking.
type Store struct {
	ptr atomic.Pointer[Config]
}

// NewStore wraps an initial config.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	if cfg == nil {
		cfg = Default()
	}
	s.ptr.Store(cfg)
	return s
}

// Current returns the active config snapshot.
func (s *Store) Current() *Config { return s.ptr.Load() }

// Swap replaces the active config.
func (s *Store) Swap(cfg *Config) { s.ptr.Store(cfg) }

// Watcher reloads the config file on change and swaps it into a Store.
type Watcher struct {
	configPath string
	store      *Store
	watcher    *fsnotify.Watcher
	lastHash   string
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(configPath string, store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{configPath: configPath, store: store, watcher: fw}
	w.lastHash = fileHash(configPath)
	return w, nil
}

// Start begins watching. It returns after registering the path; event
// handling runs until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.configPath); err != nil {
		log.Errorf("failed to watch config file %s: %v", w.configPath, err)
		return err
	}
	log.Debugf("watching config file: %s", w.configPath)
	go w.processEvents(ctx)
	return nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.watcher.Close() }

func (w *Watcher) processEvents(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Editors replace files on save; re-add in case the inode changed.
			_ = w.watcher.Add(w.configPath)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	hash := fileHash(w.configPath)
	if hash == w.lastHash {
		return
	}
	cfg, err := LoadConfig(w.configPath)
	if err != nil {
		log.Errorf("config reload failed, keeping previous config: %v", err)
		return
	}
	w.lastHash = hash
	w.store.Swap(cfg)
	log.Infof("config reloaded from %s", w.configPath)
}

func fileHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
