package patterns

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mira/internal/logging"
)

// CatalogWatcher watches a patterns directory for changes and re-registers
// templates into the library. Rapid editor saves are debounced.
type CatalogWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	library     *Library
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewCatalogWatcher creates a watcher for the given patterns directory.
func NewCatalogWatcher(dir string, library *Library) (*CatalogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &CatalogWatcher{
		watcher:     watcher,
		library:     library,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the patterns directory. Non-blocking.
func (cw *CatalogWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return nil // Already running
	}
	cw.running = true
	cw.mu.Unlock()

	if err := os.MkdirAll(cw.dir, 0755); err != nil {
		logging.CatalogWarn("CatalogWatcher: failed to create patterns dir %s: %v (continuing anyway)", cw.dir, err)
	}

	if err := cw.watcher.Add(cw.dir); err != nil {
		// Directory may not exist yet - that's OK, reloads just won't fire.
		logging.CatalogWarn("CatalogWatcher: initial watch failed: %v", err)
	} else {
		logging.Catalog("CatalogWatcher: watching directory: %s", cw.dir)
	}

	go cw.run(ctx)

	return nil
}

// Stop stops the watcher and waits for cleanup.
func (cw *CatalogWatcher) Stop() {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return
	}
	cw.running = false
	cw.mu.Unlock()

	close(cw.stopCh)
	<-cw.doneCh
	cw.watcher.Close()
}

func (cw *CatalogWatcher) run(ctx context.Context) {
	defer close(cw.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.CatalogWarn("CatalogWatcher error: %v", err)
		}
	}
}

func (cw *CatalogWatcher) handleEvent(event fsnotify.Event) {
	name := event.Name
	if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	cw.mu.Lock()
	last, seen := cw.debounceMap[name]
	now := time.Now()
	if seen && now.Sub(last) < cw.debounceDur {
		cw.mu.Unlock()
		return
	}
	cw.debounceMap[name] = now
	cw.mu.Unlock()

	templates, err := LoadTemplateFile(name)
	if err != nil {
		logging.CatalogWarn("CatalogWatcher: reload of %s failed: %v", name, err)
		return
	}
	for _, tpl := range templates {
		cw.library.Register(tpl)
	}
	logging.Catalog("CatalogWatcher: reloaded %d templates from %s", len(templates), name)
}
