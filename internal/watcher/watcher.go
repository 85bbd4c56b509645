// Package watcher monitors the music directory for filesystem changes and
// triggers a debounced rescan, so newly dropped or removed files show up
// without waiting for the next cron-scheduled full scan.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// OnChange is invoked (debounced) after one or more audio files are created
// or removed somewhere under the watched root.
type OnChange func()

// Watcher monitors the music library root for filesystem changes.
type Watcher struct {
	root     string
	callback OnChange
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watched  map[string]bool
	debounce *time.Timer
	stop     chan struct{}
}

// New creates a filesystem watcher rooted at dir.
func New(dir string, cb OnChange) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     dir,
		callback: cb,
		watcher:  fw,
		watched:  make(map[string]bool),
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching the music directory and processes events.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.eventLoop()
	log.Printf("[watcher] watching %d directories under %s", len(w.watched), w.root)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return nil
			}
			w.mu.Lock()
			w.watched[path] = true
			w.mu.Unlock()
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".part") {
		return
	}

	isCreate := event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
	isRemove := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !isCreate && !isRemove {
		return
	}

	if isCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			w.watcher.Add(event.Name)
			w.watched[event.Name] = true
			w.mu.Unlock()
			return
		}
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if !isAudioExtension(ext) {
		return
	}

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(2*time.Second, func() {
		w.mu.Lock()
		w.debounce = nil
		w.mu.Unlock()
		w.callback()
	})
	w.mu.Unlock()
}

func isAudioExtension(ext string) bool {
	switch ext {
	case ".flac", ".mp3", ".m4a", ".ogg", ".opus", ".wav":
		return true
	default:
		return false
	}
}
