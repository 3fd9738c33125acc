package docs

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of filesystem events (editors often fire
// several per save) into a single knowledge base reload.
const reloadDebounce = 500 * time.Millisecond

var watchedExtensions = []string{".pdf", ".docx", ".txt", ".csv", ".json", ".md"}

// Watcher reloads the processor's knowledge base whenever a supported file
// in the documents directory changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	processor *Processor
}

// NewWatcher creates a watcher bound to the processor's documents directory.
func NewWatcher(processor *Processor) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(processor.Dir()); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{watcher: w, processor: processor}, nil
}

// Run blocks until ctx is cancelled, reloading the knowledge base after
// changes settle.
func (w *Watcher) Run(ctx context.Context) {
	var pending *time.Timer
	reload := make(chan struct{}, 1)

	schedule := func() {
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(reloadDebounce, func() {
			select {
			case reload <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
			if err := w.processor.LoadAll(); err != nil {
				log.Printf("[docs] reload failed: %v", err)
			}
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isWatchedExtension(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Printf("[docs] change detected: %s (%s)", filepath.Base(event.Name), event.Op)
			schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[docs] watcher error: %v", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range watchedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
