package model

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a model asset when its file changes on disk. The reload
// callback receives the fresh graph so downstream actuator indexes can be
// rebuilt before any further write.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	mu       sync.RWMutex
	paths    map[string]struct{}
	onReload func(path string, graph *Graph)
	done     chan struct{}
}

// NewWatcher creates a model file watcher.
func NewWatcher(logger zerolog.Logger, onReload func(path string, graph *Graph)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		logger:   logger.With().Str("component", "model-watcher").Logger(),
		paths:    make(map[string]struct{}),
		onReload: onReload,
		done:     make(chan struct{}),
	}

	go w.watchLoop()

	return w, nil
}

// Watch adds a model file to be watched for changes. The path is cleaned
// before it is stored so lookups line up with fsnotify event names.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	if err := w.watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.paths[path] = struct{}{}
	w.mu.Unlock()

	return nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			w.mu.RLock()
			_, watched := w.paths[filepath.Clean(event.Name)]
			w.mu.RUnlock()
			if !watched {
				continue
			}

			graph, err := LoadGraph(event.Name)
			if err != nil {
				w.logger.Error().Err(err).Str("path", event.Name).Msg("Model reload failed")
				continue
			}
			w.logger.Info().Str("path", event.Name).Msg("Model reloaded")
			if w.onReload != nil {
				w.onReload(event.Name, graph)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Model watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
