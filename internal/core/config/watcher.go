package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-ontrack/internal/util"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the config file whenever it changes on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	updates chan *LoadResult
	done    chan struct{}
}

// NewWatcher watches the directory containing path, so that editors which
// replace the file by renaming are still observed.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		watcher: fsw,
		path:    abs,
		updates: make(chan *LoadResult, 1),
		done:    make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	var debounce <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)

		case <-debounce:
			debounce = nil
			result, err := LoadFrom(w.path)
			if err != nil {
				util.LogWarnf("Ignoring config change: %v", err)
				continue
			}
			w.publish(result)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("Config watch error: " + err.Error())
		}
	}
}

// publish keeps only the newest pending result.
func (w *Watcher) publish(result *LoadResult) {
	select {
	case <-w.updates:
	default:
	}
	w.updates <- result
}

// Updates delivers freshly loaded configs
func (w *Watcher) Updates() <-chan *LoadResult {
	return w.updates
}

func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
