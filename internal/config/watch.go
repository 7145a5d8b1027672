package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(Config)

	mu   sync.Mutex
	last Config
	done chan struct{}
}

// Watch starts watching path. onChange receives every successfully parsed
// version that differs from the previous one; parse errors are logged and
// the previous config stays in effect.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	initial, err := Load(resolved)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher:  fw,
		path:     resolved,
		onChange: onChange,
		last:     initial,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Current returns the last loaded config.
func (w *Watcher) Current() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Printf("config watcher: keeping previous config: %v", err)
		return
	}
	w.mu.Lock()
	same := cfg == w.last
	w.last = cfg
	w.mu.Unlock()
	if !same && w.onChange != nil {
		w.onChange(cfg)
	}
}
