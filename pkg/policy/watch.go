package policy

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a policy file whenever it is written, created or renamed
// into place.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching path. onChange receives every policy that parses and
// validates; onError receives load and watcher failures. The directory is
// watched rather than the file so editors that replace the file on save are
// still seen.
func Watch(path string, onChange func(Policy), onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("policy watcher: %w", err)
	}
	target := filepath.Clean(path)
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("policy watcher: %w", err)
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				p, err := Load(target)
				if err != nil {
					onError(err)
					continue
				}
				onChange(p)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				onError(err)
			}
		}
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
