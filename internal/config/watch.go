package config

import (
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Registry from disk whenever its backing parameter
// file changes, the way the teacher watches source files for its live
// `watch` workflow. Errors during reload are delivered on Errs rather
// than silently dropped, since a bad edit to data/parmfile.cfg should
// reach an administrator, not vanish.
type Watcher struct {
	fsw  *fsnotify.Watcher
	reg  *Registry
	path string

	Errs chan error
	done chan struct{}
}

// WatchFile starts watching path for changes and reloading reg on each
// write event. Call Close to stop.
func WatchFile(reg *Registry, path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{fsw: fsw, reg: reg, path: path, Errs: make(chan error, 1), done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := w.reg.LoadFile(w.path); err != nil {
					select {
					case w.Errs <- err:
					default:
					}
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.Errs <- err:
			default:
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
