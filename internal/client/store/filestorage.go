package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileStorage keeps each slot in a JSON file under dir and uses
// fsnotify for the change notification, so two screenlog processes
// pointed at the same directory converge the way two browser tabs do.
type FileStorage struct {
	dir string
	log zerolog.Logger
}

func NewFileStorage(dir string, logger zerolog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage dir: %w", err)
	}
	return &FileStorage{dir: dir, log: logger}, nil
}

func (f *FileStorage) path(slot string) string {
	return filepath.Join(f.dir, slot+".json")
}

func (f *FileStorage) Get(slot string) ([]byte, error) {
	data, err := os.ReadFile(f.path(slot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", slot, err)
	}
	return data, nil
}

// Set writes atomically: temp file then rename, so watchers never
// observe a half-written snapshot.
func (f *FileStorage) Set(slot string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("temp slot file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write slot %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close slot %s: %w", slot, err)
	}
	if err := os.Rename(name, f.path(slot)); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename slot %s: %w", slot, err)
	}
	return nil
}

func (f *FileStorage) Watch(slot string, fn func(data []byte)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", f.dir, err)
	}

	target := f.path(slot)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				data, err := os.ReadFile(target)
				if err != nil {
					// Rename may race the read; the next event catches up.
					continue
				}
				fn(data)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.log.Warn().Err(err).Str("slot", slot).Msg("storage watch error")
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = watcher.Close()
		})
	}, nil
}
