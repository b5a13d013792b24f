package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoConfigFile is returned by Watch when no config file path is set.
var ErrNoConfigFile = errors.New("no config file to watch")

// watchDebounce coalesces the burst of events an editor produces for one
// save.
const watchDebounce = 100 * time.Millisecond

// Watch calls onChange after the file at path is written or replaced. It
// blocks until ctx is done. Errors from the underlying watcher are passed to
// onError when it is non-nil.
//
// The parent directory is watched rather than the file itself so that
// editors that save by renaming a temporary file are still noticed.
func Watch(ctx context.Context, path string, onChange func(), onError func(error)) error {
	if path == "" {
		return ErrNoConfigFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(watchDebounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}

		case <-pending:
			pending = nil
			onChange()
		}
	}
}
