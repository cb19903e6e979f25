package filewatch

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext derives a context which is cancelled when one of files is
// modified, renamed or removed.
//
// Processes watching their own config files use this to stop themselves and
// get restarted by the process supervisor with the new content loaded.
//
// # Args
//
// - ctx: parent context
//
// - files: file paths to be watched
//
// # Returns
//
// - context.Context: cancelled on modification of any of files, or when parent is done.
//
// - context.CancelFunc: stops watching. Call it when the context is no longer needed.
//
// - error: failed to start watching.
func UntilModifyContext(ctx context.Context, files ...string) (context.Context, context.CancelFunc, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	for _, f := range files {
		if f == "" {
			continue
		}
		if err := watcher.Add(f); err != nil {
			watcher.Close()
			return nil, nil, err
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-wctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					cancel()
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// watch errors are not fatal for the watched process. keep going.
			}
		}
	}()

	return wctx, cancel, nil
}
