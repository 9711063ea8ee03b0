package store

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
	"github.com/YuminosukeSato/pricefit/pkg/log"
)

// Watch calls onChange with the key of every artifact file that is created or
// replaced in the FileStore directory, including saves made by other
// processes. It blocks until ctx is done.
//
// onChange runs on the watcher goroutine; events are delivered one at a time.
func Watch(ctx context.Context, fs *FileStore, logger log.Logger, onChange func(key string)) error {
	if logger == nil {
		logger = log.Nop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewModelError("store.Watch", "create watcher", err)
	}
	defer w.Close()

	if err := w.Add(fs.Dir()); err != nil {
		return errors.NewModelError("store.Watch", "watch directory", err)
	}
	logger = logger.With(log.ComponentKey, "store.Watch", log.StoreBackendKey, "file")
	logger.Info("Watching model directory", "dir", fs.Dir())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			key, ok := KeyFromPath(ev.Name)
			if !ok {
				continue
			}
			logger.Debug("Artifact changed", log.StoreKeyKey, key, "event", ev.Op.String())
			onChange(key)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", err)
		}
	}
}
