package namemap

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watcher reloads a table file into a Resolver whenever the file changes.
// The parent directory is watched so atomic replacements are picked up.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	res  *Resolver
	log  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch starts watching path until ctx is cancelled or Close is called.
func Watch(ctx context.Context, path string, res *Resolver, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watching %s", filepath.Dir(abs))
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		fsw:    fsw,
		path:   abs,
		res:    res,
		log:    log,
		cancel: cancel,
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("name table watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	table, err := Load(w.path)
	if err != nil {
		// The old table stays live until the file parses again.
		w.log.Warn("name table reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.res.Replace(table)
	w.log.Info("name table reloaded", zap.String("path", w.path), zap.Int("entries", table.Len()))
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
