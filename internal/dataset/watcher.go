package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher 监听数据文件变化并触发重新加载
// 监听所在目录，编辑器常以重命名方式保存文件
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	lastMod time.Time
	timer   *time.Timer
	pending sync.WaitGroup
}

// NewWatcher 创建文件监听
func NewWatcher(path string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}

	watcher := &Watcher{
		path:     abs,
		watcher:  w,
		debounce: debounce,
		logger:   logger,
	}
	if info, err := os.Stat(abs); err == nil {
		watcher.lastMod = info.ModTime()
	}
	return watcher, nil
}

// Watch 阻塞直到 ctx 结束，文件变化后在防抖时间结束时调用 handler
func (w *Watcher) Watch(ctx context.Context, handler func(path string)) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.cancelTimer()
			w.mu.Unlock()
			// 等待已触发的 handler 结束，返回后不再调用 handler
			w.pending.Wait()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}

			w.mu.Lock()
			if info.ModTime().After(w.lastMod) {
				w.lastMod = info.ModTime()
				w.schedule(ctx, handler)
			}
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Dataset watcher error", zap.Error(err))
		}
	}
}

// schedule 调用方需持有 w.mu
func (w *Watcher) schedule(ctx context.Context, handler func(path string)) {
	w.cancelTimer()
	path := w.path
	w.pending.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.pending.Done()
		if ctx.Err() != nil {
			return
		}
		w.logger.Info("Dataset file changed", zap.String("path", path))
		handler(path)
	})
}

// cancelTimer 调用方需持有 w.mu
func (w *Watcher) cancelTimer() {
	if w.timer != nil && w.timer.Stop() {
		w.pending.Done()
	}
	w.timer = nil
}
