package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/logger"
)

// DefaultSettle is how long Watch waits after the last inbox event before
// running a pass, so a file still being written is not read half way.
const DefaultSettle = 2 * time.Second

// Watch runs one ingest pass, then another whenever a PDF is created or
// written in the inbox, until ctx ends. Events closer together than settle
// are coalesced into one pass. onPass receives every pass result.
func (in *Ingester) Watch(ctx context.Context, opts Options, settle time.Duration, onPass func(*Summary, error)) error {
	log := logger.OrNop(in.Log)
	inbox := in.Config.InboxDir()
	if err := os.MkdirAll(inbox, 0755); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(inbox); err != nil {
		return fmt.Errorf("watching %s: %w", inbox, err)
	}
	log.Info("watching inbox", zap.String("dir", inbox))

	onPass(in.Run(ctx, opts))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isPDF(ev.Name) {
				continue
			}
			log.Debug("inbox event", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onPass(in.Run(ctx, opts))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}
