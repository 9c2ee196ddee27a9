package leadimport

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/flipdesk/internal/parser"
)

// settleDelay is how long a file must stay quiet before it is imported, so
// that partially copied files are not parsed.
const settleDelay = 250 * time.Millisecond

// Watch starts an fsnotify watcher on the inbox directory dir and imports
// supported files as they are created or rewritten, until ctx is cancelled.
// Only the top level of dir is watched; the archive subdirectory is ignored.
func (im *Importer) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.Add(root); err != nil {
		return err
	}

	im.logger.Info("leadimport: watching", slog.String("dir", root))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			im.logger.Info("leadimport: watcher stopped")
			return nil

		case <-settleCh:
			for rel := range pending {
				delete(pending, rel)
				if _, err := im.ImportFile(ctx, rel); err != nil {
					im.logger.Warn("leadimport: import failed",
						slog.String("path", rel),
						slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if name == "" || name[0] == '.' || !parser.Supported(name) {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("leadimport: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
