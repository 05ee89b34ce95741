// Package reload watches for SIGHUP and re-reads the configuration
// file, diffing it against the previously loaded one so a structural
// change (adding/removing a source or destination, for instance) can
// be logged and handed to a restart callback rather than silently
// applied in place.
package reload

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/littleandi/filehorizon/internal/config"
	"github.com/littleandi/filehorizon/internal/logging"
)

// Callback is invoked with the freshly loaded configuration after a
// SIGHUP, once its diff against the previous configuration has been
// logged. Returning an error keeps the previous configuration active.
type Callback func(ctx context.Context, next *config.Config) error

// Watcher listens for SIGHUP and drives reload of a single config
// file path.
type Watcher struct {
	path     string
	current  *config.Config
	onReload Callback
}

func NewWatcher(path string, initial *config.Config, onReload Callback) *Watcher {
	return &Watcher{path: path, current: initial, onReload: onReload}
}

// Run blocks, handling SIGHUP until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	log := logging.GetLogger(ctx, logging.SubsysCLI)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			next, err := config.Load(w.path)
			if err != nil {
				log.Error("config reload failed, keeping previous configuration", "error", err)
				continue
			}
			logDiff(log, w.current, next)
			if err := w.onReload(ctx, next); err != nil {
				log.Error("config reload callback failed, keeping previous configuration", "error", err)
				continue
			}
			w.current = next
			log.Info("configuration reloaded")
		}
	}
}

func logDiff(log interface{ Info(string, ...any) }, before, after *config.Config) {
	beforeJSON, err1 := json.Marshal(before)
	afterJSON, err2 := json.Marshal(after)
	if err1 != nil || err2 != nil {
		return
	}

	differ := gojsondiff.New()
	diff, err := differ.Compare(beforeJSON, afterJSON)
	if err != nil || !diff.Modified() {
		return
	}

	formatted, err := formatter.NewDeltaFormatter().Format(diff)
	if err != nil {
		return
	}
	log.Info("configuration changed", "diff", formatted)
}
