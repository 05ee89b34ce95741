package poller

import (
	"context"
	"sync"

	"github.com/dsh2dsh/cron/v3"

	"github.com/littleandi/filehorizon/internal/logging"
)

// Dispatcher schedules each configured Source on its own cron
// expression (explicit per-source Cron, or "@every <intervalMs>"
// falling back to the global polling interval — see
// config.FileSource.CronSpec). Polls run one at a time: a source whose
// schedule fires while another source is being polled waits for it.
type Dispatcher struct {
	poller *Poller
	cron   *cron.Cron
	mu     sync.Mutex
}

func NewDispatcher(p *Poller) *Dispatcher {
	return &Dispatcher{poller: p, cron: cron.New()}
}

// Start schedules every source and begins the cron scheduler. It
// returns an error if any source's cron expression fails to parse.
func (d *Dispatcher) Start(ctx context.Context) error {
	log := logging.GetLogger(ctx, logging.SubsysPoller)
	for _, src := range d.poller.sources {
		src := src
		if _, err := d.cron.AddFunc(src.CronSpec, func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.poller.pollOne(ctx, src)
		}); err != nil {
			return err
		}
	}
	log.Info("poller dispatcher starting", "sources", len(d.poller.sources))
	d.cron.Start()
	return nil
}

// Stop drains in-flight cron jobs and halts scheduling.
func (d *Dispatcher) Stop() {
	<-d.cron.Stop().Done()
}
