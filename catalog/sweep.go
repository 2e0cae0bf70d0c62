package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// initialSweepDelay is how long after startup the first sweep runs, so a
// restarted process does not wait a full interval to mark overdue loans.
const initialSweepDelay = 5 * time.Second

// Sweeper owns the recurring overdue sweep. It is started with the catalog
// and stopped on shutdown; storage errors are logged and retried on the next
// tick, never fatal.
type Sweeper struct {
	db       *Database
	log      Logger
	interval time.Duration

	cron    *cron.Cron
	initial *time.Timer
}

// NewSweeper builds a sweeper that runs every interval. It does nothing
// until Start is called.
func NewSweeper(db *Database, log Logger, interval time.Duration) *Sweeper {
	if log == nil {
		log = DefaultLogger()
	}
	return &Sweeper{db: db, log: log, interval: interval}
}

// Start schedules the recurring sweep plus one initial run shortly after
// startup.
func (s *Sweeper) Start() error {
	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.interval)
	}
	c := cron.New()
	if _, err := c.AddFunc("@every "+s.interval.String(), s.runOnce); err != nil {
		return fmt.Errorf("schedule overdue sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.initial = time.AfterFunc(initialSweepDelay, s.runOnce)
	s.log.Info("overdue sweep scheduled", "interval", s.interval.String())
	return nil
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.initial != nil {
		s.initial.Stop()
		s.initial = nil
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
}

func (s *Sweeper) runOnce() {
	n, err := s.db.RunOverdueSweep(context.Background())
	if err != nil {
		// Storage may be transiently unavailable; the next tick retries.
		s.log.Warn("overdue sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("overdue sweep marked loans overdue", "count", n)
	} else {
		s.log.Debug("overdue sweep found nothing to do")
	}
}
