package reputation

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron and periodically recomputes every reputation.
// It catches entries whose synchronous recompute after a submission failed.
type Scheduler struct {
	cron       *cron.Cron
	aggregator *Aggregator
	spec       string // cron spec, e.g. "@every 60m"
}

// NewScheduler creates a Scheduler that fires every intervalMinutes minutes.
func NewScheduler(aggregator *Aggregator, intervalMinutes int) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cron.DefaultLogger)),
		aggregator: aggregator,
		spec:       fmt.Sprintf("@every %dm", intervalMinutes),
	}
}

// Start registers the sweep and starts the scheduler. One sweep also runs
// immediately so stale values from a previous deploy are refreshed.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runSweep(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started (spec %s)", s.spec)

	go s.runSweep(ctx)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runSweep(ctx context.Context) {
	log.Println("[scheduler] Reputation sweep started")
	updated, failed, err := s.aggregator.RecomputeAll(ctx)
	if err != nil {
		log.Printf("[scheduler] Reputation sweep error: %v", err)
		return
	}
	log.Printf("[scheduler] Reputation sweep complete: updated=%d failed=%d", updated, failed)
}
