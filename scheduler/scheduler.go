package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"portfolio-tracker/config"
	"portfolio-tracker/refresh"
)

// Refresher runs a best-effort refresh over one owner's market portfolio.
type Refresher interface {
	RefreshAll(ctx context.Context, owner, market string) ([]refresh.Result, error)
}

// OwnerLister enumerates owners holding positions in a market.
type OwnerLister interface {
	Owners(ctx context.Context, market string) ([]string, error)
}

// Scheduler periodically refreshes every owner's portfolio in every market,
// so stored valuations stay warm between page loads.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	owners    OwnerLister
	markets   map[string]config.Market
}

// New creates a scheduler over the given market table.
func New(refresher Refresher, owners OwnerLister, markets map[string]config.Market) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		owners:    owners,
		markets:   markets,
	}
}

// Register adds the refresh task under the given cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.RunCycle(context.Background())
	}); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[INFO] refresh scheduler started")
}

// Stop stops the cron scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[INFO] refresh scheduler stopped")
}

// RunCycle refreshes every (owner, market) pair once. Failures are logged and
// never abort the rest of the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) {
	log.Println("[INFO] running scheduled refresh")
	for id := range s.markets {
		owners, err := s.owners.Owners(ctx, id)
		if err != nil {
			log.Printf("[ERROR] list owners for %s: %v", id, err)
			continue
		}
		for _, owner := range owners {
			results, err := s.refresher.RefreshAll(ctx, owner, id)
			if err != nil {
				log.Printf("[ERROR] scheduled refresh %s: %v", id, err)
				continue
			}
			failed := 0
			for i := range results {
				if results[i].Err != nil {
					failed++
				}
			}
			if failed > 0 {
				log.Printf("[WARN] scheduled refresh %s: %d of %d holdings stale", id, failed, len(results))
			}
		}
	}
}
