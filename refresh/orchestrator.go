package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"portfolio-tracker/config"
	"portfolio-tracker/models"
	"portfolio-tracker/quotes"
	"portfolio-tracker/valuation"
)

// ErrUnknownMarket means the market identifier is not in the market table.
var ErrUnknownMarket = errors.New("unknown market")

// Stage marks how far a single holding's refresh cycle progressed.
type Stage string

const (
	StagePending    Stage = "pending"
	StageFetching   Stage = "fetching"
	StageValuating  Stage = "valuating"
	StagePersisting Stage = "persisting"
	StageDone       Stage = "done"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	Get(ctx context.Context, owner, market, symbol string) (*models.Holding, error)
	List(ctx context.Context, owner, market string) ([]models.Holding, error)
	UpsertValuation(ctx context.Context, owner, market, symbol string, pricePerShare, totalValue decimal.Decimal) error
	RecordQuotes(ctx context.Context, records []models.QuoteRecord) error
}

// Result is the outcome of one holding's refresh cycle. On failure the
// holding carries its prior persisted values and Stale is set; the stage
// records where the cycle stopped.
type Result struct {
	Holding models.Holding
	Stage   Stage
	Stale   bool
	Err     error

	quote *quotes.Quote
}

// Orchestrator runs fetch → valuate → persist cycles over holdings.
type Orchestrator struct {
	fetcher quotes.Fetcher
	store   Store
	markets map[string]config.Market
	workers int
}

// NewOrchestrator wires the pipeline. workers bounds concurrent upstream
// calls during RefreshAll.
func NewOrchestrator(fetcher quotes.Fetcher, store Store, markets map[string]config.Market, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{fetcher: fetcher, store: store, markets: markets, workers: workers}
}

func (o *Orchestrator) market(id string) (config.Market, error) {
	m, ok := o.markets[id]
	if !ok {
		return config.Market{}, fmt.Errorf("%s: %w", id, ErrUnknownMarket)
	}
	return m, nil
}

// RefreshOne refreshes a single holding. Any failure propagates; there is no
// batch to degrade into.
func (o *Orchestrator) RefreshOne(ctx context.Context, owner, marketID, symbol string) (*models.Holding, error) {
	m, err := o.market(marketID)
	if err != nil {
		return nil, err
	}
	h, err := o.store.Get(ctx, owner, marketID, symbol)
	if err != nil {
		return nil, err
	}

	res := o.cycle(ctx, m, h)
	if res.Err != nil {
		return nil, res.Err
	}
	o.journal(ctx, []Result{res})
	return &res.Holding, nil
}

// RefreshAll refreshes every holding the owner has in a market. Cycles run
// independently under a bounded worker pool; one symbol's failure never
// aborts the others. The returned slice always covers the full portfolio,
// refreshed holdings mixed with stale ones.
func (o *Orchestrator) RefreshAll(ctx context.Context, owner, marketID string) ([]Result, error) {
	m, err := o.market(marketID)
	if err != nil {
		return nil, err
	}
	holdings, err := o.store.List(ctx, owner, marketID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(holdings))
	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for i := range holdings {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Holding: holdings[i], Stage: StagePending, Stale: true, Err: err}
				return nil
			}
			results[i] = o.cycle(ctx, m, &holdings[i])
			if results[i].Err != nil {
				log.Printf("[WARN] refresh %s/%s: %v", marketID, holdings[i].Symbol, results[i].Err)
			}
			return nil
		})
	}
	g.Wait()

	o.journal(ctx, results)
	return results, ctx.Err()
}

// cycle runs one holding through fetch → valuate → persist. On any failure
// the in-memory holding is left untouched, so the caller sees the prior
// persisted values.
func (o *Orchestrator) cycle(ctx context.Context, m config.Market, h *models.Holding) Result {
	res := Result{Holding: *h, Stage: StageFetching}

	q, err := o.fetcher.Fetch(ctx, h.Symbol)
	if err != nil {
		res.Stale = true
		res.Err = err
		return res
	}
	res.quote = &q

	res.Stage = StageValuating
	v, err := valuation.Compute(h.SharesHeld, q, m)
	if err != nil {
		res.Stale = true
		res.Err = err
		return res
	}

	res.Stage = StagePersisting
	if err := o.store.UpsertValuation(ctx, h.OwnerID, h.Market, h.Symbol, v.PricePerShare, v.TotalValue); err != nil {
		res.Stale = true
		res.Err = err
		return res
	}

	res.Holding.SetValuation(v.PricePerShare, v.TotalValue)
	res.Stage = StageDone
	return res
}

func (o *Orchestrator) journal(ctx context.Context, results []Result) {
	records := lo.FilterMap(results, func(r Result, _ int) (models.QuoteRecord, bool) {
		if r.quote == nil {
			return models.QuoteRecord{}, false
		}
		return models.QuoteRecord{
			Symbol:    r.quote.Symbol,
			Price:     r.quote.Price,
			FetchedAt: r.quote.FetchedAt,
		}, true
	})
	if len(records) == 0 {
		return
	}
	if err := o.store.RecordQuotes(ctx, records); err != nil {
		log.Printf("[WARN] record quotes: %v", err)
	}
}
