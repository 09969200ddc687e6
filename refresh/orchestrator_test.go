package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/config"
	"portfolio-tracker/models"
	"portfolio-tracker/quotes"
	"portfolio-tracker/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, owner, market, symbol string) (*models.Holding, error) {
	args := m.Called(ctx, owner, market, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Holding), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, owner, market string) ([]models.Holding, error) {
	args := m.Called(ctx, owner, market)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Holding), args.Error(1)
}

func (m *MockStore) UpsertValuation(ctx context.Context, owner, market, symbol string, pricePerShare, totalValue decimal.Decimal) error {
	args := m.Called(ctx, owner, market, symbol, pricePerShare, totalValue)
	return args.Error(0)
}

func (m *MockStore) RecordQuotes(ctx context.Context, records []models.QuoteRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// stubFetcher serves fixed prices and per-symbol failures, tracking the
// number of in-flight calls.
type stubFetcher struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
	delay  time.Duration

	mu           sync.Mutex
	inFlight     int
	maxInFlight  int
	fetchedOrder []string
}

func (f *stubFetcher) Fetch(ctx context.Context, symbol string) (quotes.Quote, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.fetchedOrder = append(f.fetchedOrder, symbol)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err, ok := f.errs[symbol]; ok {
		return quotes.Quote{}, err
	}
	return quotes.Quote{Symbol: symbol, Price: f.prices[symbol], FetchedAt: time.Now()}, nil
}

func ukMarkets() map[string]config.Market {
	return map[string]config.Market{
		"uk": {Unit: config.UnitMinor, Currency: "£", DisplayDecimals: 2},
	}
}

func holdingOf(owner, market, symbol string, shares int64) models.Holding {
	return models.Holding{OwnerID: owner, Market: market, Symbol: symbol, SharesHeld: decimal.NewFromInt(shares)}
}

func TestRefreshOne_Success(t *testing.T) {
	st := new(MockStore)
	h := holdingOf("o1", "uk", "VOD.L", 100)
	st.On("Get", mock.Anything, "o1", "uk", "VOD.L").Return(&h, nil)
	st.On("UpsertValuation", mock.Anything, "o1", "uk", "VOD.L", mock.Anything, mock.Anything).Return(nil)
	st.On("RecordQuotes", mock.Anything, mock.Anything).Return(nil)

	fetcher := &stubFetcher{prices: map[string]decimal.Decimal{"VOD.L": decimal.NewFromFloat(75.30)}}
	o := NewOrchestrator(fetcher, st, ukMarkets(), 1)

	got, err := o.RefreshOne(context.Background(), "o1", "uk", "VOD.L")
	require.NoError(t, err)
	require.True(t, got.Valued())
	assert.True(t, got.PricePerShare.Equal(decimal.NewFromFloat(0.75)), "price per share %s", got.PricePerShare)
	assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(75)), "total value %s", got.TotalValue)
	st.AssertExpectations(t)
}

func TestRefreshOne_FetchFailurePropagates(t *testing.T) {
	st := new(MockStore)
	h := holdingOf("o1", "uk", "VOD.L", 100)
	st.On("Get", mock.Anything, "o1", "uk", "VOD.L").Return(&h, nil)

	fetcher := &stubFetcher{errs: map[string]error{"VOD.L": quotes.ErrUpstreamUnavailable}}
	o := NewOrchestrator(fetcher, st, ukMarkets(), 1)

	_, err := o.RefreshOne(context.Background(), "o1", "uk", "VOD.L")
	assert.ErrorIs(t, err, quotes.ErrUpstreamUnavailable)
	st.AssertNotCalled(t, "UpsertValuation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshOne_HoldingMissing(t *testing.T) {
	st := new(MockStore)
	st.On("Get", mock.Anything, "o1", "uk", "GONE.L").Return(nil, store.ErrNotFound)

	o := NewOrchestrator(&stubFetcher{}, st, ukMarkets(), 1)

	_, err := o.RefreshOne(context.Background(), "o1", "uk", "GONE.L")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshOne_UnknownMarket(t *testing.T) {
	o := NewOrchestrator(&stubFetcher{}, new(MockStore), ukMarkets(), 1)

	_, err := o.RefreshOne(context.Background(), "o1", "mars", "VOD.L")
	assert.ErrorIs(t, err, ErrUnknownMarket)
}

func TestRefreshAll_OneFailureDoesNotAbortOthers(t *testing.T) {
	prior := holdingOf("o1", "uk", "X.L", 50)
	priorPrice := decimal.NewFromFloat(1.20)
	priorTotal := decimal.NewFromInt(60)
	prior.SetValuation(priorPrice, priorTotal)

	st := new(MockStore)
	st.On("List", mock.Anything, "o1", "uk").Return([]models.Holding{
		holdingOf("o1", "uk", "BP.L", 10),
		prior,
		holdingOf("o1", "uk", "VOD.L", 100),
	}, nil)
	st.On("UpsertValuation", mock.Anything, "o1", "uk", "BP.L", mock.Anything, mock.Anything).Return(nil)
	st.On("UpsertValuation", mock.Anything, "o1", "uk", "VOD.L", mock.Anything, mock.Anything).Return(nil)
	st.On("RecordQuotes", mock.Anything, mock.Anything).Return(nil)

	fetcher := &stubFetcher{
		prices: map[string]decimal.Decimal{
			"BP.L":  decimal.NewFromFloat(420.00),
			"VOD.L": decimal.NewFromFloat(75.30),
		},
		errs: map[string]error{"X.L": quotes.ErrUpstreamTimeout},
	}
	o := NewOrchestrator(fetcher, st, ukMarkets(), 2)

	results, err := o.RefreshAll(context.Background(), "o1", "uk")
	require.NoError(t, err)
	require.Len(t, results, 3)

	by("BP.L", results, func(r Result) {
		assert.Equal(t, StageDone, r.Stage)
		assert.False(t, r.Stale)
		assert.NoError(t, r.Err)
		assert.True(t, r.Holding.Valued())
	})
	by("X.L", results, func(r Result) {
		assert.True(t, r.Stale)
		assert.ErrorIs(t, r.Err, quotes.ErrUpstreamTimeout)
		// The failed holding keeps its prior persisted valuation.
		require.True(t, r.Holding.Valued())
		assert.True(t, r.Holding.PricePerShare.Equal(priorPrice))
		assert.True(t, r.Holding.TotalValue.Equal(priorTotal))
	})
	by("VOD.L", results, func(r Result) {
		assert.Equal(t, StageDone, r.Stage)
		assert.True(t, r.Holding.TotalValue.Equal(decimal.NewFromInt(75)))
	})
	st.AssertExpectations(t)
}

func by(symbol string, results []Result, check func(Result)) {
	for _, r := range results {
		if r.Holding.Symbol == symbol {
			check(r)
			return
		}
	}
	panic("no result for " + symbol)
}

func TestRefreshAll_PersistFailureMarksStale(t *testing.T) {
	st := new(MockStore)
	st.On("List", mock.Anything, "o1", "uk").Return([]models.Holding{
		holdingOf("o1", "uk", "VOD.L", 100),
	}, nil)
	st.On("UpsertValuation", mock.Anything, "o1", "uk", "VOD.L", mock.Anything, mock.Anything).Return(store.ErrNotFound)
	st.On("RecordQuotes", mock.Anything, mock.Anything).Return(nil)

	fetcher := &stubFetcher{prices: map[string]decimal.Decimal{"VOD.L": decimal.NewFromFloat(75.30)}}
	o := NewOrchestrator(fetcher, st, ukMarkets(), 1)

	results, err := o.RefreshAll(context.Background(), "o1", "uk")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StagePersisting, results[0].Stage)
	assert.True(t, results[0].Stale)
	assert.ErrorIs(t, results[0].Err, store.ErrNotFound)
	assert.False(t, results[0].Holding.Valued(), "in-memory holding must stay untouched")
}

func TestRefreshAll_BoundsConcurrency(t *testing.T) {
	holdings := make([]models.Holding, 8)
	prices := make(map[string]decimal.Decimal, 8)
	for i := range holdings {
		symbol := string(rune('A'+i)) + ".L"
		holdings[i] = holdingOf("o1", "uk", symbol, 1)
		prices[symbol] = decimal.NewFromInt(100)
	}

	st := new(MockStore)
	st.On("List", mock.Anything, "o1", "uk").Return(holdings, nil)
	st.On("UpsertValuation", mock.Anything, "o1", "uk", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	st.On("RecordQuotes", mock.Anything, mock.Anything).Return(nil)

	fetcher := &stubFetcher{prices: prices, delay: 10 * time.Millisecond}
	o := NewOrchestrator(fetcher, st, ukMarkets(), 2)

	_, err := o.RefreshAll(context.Background(), "o1", "uk")
	require.NoError(t, err)
	assert.LessOrEqual(t, fetcher.maxInFlight, 2, "worker pool must cap in-flight fetches")
	assert.Len(t, fetcher.fetchedOrder, 8)
}

func TestRefreshAll_JournalsSuccessfulQuotes(t *testing.T) {
	st := new(MockStore)
	st.On("List", mock.Anything, "o1", "uk").Return([]models.Holding{
		holdingOf("o1", "uk", "VOD.L", 100),
		holdingOf("o1", "uk", "X.L", 10),
	}, nil)
	st.On("UpsertValuation", mock.Anything, "o1", "uk", "VOD.L", mock.Anything, mock.Anything).Return(nil)
	st.On("RecordQuotes", mock.Anything, mock.MatchedBy(func(records []models.QuoteRecord) bool {
		return len(records) == 1 && records[0].Symbol == "VOD.L"
	})).Return(nil)

	fetcher := &stubFetcher{
		prices: map[string]decimal.Decimal{"VOD.L": decimal.NewFromFloat(75.30)},
		errs:   map[string]error{"X.L": quotes.ErrMissingPriceData},
	}
	o := NewOrchestrator(fetcher, st, ukMarkets(), 1)

	_, err := o.RefreshAll(context.Background(), "o1", "uk")
	require.NoError(t, err)
	st.AssertExpectations(t)
}
