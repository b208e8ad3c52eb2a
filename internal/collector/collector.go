package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"SigmaHunter/internal/calculator"
	"SigmaHunter/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols with a price but no chain get a synthetic chain around that price.
type MockFetcher struct {
	Prices      map[string]float64
	Expirations map[string][]time.Time
	Chains      map[string]*model.OptionChain
	Errs        map[string]error
	Requested   []string
}

// NewMockFetcher builds a mock with a deterministic price for every symbol.
func NewMockFetcher(symbols []string) *MockFetcher {
	m := &MockFetcher{Prices: make(map[string]float64, len(symbols))}
	for i, s := range symbols {
		m.Prices[s] = 40 + float64(i)*27.5
	}
	return m
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchLastClose(_ context.Context, symbol string) (float64, error) {
	m.Requested = append(m.Requested, symbol)
	if err, ok := m.Errs[symbol]; ok {
		return 0, err
	}
	p, ok := m.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("mock: unknown symbol %s", symbol)
	}
	return p, nil
}

func (m *MockFetcher) FetchExpirations(_ context.Context, symbol string) ([]time.Time, error) {
	if exps, ok := m.Expirations[symbol]; ok {
		return exps, nil
	}
	return []time.Time{nextFriday(time.Now())}, nil
}

func (m *MockFetcher) FetchOptionChain(_ context.Context, symbol string, expiration time.Time) (*model.OptionChain, error) {
	if chain, ok := m.Chains[symbol]; ok {
		return chain, nil
	}
	return generateMockChain(symbol, m.Prices[symbol], expiration), nil
}

func nextFriday(from time.Time) time.Time {
	d := (int(time.Friday) - int(from.Weekday()) + 7) % 7
	if d == 0 {
		d = 7
	}
	y, mo, day := from.AddDate(0, 0, d).Date()
	return time.Date(y, mo, day, 0, 0, 0, 0, time.UTC)
}

func generateMockChain(symbol string, price float64, expiration time.Time) *model.OptionChain {
	chain := &model.OptionChain{Symbol: symbol, Expiration: expiration}
	if price <= 0 {
		return chain
	}
	step := math.Max(0.5, math.Round(price*0.01))
	atm := math.Round(price/step) * step
	for i := -5; i <= 5; i++ {
		strike := atm + float64(i)*step
		callLast := math.Max(price-strike, 0) + price*0.008
		putLast := math.Max(strike-price, 0) + price*0.008
		chain.Calls = append(chain.Calls, model.OptionContract{Strike: strike, LastPrice: &callLast})
		chain.Puts = append(chain.Puts, model.OptionContract{Strike: strike, LastPrice: &putLast})
	}
	return chain
}

// Collector fetches option data per symbol and computes the expected-move bands.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

// Collect processes symbols one at a time, in order. A failing symbol yields a
// result carrying a *FetchError and never stops the remaining symbols.
// Cancellation of ctx is not a symbol failure: Collect stops and returns ctx.Err().
func (c *Collector) Collect(ctx context.Context, symbols []string) ([]model.BandResult, error) {
	results := make([]model.BandResult, 0, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		band, err := c.CollectSymbol(ctx, symbol)
		if err != nil && ctx.Err() != nil {
			return results, ctx.Err()
		}
		if err != nil {
			log.Warnf("symbol %s unavailable: %v", symbol, err)
			results = append(results, model.BandResult{Symbol: symbol, Err: err})
			continue
		}
		log.Debugf("%s price=%.2f move=%.2f expiration=%s",
			symbol, band.Price, band.Move, band.Expiration.Format("2006-01-02"))
		results = append(results, model.BandResult{Symbol: symbol, Band: band})
	}
	return results, nil
}

// CollectSymbol runs the full fetch and compute sequence for one symbol.
func (c *Collector) CollectSymbol(ctx context.Context, symbol string) (band *model.SymbolBand, err error) {
	stage := StagePrice
	defer func() {
		if r := recover(); r != nil {
			band, err = nil, &FetchError{Symbol: symbol, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Symbol: symbol, Stage: stage, Err: err}
	}
	price, err := c.Fetcher.FetchLastClose(ctx, symbol)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Stage: stage, Err: err}
	}

	stage = StageExpirations
	exps, err := c.Fetcher.FetchExpirations(ctx, symbol)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Stage: stage, Err: err}
	}
	expiration, err := calculator.NearestExpiration(exps)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Stage: stage, Err: err}
	}

	stage = StageChain
	chain, err := c.Fetcher.FetchOptionChain(ctx, symbol, expiration)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Stage: stage, Err: err}
	}

	stage = StageCompute
	move, err := calculator.ExpectedMove(chain, price)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Stage: stage, Err: err}
	}
	b, err := calculator.CalculateBands(symbol, price, move)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Stage: stage, Err: err}
	}
	b.Expiration = expiration
	return &b, nil
}
