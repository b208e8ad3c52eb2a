package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigmaHunter/internal/calculator"
	"SigmaHunter/internal/model"
)

func px(v float64) *float64 { return &v }

var testExpiration = time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)

func chainAt(symbol string, callStrike, callLast, putStrike, putLast float64) *model.OptionChain {
	return &model.OptionChain{
		Symbol:     symbol,
		Expiration: testExpiration,
		Calls:      []model.OptionContract{{Strike: callStrike, LastPrice: px(callLast)}},
		Puts:       []model.OptionContract{{Strike: putStrike, LastPrice: px(putLast)}},
	}
}

func TestCollect_MiddleSymbolFailsOthersContinue(t *testing.T) {
	m := &MockFetcher{
		Prices: map[string]float64{"SOXX": 100, "URA": 30, "GLD": 200},
		Expirations: map[string][]time.Time{
			"SOXX": {testExpiration}, "URA": {testExpiration}, "GLD": {testExpiration},
		},
		Chains: map[string]*model.OptionChain{
			"SOXX": chainAt("SOXX", 100, 2.5, 100, 1.5),
			"URA":  {Symbol: "URA", Expiration: testExpiration},
			"GLD":  chainAt("GLD", 200, 3, 200, 2),
		},
	}
	results, err := NewCollector(m).Collect(context.Background(), []string{"SOXX", "URA", "GLD"})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"SOXX", "URA", "GLD"}, m.Requested)

	assert.True(t, results[0].OK())
	assert.Equal(t, 4.0, results[0].Band.Move)
	assert.Equal(t, 96.0, results[0].Band.Band1Low)
	assert.Equal(t, testExpiration, results[0].Band.Expiration)

	assert.False(t, results[1].OK())
	var fe *FetchError
	require.True(t, errors.As(results[1].Err, &fe))
	assert.Equal(t, "URA", fe.Symbol)
	assert.Equal(t, StageCompute, fe.Stage)
	assert.ErrorIs(t, results[1].Err, calculator.ErrEmptyChain)

	assert.True(t, results[2].OK())
	assert.Equal(t, 190.0, results[2].Band.Band2Low)

	run := &model.Run{Results: results}
	bands := run.Bands()
	require.Len(t, bands, 2)
	assert.Equal(t, "SOXX", bands[0].Symbol)
	assert.Equal(t, "GLD", bands[1].Symbol)
	assert.Len(t, run.Failures(), 1)
}

func TestCollectSymbol_Stages(t *testing.T) {
	m := &MockFetcher{
		Prices:      map[string]float64{"NOEXP": 50},
		Expirations: map[string][]time.Time{"NOEXP": nil},
		Errs:        map[string]error{"DOWN": errors.New("connection refused")},
	}
	c := NewCollector(m)

	_, err := c.CollectSymbol(context.Background(), "DOWN")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StagePrice, fe.Stage)

	_, err = c.CollectSymbol(context.Background(), "NOEXP")
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageExpirations, fe.Stage)
	assert.ErrorIs(t, err, calculator.ErrNoExpirations)
}

func TestCollectSymbol_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCollector(NewMockFetcher([]string{"GLD"})).CollectSymbol(ctx, "GLD")
	assert.ErrorIs(t, err, context.Canceled)
}

type panicFetcher struct{ MockFetcher }

func (p *panicFetcher) FetchOptionChain(context.Context, string, time.Time) (*model.OptionChain, error) {
	var chains []*model.OptionChain
	return chains[3], nil
}

func TestCollect_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMockFetcher([]string{"SOXX", "URA"})
	results, err := NewCollector(m).Collect(ctx, []string{"SOXX", "URA"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, m.Requested)
}

func TestCollectSymbol_PanicBecomesFailure(t *testing.T) {
	f := &panicFetcher{MockFetcher: MockFetcher{Prices: map[string]float64{"UGL": 80}}}
	_, err := NewCollector(f).CollectSymbol(context.Background(), "UGL")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageChain, fe.Stage)
}

func TestMockFetcher_GeneratedChainProducesBand(t *testing.T) {
	symbols := []string{"SOXX", "URA", "GLD", "UGL"}
	results, err := NewCollector(NewMockFetcher(symbols)).Collect(context.Background(), symbols)
	require.NoError(t, err)
	for _, r := range results {
		require.True(t, r.OK(), "%s: %v", r.Symbol, r.Err)
		assert.Greater(t, r.Band.Move, 0.0)
	}
}
