package collector

import (
	"context"
	"time"

	"SigmaHunter/internal/model"
)

// Fetcher defines the read operations the dashboard needs from a market-data provider.
type Fetcher interface {
	FetchLastClose(ctx context.Context, symbol string) (float64, error)
	FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error)
	FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) (*model.OptionChain, error)
	Name() string
}
