package calculator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"SigmaHunter/internal/model"
)

var (
	ErrInvalidPrice   = errors.New("price must be positive and finite")
	ErrNoExpirations  = errors.New("no option expirations available")
	ErrEmptyChain     = errors.New("option chain has no calls or no puts")
	ErrMissingPremium = errors.New("ATM contract has no usable last price")
)

// SelectATM returns the contract whose strike is closest to price.
// When two strikes are equally close the lower strike wins, regardless of input order.
func SelectATM(contracts []model.OptionContract, price float64) (model.OptionContract, error) {
	if len(contracts) == 0 {
		return model.OptionContract{}, ErrEmptyChain
	}
	best := contracts[0]
	bestDist := math.Abs(best.Strike - price)
	for _, c := range contracts[1:] {
		d := math.Abs(c.Strike - price)
		if d < bestDist || (d == bestDist && c.Strike < best.Strike) {
			best, bestDist = c, d
		}
	}
	return best, nil
}

func premium(c model.OptionContract) (float64, error) {
	if c.LastPrice == nil {
		return 0, fmt.Errorf("strike %.2f: %w", c.Strike, ErrMissingPremium)
	}
	p := *c.LastPrice
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, fmt.Errorf("strike %.2f: last price %v: %w", c.Strike, p, ErrMissingPremium)
	}
	return p, nil
}

// ExpectedMove sums the last premiums of the ATM call and the ATM put.
// Call and put are selected independently and may sit on different strikes.
func ExpectedMove(chain *model.OptionChain, price float64) (float64, error) {
	if err := validatePrice(price); err != nil {
		return 0, err
	}
	if chain == nil || len(chain.Calls) == 0 || len(chain.Puts) == 0 {
		return 0, ErrEmptyChain
	}
	call, err := SelectATM(chain.Calls, price)
	if err != nil {
		return 0, err
	}
	put, err := SelectATM(chain.Puts, price)
	if err != nil {
		return 0, err
	}
	cp, err := premium(call)
	if err != nil {
		return 0, fmt.Errorf("call %w", err)
	}
	pp, err := premium(put)
	if err != nil {
		return 0, fmt.Errorf("put %w", err)
	}
	return cp + pp, nil
}

// CalculateBands derives the one- and two-sigma ranges around price.
func CalculateBands(symbol string, price, move float64) (model.SymbolBand, error) {
	if err := validatePrice(price); err != nil {
		return model.SymbolBand{}, err
	}
	if math.IsNaN(move) || math.IsInf(move, 0) || move < 0 {
		return model.SymbolBand{}, fmt.Errorf("move %v must be non-negative", move)
	}
	// DistancePct is exactly 2*move/price*100, not derived from Band2Low.
	return model.SymbolBand{
		Symbol:      symbol,
		Price:       price,
		Move:        move,
		Band1Low:    price - move,
		Band1High:   price + move,
		Band2Low:    price - 2*move,
		Band2High:   price + 2*move,
		DistancePct: 2 * move / price * 100,
	}, nil
}

// NearestExpiration returns the earliest expiration in the list.
func NearestExpiration(expirations []time.Time) (time.Time, error) {
	if len(expirations) == 0 {
		return time.Time{}, ErrNoExpirations
	}
	nearest := expirations[0]
	for _, e := range expirations[1:] {
		if e.Before(nearest) {
			nearest = e
		}
	}
	return nearest, nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%v: %w", price, ErrInvalidPrice)
	}
	return nil
}
