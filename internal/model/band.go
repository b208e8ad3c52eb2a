package model

import "time"

// SymbolBand is the expected-move band computed for one symbol.
type SymbolBand struct {
	Symbol      string
	Price       float64
	Move        float64 // ATM call premium + ATM put premium
	Band1Low    float64
	Band1High   float64
	Band2Low    float64
	Band2High   float64
	DistancePct float64 // (Price - Band2Low) / Price * 100
	Expiration  time.Time
}

// BandResult is the outcome for one requested symbol. Exactly one of Band and Err is set.
type BandResult struct {
	Symbol string
	Band   *SymbolBand
	Err    error
}

// OK reports whether the symbol produced a band.
func (r BandResult) OK() bool { return r.Err == nil && r.Band != nil }

// Run is the output of one dashboard generation.
type Run struct {
	ID        string
	StartedAt time.Time
	Results   []BandResult
}

// Bands returns the successful bands in request order.
func (r *Run) Bands() []SymbolBand {
	bands := make([]SymbolBand, 0, len(r.Results))
	for _, res := range r.Results {
		if res.OK() {
			bands = append(bands, *res.Band)
		}
	}
	return bands
}

// Failures returns the results that did not produce a band.
func (r *Run) Failures() []BandResult {
	var failed []BandResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}
