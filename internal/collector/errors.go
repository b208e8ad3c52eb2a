package collector

import "fmt"

// Stage names the step at which a symbol failed.
type Stage string

const (
	StagePrice       Stage = "price"
	StageExpirations Stage = "expirations"
	StageChain       Stage = "chain"
	StageCompute     Stage = "compute"
)

// FetchError marks a symbol as unavailable for this run.
type FetchError struct {
	Symbol string
	Stage  Stage
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Symbol, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
