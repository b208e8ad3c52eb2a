package model

import "time"

// OptionContract is a single strike of an option chain.
type OptionContract struct {
	Strike    float64
	LastPrice *float64 // nil when the contract has no usable last trade
}

// OptionChain holds the calls and puts of one expiration.
type OptionChain struct {
	Symbol     string
	Expiration time.Time
	Calls      []OptionContract
	Puts       []OptionContract
}
