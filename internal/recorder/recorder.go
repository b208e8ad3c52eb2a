package recorder

import (
	"time"

	"SigmaHunter/internal/model"
)

// Recorder persists the history of dashboard runs for later analysis.
type Recorder interface {
	RecordRun(run *model.Run) error
	Close() error
}

// History is implemented by recorders that can read back stored bands.
// LatestBand returns nil and a zero time when symbol has never been recorded.
type History interface {
	LatestBand(symbol string) (*model.SymbolBand, time.Time, error)
}
