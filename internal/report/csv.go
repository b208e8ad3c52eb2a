package report

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"SigmaHunter/internal/calculator"
	"SigmaHunter/internal/model"
)

// BandRow is the CSV form of a SymbolBand, rounded for display.
type BandRow struct {
	Symbol      string  `csv:"symbol"`
	Expiration  string  `csv:"expiration"`
	Price       float64 `csv:"price"`
	Move        float64 `csv:"move"`
	Band1Low    float64 `csv:"band1_low"`
	Band1High   float64 `csv:"band1_high"`
	Band2Low    float64 `csv:"band2_low"`
	Band2High   float64 `csv:"band2_high"`
	DistancePct float64 `csv:"distance_pct"`
}

// Rows converts bands into CSV rows, preserving order.
func Rows(bands []model.SymbolBand) []*BandRow {
	rows := make([]*BandRow, 0, len(bands))
	for _, b := range bands {
		row := &BandRow{
			Symbol:      b.Symbol,
			Price:       calculator.Round2Float(b.Price),
			Move:        calculator.Round2Float(b.Move),
			Band1Low:    calculator.Round2Float(b.Band1Low),
			Band1High:   calculator.Round2Float(b.Band1High),
			Band2Low:    calculator.Round2Float(b.Band2Low),
			Band2High:   calculator.Round2Float(b.Band2High),
			DistancePct: calculator.Round2Float(b.DistancePct),
		}
		if !b.Expiration.IsZero() {
			row.Expiration = b.Expiration.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV overwrites path with one row per band.
func WriteCSV(path string, bands []model.SymbolBand) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(Rows(bands), f); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
