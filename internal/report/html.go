package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"time"

	"SigmaHunter/internal/calculator"
	"SigmaHunter/internal/model"
)

// TimestampLayout is the format of the generation time embedded in the dashboard.
const TimestampLayout = "2006-01-02 15:04:05"

// TailwindCDN is the styling framework the dashboard loads.
const TailwindCDN = "https://cdn.tailwindcss.com"

const (
	calmClass  = "text-yellow-400"
	alertClass = "text-red-500 font-bold"
)

//go:embed dashboard.html.tmpl
var dashboardTemplate string

var dashboard = template.Must(template.New("dashboard").Parse(dashboardTemplate))

// Options controls presentation only; it never changes computed values.
type Options struct {
	Title             string
	ShowDistance      bool
	DistanceThreshold float64 // distance above this is calm, at or below is alert
}

// DefaultOptions matches the distance-indicator variant of the dashboard.
func DefaultOptions() Options {
	return Options{Title: "Sigma Hunter", ShowDistance: true, DistanceThreshold: 2}
}

type card struct {
	Symbol        string
	Price         string
	Band1Low      string
	Band1High     string
	Band2Low      string
	Band2High     string
	DistancePct   string
	DistanceClass string
	Expiration    string
}

type page struct {
	Title         string
	StylesheetURL string
	GeneratedAt   string
	ShowDistance  bool
	Cards         []card
}

// DistanceClass picks the emphasis for the distance indicator. The distance
// is rounded to the two decimals shown on the card before comparing, so a
// card reading "2.00% left" is never calm at threshold 2.
func DistanceClass(distancePct, threshold float64) string {
	if calculator.Round2Float(distancePct) > threshold {
		return calmClass
	}
	return alertClass
}

func newCard(b model.SymbolBand, opts Options) card {
	c := card{
		Symbol:        b.Symbol,
		Price:         calculator.Round2(b.Price),
		Band1Low:      calculator.Round2(b.Band1Low),
		Band1High:     calculator.Round2(b.Band1High),
		Band2Low:      calculator.Round2(b.Band2Low),
		Band2High:     calculator.Round2(b.Band2High),
		DistancePct:   calculator.Round2(b.DistancePct),
		DistanceClass: DistanceClass(b.DistancePct, opts.DistanceThreshold),
	}
	if !b.Expiration.IsZero() {
		c.Expiration = b.Expiration.Format("2006-01-02")
	} else {
		c.Expiration = "n/a"
	}
	return c
}

// Render builds the dashboard document. Output depends only on its arguments.
func Render(bands []model.SymbolBand, now time.Time, opts Options) ([]byte, error) {
	p := page{
		Title:         opts.Title,
		StylesheetURL: TailwindCDN,
		GeneratedAt:   now.Format(TimestampLayout),
		ShowDistance:  opts.ShowDistance,
		Cards:         make([]card, 0, len(bands)),
	}
	for _, b := range bands {
		p.Cards = append(p.Cards, newCard(b, opts))
	}
	var buf bytes.Buffer
	if err := dashboard.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render dashboard: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile overwrites path with the rendered document.
func WriteFile(path string, doc []byte) error {
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}
