package report

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"SigmaHunter/internal/calculator"
	"SigmaHunter/internal/model"
)

// PrintTable writes a console summary of the run: one line per requested symbol.
func PrintTable(w io.Writer, run *model.Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Price", "Move", "1σ Range", "2σ Range", "Dist %", "Status"})
	table.SetAutoWrapText(false)
	for _, r := range run.Results {
		if !r.OK() {
			status := "unavailable"
			if r.Err != nil {
				status += ": " + r.Err.Error()
			}
			table.Append([]string{r.Symbol, "", "", "", "", "", status})
			continue
		}
		b := r.Band
		table.Append([]string{
			b.Symbol,
			calculator.Round2(b.Price),
			calculator.Round2(b.Move),
			calculator.Round2(b.Band1Low) + " ~ " + calculator.Round2(b.Band1High),
			calculator.Round2(b.Band2Low) + " ~ " + calculator.Round2(b.Band2High),
			calculator.Round2(b.DistancePct),
			"ok",
		})
	}
	table.Render()
}
