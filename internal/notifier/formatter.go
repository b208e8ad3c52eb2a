package notifier

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"SigmaHunter/internal/calculator"
	"SigmaHunter/internal/collector"
	"SigmaHunter/internal/model"
)

// FormatRunSummary formats a dashboard run into a Telegram HTML message.
func FormatRunSummary(run *model.Run, threshold float64) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🎯 <b>Sigma Hunter</b> | %s\n\n", run.StartedAt.Format("2006-01-02 15:04")))

	for _, res := range run.Results {
		if !res.OK() {
			continue
		}
		band := res.Band
		marker := ""
		if calculator.Round2Float(band.DistancePct) <= threshold {
			marker = " 🔴"
		}
		b.WriteString(fmt.Sprintf("<b>%s</b> %s (±%s)%s\n",
			html.EscapeString(band.Symbol), calculator.Round2(band.Price), calculator.Round2(band.Move), marker))
		b.WriteString(fmt.Sprintf("  1σ: %s ~ %s\n", calculator.Round2(band.Band1Low), calculator.Round2(band.Band1High)))
		b.WriteString(fmt.Sprintf("  2σ: %s ~ %s | dist %s%%\n",
			calculator.Round2(band.Band2Low), calculator.Round2(band.Band2High), calculator.Round2(band.DistancePct)))
	}

	if failed := run.Failures(); len(failed) > 0 {
		b.WriteString("\n⚠️ <b>Unavailable:</b>\n")
		for _, res := range failed {
			reason := "unknown"
			var fe *collector.FetchError
			if errors.As(res.Err, &fe) {
				reason = string(fe.Stage)
			}
			b.WriteString(fmt.Sprintf("  %s (%s)\n", html.EscapeString(res.Symbol), reason))
		}
	}

	return b.String()
}
