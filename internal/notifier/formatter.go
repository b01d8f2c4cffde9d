package notifier

import (
	"fmt"
	"html"
	"strings"

	"ForecastSentinel/internal/model"
)

func fmtPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

// FormatBreach formats a band breach for one instrument.
func FormatBreach(res model.RunResult) string {
	var b strings.Builder
	icon := "🔻"
	label := "below lower band"
	if res.Assessment.Signal == model.SignalAboveUpper {
		icon, label = "🔺", "above upper band"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%s) %s\n\n",
		icon, html.EscapeString(res.Instrument.DisplayName()), html.EscapeString(res.Instrument.Symbol), label))
	b.WriteString(fmt.Sprintf("Bar: %s (%s)\n", res.Assessment.Time.Format("2006-01-02 15:04"), res.Timeframe))
	b.WriteString(fmt.Sprintf("Close: %s\n", fmtPtr(res.Assessment.Close)))
	b.WriteString(fmt.Sprintf("Band: %s … %s\n", fmtPtr(res.Assessment.Lower), fmtPtr(res.Assessment.Upper)))
	if res.Action.Status == model.StatusSent {
		b.WriteString(fmt.Sprintf("\n🤖 Autotrade %s sent\n", strings.ToLower(string(res.Action.Action))))
	}
	return b.String()
}

// FormatDispatchFailure formats a webhook failure.
func FormatDispatchFailure(res model.RunResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>Autotrade %s failed</b> for %s\n\n",
		strings.ToLower(string(res.Action.Action)), html.EscapeString(res.Instrument.Symbol)))
	b.WriteString(html.EscapeString(res.Action.Error))
	b.WriteString("\n\nNot retried. Check the bot and re-run with /refresh.")
	return b.String()
}

// FormatStatus formats the autotrade state and the latest signal per instrument.
func FormatStatus(state model.AutotradeState, results []model.RunResult) string {
	var b strings.Builder
	b.WriteString("📦 <b>ForecastSentinel status</b>\n\n")
	b.WriteString(FormatAutotrade(state))
	if len(results) == 0 {
		b.WriteString("\nNo runs yet.\n")
		return b.String()
	}
	b.WriteString("\n")
	for _, r := range results {
		if r.Error != "" {
			b.WriteString(fmt.Sprintf("❌ %s %s: %s\n", html.EscapeString(r.Instrument.Symbol), r.Timeframe, html.EscapeString(r.Error)))
			continue
		}
		b.WriteString(fmt.Sprintf("• %s %s: %s (close %s)\n",
			html.EscapeString(r.Instrument.Symbol), r.Timeframe, r.Assessment.Signal, fmtPtr(r.Assessment.Close)))
	}
	return b.String()
}

// FormatAutotrade formats the autotrade toggle.
func FormatAutotrade(state model.AutotradeState) string {
	status := "OFF"
	if state.Enabled {
		status = "ON"
	}
	s := fmt.Sprintf("Autotrade: <b>%s</b>\n", status)
	if !state.UpdatedAt.IsZero() {
		s += fmt.Sprintf("Updated: %s\n", state.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return s
}
