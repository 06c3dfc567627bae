package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

// CycleSummary is the subset of a daily cycle shown in the push message.
type CycleSummary struct {
	Symbol          string
	BarDate         string
	Attempts        int
	Open            decimal.Decimal
	Close           decimal.Decimal
	Verdict         bool
	VerdictNote     string
	PriorExperiment decimal.Decimal
	Experiment      decimal.Decimal
	PriorControl    decimal.Decimal
	Control         decimal.Decimal
}

// FormatCycle formats a completed cycle into a Telegram message.
func FormatCycle(s CycleSummary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s daily cycle</b> | bar %s\n\n", html.EscapeString(s.Symbol), s.BarDate))
	b.WriteString(fmt.Sprintf("Open: %s | Close: %s\n", s.Open.String(), s.Close.String()))
	if s.Attempts > 1 {
		b.WriteString(fmt.Sprintf("Rolled back %d days to find data\n", s.Attempts-1))
	}

	verdict := "🟢 invest"
	if !s.Verdict {
		verdict = "⚪ stay out"
	}
	b.WriteString(fmt.Sprintf("\n🧠 <b>Sentiment:</b> %s\n", verdict))
	if s.VerdictNote != "" {
		b.WriteString(fmt.Sprintf("   (defaulted: %s)\n", html.EscapeString(s.VerdictNote)))
	}

	b.WriteString("\n💰 <b>Ledgers:</b>\n")
	b.WriteString(fmt.Sprintf("  experiment: %s → %s\n", s.PriorExperiment.String(), s.Experiment.String()))
	b.WriteString(fmt.Sprintf("  control:    %s → %s\n", s.PriorControl.String(), s.Control.String()))
	return b.String()
}

// FormatFailure formats a fatal cycle error.
func FormatFailure(symbol string, err error) string {
	return fmt.Sprintf("⚠️ <b>%s daily cycle failed</b>\n\n%s", html.EscapeString(symbol), html.EscapeString(err.Error()))
}

// FormatReport wraps a plain-text experiment report for Telegram.
func FormatReport(report string) string {
	return "<pre>" + html.EscapeString(report) + "</pre>"
}
