package notifier

import (
	"fmt"
	"html"
	"strings"

	"LevelSentinel/internal/calculator"
	"LevelSentinel/internal/model"
	"LevelSentinel/internal/recorder"
)

// FormatLevelReport formats the consensus levels of one analysis into a
// Telegram message, nearest levels first.
func FormatLevelReport(a *model.Analysis) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s Support &amp; Resistance</b> | %s, %d bars\n\n",
		html.EscapeString(a.Symbol), html.EscapeString(a.Interval), a.Bars))

	b.WriteString(fmt.Sprintf("Current price: %.2f\n", a.CurrentPrice))
	if pos, err := calculator.CalculateRangePosition(a.CurrentPrice, a.RangeHigh, a.RangeLow); err == nil {
		b.WriteString(fmt.Sprintf("Range: %.2f - %.2f (at %.0f%%)\n", a.RangeLow, a.RangeHigh, pos*100))
	}
	b.WriteString("\n")

	if a.Levels.Empty() {
		b.WriteString("No levels found.\n")
	} else {
		writeSide(&b, "🔺 <b>Resistance</b>", a.Levels.Resistance, a.CurrentPrice, true)
		writeSide(&b, "🔻 <b>Support</b>", a.Levels.Support, a.CurrentPrice, false)
	}

	s, hasS := a.Levels.NearestSupport(a.CurrentPrice)
	r, hasR := a.Levels.NearestResistance(a.CurrentPrice)
	if hasS || hasR {
		b.WriteString("\n🎯 ")
		if hasS {
			b.WriteString(fmt.Sprintf("Nearest support: %.2f (%+.2f%%)", s.Price, distance(s.Price, a.CurrentPrice)))
		}
		if hasS && hasR {
			b.WriteString(" | ")
		}
		if hasR {
			b.WriteString(fmt.Sprintf("Nearest resistance: %.2f (%+.2f%%)", r.Price, distance(r.Price, a.CurrentPrice)))
		}
		b.WriteString("\n")
	}

	if missing := a.Diagnostics.Unavailable(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = m.String()
		}
		b.WriteString(fmt.Sprintf("\n⚠️ Not available: %s\n", strings.Join(names, ", ")))
	}
	return b.String()
}

// writeSide lists one side of the level set, highest price on top.
func writeSide(b *strings.Builder, title string, levels []model.MergedLevel, current float64, above bool) {
	if len(levels) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for i := len(levels) - 1; i >= 0; i-- {
		l := levels[i]
		marker := "•"
		if (above && l.Price < current) || (!above && l.Price > current) {
			marker = "◦" // on the wrong side of price
		}
		b.WriteString(fmt.Sprintf("  %s %.2f  %s", marker, l.Price, html.EscapeString(l.Label)))
		if l.Members > 1 {
			b.WriteString(fmt.Sprintf(" ×%d", l.Members))
		}
		b.WriteString(fmt.Sprintf("  (%.2f)\n", l.Score))
	}
}

func distance(level, current float64) float64 {
	if current == 0 {
		return 0
	}
	return (level - current) / current * 100
}

// FormatDiagnostics lists every method's raw output, or "Not available".
func FormatDiagnostics(a *model.Analysis) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔍 <b>%s method breakdown</b>\n", html.EscapeString(a.Symbol)))
	b.WriteString(strings.Repeat("=", 24) + "\n")
	for _, m := range model.AllMethods() {
		res := a.Diagnostics.Get(m)
		if !res.Available {
			b.WriteString(fmt.Sprintf("\n<b>%s</b>: Not available", m))
			if res.Reason != "" {
				b.WriteString(" (" + html.EscapeString(res.Reason) + ")")
			}
			b.WriteString("\n")
			continue
		}
		b.WriteString(fmt.Sprintf("\n<b>%s</b>:\n", m))
		if len(res.Levels) == 0 {
			b.WriteString("  • none\n")
			continue
		}
		for _, l := range res.Levels {
			b.WriteString(fmt.Sprintf("  • %s: %.2f\n", html.EscapeString(l.Label), l.Price))
		}
	}
	return b.String()
}

// FormatHistory formats recently recorded runs, newest first.
func FormatHistory(symbol string, runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return fmt.Sprintf("No recorded runs for %s.", html.EscapeString(symbol))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>%s history</b>\n\n", html.EscapeString(symbol)))
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s  %.2f  S %s | R %s  (%d/%d)\n",
			r.Timestamp.Format("2006-01-02 15:04"), r.CurrentPrice,
			priceOrDash(r.NearestSupport), priceOrDash(r.NearestResistance),
			r.SupportCount, r.ResistanceCount))
	}
	return b.String()
}

func priceOrDash(p float64) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}
