package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-signal-engine/internal/entity"
)

var directionEmoji = map[string]string{
	"BUY":  "🟢",
	"SELL": "🔴",
	"BULL": "🟢",
	"BEAR": "🔴",
}

// FormatSignal renders one signal as a Markdown message.
func FormatSignal(ticker string, signal *entity.Signal) string {
	emoji := directionEmoji[signal.SignalType]
	if emoji == "" {
		emoji = "⚪"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s *%s* %s\n", emoji, ticker, signal.SignalType))
	b.WriteString(fmt.Sprintf("Strategy: `%s`\n", signal.StrategyID))
	b.WriteString(fmt.Sprintf("Timeframe: `%s`\n", signal.Timeframe))
	b.WriteString(fmt.Sprintf("Strength: %.2f | Confidence: %.2f\n", signal.Strength, signal.Confidence))
	if signal.Priority > 0 {
		b.WriteString("⚡ *High priority*\n")
	}
	b.WriteString(fmt.Sprintf("At: %s", signal.Timestamp.Format(time.RFC3339)))
	return b.String()
}

// FormatPipelineSummary renders one pipeline run outcome as a Markdown
// message.
func FormatPipelineSummary(market string, mode string, symbols, signals int, status string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 *Pipeline %s* (%s)\n", strings.ToUpper(market), mode))
	b.WriteString(fmt.Sprintf("Symbols processed: %d\n", symbols))
	b.WriteString(fmt.Sprintf("Signals generated: %d\n", signals))
	b.WriteString(fmt.Sprintf("Status: `%s`", status))
	return b.String()
}
