package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"PresenceTrader/internal/executor"
	"PresenceTrader/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// FormatExecution formats an order attempt.
func FormatExecution(exec executor.Execution) string {
	var b strings.Builder

	icon := "🟢"
	if exec.Side == model.SideSell {
		icon = "🔴"
	}
	if exec.Outcome == executor.Rejected {
		icon = "⛔"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> %s\n", icon, strings.ToUpper(string(exec.Side)), html.EscapeString(exec.Symbol), exec.Outcome))

	o := exec.Order
	if !o.Quantity.IsZero() {
		b.WriteString(fmt.Sprintf("Quantity: %s\n", o.Quantity))
	}
	if o.FilledPrice.IsPositive() {
		b.WriteString(fmt.Sprintf("Price: %s\n", o.FilledPrice.StringFixed(2)))
	}
	if o.OrderID != "" {
		b.WriteString(fmt.Sprintf("Order: <code>%s</code> (%s)\n", html.EscapeString(o.OrderID), o.Status))
	}
	if exec.Reason != "" {
		b.WriteString(fmt.Sprintf("Reason: %s\n", html.EscapeString(exec.Reason)))
	}
	if !exec.Account.FetchedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Buying power: %s\n", exec.Account.BuyingPower.StringFixed(2)))
	}
	return b.String()
}

// FormatError formats a loop failure.
func FormatError(err error) string {
	return fmt.Sprintf("⚠️ <b>Trading error</b>\n<code>%s</code>", html.EscapeString(err.Error()))
}

// FormatAccount formats buying power, equity and holdings.
func FormatAccount(acct model.AccountSnapshot, holdings []model.Holding) string {
	var b strings.Builder
	b.WriteString("💼 <b>Account</b>\n\n")
	b.WriteString(fmt.Sprintf("Buying power: %s\n", acct.BuyingPower.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Equity: %s\n", acct.TotalEquity.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Liquidity: %s%%\n", acct.LiquidityRatio().Shift(2).StringFixed(1)))

	if len(holdings) == 0 {
		b.WriteString("\nNo holdings\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("\n<b>Holdings (%d)</b>\n", len(holdings)))
	for _, h := range holdings {
		b.WriteString(fmt.Sprintf("  %s %s (since %s)\n", html.EscapeString(h.Symbol), h.Quantity, h.UpdatedAt.Format(timeLayout)))
	}
	return b.String()
}

// FormatSummary formats the periodic account summary.
func FormatSummary(acct model.AccountSnapshot, holdings []model.Holding) string {
	at := acct.FetchedAt
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("📊 <b>Summary</b> | %s\n\n", at.Format(timeLayout)) + FormatAccount(acct, holdings)
}

// FormatStatus formats the currently offered instrument and both gauges.
func FormatStatus(symbol, description, sector string, rotation, trigger int, state string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 <b>%s</b> %s\n", html.EscapeString(symbol), html.EscapeString(description)))
	if sector != "" {
		b.WriteString(fmt.Sprintf("Sector: %s\n", html.EscapeString(sector)))
	}
	b.WriteString(fmt.Sprintf("Trigger: %d%%\n", trigger))
	b.WriteString(fmt.Sprintf("Rotation: %d%%\n", rotation))
	b.WriteString(fmt.Sprintf("State: %s\n", state))
	return b.String()
}
