// Package analytics computes spending aggregates over normalized
// transactions. All arithmetic runs on exact decimals; nothing here touches
// the database, callers pass in the transaction set they care about.
package analytics

import (
	"sort"
	"time"

	"ledgerlens/internal/models"

	"github.com/shopspring/decimal"
)

// Summary is the statement-level rollup cached on each statement row.
type Summary struct {
	TransactionCount int             `json:"transaction_count"`
	TotalCredits     decimal.Decimal `json:"total_credits"`
	TotalDebits      decimal.Decimal `json:"total_debits"`
	NetAmount        decimal.Decimal `json:"net_amount"`
}

// Summarize computes the statement rollup. TotalDebits is reported as a
// positive magnitude; NetAmount is credits minus debits.
func Summarize(txns []*models.Transaction) Summary {
	summary := Summary{
		TransactionCount: len(txns),
		TotalCredits:     decimal.Zero,
		TotalDebits:      decimal.Zero,
	}
	for _, tx := range txns {
		if tx.Amount.IsNegative() {
			summary.TotalDebits = summary.TotalDebits.Add(tx.Amount.Abs())
		} else {
			summary.TotalCredits = summary.TotalCredits.Add(tx.Amount)
		}
	}
	summary.NetAmount = summary.TotalCredits.Sub(summary.TotalDebits)
	return summary
}

// Period selects transactions by date. Start/End form a half-open range
// [Start, End); when both are zero the period is unbounded. Year and Month
// echo the calendar window a report was asked for; Month is zero for
// year-only periods.
type Period struct {
	Start time.Time
	End   time.Time
	Year  int
	Month time.Month
}

// Contains reports whether a date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	if !p.Start.IsZero() && date.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !date.Before(p.End) {
		return false
	}
	return true
}

// MonthPeriod covers one calendar month.
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0), Year: year, Month: month}
}

// YearPeriod covers one calendar year.
func YearPeriod(year int) Period {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(1, 0, 0), Year: year}
}

// CategorySpending is the per-category slice of a spending report. Amount
// is the positive spending magnitude; Percentage is the share of total
// spending, rounded to two decimal places.
type CategorySpending struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Count      int             `json:"transaction_count"`
}

// DailySpending is one day's activity. Amount counts spending only; Count
// counts every transaction dated that day.
type DailySpending struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"transaction_count"`
}

// ReportPeriod echoes the calendar window of a report. Month is omitted for
// year-only reports.
type ReportPeriod struct {
	Year      int    `json:"year"`
	Month     int    `json:"month,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SpendingReport aggregates spending for a period. TotalSpending and
// TotalCredits are positive magnitudes; NetAmount is credits minus spending.
type SpendingReport struct {
	Period        ReportPeriod       `json:"period"`
	TotalSpending decimal.Decimal    `json:"total_spending"`
	TotalCredits  decimal.Decimal    `json:"total_credits"`
	NetAmount     decimal.Decimal    `json:"net_amount"`
	Categories    []CategorySpending `json:"categories"`
	Daily         []DailySpending    `json:"daily_breakdown"`
}

var oneHundred = decimal.NewFromInt(100)

// Spending builds the per-category and per-day breakdown for the period.
// Only negative amounts count as spending; payments toward the balance are
// spending like any other debit as far as the report is concerned, since
// the sign convention already classified them. Categories sort by amount
// descending, days ascending.
func Spending(txns []*models.Transaction, period Period) SpendingReport {
	report := SpendingReport{
		Period:        reportPeriod(period),
		TotalSpending: decimal.Zero,
		TotalCredits:  decimal.Zero,
	}

	type categoryAcc struct {
		amount decimal.Decimal
		count  int
	}
	byCategory := make(map[string]*categoryAcc)
	type dailyAcc struct {
		amount decimal.Decimal
		count  int
	}
	byDay := make(map[time.Time]*dailyAcc)

	for _, tx := range txns {
		if !period.Contains(tx.Date) {
			continue
		}

		day := time.Date(tx.Date.Year(), tx.Date.Month(), tx.Date.Day(), 0, 0, 0, 0, time.UTC)
		dAcc, ok := byDay[day]
		if !ok {
			dAcc = &dailyAcc{amount: decimal.Zero}
			byDay[day] = dAcc
		}
		dAcc.count++

		if !tx.Amount.IsNegative() {
			report.TotalCredits = report.TotalCredits.Add(tx.Amount)
			continue
		}
		spent := tx.Amount.Abs()
		report.TotalSpending = report.TotalSpending.Add(spent)
		dAcc.amount = dAcc.amount.Add(spent)

		category := models.UncategorizedCategory
		if tx.Category != nil && *tx.Category != "" {
			category = *tx.Category
		}
		cAcc, ok := byCategory[category]
		if !ok {
			cAcc = &categoryAcc{amount: decimal.Zero}
			byCategory[category] = cAcc
		}
		cAcc.amount = cAcc.amount.Add(spent)
		cAcc.count++
	}

	for category, acc := range byCategory {
		entry := CategorySpending{
			Category:   category,
			Amount:     acc.amount,
			Percentage: decimal.Zero,
			Count:      acc.count,
		}
		if report.TotalSpending.IsPositive() {
			entry.Percentage = acc.amount.Mul(oneHundred).DivRound(report.TotalSpending, 2)
		}
		report.Categories = append(report.Categories, entry)
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		if !report.Categories[i].Amount.Equal(report.Categories[j].Amount) {
			return report.Categories[i].Amount.GreaterThan(report.Categories[j].Amount)
		}
		return report.Categories[i].Category < report.Categories[j].Category
	})

	for day, acc := range byDay {
		report.Daily = append(report.Daily, DailySpending{Date: day, Amount: acc.amount, Count: acc.count})
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Date.Before(report.Daily[j].Date)
	})

	report.NetAmount = report.TotalCredits.Sub(report.TotalSpending)
	return report
}

// reportPeriod renders the period with inclusive calendar dates.
func reportPeriod(p Period) ReportPeriod {
	rp := ReportPeriod{Year: p.Year, Month: int(p.Month)}
	if !p.Start.IsZero() {
		rp.StartDate = p.Start.Format("2006-01-02")
	}
	if !p.End.IsZero() {
		rp.EndDate = p.End.AddDate(0, 0, -1).Format("2006-01-02")
	}
	return rp
}
