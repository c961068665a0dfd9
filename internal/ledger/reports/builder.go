package reports

import (
	"fmt"
	"sort"

	"github.com/keystone-erp/keystone/internal/ledger/accounts"
	"github.com/keystone-erp/keystone/internal/ledger/periods"
	"github.com/keystone-erp/keystone/internal/ledger/shared"
)

// The builders are pure: they take a period and a registry snapshot and
// return a report document, so they are testable without storage. Balances
// arrive under the posting convention where debits increased and credits
// decreased the stored value regardless of account type. Balance sheet lines
// copy those values verbatim; the income statement compensates for revenue
// with abs() when totalling.

// BuildBalanceSheet assembles a balance sheet snapshot over asset, liability
// and equity accounts.
func BuildBalanceSheet(period periods.Period, rows []BalanceRow, params Parameters) FinancialReport {
	report := newReport(ReportTypeBalanceSheet, "BS", period, params)
	order := 0
	for _, accountType := range []string{
		string(accounts.AccountTypeAsset),
		string(accounts.AccountTypeLiability),
		string(accounts.AccountTypeEquity),
	} {
		section := selectRows(rows, params, accountType)
		var subTotal float64
		for _, row := range section {
			report.Lines = append(report.Lines, accountLine(row, &order))
			subTotal += row.CurrentBalance
		}
		subTotal = shared.Round2(subTotal)
		report.Lines = append(report.Lines, subTotalLine(sectionLabel(accountType), subTotal, &order))
		switch accountType {
		case string(accounts.AccountTypeAsset):
			report.Summary.TotalAssets = subTotal
		case string(accounts.AccountTypeLiability):
			report.Summary.TotalLiabilities = subTotal
		case string(accounts.AccountTypeEquity):
			report.Summary.TotalEquity = subTotal
		}
	}
	return report
}

// BuildIncomeStatement assembles an income statement over revenue and expense
// accounts. Revenue balances are negative under the posting convention, so
// each contributes abs(currentBalance) to totalRevenue; expenses contribute
// their stored value directly.
func BuildIncomeStatement(period periods.Period, rows []BalanceRow, params Parameters) FinancialReport {
	report := newReport(ReportTypeIncomeStatement, "IS", period, params)
	order := 0

	revenue := selectRows(rows, params, string(accounts.AccountTypeRevenue))
	var totalRevenue float64
	for _, row := range revenue {
		report.Lines = append(report.Lines, accountLine(row, &order))
		totalRevenue += shared.Abs(row.CurrentBalance)
	}
	totalRevenue = shared.Round2(totalRevenue)
	report.Lines = append(report.Lines, subTotalLine("Total Revenue", totalRevenue, &order))

	expense := selectRows(rows, params, string(accounts.AccountTypeExpense))
	var totalExpenses float64
	for _, row := range expense {
		report.Lines = append(report.Lines, accountLine(row, &order))
		totalExpenses += row.CurrentBalance
	}
	totalExpenses = shared.Round2(totalExpenses)
	report.Lines = append(report.Lines, subTotalLine("Total Expenses", totalExpenses, &order))

	netIncome := shared.Round2(totalRevenue - totalExpenses)
	report.Lines = append(report.Lines, totalLine("Net Income", netIncome, &order))

	report.Summary.TotalRevenue = totalRevenue
	report.Summary.TotalExpenses = totalExpenses
	report.Summary.NetIncome = netIncome
	return report
}

// BuildTrialBalance assembles a trial balance over every account type,
// splitting each stored balance into the conventional debit or credit column.
func BuildTrialBalance(period periods.Period, rows []BalanceRow, params Parameters) FinancialReport {
	report := newReport(ReportTypeTrialBalance, "TB", period, params)
	order := 0
	selected := selectRows(rows, params, "")
	var totalDebit, totalCredit float64
	for _, row := range selected {
		line := accountLine(row, &order)
		if row.CurrentBalance >= 0 {
			line.DebitAmount = row.CurrentBalance
			totalDebit += row.CurrentBalance
		} else {
			line.CreditAmount = shared.Abs(row.CurrentBalance)
			totalCredit += shared.Abs(row.CurrentBalance)
		}
		report.Lines = append(report.Lines, line)
	}
	totalDebit = shared.Round2(totalDebit)
	totalCredit = shared.Round2(totalCredit)
	total := totalLine("Totals", shared.Round2(totalDebit-totalCredit), &order)
	total.DebitAmount = totalDebit
	total.CreditAmount = totalCredit
	report.Lines = append(report.Lines, total)

	report.Summary.TotalDebit = totalDebit
	report.Summary.TotalCredit = totalCredit
	return report
}

func newReport(reportType ReportType, prefix string, period periods.Period, params Parameters) FinancialReport {
	return FinancialReport{
		ReportNumber:     fmt.Sprintf("%s-%d-%02d", prefix, period.FiscalYear, period.PeriodNumber),
		ReportType:       reportType,
		AccountingPeriod: period.ID,
		StartDate:        period.StartDate,
		EndDate:          period.EndDate,
		Status:           ReportStatusGenerated,
		Parameters:       params,
	}
}

// selectRows filters the snapshot for one account type (or all types when
// accountType is empty) and orders it by account code.
func selectRows(rows []BalanceRow, params Parameters, accountType string) []BalanceRow {
	var out []BalanceRow
	for _, row := range rows {
		if accountType != "" && row.AccountType != accountType {
			continue
		}
		if params.DetailAccountsOnly && !row.IsDetailAccount {
			continue
		}
		if !params.IncludeZeroBalance && row.CurrentBalance == 0 {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out
}

func accountLine(row BalanceRow, order *int) ReportLine {
	*order++
	return ReportLine{
		AccountID:      row.AccountID,
		AccountCode:    row.AccountCode,
		AccountName:    row.AccountName,
		OpeningBalance: row.OpeningBalance,
		EndingBalance:  row.CurrentBalance,
		DisplayOrder:   *order,
		IndentLevel:    1,
	}
}

func subTotalLine(name string, amount float64, order *int) ReportLine {
	*order++
	return ReportLine{
		AccountName:   name,
		EndingBalance: amount,
		DisplayOrder:  *order,
		IsSubTotal:    true,
	}
}

func totalLine(name string, amount float64, order *int) ReportLine {
	*order++
	return ReportLine{
		AccountName:   name,
		EndingBalance: amount,
		DisplayOrder:  *order,
		IsTotal:       true,
	}
}

func sectionLabel(accountType string) string {
	switch accountType {
	case string(accounts.AccountTypeAsset):
		return "Total Assets"
	case string(accounts.AccountTypeLiability):
		return "Total Liabilities"
	case string(accounts.AccountTypeEquity):
		return "Total Equity"
	}
	return "Total"
}
