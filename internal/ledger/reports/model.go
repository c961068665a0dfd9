package reports

import "time"

// ReportType enumerates supported financial report kinds.
type ReportType string

const (
	ReportTypeBalanceSheet    ReportType = "balance_sheet"
	ReportTypeIncomeStatement ReportType = "income_statement"
	ReportTypeCashFlow        ReportType = "cash_flow"
	ReportTypeTrialBalance    ReportType = "trial_balance"
	ReportTypeGeneralLedger   ReportType = "general_ledger"
)

// Generatable reports whether this service can build the report kind.
// cash_flow and general_ledger are recognised values but have no generator.
func (t ReportType) Generatable() bool {
	switch t {
	case ReportTypeBalanceSheet, ReportTypeIncomeStatement, ReportTypeTrialBalance:
		return true
	}
	return false
}

// ReportStatus enumerates report lifecycle values.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusGenerated ReportStatus = "generated"
	ReportStatusApproved  ReportStatus = "approved"
	ReportStatusPublished ReportStatus = "published"
)

// ReportLine is one immutable snapshot row of a generated report.
type ReportLine struct {
	ID             int64   `json:"-"`
	AccountID      int64   `json:"accountId"`
	AccountCode    string  `json:"accountCode"`
	AccountName    string  `json:"accountName"`
	OpeningBalance float64 `json:"openingBalance"`
	DebitAmount    float64 `json:"debitAmount"`
	CreditAmount   float64 `json:"creditAmount"`
	EndingBalance  float64 `json:"endingBalance"`
	DisplayOrder   int     `json:"displayOrder"`
	IsSubTotal     bool    `json:"isSubTotal"`
	IsTotal        bool    `json:"isTotal"`
	IndentLevel    int     `json:"indentLevel"`
}

// Summary holds the computed report totals. Fields not meaningful for a
// report kind stay zero.
type Summary struct {
	TotalAssets      float64 `json:"totalAssets"`
	TotalLiabilities float64 `json:"totalLiabilities"`
	TotalEquity      float64 `json:"totalEquity"`
	TotalRevenue     float64 `json:"totalRevenue"`
	TotalExpenses    float64 `json:"totalExpenses"`
	NetIncome        float64 `json:"netIncome"`
	GrossProfit      float64 `json:"grossProfit"`
	OperatingIncome  float64 `json:"operatingIncome"`
	TotalDebit       float64 `json:"totalDebit,omitempty"`
	TotalCredit      float64 `json:"totalCredit,omitempty"`
}

// Parameters captures the options a report was generated with.
type Parameters struct {
	IncludeZeroBalance bool           `json:"includeZeroBalance"`
	DetailAccountsOnly bool           `json:"detailAccountsOnly"`
	ComparisonPeriod   *int64         `json:"comparisonPeriod,omitempty"`
	Custom             map[string]any `json:"custom,omitempty"`
}

// FinancialReport is a point-in-time snapshot of account balances. Once
// generated its lines never change; regenerating produces a new document.
type FinancialReport struct {
	ID               int64        `json:"id"`
	ReportNumber     string       `json:"reportNumber"`
	ReportType       ReportType   `json:"reportType"`
	AccountingPeriod int64        `json:"accountingPeriod"`
	StartDate        time.Time    `json:"startDate"`
	EndDate          time.Time    `json:"endDate"`
	Status           ReportStatus `json:"status"`
	Lines            []ReportLine `json:"reportLines"`
	Summary          Summary      `json:"summary"`
	Parameters       Parameters   `json:"parameters"`
	GeneratedAt      time.Time    `json:"generatedAt"`
	GeneratedBy      string       `json:"generatedBy,omitempty"`
	ApprovedAt       *time.Time   `json:"approvedAt,omitempty"`
	ApprovedBy       string       `json:"approvedBy,omitempty"`
	PublishedAt      *time.Time   `json:"publishedAt,omitempty"`
	PublishedBy      string       `json:"publishedBy,omitempty"`
}

// BalanceRow is the registry slice the generators read: one active account
// with its balances at generation time.
type BalanceRow struct {
	AccountID       int64
	AccountCode     string
	AccountName     string
	AccountType     string
	OpeningBalance  float64
	CurrentBalance  float64
	IsDetailAccount bool
}
