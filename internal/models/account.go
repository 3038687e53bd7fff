package models

// AccountCategory classifies a chart-of-accounts entry.
type AccountCategory string

const (
	CategoryAsset     AccountCategory = "asset"
	CategoryLiability AccountCategory = "liability"
	CategoryEquity    AccountCategory = "equity"
	CategoryRevenue   AccountCategory = "revenue"
	CategoryExpense   AccountCategory = "expense"
)

// Account is a chart-of-accounts entry.
type Account struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"companyId"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Category  AccountCategory `json:"category"`
	IsActive  bool            `json:"isActive"`
}

// MappingRule maps transaction descriptions to a debit/credit account pair.
// Lower priority values are evaluated first; ties keep declaration order.
// Rules are immutable once loaded for a classification pass.
type MappingRule struct {
	Pattern           string `json:"pattern"`
	DebitAccountCode  string `json:"debitAccountCode"`
	CreditAccountCode string `json:"creditAccountCode"`
	Priority          int    `json:"priority"`
	Description       string `json:"description"`
}
