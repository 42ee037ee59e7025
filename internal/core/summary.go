package core

// UncategorizedLabel groups transactions without a category in summaries.
const UncategorizedLabel = "Uncategorized"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// DashboardSummary is the monthly income/expense overview of one user.
type DashboardSummary struct {
	Month        int              `json:"month"`
	Year         int              `json:"year"`
	TotalIncome  Money            `json:"total_income"`
	TotalExpense Money            `json:"total_expense"`
	Net          Money            `json:"net"`
	ByCategory   []CategoryAmount `json:"by_category"`
}

// EvolutionPoint is one month of the rolling income/expense series.
type EvolutionPoint struct {
	Label   string `json:"month"`
	Year    int    `json:"-"`
	Month   int    `json:"-"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// ExportRow is a flat transaction line ready for CSV/PDF/sheet rendering.
type ExportRow struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Values returns the row in column order: date, type, amount, category, description.
func (r ExportRow) Values() []string {
	return []string{r.Date, r.Type, r.Amount, r.Category, r.Description}
}

// ExportHeader lists the column names matching ExportRow.Values.
var ExportHeader = []string{"date", "type", "amount", "category", "description"}
