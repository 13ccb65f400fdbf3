package core

const (
	ReportMonthly      ReportKind = "monthly"
	ReportYearly       ReportKind = "yearly"
	ReportCategory     ReportKind = "category"
	ReportRelatedParty ReportKind = "related-party"
)

// ReportKind selects the grouping axis for aggregation.
type ReportKind string

// Valid reports whether k is a known report kind.
func (k ReportKind) Valid() bool {
	switch k {
	case ReportMonthly, ReportYearly, ReportCategory, ReportRelatedParty:
		return true
	}
	return false
}

// ReportRow is one aggregation bucket. Key is the stable grouping key
// (period string or record id); Label is the display name resolved at
// aggregation time. Rows preserve first-occurrence order.
type ReportRow struct {
	Key     string
	Label   string
	Income  Money
	Expense Money
}
