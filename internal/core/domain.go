package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Customer PartyType = "customer"
	Supplier PartyType = "supplier"
)

type (
	// TransactionType discriminates ledger entries. Every transaction,
	// category and master item is either income or expense.
	TransactionType string

	// PartyType discriminates related parties.
	PartyType string

	// Date is a calendar day without a time component. It is stored and
	// serialized as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	// Transaction is a posted ledger entry together with its line items.
	// CategoryName and RelatedPartyName are resolved on read paths and are
	// never authoritative.
	Transaction struct {
		ID               string
		Date             Date
		Type             TransactionType
		Description      string
		Amount           Money
		PaymentImageRef  string
		OrganizationID   string
		UserID           string
		CategoryID       string
		CategoryName     string
		RelatedPartyID   string
		RelatedPartyName string
		MonthHistoryID   string
		Items            []Item
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	// Item is a transaction line item. Total is derived from Price and
	// Quantity and never independently authoritative.
	Item struct {
		ID            string
		TransactionID string
		Name          string
		Price         Money
		Quantity      int64
		Total         Money
		MasterItemID  string
		Position      int
	}

	// Category groups transactions of one type within an organization.
	Category struct {
		ID             string
		Name           string
		Description    string
		Type           TransactionType
		OrganizationID string
		UserID         string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// RelatedParty is a customer or supplier referenced by transactions.
	RelatedParty struct {
		ID             string
		Name           string
		Description    string
		Type           PartyType
		OrganizationID string
		UserID         string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// MasterItem is a reusable line-item template with a default price.
	MasterItem struct {
		ID             string
		Name           string
		Description    string
		Type           TransactionType
		DefaultPrice   Money
		OrganizationID string
		UserID         string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// MonthHistory is the incrementally maintained aggregate for one
	// (organization, year, month).
	MonthHistory struct {
		ID             string
		OrganizationID string
		Year           int
		Month          int
		YearHistoryID  string
		TotalIncome    Money
		TotalExpense   Money
	}

	// YearHistory is the incrementally maintained aggregate for one
	// (organization, year).
	YearHistory struct {
		ID             string
		OrganizationID string
		Year           int
		TotalIncome    Money
		TotalExpense   Money
	}
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Valid reports whether p is a known party type.
func (p PartyType) Valid() bool {
	return p == Customer || p == Supplier
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Year returns the calendar year.
func (d Date) Year() int {
	return d.Time.Year()
}

// Month returns the calendar month (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.String() < other.String()
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.String() > other.String()
}
