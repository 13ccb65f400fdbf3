package core

import "testing"

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-12-03")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 12 || d.Day() != 3 {
		t.Fatalf("unexpected parts: %d-%d-%d", d.Year(), d.Month(), d.Day())
	}
	if d.String() != "2024-12-03" {
		t.Fatalf("unexpected string: %s", d.String())
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "2024-13-01", "03/12/2024", "yesterday"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) expected error", s)
		}
	}
}

func TestValidationErrorCollectsAllFields(t *testing.T) {
	ve := NewValidationError()
	if ve.OrNil() != nil {
		t.Fatal("empty validation error should be nil")
	}
	ve.Add("items[0].quantity", "must be at least 1")
	ve.Add("items[1].price", "must not be negative")
	ve.Add("items[0].quantity", "overwritten message should be ignored")

	err := ve.OrNil()
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(ve.Fields))
	}
	if ve.Fields["items[0].quantity"] != "must be at least 1" {
		t.Fatalf("first message per field should win, got %q", ve.Fields["items[0].quantity"])
	}
}

func TestTypeValidity(t *testing.T) {
	if !Income.Valid() || !Expense.Valid() {
		t.Fatal("income/expense must be valid")
	}
	if TransactionType("transfer").Valid() {
		t.Fatal("unknown transaction type must be invalid")
	}
	if !Customer.Valid() || !Supplier.Valid() {
		t.Fatal("customer/supplier must be valid")
	}
	if PartyType("employee").Valid() {
		t.Fatal("unknown party type must be invalid")
	}
}
