package core

import (
	"errors"
	"testing"
)

func TestSplitInstallments(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		n         int
		first     Date
		wantCents []int64
		wantDates []string
	}{
		{
			name:      "even split",
			total:     30000,
			n:         3,
			first:     NewDate(2024, 1, 15),
			wantCents: []int64{10000, 10000, 10000},
			wantDates: []string{"2024-01-15", "2024-02-15", "2024-03-15"},
		},
		{
			name:      "remainder on last installment",
			total:     10000,
			n:         3,
			first:     NewDate(2024, 1, 31),
			wantCents: []int64{3333, 3333, 3334},
			wantDates: []string{"2024-01-31", "2024-02-29", "2024-03-29"},
		},
		{
			name:      "clamped day carries into later months",
			total:     40000,
			n:         4,
			first:     NewDate(2023, 10, 31),
			wantCents: []int64{10000, 10000, 10000, 10000},
			wantDates: []string{"2023-10-31", "2023-11-30", "2023-12-30", "2024-01-30"},
		},
		{
			name:      "single installment",
			total:     999,
			n:         1,
			first:     NewDate(2023, 12, 31),
			wantCents: []int64{999},
			wantDates: []string{"2023-12-31"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitInstallments(Money{Cents: tt.total}, tt.n, tt.first, "TV")
			if err != nil {
				t.Fatalf("SplitInstallments() error = %v", err)
			}
			if len(got) != tt.n {
				t.Fatalf("len = %d, want %d", len(got), tt.n)
			}
			var sum int64
			for i, inst := range got {
				sum += inst.Amount.Cents
				if inst.Amount.Cents != tt.wantCents[i] {
					t.Errorf("installment %d amount = %d, want %d", i+1, inst.Amount.Cents, tt.wantCents[i])
				}
				if inst.Date.String() != tt.wantDates[i] {
					t.Errorf("installment %d date = %s, want %s", i+1, inst.Date, tt.wantDates[i])
				}
				if inst.Number != i+1 || inst.Total != tt.n {
					t.Errorf("installment %d numbering = %d/%d", i+1, inst.Number, inst.Total)
				}
			}
			if sum != tt.total {
				t.Errorf("sum = %d, want %d", sum, tt.total)
			}
		})
	}
}

func TestSplitInstallmentsDescription(t *testing.T) {
	got, err := SplitInstallments(Money{Cents: 200}, 2, NewDate(2024, 5, 1), " Laptop ")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Description != "Laptop (1/2)" || got[1].Description != "Laptop (2/2)" {
		t.Errorf("descriptions = %q, %q", got[0].Description, got[1].Description)
	}
	if d := InstallmentDescription("", 1, 3); d != "(1/3)" {
		t.Errorf("empty description = %q", d)
	}
}

func TestSplitInstallmentsInvalid(t *testing.T) {
	if _, err := SplitInstallments(Money{Cents: 100}, 0, NewDate(2024, 1, 1), "x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("n=0 error = %v", err)
	}
	if _, err := SplitInstallments(Money{Cents: 0}, 2, NewDate(2024, 1, 1), "x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero amount error = %v", err)
	}
	if _, err := SplitInstallments(Money{Cents: 2}, 3, NewDate(2024, 1, 1), "x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("tiny amount error = %v", err)
	}
}
