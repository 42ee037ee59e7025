package core

import (
	"fmt"
	"strings"
)

// Installment is one slice of a credit-card purchase split over N months.
type Installment struct {
	Number      int
	Total       int
	Amount      Money
	Date        Date
	Description string
}

// SplitInstallments divides total into n monthly installments starting on
// first. Each installment gets total/n cents and the last one absorbs the
// remainder, so the group always sums to total exactly. Each date is the
// previous installment's date advanced one calendar month, clamped to month
// end, so Jan 31 is followed by Feb 29 and then Mar 29.
func SplitInstallments(total Money, n int, first Date, description string) ([]Installment, error) {
	if n < 1 {
		return nil, ErrInvalidInstallment
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}
	if total.Cents < int64(n) {
		return nil, fmt.Errorf("%w: amount too small for %d installments", ErrInvalidInput, n)
	}

	per := total.Cents / int64(n)
	out := make([]Installment, n)
	date := first
	for i := 0; i < n; i++ {
		if i > 0 {
			date = date.AddMonths(1)
		}
		amount := per
		if i == n-1 {
			amount = total.Cents - per*int64(n-1)
		}
		out[i] = Installment{
			Number:      i + 1,
			Total:       n,
			Amount:      Money{Cents: amount},
			Date:        date,
			Description: InstallmentDescription(description, i+1, n),
		}
	}
	return out, nil
}

// InstallmentDescription renders "<desc> (i/N)" trimmed of surrounding space.
func InstallmentDescription(description string, i, n int) string {
	return strings.TrimSpace(fmt.Sprintf("%s (%d/%d)", strings.TrimSpace(description), i, n))
}
