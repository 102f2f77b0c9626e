package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Frequency string

const (
	FrequencyOneTime Frequency = "onetime"
	FrequencyMonthly Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case "", FrequencyOneTime:
		return FrequencyOneTime, nil
	case FrequencyMonthly:
		return FrequencyMonthly, nil
	}
	return "", ErrUnsupportedFrequency
}

var suggestedAmounts = map[Frequency][]int64{
	FrequencyOneTime: {50, 100, 250},
	FrequencyMonthly: {10, 21, 50},
}

// SuggestedAmounts lists the preset amounts offered for a frequency. The
// first entry is the default selection.
func SuggestedAmounts(freq Frequency) []decimal.Decimal {
	raw := suggestedAmounts[freq]
	out := make([]decimal.Decimal, 0, len(raw))
	for _, v := range raw {
		out = append(out, decimal.NewFromInt(v))
	}
	return out
}

// Amounts are stored as DECIMAL(19, 6).
const (
	maxAmountScale  = 6
	maxAmountDigits = 13
)

var maxAmount = decimal.New(1, maxAmountDigits)

// Decision is what a donor asked for on a form or checkout pane. Amount is
// kept as the raw submitted text so it can be validated in one place.
type Decision struct {
	WantsDonation bool
	Amount        string
	CurrencyCode  string
	Memorial      Memorial
}

// Validate parses the amount and checks the currency code. A decision that
// opts out with no amount is valid and yields a zero amount.
func (d Decision) Validate() (decimal.Decimal, error) {
	raw := strings.TrimSpace(d.Amount)
	if raw == "" {
		if !d.WantsDonation {
			return decimal.Zero, nil
		}
		return decimal.Zero, NewValidationError("amount", "The amount is required.")
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "The amount must be a valid number.")
	}
	if d.WantsDonation && !amount.IsPositive() {
		return decimal.Zero, NewValidationError("amount", "The amount must be greater than zero.")
	}
	if !amount.Equal(amount.Truncate(maxAmountScale)) {
		return decimal.Zero, NewValidationError("amount", fmt.Sprintf("The amount can have at most %d decimal places.", maxAmountScale))
	}
	if amount.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, NewValidationError("amount", "The amount is too large.")
	}

	if d.WantsDonation {
		if err := ValidateCurrencyCode(d.CurrencyCode); err != nil {
			return decimal.Zero, err
		}
	}
	return amount, nil
}

func ValidateCurrencyCode(code string) error {
	if len(code) != 3 {
		return NewValidationError("currency_code", "The currency code must be a three-letter ISO 4217 code.")
	}
	if _, err := currency.ParseISO(code); err != nil {
		return NewValidationError("currency_code", "Unknown currency code "+code+".")
	}
	return nil
}

type DonationState string

const (
	DonationStateNone    DonationState = "no_donation"
	DonationStateCurrent DonationState = "donation_current"
	DonationStateStale   DonationState = "donation_stale"
)

// StateOf classifies an order against the currently resolved currency.
// refreshDue mirrors the refresh policy's answer for the order.
func StateOf(order *Order, resolvedCode string, refreshDue bool) DonationState {
	if order.DonationItem() == nil {
		return DonationStateNone
	}
	if order.TotalPrice().CurrencyCode != resolvedCode && refreshDue {
		return DonationStateStale
	}
	return DonationStateCurrent
}
