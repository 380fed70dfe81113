package models

import (
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxCurrencyLen      = 3
	maxPaymentMethodLen = 50
)

// NUMERIC(10,2) leaves eight integer digits.
var maxAmount = decimal.New(1, 8)

// Validate checks a create payload.
func (c *ExpenseCreate) Validate() error {
	if c.Amount == nil {
		return Invalid("amount", "is required")
	}
	if err := validateAmount(*c.Amount); err != nil {
		return err
	}
	if c.Date == nil {
		return Invalid("date", "is required")
	}
	if !c.Date.IsValid() {
		return Invalid("date", "is not a valid date")
	}
	if c.Currency != nil {
		if err := validateCurrency(*c.Currency); err != nil {
			return err
		}
	}
	if c.PaymentMethod != nil {
		if err := validatePaymentMethod(*c.PaymentMethod); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks only the fields present in the update. Amount, currency
// and date are stored NOT NULL and may not be cleared.
func (u *ExpenseUpdate) Validate() error {
	if u.Amount.Set {
		if u.Amount.Null {
			return Invalid("amount", "must not be null")
		}
		if err := validateAmount(u.Amount.Value); err != nil {
			return err
		}
	}
	if u.Currency.Set {
		if u.Currency.Null {
			return Invalid("currency", "must not be null")
		}
		if err := validateCurrency(u.Currency.Value); err != nil {
			return err
		}
	}
	if u.Date.Set {
		if u.Date.Null {
			return Invalid("date", "must not be null")
		}
		if !u.Date.Value.IsValid() {
			return Invalid("date", "is not a valid date")
		}
	}
	if u.PaymentMethod.Set && !u.PaymentMethod.Null {
		if err := validatePaymentMethod(u.PaymentMethod.Value); err != nil {
			return err
		}
	}
	return nil
}

func validateAmount(a decimal.Decimal) error {
	switch {
	case !a.IsPositive():
		return Invalid("amount", "must be greater than 0")
	case !a.Equal(a.Truncate(2)):
		return Invalid("amount", "must have at most 2 decimal places")
	case a.GreaterThanOrEqual(maxAmount):
		return Invalid("amount", "must have at most 10 digits")
	}
	return nil
}

func validateCurrency(s string) error {
	if utf8.RuneCountInString(s) > maxCurrencyLen {
		return Invalid("currency", "must be at most %d characters", maxCurrencyLen)
	}
	return nil
}

func validatePaymentMethod(s string) error {
	if utf8.RuneCountInString(s) > maxPaymentMethodLen {
		return Invalid("payment_method", "must be at most %d characters", maxPaymentMethodLen)
	}
	return nil
}
