package models

import (
	"bytes"
	"encoding/json"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is stored when a create request omits the currency.
const DefaultCurrency = "USD"

// Expense represents a financial expense record owned by a single user.
type Expense struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	CategoryID    *int64          `json:"category_id"`
	SubCategoryID *int64          `json:"sub_category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   *string         `json:"description"`
	Date          civil.Date      `json:"date"`
	PaymentMethod *string         `json:"payment_method"`
	Labels        []string        `json:"labels"`
	CreatedAt     *civil.Date     `json:"created_at"`
	UpdatedAt     *civil.Date     `json:"updated_at"`
}

// MarshalJSON writes amount with exactly two fractional digits, whatever
// scale the database driver returned it with.
func (e Expense) MarshalJSON() ([]byte, error) {
	type plain Expense
	return json.Marshal(struct {
		plain
		Amount string `json:"amount"`
	}{plain(e), e.Amount.StringFixed(2)})
}

// ExpenseCreate is the payload accepted when creating an expense.
// The owner is never read from the payload.
type ExpenseCreate struct {
	Amount        *decimal.Decimal `json:"amount"`
	Currency      *string          `json:"currency"`
	Description   *string          `json:"description"`
	Date          *civil.Date      `json:"date"`
	CategoryID    *int64           `json:"category_id"`
	SubCategoryID *int64           `json:"sub_category_id"`
	PaymentMethod *string          `json:"payment_method"`
	Labels        []string         `json:"labels"`
}

// CurrencyOrDefault returns the requested currency or DefaultCurrency.
func (c *ExpenseCreate) CurrencyOrDefault() string {
	if c.Currency == nil {
		return DefaultCurrency
	}
	return *c.Currency
}

// ExpenseUpdate is a partial update. Only fields present in the request
// body are applied.
type ExpenseUpdate struct {
	Amount        Field[decimal.Decimal] `json:"amount"`
	Currency      Field[string]          `json:"currency"`
	Description   Field[string]          `json:"description"`
	Date          Field[civil.Date]      `json:"date"`
	CategoryID    Field[int64]           `json:"category_id"`
	SubCategoryID Field[int64]           `json:"sub_category_id"`
	PaymentMethod Field[string]          `json:"payment_method"`
	Labels        Field[[]string]        `json:"labels"`
}

// Empty reports whether no field was supplied.
func (u *ExpenseUpdate) Empty() bool {
	return !u.Amount.Set && !u.Currency.Set && !u.Description.Set && !u.Date.Set &&
		!u.CategoryID.Set && !u.SubCategoryID.Set && !u.PaymentMethod.Set && !u.Labels.Set
}

// Field is a request value that remembers whether it was present in the
// payload and whether it was an explicit null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field that was explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked for keys present in the body, which is what
// marks the field as set.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}
