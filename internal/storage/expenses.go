package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense-api/internal/models"

	"cloud.google.com/go/civil"
)

const expenseColumns = `id, user_id, category_id, sub_category_id, amount, currency,
	description, date, payment_method, labels, created_at, updated_at`

// ownedBy is the only filter used to address a single expense. Arguments
// are the expense id followed by the owner id.
const ownedBy = "id = ? AND user_id = ?"

type rowScanner interface {
	Scan(dest ...any) error
}

// ListExpenses returns a page of the user's expenses, newest date first.
func (s *Session) ListExpenses(ctx context.Context, userID int64, skip, limit int) ([]models.Expense, error) {
	rows, err := s.conn.QueryContext(ctx, s.dialect.rebind(
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT ? OFFSET ?"),
		userID, limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		e, err := s.scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}

	return expenses, rows.Err()
}

// CreateExpense inserts a new expense owned by userID.
func (s *Session) CreateExpense(ctx context.Context, userID int64, in *models.ExpenseCreate) (*models.Expense, error) {
	labels, err := s.dialect.labelsArg(in.Labels)
	if err != nil {
		return nil, fmt.Errorf("encode labels: %w", err)
	}

	row := s.conn.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO expenses (user_id, category_id, sub_category_id, amount, currency,
			description, date, payment_method, labels)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+expenseColumns),
		userID,
		nullInt(in.CategoryID),
		nullInt(in.SubCategoryID),
		in.Amount.StringFixed(2),
		in.CurrencyOrDefault(),
		nullString(in.Description),
		in.Date.String(),
		nullString(in.PaymentMethod),
		labels,
	)

	e, err := s.scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", s.dialect.translate(err))
	}
	return e, nil
}

// GetExpense retrieves a single expense owned by userID.
func (s *Session) GetExpense(ctx context.Context, userID, id int64) (*models.Expense, error) {
	row := s.conn.QueryRowContext(ctx, s.dialect.rebind(
		"SELECT "+expenseColumns+" FROM expenses WHERE "+ownedBy),
		id, userID,
	)

	e, err := s.scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// UpdateExpense applies the fields present in u to an expense owned by
// userID in a single statement.
func (s *Session) UpdateExpense(ctx context.Context, userID, id int64, u *models.ExpenseUpdate) (*models.Expense, error) {
	if u.Empty() {
		return s.GetExpense(ctx, userID, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if u.Amount.Set {
		set("amount", u.Amount.Value.StringFixed(2))
	}
	if u.Currency.Set {
		set("currency", u.Currency.Value)
	}
	if u.Description.Set {
		set("description", nullable(u.Description))
	}
	if u.Date.Set {
		set("date", u.Date.Value.String())
	}
	if u.CategoryID.Set {
		set("category_id", nullable(u.CategoryID))
	}
	if u.SubCategoryID.Set {
		set("sub_category_id", nullable(u.SubCategoryID))
	}
	if u.PaymentMethod.Set {
		set("payment_method", nullable(u.PaymentMethod))
	}
	if u.Labels.Set {
		labels, err := s.dialect.labelsArg(u.Labels.Value)
		if err != nil {
			return nil, fmt.Errorf("encode labels: %w", err)
		}
		set("labels", labels)
	}

	query := "UPDATE expenses SET " + strings.Join(sets, ", ") +
		", updated_at = CURRENT_TIMESTAMP WHERE " + ownedBy + " RETURNING " + expenseColumns
	args = append(args, id, userID)

	e, err := s.scanExpense(s.conn.QueryRowContext(ctx, s.dialect.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update expense %d: %w", id, s.dialect.translate(err))
	}
	return e, nil
}

// DeleteExpense removes an expense owned by userID.
func (s *Session) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := s.conn.ExecContext(ctx, s.dialect.rebind("DELETE FROM expenses WHERE "+ownedBy), id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Session) scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		e                                    models.Expense
		categoryID, subCategoryID            sql.NullInt64
		currency, description, paymentMethod sql.NullString
		date, createdAt, updatedAt           nullDate
	)
	err := row.Scan(
		&e.ID, &e.UserID, &categoryID, &subCategoryID, &e.Amount, &currency,
		&description, &date, &paymentMethod, s.dialect.labelsDest(&e.Labels), &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.CategoryID = intPtr(categoryID)
	e.SubCategoryID = intPtr(subCategoryID)
	e.Currency = currency.String
	if !currency.Valid {
		e.Currency = models.DefaultCurrency
	}
	e.Description = stringPtr(description)
	e.PaymentMethod = stringPtr(paymentMethod)
	e.Date = date.Date
	e.CreatedAt = createdAt.ptr()
	e.UpdatedAt = updatedAt.ptr()
	return &e, nil
}

// nullDate scans DATE and TIMESTAMP columns with day precision. Drivers hand
// these back either as time.Time or as ISO text.
type nullDate struct {
	Date  civil.Date
	Valid bool
}

func (d *nullDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Date, d.Valid = civil.Date{}, false
		return nil
	case time.Time:
		d.Date, d.Valid = civil.DateOf(v), true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("date: unsupported column type %T", src)
}

func (d *nullDate) parse(s string) error {
	if len(s) > len("2006-01-02") {
		s = s[:len("2006-01-02")]
	}
	date, err := civil.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date, d.Valid = date, true
	return nil
}

func (d nullDate) ptr() *civil.Date {
	if !d.Valid {
		return nil
	}
	date := d.Date
	return &date
}

func nullable[T any](f models.Field[T]) any {
	if f.Null {
		return nil
	}
	return f.Value
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
