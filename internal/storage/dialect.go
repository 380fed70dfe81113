package storage

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"expense-api/internal/models"

	"github.com/lib/pq"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// dialect hides the differences between the Postgres and SQLite schemas.
// Queries are written with ? placeholders and rebound per dialect.
type dialect interface {
	driverName() string
	migrations() []string
	rebind(query string) string
	labelsArg(labels []string) (driver.Value, error)
	labelsDest(dst *[]string) any
	translate(err error) error
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case DriverPostgres:
		return postgres{}, nil
	case DriverSQLite:
		return sqlite{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", name)
}

type postgres struct{}

func (postgres) driverName() string { return "postgres" }

func (postgres) migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sub_categories (
			id SERIAL PRIMARY KEY,
			category_id INTEGER REFERENCES categories(id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id INTEGER REFERENCES categories(id),
			sub_category_id INTEGER REFERENCES sub_categories(id),
			amount NUMERIC(10, 2) NOT NULL CHECK (amount > 0),
			currency VARCHAR(3) DEFAULT 'USD',
			description TEXT,
			date DATE NOT NULL DEFAULT CURRENT_DATE,
			payment_method VARCHAR(50),
			labels TEXT[],
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses (user_id, date DESC)`,
	}
}

func (postgres) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgres) labelsArg(labels []string) (driver.Value, error) {
	return pq.StringArray(labels).Value()
}

func (postgres) labelsDest(dst *[]string) any {
	return (*pq.StringArray)(dst)
}

func (postgres) translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code.Name() != "foreign_key_violation" {
		return err
	}
	switch pqErr.Constraint {
	case "expenses_category_id_fkey":
		return models.Invalid("category_id", "does not exist")
	case "expenses_sub_category_id_fkey":
		return models.Invalid("sub_category_id", "does not exist")
	}
	return err
}

// sqlite has no array type, labels are kept as a JSON document.
type sqlite struct{}

func (sqlite) driverName() string { return "sqlite" }

func (sqlite) migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sub_categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER REFERENCES categories(id) ON DELETE CASCADE,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id INTEGER REFERENCES categories(id),
			sub_category_id INTEGER REFERENCES sub_categories(id),
			amount NUMERIC(10, 2) NOT NULL CHECK (amount > 0),
			currency VARCHAR(3) DEFAULT 'USD',
			description TEXT,
			date DATE NOT NULL DEFAULT CURRENT_DATE,
			payment_method VARCHAR(50),
			labels TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses (user_id, date DESC)`,
	}
}

func (sqlite) rebind(query string) string { return query }

func (sqlite) labelsArg(labels []string) (driver.Value, error) {
	if labels == nil {
		return nil, nil
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (sqlite) labelsDest(dst *[]string) any {
	return jsonLabels{dst: dst}
}

func (sqlite) translate(err error) error { return err }

type jsonLabels struct {
	dst *[]string
}

func (l jsonLabels) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l.dst = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l.dst)
	case []byte:
		return json.Unmarshal(v, l.dst)
	}
	return fmt.Errorf("labels: unsupported column type %T", src)
}
