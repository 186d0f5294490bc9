package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const cigarroColumns = `id, name, brand, max_quantity, quantity, type`

// SQLiteStore implements Repository on top of an SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn and creates the schema if needed.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps
	// in-memory databases from being split across connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create inserts a new cigarro. The UNIQUE constraint on name backs the
// service-level duplicate check.
func (s *SQLiteStore) Create(ctx context.Context, c *model.Cigarro) (*model.Cigarro, error) {
	if c == nil {
		return nil, fmt.Errorf("create cigarro: %w", ErrNilCigarro)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cigarros(name, brand, max_quantity, quantity, type) VALUES(?, ?, ?, ?, ?)`,
		c.Name, c.Brand, c.Max, c.Quantity, string(c.Type),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create cigarro: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create cigarro: reading inserted id: %w", err)
	}

	stored := *c
	stored.ID = id
	return &stored, nil
}

// FindByID retrieves a cigarro by its ID.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*model.Cigarro, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+cigarroColumns+` FROM cigarros WHERE id = ?`, id)

	c, err := scanCigarro(row)
	if err != nil {
		return nil, fmt.Errorf("find cigarro by id: %w", err)
	}
	return c, nil
}

// FindByName retrieves a cigarro by its exact name.
func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*model.Cigarro, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cigarroColumns+` FROM cigarros WHERE name = ?`, name)

	c, err := scanCigarro(row)
	if err != nil {
		return nil, fmt.Errorf("find cigarro by name: %w", err)
	}
	return c, nil
}

// FindAll returns all cigarros ordered by ID.
func (s *SQLiteStore) FindAll(ctx context.Context) ([]model.Cigarro, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cigarroColumns+` FROM cigarros ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cigarros: %w", err)
	}
	defer rows.Close()

	items := make([]model.Cigarro, 0)
	for rows.Next() {
		c, err := scanCigarro(rows)
		if err != nil {
			return nil, fmt.Errorf("list cigarros: %w", err)
		}
		items = append(items, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cigarros: %w", err)
	}

	return items, nil
}

// DeleteByID removes a cigarro by its ID.
func (s *SQLiteStore) DeleteByID(ctx context.Context, id int64) error {
	if err := validateID(id); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM cigarros WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cigarro: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cigarro: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateQuantity performs a compare-and-swap on the quantity column.
func (s *SQLiteStore) UpdateQuantity(
	ctx context.Context,
	id int64,
	expected, quantity int,
) (*model.Cigarro, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE cigarros SET quantity = ? WHERE id = ? AND quantity = ?`,
		quantity, id, expected,
	)
	if err != nil {
		return nil, fmt.Errorf("update cigarro quantity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update cigarro quantity: %w", err)
	}

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		return nil, ErrConflict
	}

	return current, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCigarro(row rowScanner) (*model.Cigarro, error) {
	var (
		c       model.Cigarro
		rawType string
	)

	err := row.Scan(&c.ID, &c.Name, &c.Brand, &c.Max, &c.Quantity, &rawType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	c.Type = model.CigarroType(rawType)
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}

	return code&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "UNIQUE")
}
