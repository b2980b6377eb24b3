package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio/internal/adapters/storage"
	domain "studio/internal/domain/account"
)

const (
	dateLayout    = "2006-01-02T15:04:05.999999999Z07:00"
	selectColumns = "id, name, username, email, password_hash, role, has_paid, created_at, failed_logins, locked_until"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new AccountStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM account WHERE id = ?", id)
	return getOne(row.Scan, "account "+id)
}

// GetByUsername retrieves an Account by username.
// PRE: username is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLiteStore) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM account WHERE username = ?", username)
	return getOne(row.Scan, "account "+username)
}

func getOne(scan func(dest ...any) error, label string) (domain.Account, error) {
	entity, err := scanAccount(scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("%s: %w", label, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Account{}, storage.Unavailable("account.get", err)
	}
	return entity, nil
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update); a duplicate username returns domain.ErrUsernameTaken
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	var lockedUntil any
	if !entity.LockedUntil.IsZero() {
		lockedUntil = entity.LockedUntil.Format(dateLayout)
	}
	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	hasPaid := 0
	if entity.HasPaid {
		hasPaid = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, username=excluded.username, email=excluded.email,
		   password_hash=excluded.password_hash, role=excluded.role, has_paid=excluded.has_paid,
		   failed_logins=excluded.failed_logins, locked_until=excluded.locked_until`,
		entity.ID, entity.Name, entity.Username, entity.Email, entity.PasswordHash, entity.Role,
		hasPaid, createdAt.Format(dateLayout), entity.FailedLogins, lockedUntil,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: account.username") {
			return domain.ErrUsernameTaken
		}
		return storage.Unavailable("account.save", err)
	}
	return nil
}

// Delete removes an Account from the database.
// PRE: id is non-empty
// POST: Entity removed, or storage.ErrNotFound
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	if err != nil {
		return storage.Unavailable("account.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("account.delete", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// List retrieves Accounts based on the filter, ordered by name.
// PRE: filter.Limit >= 0; zero means no limit
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var queryBuilder strings.Builder
	var args []any

	queryBuilder.WriteString("SELECT " + selectColumns + " FROM account")

	if filter.Role != "" {
		queryBuilder.WriteString(" WHERE role = ?")
		args = append(args, filter.Role)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	queryBuilder.WriteString(" ORDER BY name, id LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, storage.Unavailable("account.list", err)
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, storage.Unavailable("account.list", err)
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("account.list", err)
	}
	return results, nil
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var hasPaid int
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Name,
		&entity.Username,
		&entity.Email,
		&entity.PasswordHash,
		&entity.Role,
		&hasPaid,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.HasPaid = hasPaid == 1
	entity.CreatedAt, _ = parseTime(createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil, _ = parseTime(lockedUntil.String)
	}
	return entity, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
