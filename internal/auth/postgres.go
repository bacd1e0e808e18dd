package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"taskmanager.org/internal/ids"
)

const pgUniqueViolation = "23505"

var _ AccountStore = (*PGStore)(nil)

// PGStore implements AccountStore using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindBySubject(ctx context.Context, subject string) (*Account, error) {
	subject = NormalizeSubject(subject)
	if subject == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at from users where email=$1`, subject)
	var acc Account
	if err := row.Scan(&acc.ID, &acc.Subject, &acc.PasswordHash, &acc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`select r.name from roles r join user_roles ur on ur.role_id=r.id where ur.user_id=$1 order by r.name`, acc.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	acc.Roles = dedupeRoles(roles)
	return &acc, nil
}

func (s *PGStore) EnsureRoles(ctx context.Context, roles []string) error {
	for _, name := range dedupeRoles(roles) {
		_, err := s.db.ExecContext(ctx,
			`insert into roles(id, name) values($1,$2) on conflict (name) do nothing`,
			ids.New(), name,
		)
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", name, err)
		}
	}
	return nil
}

// Create inserts the account and links it to already existing roles. A
// preset ID must be a ULID.
func (s *PGStore) Create(ctx context.Context, acc *Account) error {
	acc.Subject = NormalizeSubject(acc.Subject)
	if acc.Subject == "" || acc.PasswordHash == "" {
		return ErrInvalidInput
	}
	if acc.ID == "" {
		acc.ID = ids.New()
	} else if !ids.Valid(acc.ID) {
		return ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`insert into users(id, email, password_hash) values($1,$2,$3)`,
		acc.ID, acc.Subject, acc.PasswordHash,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	for _, role := range dedupeRoles(acc.Roles) {
		if _, err := tx.ExecContext(ctx,
			`insert into user_roles(user_id, role_id) select $1, id from roles where name=$2 on conflict do nothing`,
			acc.ID, role,
		); err != nil {
			return fmt.Errorf("assign role %s: %w", role, err)
		}
	}
	return tx.Commit()
}
