package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"roster/internal/account/models"
	id "roster/pkg/domain"
	"roster/pkg/platform/sentinel"
)

// Schema creates the accounts table. Unique constraints back the identity
// invariants; external_id is nullable so accounts without one never collide.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              UUID PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	display_name    TEXT NOT NULL DEFAULT '',
	document_id     TEXT NOT NULL UNIQUE,
	source_id       TEXT NOT NULL DEFAULT '',
	external_id     TEXT UNIQUE,
	group_label     TEXT NOT NULL DEFAULT '',
	credential_hash TEXT NOT NULL,
	role            TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS accounts_source_id_idx ON accounts (source_id);
`

const pgUniqueViolation = "23505"

const accountColumns = `id, email, display_name, document_id, source_id, external_id,
	group_label, credential_hash, role, created_at, updated_at`

// Postgres persists accounts through database/sql. Either the pgx or the
// lib/pq driver may back the *sql.DB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies Schema. Safe to call on every start.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findBy(ctx, "email", email)
}

func (s *Postgres) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return s.findBy(ctx, "external_id", externalID)
}

func (s *Postgres) FindByDocumentID(ctx context.Context, documentID string) (*models.Account, error) {
	return s.findBy(ctx, "document_id", documentID)
}

// findBy only receives column names from this file.
func (s *Postgres) findBy(ctx context.Context, column, value string) (*models.Account, error) {
	if value == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = $1`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by %s: %w", column, err)
	}
	return account, nil
}

func (s *Postgres) Create(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Email, a.DisplayName, a.DocumentID, a.SourceID, nullable(a.ExternalID),
		a.GroupLabel, a.CredentialHash, string(a.Role), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return translateWriteErr("create account", err)
	}
	return nil
}

// Update writes profile fields only; credential_hash, role and created_at
// are not part of the statement.
func (s *Postgres) Update(ctx context.Context, a *models.Account) error {
	query := `UPDATE accounts SET
			email = $2, display_name = $3, source_id = $4, external_id = $5,
			group_label = $6, updated_at = $7
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Email, a.DisplayName, a.SourceID, nullable(a.ExternalID),
		a.GroupLabel, a.UpdatedAt,
	)
	if err != nil {
		return translateWriteErr("update account", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListBySources(ctx context.Context, sourceIDs []string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var args []any
	if len(sourceIDs) > 0 {
		query += ` WHERE source_id = ANY($1)`
		args = append(args, pq.Array(sourceIDs))
	}
	query += ` ORDER BY email`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a          models.Account
		accountID  uuid.UUID
		externalID sql.NullString
		role       string
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&accountID, &a.Email, &a.DisplayName, &a.DocumentID, &a.SourceID, &externalID,
		&a.GroupLabel, &a.CredentialHash, &role, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.AccountID(accountID)
	a.ExternalID = externalID.String
	a.Role = models.Role(role)
	a.CreatedAt = createdAt.UTC()
	a.UpdatedAt = updatedAt.UTC()
	return &a, nil
}

func translateWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, sentinel.ErrConflict)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
