package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"depositgate/internal/credential/models"
	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists credentials in PostgreSQL. The default flag is
// guarded by a partial unique index on (owner_user_id) WHERE is_default, so
// a racing swap surfaces as a unique violation instead of two defaults.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `
	id, owner_user_id, scheme_name, protection_type, username, account_number,
	encrypted_secret, is_default, is_verified, last_verified_at, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, cred *models.SchemeCredential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create credential: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if cred.IsDefault {
		if err := clearDefault(ctx, tx, cred.OwnerUserID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scheme_credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		cred.ID.String(),
		cred.OwnerUserID.String(),
		cred.Scheme.String(),
		cred.ProtectionType.String(),
		cred.Username,
		cred.AccountNumber,
		cred.EncryptedSecret,
		cred.IsDefault,
		cred.IsVerified,
		cred.LastVerifiedAt,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("credential %s: %w", cred.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.SchemeCredential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM scheme_credentials
		WHERE id = $1
	`, credentialID.String())
	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential %s: %w", credentialID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return cred, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.SchemeCredential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM scheme_credentials
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var result []*models.SchemeCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		result = append(result, cred)
	}
	return result, rows.Err()
}

func (s *PostgresStore) FindDefault(ctx context.Context, owner id.UserID) (*models.SchemeCredential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM scheme_credentials
		WHERE owner_user_id = $1 AND is_default
	`, owner.String())
	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("default credential for owner %s: %w", owner, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find default credential: %w", err)
	}
	return cred, nil
}

func (s *PostgresStore) SetDefault(ctx context.Context, owner id.UserID, credentialID id.CredentialID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := clearDefault(ctx, tx, owner); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE scheme_credentials
		SET is_default = TRUE, updated_at = NOW()
		WHERE id = $1 AND owner_user_id = $2
	`, credentialID.String(), owner.String())
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set default rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("credential %s: %w", credentialID, sentinel.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set default: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, cred *models.SchemeCredential) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scheme_credentials
		SET is_verified = $2, last_verified_at = $3, updated_at = $4
		WHERE id = $1
	`, cred.ID.String(), cred.IsVerified, cred.LastVerifiedAt, cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("credential %s: %w", cred.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, credentialID id.CredentialID) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM scheme_credentials WHERE id = $1
	`, credentialID.String())
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("credential %s: %w", credentialID, sentinel.ErrNotFound)
	}
	return nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, owner id.UserID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE scheme_credentials
		SET is_default = FALSE, updated_at = NOW()
		WHERE owner_user_id = $1 AND is_default
	`, owner.String())
	if err != nil {
		return fmt.Errorf("clear default: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.SchemeCredential, error) {
	var (
		cred           models.SchemeCredential
		rawID          string
		rawOwner       string
		rawScheme      string
		rawProtection  string
		lastVerifiedAt sql.NullTime
	)
	err := row.Scan(
		&rawID,
		&rawOwner,
		&rawScheme,
		&rawProtection,
		&cred.Username,
		&cred.AccountNumber,
		&cred.EncryptedSecret,
		&cred.IsDefault,
		&cred.IsVerified,
		&lastVerifiedAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	credentialID, err := id.ParseCredentialID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored credential id: %w", err)
	}
	owner, err := id.ParseUserID(rawOwner)
	if err != nil {
		return nil, fmt.Errorf("stored owner id: %w", err)
	}
	schemeName, err := id.ParseSchemeName(rawScheme)
	if err != nil {
		return nil, fmt.Errorf("stored scheme name: %w", err)
	}
	protection, err := id.ParseProtectionType(rawProtection)
	if err != nil {
		return nil, fmt.Errorf("stored protection type: %w", err)
	}

	cred.ID = credentialID
	cred.OwnerUserID = owner
	cred.Scheme = schemeName
	cred.ProtectionType = protection
	if lastVerifiedAt.Valid {
		cred.LastVerifiedAt = &lastVerifiedAt.Time
	}
	return &cred, nil
}
