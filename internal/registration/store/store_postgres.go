package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"depositgate/internal/registration/models"
	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
	"depositgate/pkg/requestcontext"
)

const uniqueViolation = "23505"

// PostgresStore persists registrations in PostgreSQL. The one-non-terminal-
// per-tenancy rule is backed by a partial unique index on (tenancy_id)
// WHERE status NOT IN ('expired', 'released'), so a racing Create surfaces
// as a unique violation. Execute takes the row lock with FOR UPDATE and
// writes the transition row in the same transaction as the status change.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `
	id, tenancy_id, property_id, owner_user_id, scheme_name, protection_type,
	mode, crm_system, credential_id, deposit_amount_pence, deposit_reference_id,
	certificate_url, prescribed_info_url, status, error_message, registered_at,
	expiry_date, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	var crmSystem, credentialID any
	if reg.CRMSystem != nil {
		crmSystem = reg.CRMSystem.String()
	}
	if reg.CredentialID != nil {
		credentialID = reg.CredentialID.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		reg.ID.String(),
		reg.TenancyID.String(),
		reg.PropertyID.String(),
		reg.OwnerUserID.String(),
		reg.Scheme.String(),
		reg.ProtectionType.String(),
		string(reg.Mode),
		crmSystem,
		credentialID,
		reg.DepositAmountPence,
		reg.DepositReferenceID,
		reg.CertificateURL,
		reg.PrescribedInfoURL,
		string(reg.Status),
		reg.ErrorMessage,
		reg.RegisteredAt,
		reg.ExpiryDate,
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("tenancy %s: %w", reg.TenancyID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE id = $1
	`, registrationID.String())
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) FindCurrentByTenancy(ctx context.Context, tenancyID id.TenancyID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE tenancy_id = $1 AND status NOT IN ('expired', 'released')
	`, tenancyID.String())
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("current registration for tenancy %s: %w", tenancyID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find current registration: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var result []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		result = append(result, reg)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Execute(
	ctx context.Context,
	registrationID id.RegistrationID,
	trigger string,
	validate func(*models.Registration) error,
	mutate func(*models.Registration),
) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execute: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE id = $1
		FOR UPDATE
	`, registrationID.String())
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("lock registration: %w", err)
	}

	if err := validate(reg); err != nil {
		return nil, err
	}
	before := reg.Status
	mutate(reg)

	var credentialID any
	if reg.CredentialID != nil {
		credentialID = reg.CredentialID.String()
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE registrations
		SET credential_id = $2, deposit_reference_id = $3, certificate_url = $4,
		    prescribed_info_url = $5, status = $6, error_message = $7,
		    expiry_date = $8, updated_at = $9
		WHERE id = $1
	`,
		reg.ID.String(),
		credentialID,
		reg.DepositReferenceID,
		reg.CertificateURL,
		reg.PrescribedInfoURL,
		string(reg.Status),
		reg.ErrorMessage,
		reg.ExpiryDate,
		reg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}

	if reg.Status != before {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO registration_transitions
				(registration_id, from_status, to_status, trigger, error_message, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			reg.ID.String(),
			string(before),
			string(reg.Status),
			trigger,
			reg.ErrorMessage,
			requestcontext.Now(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("insert transition: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execute: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) History(ctx context.Context, registrationID id.RegistrationID) ([]*models.Transition, error) {
	if _, err := s.FindByID(ctx, registrationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT registration_id, from_status, to_status, trigger, error_message, occurred_at
		FROM registration_transitions
		WHERE registration_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, registrationID.String())
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var result []*models.Transition
	for rows.Next() {
		var (
			tr      models.Transition
			rawID   string
			rawFrom string
			rawTo   string
		)
		if err := rows.Scan(&rawID, &rawFrom, &rawTo, &tr.Trigger, &tr.ErrorMessage, &tr.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		parsed, err := id.ParseRegistrationID(rawID)
		if err != nil {
			return nil, fmt.Errorf("stored registration id: %w", err)
		}
		tr.RegistrationID = parsed
		tr.FromStatus = models.Status(rawFrom)
		tr.ToStatus = models.Status(rawTo)
		result = append(result, &tr)
	}
	return result, rows.Err()
}

func (s *PostgresStore) HasActiveAttempt(ctx context.Context, credentialID id.CredentialID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE credential_id = $1 AND status IN ('pending', 'in_progress')
		)
	`, credentialID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active attempt: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg           models.Registration
		rawID         string
		rawTenancy    string
		rawProperty   string
		rawOwner      string
		rawScheme     string
		rawProtection string
		rawMode       string
		rawCRM        sql.NullString
		rawCredential sql.NullString
		rawStatus     string
		expiryDate    sql.NullTime
	)
	err := row.Scan(
		&rawID,
		&rawTenancy,
		&rawProperty,
		&rawOwner,
		&rawScheme,
		&rawProtection,
		&rawMode,
		&rawCRM,
		&rawCredential,
		&reg.DepositAmountPence,
		&reg.DepositReferenceID,
		&reg.CertificateURL,
		&reg.PrescribedInfoURL,
		&rawStatus,
		&reg.ErrorMessage,
		&reg.RegisteredAt,
		&expiryDate,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	registrationID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored registration id: %w", err)
	}
	tenancyID, err := id.ParseTenancyID(rawTenancy)
	if err != nil {
		return nil, fmt.Errorf("stored tenancy id: %w", err)
	}
	propertyID, err := id.ParsePropertyID(rawProperty)
	if err != nil {
		return nil, fmt.Errorf("stored property id: %w", err)
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

	reg.ID = registrationID
	reg.TenancyID = tenancyID
	reg.PropertyID = propertyID
	reg.OwnerUserID = owner
	reg.Scheme = schemeName
	reg.ProtectionType = protection
	reg.Mode = models.Mode(rawMode)
	reg.Status = models.Status(rawStatus)
	if rawCRM.Valid {
		crm, err := id.ParseCRMSystem(rawCRM.String)
		if err != nil {
			return nil, fmt.Errorf("stored crm system: %w", err)
		}
		reg.CRMSystem = &crm
	}
	if rawCredential.Valid {
		credID, err := id.ParseCredentialID(rawCredential.String)
		if err != nil {
			return nil, fmt.Errorf("stored credential id: %w", err)
		}
		reg.CredentialID = &credID
	}
	if expiryDate.Valid {
		reg.ExpiryDate = &expiryDate.Time
	}
	return &reg, nil
}
