// Package service orchestrates scheme credential lifecycle: creation with
// sealed secrets, default-flag management, verification against the scheme,
// and deletion guarded by in-flight registrations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"depositgate/internal/audit"
	credmetrics "depositgate/internal/credential/metrics"
	"depositgate/internal/credential/models"
	"depositgate/internal/credential/store"
	"depositgate/internal/scheme"
	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
	"depositgate/pkg/platform/sentinel"
	"depositgate/pkg/requestcontext"
	"depositgate/pkg/secrets"
)

// RegistrationGuard answers whether a credential is referenced by the live
// attempt of an in-progress registration. Implemented by the registration
// store; kept as a port so the two features stay decoupled.
type RegistrationGuard interface {
	HasActiveAttempt(ctx context.Context, credentialID id.CredentialID) (bool, error)
}

// VerifyCache caches successful verification results so repeated verify
// clicks do not hammer the scheme. Optional.
type VerifyCache interface {
	Get(ctx context.Context, credentialID id.CredentialID) (*scheme.VerificationResult, bool, error)
	Set(ctx context.Context, credentialID id.CredentialID, result *scheme.VerificationResult) error
	Invalidate(ctx context.Context, credentialID id.CredentialID) error
}

// Material is a credential resolved for an adapter call: the stored record
// plus its decrypted authentication material.
type Material struct {
	Record    *models.SchemeCredential
	Decrypted scheme.Credential
}

// Service is the credential store facade exposed to transport and to the
// registration engine.
type Service struct {
	store   store.Store
	schemes *scheme.Registry
	cipher  *secrets.Cipher
	guard   RegistrationGuard
	cache   VerifyCache
	audit   *audit.Publisher
	logger  *slog.Logger
	metrics *credmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *credmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRegistrationGuard(guard RegistrationGuard) Option {
	return func(s *Service) { s.guard = guard }
}

func WithVerifyCache(cache VerifyCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(credentials store.Store, schemes *scheme.Registry, cipher *secrets.Cipher, opts ...Option) *Service {
	s := &Service{
		store:   credentials,
		schemes: schemes,
		cipher:  cipher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCredentialInput is the caller-supplied credential payload.
type AddCredentialInput struct {
	Scheme         string
	ProtectionType string
	Username       string
	Password       string
	APIKey         string
	APISecret      string
	AccountNumber  string
	IsDefault      bool
}

// AddCredential validates, seals, and stores a credential. When IsDefault
// is set the prior default for the owner is cleared atomically by the store.
func (s *Service) AddCredential(ctx context.Context, owner id.UserID, input AddCredentialInput) (*models.SchemeCredential, error) {
	schemeName, err := id.ParseSchemeName(input.Scheme)
	if err != nil {
		return nil, err
	}
	protection, err := id.ParseProtectionType(input.ProtectionType)
	if err != nil {
		return nil, err
	}

	material := models.SecretMaterial{
		Password:  input.Password,
		APIKey:    strings.TrimSpace(input.APIKey),
		APISecret: strings.TrimSpace(input.APISecret),
	}
	username := strings.TrimSpace(input.Username)

	cred, err := models.NewSchemeCredential(
		id.CredentialID(uuid.New()),
		owner,
		schemeName,
		protection,
		username,
		strings.TrimSpace(input.AccountNumber),
		material,
		input.IsDefault,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	plaintext, err := material.Marshal()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode secret")
	}
	sealed, err := s.cipher.Seal(plaintext)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal secret")
	}
	cred.EncryptedSecret = sealed

	if err := s.store.Create(ctx, cred); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}

	s.metrics.IncrementCreated()
	s.audit.Emit(ctx, audit.Event{
		UserID:       owner.String(),
		Action:       audit.ActionCredentialAdded,
		CredentialID: cred.ID.String(),
		Scheme:       cred.Scheme.String(),
	})
	s.logger.InfoContext(ctx, "credential added",
		"credential_id", cred.ID,
		"scheme", cred.Scheme,
		"request_id", requestcontext.RequestID(ctx),
	)
	return cred, nil
}

func (s *Service) ListCredentials(ctx context.Context, owner id.UserID) ([]*models.SchemeCredential, error) {
	creds, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return creds, nil
}

// GetDefault resolves the owner's default credential. The single place where
// default resolution lives; callers never re-derive it.
func (s *Service) GetDefault(ctx context.Context, owner id.UserID) (*models.SchemeCredential, error) {
	cred, err := s.store.FindDefault(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no default credential configured")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load default credential")
	}
	return cred, nil
}

// SetDefault atomically moves the default flag to the given credential.
func (s *Service) SetDefault(ctx context.Context, owner id.UserID, credentialID id.CredentialID) error {
	if err := s.store.SetDefault(ctx, owner, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set default credential")
	}
	return nil
}

// Verify checks the credential against its scheme. A rejection is an
// expected outcome returned to the caller, not an error; only infrastructure
// faults surface as errors. Successful results are cached and stamped.
func (s *Service) Verify(ctx context.Context, owner id.UserID, credentialID id.CredentialID) (*scheme.VerificationResult, error) {
	material, err := s.materialByID(ctx, owner, credentialID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, cacheErr := s.cache.Get(ctx, credentialID)
		if cacheErr != nil {
			s.logger.WarnContext(ctx, "verify cache read failed", "error", cacheErr)
		} else if ok {
			s.metrics.IncrementCacheHit()
			return cached, nil
		}
	}

	adapter, err := s.schemes.ForScheme(material.Record.Scheme)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "no adapter for scheme")
	}

	result, err := adapter.VerifyCredentials(ctx, material.Decrypted)
	if err != nil {
		s.metrics.IncrementVerification(material.Record.Scheme.String(), "error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scheme verification call failed")
	}

	if result.Success {
		material.Record.ApplyVerified(requestcontext.Now(ctx))
		if err := s.store.Update(ctx, material.Record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stamp verification")
		}
		if s.cache != nil {
			if cacheErr := s.cache.Set(ctx, credentialID, result); cacheErr != nil {
				s.logger.WarnContext(ctx, "verify cache write failed", "error", cacheErr)
			}
		}
		s.metrics.IncrementVerification(material.Record.Scheme.String(), "success")
		s.audit.Emit(ctx, audit.Event{
			UserID:       owner.String(),
			Action:       audit.ActionCredentialVerified,
			CredentialID: credentialID.String(),
			Scheme:       material.Record.Scheme.String(),
		})
	} else {
		// Leave IsVerified untouched; a failed check says nothing about a
		// previously verified credential.
		s.metrics.IncrementVerification(material.Record.Scheme.String(), "rejected")
	}
	return result, nil
}

// Delete removes a credential. Deletion is refused only while an
// in-progress registration's live attempt references it; registrations hold
// a snapshot otherwise.
func (s *Service) Delete(ctx context.Context, owner id.UserID, credentialID id.CredentialID) error {
	cred, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	if cred.OwnerUserID != owner {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}

	if s.guard != nil {
		active, err := s.guard.HasActiveAttempt(ctx, credentialID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check in-flight registrations")
		}
		if active {
			return dErrors.New(dErrors.CodeConflict, "credential is in use by an in-progress registration")
		}
	}

	if err := s.store.Delete(ctx, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete credential")
	}

	if s.cache != nil {
		if cacheErr := s.cache.Invalidate(ctx, credentialID); cacheErr != nil {
			s.logger.WarnContext(ctx, "verify cache invalidation failed", "error", cacheErr)
		}
	}

	s.audit.Emit(ctx, audit.Event{
		UserID:       owner.String(),
		Action:       audit.ActionCredentialDeleted,
		CredentialID: credentialID.String(),
		Scheme:       cred.Scheme.String(),
	})
	return nil
}

// Material resolves authentication material for the registration engine:
// the given credential when one is supplied, the owner's default otherwise.
func (s *Service) Material(ctx context.Context, owner id.UserID, credentialID *id.CredentialID) (*Material, error) {
	if credentialID != nil {
		return s.materialByID(ctx, owner, *credentialID)
	}

	cred, err := s.GetDefault(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.decrypt(cred)
}

func (s *Service) materialByID(ctx context.Context, owner id.UserID, credentialID id.CredentialID) (*Material, error) {
	cred, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	// Ownership mismatch reads as not-found so the API does not leak the
	// existence of other users' credentials.
	if cred.OwnerUserID != owner {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	return s.decrypt(cred)
}

func (s *Service) decrypt(cred *models.SchemeCredential) (*Material, error) {
	plaintext, err := s.cipher.Open(cred.EncryptedSecret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to unseal credential secret")
	}
	material, err := models.UnmarshalSecretMaterial(plaintext)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode credential secret")
	}
	return &Material{
		Record: cred,
		Decrypted: scheme.Credential{
			Scheme:         cred.Scheme,
			ProtectionType: cred.ProtectionType,
			Username:       cred.Username,
			Password:       material.Password,
			APIKey:         material.APIKey,
			APISecret:      material.APISecret,
			AccountNumber:  cred.AccountNumber,
		},
	}, nil
}
