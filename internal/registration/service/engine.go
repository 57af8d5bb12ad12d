// Package service implements the registration engine: the per-tenancy state
// machine, mode dispatch (manual, api, crm), adapter invocation with
// normalized failure absorption, and document regeneration.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"depositgate/internal/audit"
	credsvc "depositgate/internal/credential/service"
	"depositgate/internal/crm"
	regmetrics "depositgate/internal/registration/metrics"
	"depositgate/internal/registration/models"
	"depositgate/internal/registration/store"
	"depositgate/internal/scheme"
	"depositgate/internal/tenancy"
	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
	"depositgate/pkg/platform/sentinel"
	"depositgate/pkg/requestcontext"
)

const defaultSchemeTimeout = 30 * time.Second

// CredentialSource resolves authentication material for an attempt: the
// given credential, or the owner's default when none is supplied.
// Implemented by the credential service.
type CredentialSource interface {
	Material(ctx context.Context, owner id.UserID, credentialID *id.CredentialID) (*credsvc.Material, error)
}

// Engine owns the registration state machine. All status changes flow
// through the store's Execute so validation and mutation happen under the
// per-registration lock; concurrent register calls for one tenancy are
// additionally collapsed in-process by a singleflight group.
type Engine struct {
	registrations store.Store
	credentials   CredentialSource
	schemes       *scheme.Registry
	crms          *crm.Registry
	tenancies     tenancy.Reader

	logger        *slog.Logger
	metrics       *regmetrics.Metrics
	audit         *audit.Publisher
	tracer        trace.Tracer
	schemeTimeout time.Duration

	registerGroup singleflight.Group
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSchemeTimeout bounds outbound adapter calls; past the deadline the
// attempt resolves to failed rather than hanging.
func WithSchemeTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.schemeTimeout = timeout }
}

func WithAudit(publisher *audit.Publisher) Option {
	return func(e *Engine) { e.audit = publisher }
}

func New(
	registrations store.Store,
	credentials CredentialSource,
	schemes *scheme.Registry,
	crms *crm.Registry,
	tenancies tenancy.Reader,
	opts ...Option,
) *Engine {
	e := &Engine{
		registrations: registrations,
		credentials:   credentials,
		schemes:       schemes,
		crms:          crms,
		tenancies:     tenancies,
		logger:        slog.Default(),
		tracer:        otel.Tracer("depositgate/registration"),
		schemeTimeout: defaultSchemeTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ManualEntry carries the details of a registration performed outside the
// platform. Scheme and deposit reference are required; the rest is optional.
type ManualEntry struct {
	Scheme         id.SchemeName
	ProtectionType id.ProtectionType
	DepositID      string
	CertificateURL string
	ExpiryDate     *time.Time
}

// RegisterInput selects the mode and its payload. CredentialID applies to
// api and crm modes; nil means the owner's default credential.
type RegisterInput struct {
	TenancyID    id.TenancyID
	Mode         models.Mode
	CredentialID *id.CredentialID
	CRMSystem    *id.CRMSystem
	Manual       *ManualEntry
}

// Register creates and drives a registration attempt for a tenancy.
//
// The call is idempotent: when a non-terminal registration already exists it
// is returned unchanged. Validation failures (unknown tenancy, missing
// credential, missing manual deposit id) are rejected before any row is
// created. Adapter failures are absorbed: the returned registration carries
// status failed and the adapter's message, and the error is nil.
func (e *Engine) Register(ctx context.Context, owner id.UserID, input RegisterInput) (*models.Registration, error) {
	ctx, span := e.tracer.Start(ctx, "registration.register",
		trace.WithAttributes(
			attribute.String("tenancy_id", input.TenancyID.String()),
			attribute.String("mode", string(input.Mode)),
		))
	defer span.End()

	if input.TenancyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenancy id is required")
	}

	result, err, _ := e.registerGroup.Do(input.TenancyID.String(), func() (any, error) {
		return e.register(ctx, owner, input)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Registration), nil
}

func (e *Engine) register(ctx context.Context, owner id.UserID, input RegisterInput) (*models.Registration, error) {
	if existing, err := e.registrations.FindCurrentByTenancy(ctx, input.TenancyID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check current registration")
	}

	details, err := e.tenancies.GetTenancy(ctx, input.TenancyID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "tenancy not found")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "tenancy service unavailable")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenancy")
		}
	}

	attempt, err := e.prepareAttempt(ctx, owner, input)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reg, err := models.NewRegistration(
		id.RegistrationID(uuid.New()),
		input.TenancyID,
		details.PropertyID,
		owner,
		attempt.schemeName,
		attempt.protection,
		input.Mode,
		details.DepositAmountPence,
		now,
	)
	if err != nil {
		return nil, err
	}
	reg.CRMSystem = input.CRMSystem

	if err := e.registrations.Create(ctx, reg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race to a concurrent register; return the winner.
			return e.currentOrError(ctx, input.TenancyID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}

	reg, err = e.registrations.Execute(ctx, reg.ID, "dispatch",
		func(r *models.Registration) error { return r.CanDispatch() },
		func(r *models.Registration) { r.ApplyDispatch(attempt.credentialID, requestcontext.Now(ctx)) },
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to dispatch registration")
	}
	e.metrics.IncrementTransition("dispatch", string(reg.Status))
	e.emitAudit(ctx, reg, audit.ActionRegistrationSubmitted, "")

	return e.runAttempt(ctx, reg, details, attempt)
}

// preparedAttempt is everything resolved before any row is created, so that
// validation failures never mutate registration state.
type preparedAttempt struct {
	schemeName   id.SchemeName
	protection   id.ProtectionType
	credentialID *id.CredentialID
	material     *credsvc.Material
	manual       *ManualEntry
}

func (e *Engine) prepareAttempt(ctx context.Context, owner id.UserID, input RegisterInput) (*preparedAttempt, error) {
	switch input.Mode {
	case models.ModeManual:
		if input.Manual == nil || input.Manual.DepositID == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "manual mode requires a deposit reference id")
		}
		if input.Manual.Scheme == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "manual mode requires a scheme name")
		}
		protection := input.Manual.ProtectionType
		if protection == "" {
			protection = id.ProtectionCustodial
		}
		return &preparedAttempt{
			schemeName: input.Manual.Scheme,
			protection: protection,
			manual:     input.Manual,
		}, nil

	case models.ModeAPI, models.ModeCRM:
		if input.Mode == models.ModeCRM && input.CRMSystem == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "crm mode requires a crm system")
		}
		material, err := e.credentials.Material(ctx, owner, input.CredentialID)
		if err != nil {
			return nil, err
		}
		credID := material.Record.ID
		return &preparedAttempt{
			schemeName:   material.Record.Scheme,
			protection:   material.Record.ProtectionType,
			credentialID: &credID,
			material:     material,
		}, nil

	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown registration mode: %s", input.Mode)
	}
}

// runAttempt performs the external call (or manual recording) for an
// in_progress registration and resolves it to registered or failed. Adapter
// failures are absorbed into the failed state; only store faults surface as
// errors.
func (e *Engine) runAttempt(ctx context.Context, reg *models.Registration, details *tenancy.Details, attempt *preparedAttempt) (*models.Registration, error) {
	result, callErr := e.submit(ctx, reg, details, attempt)

	if callErr != nil {
		message := scheme.MessageOf(callErr)
		failed, err := e.registrations.Execute(ctx, reg.ID, "register_failed",
			func(r *models.Registration) error { return r.CanFail() },
			func(r *models.Registration) { r.ApplyFailed(message, requestcontext.Now(ctx)) },
		)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attempt failure")
		}
		e.metrics.IncrementAttempt(reg.Scheme.String(), string(reg.Mode), "failure")
		e.metrics.IncrementTransition("register_failed", string(failed.Status))
		e.emitAudit(ctx, failed, audit.ActionRegistrationFailed, message)
		e.logger.WarnContext(ctx, "registration attempt failed",
			"registration_id", reg.ID,
			"tenancy_id", reg.TenancyID,
			"scheme", reg.Scheme,
			"error", message,
		)
		return failed, nil
	}

	completed, err := e.registrations.Execute(ctx, reg.ID, "register_succeeded",
		func(r *models.Registration) error { return r.CanComplete() },
		func(r *models.Registration) {
			r.ApplyCompleted(result.DepositReferenceID, result.CertificateURL, result.ExpiryDate, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attempt success")
	}
	e.metrics.IncrementAttempt(reg.Scheme.String(), string(reg.Mode), "success")
	e.metrics.IncrementTransition("register_succeeded", string(completed.Status))
	e.emitAudit(ctx, completed, audit.ActionRegistrationSucceeded, completed.DepositReferenceID)
	e.logger.InfoContext(ctx, "deposit registered",
		"registration_id", reg.ID,
		"tenancy_id", reg.TenancyID,
		"scheme", reg.Scheme,
		"deposit_reference_id", completed.DepositReferenceID,
	)
	return completed, nil
}

func (e *Engine) submit(ctx context.Context, reg *models.Registration, details *tenancy.Details, attempt *preparedAttempt) (*scheme.RegistrationResult, error) {
	if attempt.manual != nil {
		return &scheme.RegistrationResult{
			DepositReferenceID: attempt.manual.DepositID,
			CertificateURL:     attempt.manual.CertificateURL,
			ExpiryDate:         attempt.manual.ExpiryDate,
		}, nil
	}

	req := scheme.RegistrationRequest{
		TenancyID:          reg.TenancyID,
		PropertyAddress:    details.PropertyAddress,
		PostCode:           details.PostCode,
		DepositAmountPence: details.DepositAmountPence,
		TenancyStart:       details.StartDate,
		TenancyEnd:         details.EndDate,
		TenantNames:        details.TenantNames,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.schemeTimeout)
	defer cancel()

	started := time.Now()
	if reg.Mode == models.ModeCRM {
		registrar, err := e.crms.ForSystem(*reg.CRMSystem)
		if err != nil {
			return nil, scheme.NewAdapterError(scheme.ErrorRejected, attempt.schemeName.String(), err.Error(), err)
		}
		result, err := registrar.RegisterViaCRM(callCtx, req, attempt.material.Decrypted)
		e.metrics.ObserveSchemeCall(attempt.schemeName.String(), "register_via_crm", time.Since(started))
		return result, err
	}

	adapter, err := e.schemes.ForScheme(attempt.schemeName)
	if err != nil {
		return nil, scheme.NewAdapterError(scheme.ErrorRejected, attempt.schemeName.String(), err.Error(), err)
	}
	result, err := adapter.SubmitRegistration(callCtx, req, attempt.material.Decrypted)
	e.metrics.ObserveSchemeCall(attempt.schemeName.String(), "submit_registration", time.Since(started))
	return result, err
}

// Retry re-runs a failed attempt on the same row. The caller may supply a
// different credential; otherwise the attempt's original credential (or the
// owner's default) is reused.
func (e *Engine) Retry(ctx context.Context, owner id.UserID, registrationID id.RegistrationID, credentialID *id.CredentialID) (*models.Registration, error) {
	ctx, span := e.tracer.Start(ctx, "registration.retry",
		trace.WithAttributes(attribute.String("registration_id", registrationID.String())))
	defer span.End()

	reg, err := e.loadOwned(ctx, owner, registrationID)
	if err != nil {
		return nil, err
	}
	if err := reg.CanRetry(); err != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "retry is only valid for a failed registration")
	}
	if reg.Mode == models.ModeManual {
		return nil, dErrors.New(dErrors.CodeConflict, "manual registrations have no attempt to retry")
	}

	if credentialID == nil {
		credentialID = reg.CredentialID
	}
	material, err := e.credentials.Material(ctx, owner, credentialID)
	if err != nil {
		return nil, err
	}
	credID := material.Record.ID
	attempt := &preparedAttempt{
		schemeName:   reg.Scheme,
		protection:   reg.ProtectionType,
		credentialID: &credID,
		material:     material,
	}

	details, err := e.tenancies.GetTenancy(ctx, reg.TenancyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "tenancy service unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenancy")
	}

	reg, err = e.registrations.Execute(ctx, registrationID, "retry",
		func(r *models.Registration) error {
			if err := r.CanRetry(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "retry is only valid for a failed registration")
			}
			return nil
		},
		func(r *models.Registration) { r.ApplyRetry(attempt.credentialID, requestcontext.Now(ctx)) },
	)
	if err != nil {
		return nil, e.wrapExecuteErr(err)
	}
	e.metrics.IncrementTransition("retry", string(reg.Status))
	e.emitAudit(ctx, reg, audit.ActionRegistrationRetried, "")

	return e.runAttempt(ctx, reg, details, attempt)
}

// MarkExpired reacts to an external expiry trigger such as a scheduled
// sweep.
func (e *Engine) MarkExpired(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error) {
	if _, err := e.loadOwned(ctx, owner, registrationID); err != nil {
		return nil, err
	}

	reg, err := e.registrations.Execute(ctx, registrationID, "expire",
		func(r *models.Registration) error {
			if err := r.CanExpire(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "only a protected registration can expire")
			}
			return nil
		},
		func(r *models.Registration) { r.ApplyExpire(requestcontext.Now(ctx)) },
	)
	if err != nil {
		return nil, e.wrapExecuteErr(err)
	}
	e.metrics.IncrementTransition("expire", string(reg.Status))
	e.emitAudit(ctx, reg, audit.ActionRegistrationExpired, "")
	return reg, nil
}

// Renew reactivates an expired registration with the new expiry date agreed
// with the scheme.
func (e *Engine) Renew(ctx context.Context, owner id.UserID, registrationID id.RegistrationID, newExpiry time.Time) (*models.Registration, error) {
	if _, err := e.loadOwned(ctx, owner, registrationID); err != nil {
		return nil, err
	}
	if newExpiry.Before(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeValidation, "renewal expiry date must be in the future")
	}

	reg, err := e.registrations.Execute(ctx, registrationID, "renew",
		func(r *models.Registration) error {
			if err := r.CanRenew(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "only an expired registration can be renewed")
			}
			return nil
		},
		func(r *models.Registration) { r.ApplyRenew(newExpiry, requestcontext.Now(ctx)) },
	)
	if err != nil {
		return nil, e.wrapExecuteErr(err)
	}
	e.metrics.IncrementTransition("renew", string(reg.Status))
	e.emitAudit(ctx, reg, audit.ActionRegistrationRenewed, "")
	return reg, nil
}

// Release ends protection when the tenancy ends and the deposit is
// returned. Terminal; no further mutation is permitted.
func (e *Engine) Release(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error) {
	if _, err := e.loadOwned(ctx, owner, registrationID); err != nil {
		return nil, err
	}

	reg, err := e.registrations.Execute(ctx, registrationID, "release",
		func(r *models.Registration) error {
			if err := r.CanRelease(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "only a protected registration can be released")
			}
			return nil
		},
		func(r *models.Registration) { r.ApplyRelease(requestcontext.Now(ctx)) },
	)
	if err != nil {
		return nil, e.wrapExecuteErr(err)
	}
	e.metrics.IncrementTransition("release", string(reg.Status))
	e.emitAudit(ctx, reg, audit.ActionRegistrationReleased, "")
	return reg, nil
}

// GeneratePrescribedInfo calls the scheme for a fresh prescribed information
// document and overwrites the stored URL. Valid only while the deposit is
// protected; never changes status.
func (e *Engine) GeneratePrescribedInfo(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error) {
	ctx, span := e.tracer.Start(ctx, "registration.generate_prescribed_info",
		trace.WithAttributes(attribute.String("registration_id", registrationID.String())))
	defer span.End()

	reg, err := e.loadOwned(ctx, owner, registrationID)
	if err != nil {
		return nil, err
	}
	if err := reg.CanGenerateDocuments(); err != nil {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "prescribed information requires a registered or renewed deposit")
	}

	material, err := e.credentials.Material(ctx, owner, reg.CredentialID)
	if err != nil {
		return nil, err
	}
	adapter, err := e.schemes.ForScheme(reg.Scheme)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "no adapter for scheme")
	}

	callCtx, cancel := context.WithTimeout(ctx, e.schemeTimeout)
	defer cancel()

	started := time.Now()
	result, err := adapter.GeneratePrescribedInfo(callCtx, reg.DepositReferenceID, material.Decrypted)
	e.metrics.ObserveSchemeCall(reg.Scheme.String(), "generate_prescribed_info", time.Since(started))
	if err != nil {
		if scheme.CategoryOf(err) == scheme.ErrorTimeout {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, scheme.MessageOf(err))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, scheme.MessageOf(err))
	}

	reg, err = e.registrations.Execute(ctx, registrationID, "prescribed_info",
		func(r *models.Registration) error {
			if err := r.CanGenerateDocuments(); err != nil {
				return dErrors.New(dErrors.CodePreconditionFailed, "prescribed information requires a registered or renewed deposit")
			}
			return nil
		},
		func(r *models.Registration) {
			r.ApplyPrescribedInfo(result.PrescribedInfoURL, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		return nil, e.wrapExecuteErr(err)
	}
	e.emitAudit(ctx, reg, audit.ActionPrescribedInfoGenerated, "")
	return reg, nil
}

// Get returns the tenancy's current non-terminal registration, or NotFound.
func (e *Engine) Get(ctx context.Context, owner id.UserID, tenancyID id.TenancyID) (*models.Registration, error) {
	reg, err := e.registrations.FindCurrentByTenancy(ctx, tenancyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no current registration for tenancy")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	if reg.OwnerUserID != owner {
		return nil, dErrors.New(dErrors.CodeNotFound, "no current registration for tenancy")
	}
	return reg, nil
}

// List returns the owner's registrations, newest first.
func (e *Engine) List(ctx context.Context, owner id.UserID) ([]*models.Registration, error) {
	regs, err := e.registrations.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

// History returns a registration's transition log, oldest first.
func (e *Engine) History(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) ([]*models.Transition, error) {
	if _, err := e.loadOwned(ctx, owner, registrationID); err != nil {
		return nil, err
	}
	history, err := e.registrations.History(ctx, registrationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration history")
	}
	return history, nil
}

func (e *Engine) currentOrError(ctx context.Context, tenancyID id.TenancyID) (*models.Registration, error) {
	reg, err := e.registrations.FindCurrentByTenancy(ctx, tenancyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration after create conflict")
	}
	return reg, nil
}

// loadOwned fetches a registration and enforces ownership. A mismatch reads
// as not-found so the API does not leak other users' registrations.
func (e *Engine) loadOwned(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := e.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	if reg.OwnerUserID != owner {
		return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return reg, nil
}

func (e *Engine) emitAudit(ctx context.Context, reg *models.Registration, action audit.Action, detail string) {
	e.audit.Emit(ctx, audit.Event{
		UserID:         reg.OwnerUserID.String(),
		Action:         action,
		RegistrationID: reg.ID.String(),
		TenancyID:      reg.TenancyID.String(),
		Scheme:         reg.Scheme.String(),
		Detail:         detail,
	})
}

func (e *Engine) wrapExecuteErr(err error) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registration update failed")
}
