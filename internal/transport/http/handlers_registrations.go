package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"depositgate/internal/platform/middleware"
	"depositgate/internal/registration/models"
	regsvc "depositgate/internal/registration/service"
	"depositgate/internal/transport/http/shared"
	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
	"depositgate/pkg/requestcontext"
)

// RegistrationService defines the interface for registration operations.
type RegistrationService interface {
	Register(ctx context.Context, owner id.UserID, input regsvc.RegisterInput) (*models.Registration, error)
	Retry(ctx context.Context, owner id.UserID, registrationID id.RegistrationID, credentialID *id.CredentialID) (*models.Registration, error)
	MarkExpired(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error)
	Renew(ctx context.Context, owner id.UserID, registrationID id.RegistrationID, newExpiry time.Time) (*models.Registration, error)
	Release(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error)
	GeneratePrescribedInfo(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error)
	Get(ctx context.Context, owner id.UserID, tenancyID id.TenancyID) (*models.Registration, error)
	List(ctx context.Context, owner id.UserID) ([]*models.Registration, error)
	History(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) ([]*models.Transition, error)
}

// RegistrationHandler handles deposit registration endpoints.
type RegistrationHandler struct {
	logger        *slog.Logger
	registrations RegistrationService
	validator     middleware.TokenValidator
}

func NewRegistrationHandler(registrations RegistrationService, logger *slog.Logger, validator middleware.TokenValidator) *RegistrationHandler {
	return &RegistrationHandler{
		logger:        logger,
		registrations: registrations,
		validator:     validator,
	}
}

// Register mounts the registration routes with the shared middleware chain.
func (h *RegistrationHandler) Register(r chi.Router) {
	regRouter := chi.NewRouter()
	regRouter.Use(middleware.Recovery(h.logger))
	regRouter.Use(middleware.RequestID)
	regRouter.Use(middleware.Logger(h.logger))
	regRouter.Use(middleware.Timeout(60 * time.Second))
	regRouter.Use(middleware.ContentTypeJSON)
	regRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	regRouter.Post("/", h.handleRegister)
	regRouter.Get("/", h.handleList)
	regRouter.Get("/tenancy/{tenancyID}", h.handleGetCurrent)
	regRouter.Get("/{registrationID}/history", h.handleHistory)
	regRouter.Post("/{registrationID}/retry", h.handleRetry)
	regRouter.Post("/{registrationID}/expire", h.handleExpire)
	regRouter.Post("/{registrationID}/renew", h.handleRenew)
	regRouter.Post("/{registrationID}/release", h.handleRelease)
	regRouter.Post("/{registrationID}/prescribed-info", h.handlePrescribedInfo)

	r.Mount("/registrations", regRouter)
}

type manualEntryRequest struct {
	Scheme         string     `json:"scheme"`
	ProtectionType string     `json:"protection_type,omitempty"`
	DepositID      string     `json:"deposit_id"`
	CertificateURL string     `json:"certificate_url,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

type registerRequest struct {
	TenancyID    string              `json:"tenancy_id"`
	Mode         string              `json:"mode"`
	CredentialID string              `json:"credential_id,omitempty"`
	CRMSystem    string              `json:"crm_system,omitempty"`
	Manual       *manualEntryRequest `json:"manual,omitempty"`
}

type retryRequest struct {
	CredentialID string `json:"credential_id,omitempty"`
}

type renewRequest struct {
	ExpiryDate time.Time `json:"expiry_date"`
}

func (h *RegistrationHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input, err := h.buildRegisterInput(req)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	reg, err := h.registrations.Register(ctx, owner, input)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to register deposit")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, reg)
}

func (h *RegistrationHandler) buildRegisterInput(req registerRequest) (regsvc.RegisterInput, error) {
	tenancyID, err := id.ParseTenancyID(req.TenancyID)
	if err != nil {
		return regsvc.RegisterInput{}, err
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		return regsvc.RegisterInput{}, err
	}

	input := regsvc.RegisterInput{
		TenancyID: tenancyID,
		Mode:      mode,
	}

	if req.CredentialID != "" {
		credentialID, err := id.ParseCredentialID(req.CredentialID)
		if err != nil {
			return regsvc.RegisterInput{}, err
		}
		input.CredentialID = &credentialID
	}

	if req.CRMSystem != "" {
		crmSystem, err := id.ParseCRMSystem(req.CRMSystem)
		if err != nil {
			return regsvc.RegisterInput{}, err
		}
		input.CRMSystem = &crmSystem
	}

	if req.Manual != nil {
		manual := regsvc.ManualEntry{
			DepositID:      req.Manual.DepositID,
			CertificateURL: req.Manual.CertificateURL,
			ExpiryDate:     req.Manual.ExpiryDate,
		}
		if req.Manual.Scheme != "" {
			schemeName, err := id.ParseSchemeName(req.Manual.Scheme)
			if err != nil {
				return regsvc.RegisterInput{}, err
			}
			manual.Scheme = schemeName
		}
		if req.Manual.ProtectionType != "" {
			protection, err := id.ParseProtectionType(req.Manual.ProtectionType)
			if err != nil {
				return regsvc.RegisterInput{}, err
			}
			manual.ProtectionType = protection
		}
		input.Manual = &manual
	}

	return input, nil
}

func (h *RegistrationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	regs, err := h.registrations.List(ctx, owner)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list registrations")
		return
	}
	if regs == nil {
		regs = []*models.Registration{}
	}
	shared.WriteJSON(w, http.StatusOK, regs)
}

func (h *RegistrationHandler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	tenancyID, err := id.ParseTenancyID(chi.URLParam(r, "tenancyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.registrations.Get(ctx, owner, tenancyID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load registration")
		return
	}
	shared.WriteJSON(w, http.StatusOK, reg)
}

func (h *RegistrationHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	registrationID, ok := h.registrationIDParam(ctx, w, r)
	if !ok {
		return
	}

	history, err := h.registrations.History(ctx, owner, registrationID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load registration history")
		return
	}
	if history == nil {
		history = []*models.Transition{}
	}
	shared.WriteJSON(w, http.StatusOK, history)
}

func (h *RegistrationHandler) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	registrationID, ok := h.registrationIDParam(ctx, w, r)
	if !ok {
		return
	}

	var req retryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	var credentialID *id.CredentialID
	if req.CredentialID != "" {
		parsed, err := id.ParseCredentialID(req.CredentialID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		credentialID = &parsed
	}

	reg, err := h.registrations.Retry(ctx, owner, registrationID, credentialID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to retry registration")
		return
	}
	shared.WriteJSON(w, http.StatusOK, reg)
}

func (h *RegistrationHandler) handleExpire(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "failed to expire registration", h.registrations.MarkExpired)
}

func (h *RegistrationHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "failed to release registration", h.registrations.Release)
}

func (h *RegistrationHandler) handlePrescribedInfo(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "failed to generate prescribed information", h.registrations.GeneratePrescribedInfo)
}

func (h *RegistrationHandler) runTransition(
	w http.ResponseWriter,
	r *http.Request,
	errMsg string,
	op func(ctx context.Context, owner id.UserID, registrationID id.RegistrationID) (*models.Registration, error),
) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	registrationID, ok := h.registrationIDParam(ctx, w, r)
	if !ok {
		return
	}

	reg, err := op(ctx, owner, registrationID)
	if err != nil {
		h.writeServiceError(ctx, w, err, errMsg)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reg)
}

func (h *RegistrationHandler) handleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	registrationID, ok := h.registrationIDParam(ctx, w, r)
	if !ok {
		return
	}

	var req renewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ExpiryDate.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "expiry date is required"))
		return
	}

	reg, err := h.registrations.Renew(ctx, owner, registrationID, req.ExpiryDate)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to renew registration")
		return
	}
	shared.WriteJSON(w, http.StatusOK, reg)
}

func (h *RegistrationHandler) owner(ctx context.Context, w http.ResponseWriter) (id.UserID, bool) {
	owner := requestcontext.UserID(ctx)
	if owner.IsNil() {
		// Unreachable when RequireAuth is mounted.
		h.logger.ErrorContext(ctx, "owner missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	return owner, true
}

func (h *RegistrationHandler) registrationIDParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (id.RegistrationID, bool) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid registration id",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return id.RegistrationID{}, false
	}
	return registrationID, true
}

func (h *RegistrationHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	var domainErr *dErrors.Error
	logFn := h.logger.ErrorContext
	if isClientError(err) {
		logFn = h.logger.WarnContext
	}
	logFn(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	if !asDomainError(err, &domainErr) {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	shared.WriteError(w, err)
}
