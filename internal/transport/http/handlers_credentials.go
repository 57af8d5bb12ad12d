package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	credmodels "depositgate/internal/credential/models"
	credsvc "depositgate/internal/credential/service"
	"depositgate/internal/platform/middleware"
	"depositgate/internal/scheme"
	"depositgate/internal/transport/http/shared"
	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
	"depositgate/pkg/requestcontext"
)

// CredentialService defines the interface for credential operations.
type CredentialService interface {
	AddCredential(ctx context.Context, owner id.UserID, input credsvc.AddCredentialInput) (*credmodels.SchemeCredential, error)
	ListCredentials(ctx context.Context, owner id.UserID) ([]*credmodels.SchemeCredential, error)
	GetDefault(ctx context.Context, owner id.UserID) (*credmodels.SchemeCredential, error)
	SetDefault(ctx context.Context, owner id.UserID, credentialID id.CredentialID) error
	Verify(ctx context.Context, owner id.UserID, credentialID id.CredentialID) (*scheme.VerificationResult, error)
	Delete(ctx context.Context, owner id.UserID, credentialID id.CredentialID) error
}

// CredentialHandler handles scheme credential endpoints.
type CredentialHandler struct {
	logger      *slog.Logger
	credentials CredentialService
	validator   middleware.TokenValidator
}

func NewCredentialHandler(credentials CredentialService, logger *slog.Logger, validator middleware.TokenValidator) *CredentialHandler {
	return &CredentialHandler{
		logger:      logger,
		credentials: credentials,
		validator:   validator,
	}
}

// Register mounts the credential routes with the shared middleware chain.
func (h *CredentialHandler) Register(r chi.Router) {
	credRouter := chi.NewRouter()
	credRouter.Use(middleware.Recovery(h.logger))
	credRouter.Use(middleware.RequestID)
	credRouter.Use(middleware.Logger(h.logger))
	credRouter.Use(middleware.Timeout(30 * time.Second))
	credRouter.Use(middleware.ContentTypeJSON)
	credRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	credRouter.Post("/", h.handleAdd)
	credRouter.Get("/", h.handleList)
	credRouter.Get("/default", h.handleGetDefault)
	credRouter.Put("/{credentialID}/default", h.handleSetDefault)
	credRouter.Post("/{credentialID}/verify", h.handleVerify)
	credRouter.Delete("/{credentialID}", h.handleDelete)

	r.Mount("/credentials", credRouter)
}

type addCredentialRequest struct {
	Scheme         string `json:"scheme"`
	ProtectionType string `json:"protection_type"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	APIKey         string `json:"api_key,omitempty"`
	APISecret      string `json:"api_secret,omitempty"`
	AccountNumber  string `json:"account_number,omitempty"`
	IsDefault      bool   `json:"is_default,omitempty"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (h *CredentialHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	var req addCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid add credential request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cred, err := h.credentials.AddCredential(ctx, owner, credsvc.AddCredentialInput{
		Scheme:         req.Scheme,
		ProtectionType: req.ProtectionType,
		Username:       req.Username,
		Password:       req.Password,
		APIKey:         req.APIKey,
		APISecret:      req.APISecret,
		AccountNumber:  req.AccountNumber,
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to add credential")
		return
	}

	shared.WriteJSON(w, http.StatusCreated, cred)
}

func (h *CredentialHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	creds, err := h.credentials.ListCredentials(ctx, owner)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list credentials")
		return
	}
	if creds == nil {
		creds = []*credmodels.SchemeCredential{}
	}
	shared.WriteJSON(w, http.StatusOK, creds)
}

func (h *CredentialHandler) handleGetDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}

	cred, err := h.credentials.GetDefault(ctx, owner)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load default credential")
		return
	}
	shared.WriteJSON(w, http.StatusOK, cred)
}

func (h *CredentialHandler) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	credentialID, ok := h.credentialIDParam(ctx, w, r)
	if !ok {
		return
	}

	if err := h.credentials.SetDefault(ctx, owner, credentialID); err != nil {
		h.writeServiceError(ctx, w, err, "failed to set default credential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CredentialHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	credentialID, ok := h.credentialIDParam(ctx, w, r)
	if !ok {
		return
	}

	result, err := h.credentials.Verify(ctx, owner, credentialID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to verify credential")
		return
	}
	shared.WriteJSON(w, http.StatusOK, verifyResponse{
		Success: result.Success,
		Message: result.Message,
	})
}

func (h *CredentialHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(ctx, w)
	if !ok {
		return
	}
	credentialID, ok := h.credentialIDParam(ctx, w, r)
	if !ok {
		return
	}

	if err := h.credentials.Delete(ctx, owner, credentialID); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete credential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CredentialHandler) owner(ctx context.Context, w http.ResponseWriter) (id.UserID, bool) {
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

func (h *CredentialHandler) credentialIDParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (id.CredentialID, bool) {
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid credential id",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return id.CredentialID{}, false
	}
	return credentialID, true
}

func (h *CredentialHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
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
