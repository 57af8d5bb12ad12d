// Package dps is the Deposit Protection Service adapter. It is the
// fully-worked reference adapter; mydeposits and tds follow the same shape
// against their own wire formats.
package dps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"depositgate/internal/scheme"
	id "depositgate/pkg/domain"
)

const defaultTimeout = 15 * time.Second

// Adapter talks to the DPS REST API. DPS authenticates with username and
// password over basic auth.
type Adapter struct {
	baseURL string
	client  *http.Client
}

// Option configures the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.client = client
	}
}

func New(baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() id.SchemeName {
	return id.SchemeDPS
}

type registrationPayload struct {
	TenancyID     string   `json:"tenancy_id"`
	Address       string   `json:"address"`
	PostCode      string   `json:"post_code"`
	AmountPence   int64    `json:"amount_pence"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	TenantNames   []string `json:"tenant_names"`
	Protection    string   `json:"protection"`
	AccountNumber string   `json:"account_number,omitempty"`
}

type registrationResponse struct {
	DepositID      string `json:"deposit_id"`
	CertificateURL string `json:"certificate_url"`
	ExpiryDate     string `json:"expiry_date"`
}

func (a *Adapter) SubmitRegistration(ctx context.Context, req scheme.RegistrationRequest, cred scheme.Credential) (*scheme.RegistrationResult, error) {
	payload := registrationPayload{
		TenancyID:     req.TenancyID.String(),
		Address:       req.PropertyAddress,
		PostCode:      req.PostCode,
		AmountPence:   req.DepositAmountPence,
		StartDate:     req.TenancyStart.Format(time.DateOnly),
		EndDate:       req.TenancyEnd.Format(time.DateOnly),
		TenantNames:   req.TenantNames,
		Protection:    cred.ProtectionType.String(),
		AccountNumber: cred.AccountNumber,
	}

	var resp registrationResponse
	if err := a.post(ctx, "/api/v1/deposits", cred, payload, &resp); err != nil {
		return nil, err
	}
	if resp.DepositID == "" {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", "response missing deposit id", nil)
	}

	result := &scheme.RegistrationResult{
		DepositReferenceID: resp.DepositID,
		CertificateURL:     resp.CertificateURL,
	}
	if resp.ExpiryDate != "" {
		expiry, err := time.Parse(time.DateOnly, resp.ExpiryDate)
		if err != nil {
			return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", "unparseable expiry date", err)
		}
		result.ExpiryDate = &expiry
	}
	return result, nil
}

func (a *Adapter) VerifyCredentials(ctx context.Context, cred scheme.Credential) (*scheme.VerificationResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v1/account", nil)
	if err != nil {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", "build request", err)
	}
	httpReq.SetBasicAuth(cred.Username, cred.Password)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusOK:
		return &scheme.VerificationResult{Success: true, Message: "credentials accepted"}, nil
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		// Rejection is a verification outcome, not an adapter fault.
		return &scheme.VerificationResult{Success: false, Message: "DPS rejected the username or password"}, nil
	case httpResp.StatusCode >= 500:
		return nil, scheme.NewAdapterError(scheme.ErrorOutage, "dps", fmt.Sprintf("account endpoint returned %d", httpResp.StatusCode), nil)
	default:
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", fmt.Sprintf("unexpected status %d", httpResp.StatusCode), nil)
	}
}

type prescribedInfoResponse struct {
	DocumentURL string `json:"document_url"`
}

func (a *Adapter) GeneratePrescribedInfo(ctx context.Context, depositReferenceID string, cred scheme.Credential) (*scheme.PrescribedInfoResult, error) {
	var resp prescribedInfoResponse
	path := fmt.Sprintf("/api/v1/deposits/%s/prescribed-information", depositReferenceID)
	if err := a.post(ctx, path, cred, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.DocumentURL == "" {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", "response missing document url", nil)
	}
	return &scheme.PrescribedInfoResult{PrescribedInfoURL: resp.DocumentURL}, nil
}

func (a *Adapter) post(ctx context.Context, path string, cred scheme.Credential, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", "encode payload", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(cred.Username, cred.Password)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return scheme.NewAdapterError(scheme.ErrorBadResponse, "dps", "decode response", err)
		}
		return nil
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return scheme.NewAdapterError(scheme.ErrorAuthentication, "dps", "credentials rejected", nil)
	case httpResp.StatusCode >= 500:
		return scheme.NewAdapterError(scheme.ErrorOutage, "dps", fmt.Sprintf("remote returned %d", httpResp.StatusCode), nil)
	default:
		var remote struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(httpResp.Body).Decode(&remote)
		msg := remote.Message
		if msg == "" {
			msg = fmt.Sprintf("remote returned %d", httpResp.StatusCode)
		}
		return scheme.NewAdapterError(scheme.ErrorRejected, "dps", msg, nil)
	}
}

func classifyTransport(err error) *scheme.AdapterError {
	if errors.Is(err, context.DeadlineExceeded) {
		return scheme.NewAdapterError(scheme.ErrorTimeout, "dps", "request timed out", err)
	}
	return scheme.NewAdapterError(scheme.ErrorOutage, "dps", "request failed", err)
}
