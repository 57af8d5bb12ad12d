// Package tds is the Tenancy Deposit Scheme adapter. TDS authenticates with
// username and password against a token endpoint, then bearer tokens on the
// deposit endpoints; the token exchange is folded into each call here since
// the engine treats every call as a single unit of work.
package tds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"depositgate/internal/scheme"
	id "depositgate/pkg/domain"
)

const defaultTimeout = 15 * time.Second

type Adapter struct {
	baseURL string
	client  *http.Client
}

type Option func(*Adapter)

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
	return id.SchemeTDS
}

func (a *Adapter) SubmitRegistration(ctx context.Context, req scheme.RegistrationRequest, cred scheme.Credential) (*scheme.RegistrationResult, error) {
	token, err := a.authenticate(ctx, cred)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"tenancy_id":    req.TenancyID.String(),
		"address":       req.PropertyAddress,
		"postcode":      req.PostCode,
		"deposit_pence": req.DepositAmountPence,
		"tenancy_start": req.TenancyStart.Format(time.DateOnly),
		"tenancy_end":   req.TenancyEnd.Format(time.DateOnly),
		"tenants":       req.TenantNames,
		"scheme_type":   cred.ProtectionType.String(),
		"member_number": cred.AccountNumber,
	}

	var resp struct {
		DPC            string `json:"dpc"`
		CertificateURL string `json:"certificate_url"`
	}
	if err := a.call(ctx, token, http.MethodPost, "/api/deposits", payload, &resp); err != nil {
		return nil, err
	}
	if resp.DPC == "" {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", "response missing deposit protection code", nil)
	}
	return &scheme.RegistrationResult{
		DepositReferenceID: resp.DPC,
		CertificateURL:     resp.CertificateURL,
	}, nil
}

func (a *Adapter) VerifyCredentials(ctx context.Context, cred scheme.Credential) (*scheme.VerificationResult, error) {
	_, err := a.authenticate(ctx, cred)
	if err != nil {
		var ae *scheme.AdapterError
		if errors.As(err, &ae) && ae.Category == scheme.ErrorAuthentication {
			return &scheme.VerificationResult{Success: false, Message: "TDS rejected the username or password"}, nil
		}
		return nil, err
	}
	return &scheme.VerificationResult{Success: true, Message: "credentials accepted"}, nil
}

func (a *Adapter) GeneratePrescribedInfo(ctx context.Context, depositReferenceID string, cred scheme.Credential) (*scheme.PrescribedInfoResult, error) {
	token, err := a.authenticate(ctx, cred)
	if err != nil {
		return nil, err
	}

	var resp struct {
		DocumentURL string `json:"document_url"`
	}
	path := fmt.Sprintf("/api/deposits/%s/prescribed-information", depositReferenceID)
	if err := a.call(ctx, token, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.DocumentURL == "" {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", "response missing document url", nil)
	}
	return &scheme.PrescribedInfoResult{PrescribedInfoURL: resp.DocumentURL}, nil
}

func (a *Adapter) authenticate(ctx context.Context, cred scheme.Credential) (string, error) {
	form := url.Values{}
	form.Set("username", cred.Username)
	form.Set("password", cred.Password)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", "build token request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusOK:
		var token struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(httpResp.Body).Decode(&token); err != nil || token.AccessToken == "" {
			return "", scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", "token response unreadable", err)
		}
		return token.AccessToken, nil
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusBadRequest:
		return "", scheme.NewAdapterError(scheme.ErrorAuthentication, "tds", "credentials rejected", nil)
	case httpResp.StatusCode >= 500:
		return "", scheme.NewAdapterError(scheme.ErrorOutage, "tds", fmt.Sprintf("token endpoint returned %d", httpResp.StatusCode), nil)
	default:
		return "", scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", fmt.Sprintf("unexpected status %d", httpResp.StatusCode), nil)
	}
}

func (a *Adapter) call(ctx context.Context, token, method, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", "encode payload", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return scheme.NewAdapterError(scheme.ErrorBadResponse, "tds", "decode response", err)
		}
		return nil
	case httpResp.StatusCode == http.StatusUnauthorized:
		return scheme.NewAdapterError(scheme.ErrorAuthentication, "tds", "token rejected", nil)
	case httpResp.StatusCode >= 500:
		return scheme.NewAdapterError(scheme.ErrorOutage, "tds", fmt.Sprintf("remote returned %d", httpResp.StatusCode), nil)
	default:
		return scheme.NewAdapterError(scheme.ErrorRejected, "tds", fmt.Sprintf("remote returned %d", httpResp.StatusCode), nil)
	}
}

func classifyTransport(err error) *scheme.AdapterError {
	if errors.Is(err, context.DeadlineExceeded) {
		return scheme.NewAdapterError(scheme.ErrorTimeout, "tds", "request timed out", err)
	}
	return scheme.NewAdapterError(scheme.ErrorOutage, "tds", "request failed", err)
}
