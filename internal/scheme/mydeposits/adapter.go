// Package mydeposits is the mydeposits adapter. mydeposits authenticates
// with an API key and secret sent as headers.
package mydeposits

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
	return id.SchemeMyDeposits
}

func (a *Adapter) SubmitRegistration(ctx context.Context, req scheme.RegistrationRequest, cred scheme.Credential) (*scheme.RegistrationResult, error) {
	payload := map[string]any{
		"tenancy_ref": req.TenancyID.String(),
		"address":     req.PropertyAddress,
		"postcode":    req.PostCode,
		"amount":      req.DepositAmountPence,
		"start":       req.TenancyStart.Format(time.DateOnly),
		"end":         req.TenancyEnd.Format(time.DateOnly),
		"tenants":     req.TenantNames,
		"product":     cred.ProtectionType.String(),
		"member_ref":  cred.AccountNumber,
	}

	var resp struct {
		ProtectionID   string `json:"protection_id"`
		CertificateURL string `json:"certificate_url"`
	}
	if err := a.call(ctx, http.MethodPost, "/v2/protections", cred, payload, &resp); err != nil {
		return nil, err
	}
	if resp.ProtectionID == "" {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "mydeposits", "response missing protection id", nil)
	}
	return &scheme.RegistrationResult{
		DepositReferenceID: resp.ProtectionID,
		CertificateURL:     resp.CertificateURL,
	}, nil
}

func (a *Adapter) VerifyCredentials(ctx context.Context, cred scheme.Credential) (*scheme.VerificationResult, error) {
	var resp struct {
		MemberName string `json:"member_name"`
	}
	err := a.call(ctx, http.MethodGet, "/v2/member", cred, nil, &resp)
	if err != nil {
		var ae *scheme.AdapterError
		if errors.As(err, &ae) && ae.Category == scheme.ErrorAuthentication {
			return &scheme.VerificationResult{Success: false, Message: "mydeposits rejected the API key or secret"}, nil
		}
		return nil, err
	}
	return &scheme.VerificationResult{Success: true, Message: "credentials accepted"}, nil
}

func (a *Adapter) GeneratePrescribedInfo(ctx context.Context, depositReferenceID string, cred scheme.Credential) (*scheme.PrescribedInfoResult, error) {
	var resp struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf("/v2/protections/%s/prescribed-information", depositReferenceID)
	if err := a.call(ctx, http.MethodPost, path, cred, nil, &resp); err != nil {
		return nil, err
	}
	if resp.URL == "" {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, "mydeposits", "response missing document url", nil)
	}
	return &scheme.PrescribedInfoResult{PrescribedInfoURL: resp.URL}, nil
}

func (a *Adapter) call(ctx context.Context, method, path string, cred scheme.Credential, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return scheme.NewAdapterError(scheme.ErrorBadResponse, "mydeposits", "encode payload", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return scheme.NewAdapterError(scheme.ErrorBadResponse, "mydeposits", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", cred.APIKey)
	httpReq.Header.Set("X-Api-Secret", cred.APISecret)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return scheme.NewAdapterError(scheme.ErrorTimeout, "mydeposits", "request timed out", err)
		}
		return scheme.NewAdapterError(scheme.ErrorOutage, "mydeposits", "request failed", err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return scheme.NewAdapterError(scheme.ErrorBadResponse, "mydeposits", "decode response", err)
		}
		return nil
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return scheme.NewAdapterError(scheme.ErrorAuthentication, "mydeposits", "credentials rejected", nil)
	case httpResp.StatusCode >= 500:
		return scheme.NewAdapterError(scheme.ErrorOutage, "mydeposits", fmt.Sprintf("remote returned %d", httpResp.StatusCode), nil)
	default:
		return scheme.NewAdapterError(scheme.ErrorRejected, "mydeposits", fmt.Sprintf("remote returned %d", httpResp.StatusCode), nil)
	}
}
