package crm

import (
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

// lookupResponse is the common shape the four CRMs expose for a tenancy's
// deposit configuration. Paths and auth differ per variant; the body is
// close enough to share.
type lookupResponse struct {
	CRMTenancyRef string `json:"tenancy_ref"`
	SchemeName    string `json:"scheme"`
	AccountRef    string `json:"account_ref"`
}

// variant holds the per-CRM wire differences.
type variant struct {
	system     id.CRMSystem
	lookupPath func(tenancyID id.TenancyID) string
	authorize  func(req *http.Request, cred scheme.Credential)
}

// Client implements Registrar for one CRM variant.
type Client struct {
	variant variant
	baseURL string
	client  *http.Client
	schemes *scheme.Registry
}

// Option configures a CRM client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.client = httpClient
	}
}

func newClient(v variant, baseURL string, schemes *scheme.Registry, opts ...Option) *Client {
	c := &Client{
		variant: v,
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		schemes: schemes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewPropertyFile builds the PropertyFile registrar.
func NewPropertyFile(baseURL string, schemes *scheme.Registry, opts ...Option) *Client {
	return newClient(variant{
		system: id.CRMPropertyFile,
		lookupPath: func(tenancyID id.TenancyID) string {
			return "/api/tenancies/" + tenancyID.String() + "/deposit-config"
		},
		authorize: func(req *http.Request, cred scheme.Credential) {
			req.Header.Set("X-Api-Key", cred.APIKey)
		},
	}, baseURL, schemes, opts...)
}

// NewFixflo builds the Fixflo registrar.
func NewFixflo(baseURL string, schemes *scheme.Registry, opts ...Option) *Client {
	return newClient(variant{
		system: id.CRMFixflo,
		lookupPath: func(tenancyID id.TenancyID) string {
			return "/api/v2/tenancy/" + tenancyID.String() + "/deposit"
		},
		authorize: func(req *http.Request, cred scheme.Credential) {
			req.SetBasicAuth(cred.APIKey, cred.APISecret)
		},
	}, baseURL, schemes, opts...)
}

// NewReapit builds the Reapit registrar.
func NewReapit(baseURL string, schemes *scheme.Registry, opts ...Option) *Client {
	return newClient(variant{
		system: id.CRMReapit,
		lookupPath: func(tenancyID id.TenancyID) string {
			return "/tenancies/" + tenancyID.String() + "/deposit"
		},
		authorize: func(req *http.Request, cred scheme.Credential) {
			req.Header.Set("Authorization", "Bearer "+cred.APIKey)
		},
	}, baseURL, schemes, opts...)
}

// NewJupix builds the Jupix registrar.
func NewJupix(baseURL string, schemes *scheme.Registry, opts ...Option) *Client {
	return newClient(variant{
		system: id.CRMJupix,
		lookupPath: func(tenancyID id.TenancyID) string {
			return "/rest/tenancies/" + tenancyID.String() + "/depositScheme"
		},
		authorize: func(req *http.Request, cred scheme.Credential) {
			req.Header.Set("X-Jupix-Token", cred.APIKey)
		},
	}, baseURL, schemes, opts...)
}

func (c *Client) System() id.CRMSystem {
	return c.variant.system
}

func (c *Client) RegisterViaCRM(ctx context.Context, req scheme.RegistrationRequest, cred scheme.Credential) (*scheme.RegistrationResult, error) {
	config, err := c.lookup(ctx, req.TenancyID, cred)
	if err != nil {
		return nil, err
	}

	schemeName, err := id.ParseSchemeName(config.SchemeName)
	if err != nil {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, string(c.variant.system),
			fmt.Sprintf("crm returned unknown scheme %q", config.SchemeName), err)
	}
	adapter, err := c.schemes.ForScheme(schemeName)
	if err != nil {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, string(c.variant.system), "crm scheme has no adapter", err)
	}

	// The CRM's account reference wins over whatever is on the credential;
	// the agency's scheme membership is held by the CRM.
	downstream := cred
	downstream.Scheme = schemeName
	if config.AccountRef != "" {
		downstream.AccountNumber = config.AccountRef
	}
	return adapter.SubmitRegistration(ctx, req, downstream)
}

func (c *Client) lookup(ctx context.Context, tenancyID id.TenancyID, cred scheme.Credential) (*lookupResponse, error) {
	name := string(c.variant.system)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.variant.lookupPath(tenancyID), nil)
	if err != nil {
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, name, "build lookup request", err)
	}
	c.variant.authorize(httpReq, cred)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, scheme.NewAdapterError(scheme.ErrorTimeout, name, "crm lookup timed out", err)
		}
		return nil, scheme.NewAdapterError(scheme.ErrorOutage, name, "crm lookup failed", err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusOK:
		var config lookupResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&config); err != nil {
			return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, name, "decode crm lookup", err)
		}
		return &config, nil
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return nil, scheme.NewAdapterError(scheme.ErrorAuthentication, name, "crm rejected the credential", nil)
	case httpResp.StatusCode == http.StatusNotFound:
		return nil, scheme.NewAdapterError(scheme.ErrorRejected, name, "tenancy not known to the crm", nil)
	case httpResp.StatusCode >= 500:
		return nil, scheme.NewAdapterError(scheme.ErrorOutage, name, fmt.Sprintf("crm returned %d", httpResp.StatusCode), nil)
	default:
		return nil, scheme.NewAdapterError(scheme.ErrorBadResponse, name, fmt.Sprintf("unexpected status %d", httpResp.StatusCode), nil)
	}
}
