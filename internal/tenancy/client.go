package tenancy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
)

const defaultTimeout = 10 * time.Second

// Client reads tenancy details from the platform's internal tenancy API.
type Client struct {
	baseURL string
	client  *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.client = httpClient
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tenancyResponse struct {
	TenancyID          string   `json:"tenancy_id"`
	PropertyID         string   `json:"property_id"`
	Address            string   `json:"address"`
	PostCode           string   `json:"post_code"`
	DepositAmountPence int64    `json:"deposit_amount_pence"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	TenantNames        []string `json:"tenant_names"`
}

func (c *Client) GetTenancy(ctx context.Context, tenancyID id.TenancyID) (*Details, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/tenancies/"+tenancyID.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build tenancy request: %w", err)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch tenancy: %w", err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusOK:
	case httpResp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("tenancy %s: %w", tenancyID, sentinel.ErrNotFound)
	default:
		return nil, fmt.Errorf("tenancy api returned %d: %w", httpResp.StatusCode, sentinel.ErrUnavailable)
	}

	var resp tenancyResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode tenancy: %w", err)
	}
	return resp.toDetails(tenancyID)
}

func (r tenancyResponse) toDetails(tenancyID id.TenancyID) (*Details, error) {
	propertyID, err := id.ParsePropertyID(r.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("tenancy api property id: %w", err)
	}
	start, err := time.Parse(time.DateOnly, r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("tenancy api start date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("tenancy api end date: %w", err)
	}
	return &Details{
		TenancyID:          tenancyID,
		PropertyID:         propertyID,
		PropertyAddress:    r.Address,
		PostCode:           r.PostCode,
		DepositAmountPence: r.DepositAmountPence,
		StartDate:          start,
		EndDate:            end,
		TenantNames:        r.TenantNames,
	}, nil
}
