package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositgate/internal/scheme"
	"depositgate/internal/scheme/dps"
	id "depositgate/pkg/domain"
)

func testCRMRequest() scheme.RegistrationRequest {
	return scheme.RegistrationRequest{
		TenancyID:          id.TenancyID(uuid.New()),
		PropertyAddress:    "4 Brook Street, Manchester",
		PostCode:           "M13 9PL",
		DepositAmountPence: 72000,
		TenancyStart:       time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		TenancyEnd:         time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
		TenantNames:        []string{"B Student"},
	}
}

func TestRegisterViaCRMDelegatesToScheme(t *testing.T) {
	// Downstream DPS endpoint the CRM-resolved scheme submission lands on.
	schemeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "PF-ACC-42", payload["account_number"], "crm account ref must win")
		_ = json.NewEncoder(w).Encode(map[string]string{"deposit_id": "DPS-7777"})
	}))
	defer schemeServer.Close()

	crmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pf-key", r.Header.Get("X-Api-Key"))
		_ = json.NewEncoder(w).Encode(lookupResponse{
			CRMTenancyRef: "PF-119",
			SchemeName:    "dps",
			AccountRef:    "PF-ACC-42",
		})
	}))
	defer crmServer.Close()

	schemes, err := scheme.NewRegistry(dps.New(schemeServer.URL))
	require.NoError(t, err)

	registrar := NewPropertyFile(crmServer.URL, schemes)
	assert.Equal(t, id.CRMPropertyFile, registrar.System())

	result, err := registrar.RegisterViaCRM(context.Background(), testCRMRequest(), scheme.Credential{
		APIKey:         "pf-key",
		Username:       "agency@example.com",
		Password:       "pw",
		ProtectionType: id.ProtectionInsured,
	})
	require.NoError(t, err)
	assert.Equal(t, "DPS-7777", result.DepositReferenceID)
}

func TestRegisterViaCRMLookupFailures(t *testing.T) {
	schemes, err := scheme.NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		name     string
		status   int
		category scheme.ErrorCategory
	}{
		{"unauthorized", http.StatusUnauthorized, scheme.ErrorAuthentication},
		{"unknown tenancy", http.StatusNotFound, scheme.ErrorRejected},
		{"crm outage", http.StatusServiceUnavailable, scheme.ErrorOutage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			crmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer crmServer.Close()

			registrar := NewFixflo(crmServer.URL, schemes)
			_, err := registrar.RegisterViaCRM(context.Background(), testCRMRequest(), scheme.Credential{APIKey: "k", APISecret: "s"})
			require.Error(t, err)
			assert.Equal(t, tc.category, scheme.CategoryOf(err))
		})
	}
}

func TestRegisterViaCRMRejectsUnknownScheme(t *testing.T) {
	crmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(lookupResponse{SchemeName: "zerodeposit"})
	}))
	defer crmServer.Close()

	schemes, err := scheme.NewRegistry()
	require.NoError(t, err)

	registrar := NewJupix(crmServer.URL, schemes)
	_, err = registrar.RegisterViaCRM(context.Background(), testCRMRequest(), scheme.Credential{APIKey: "k"})
	require.Error(t, err)
	assert.Equal(t, scheme.ErrorBadResponse, scheme.CategoryOf(err))
}

func TestVariantRegistry(t *testing.T) {
	schemes, err := scheme.NewRegistry()
	require.NoError(t, err)

	registry, err := NewRegistry(
		NewPropertyFile("http://pf.local", schemes),
		NewFixflo("http://fixflo.local", schemes),
		NewReapit("http://reapit.local", schemes),
		NewJupix("http://jupix.local", schemes),
	)
	require.NoError(t, err)

	for _, system := range []id.CRMSystem{id.CRMPropertyFile, id.CRMFixflo, id.CRMReapit, id.CRMJupix} {
		registrar, err := registry.ForSystem(system)
		require.NoError(t, err)
		assert.Equal(t, system, registrar.System())
	}

	_, err = registry.ForSystem("salesforce")
	assert.Error(t, err)
}
