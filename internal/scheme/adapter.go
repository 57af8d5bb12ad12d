// Package scheme defines the adapter contract for the government-approved
// deposit protection schemes. Each scheme implements the same capability set;
// their wire formats are an external-service detail confined to the concrete
// adapter packages.
package scheme

import (
	"context"
	"fmt"
	"time"

	id "depositgate/pkg/domain"
)

// Credential is decrypted authentication material handed to an adapter for a
// single call. It never leaves process memory; the store only sees the
// sealed form.
type Credential struct {
	Scheme         id.SchemeName
	ProtectionType id.ProtectionType
	Username       string
	Password       string
	APIKey         string
	APISecret      string
	AccountNumber  string
}

// RegistrationRequest carries the tenancy facts a scheme needs to protect a
// deposit. Amounts are in minor units (pence).
type RegistrationRequest struct {
	TenancyID          id.TenancyID
	PropertyAddress    string
	PostCode           string
	DepositAmountPence int64
	TenancyStart       time.Time
	TenancyEnd         time.Time
	TenantNames        []string
}

// RegistrationResult is the scheme's answer to a successful submission. The
// certificate URL is optional; some schemes issue certificates out of band.
type RegistrationResult struct {
	DepositReferenceID string
	CertificateURL     string
	ExpiryDate         *time.Time
}

// VerificationResult reports whether credentials were accepted. A failed
// verification is an expected outcome, not an adapter error.
type VerificationResult struct {
	Success bool
	Message string
}

// PrescribedInfoResult carries the generated prescribed information document.
type PrescribedInfoResult struct {
	PrescribedInfoURL string
}

// Adapter is the capability set implemented once per scheme.
type Adapter interface {
	// Name returns the scheme this adapter talks to.
	Name() id.SchemeName

	// SubmitRegistration registers the deposit with the scheme. Failures are
	// returned as *AdapterError so the engine can absorb them into state.
	SubmitRegistration(ctx context.Context, req RegistrationRequest, cred Credential) (*RegistrationResult, error)

	// VerifyCredentials checks the credential against the scheme's auth
	// endpoint without registering anything.
	VerifyCredentials(ctx context.Context, cred Credential) (*VerificationResult, error)

	// GeneratePrescribedInfo produces the prescribed information document for
	// an existing deposit reference. Safe to call repeatedly.
	GeneratePrescribedInfo(ctx context.Context, depositReferenceID string, cred Credential) (*PrescribedInfoResult, error)
}

// Registry resolves an adapter by scheme name. Resolution happens once at
// the engine boundary; shared logic holds an Adapter, never a name.
type Registry struct {
	adapters map[id.SchemeName]Adapter
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[id.SchemeName]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Name()]; exists {
			return nil, fmt.Errorf("adapter for scheme %s already registered", a.Name())
		}
		r.adapters[a.Name()] = a
	}
	return r, nil
}

// ForScheme returns the adapter for a scheme name.
func (r *Registry) ForScheme(name id.SchemeName) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for scheme %s", name)
	}
	return a, nil
}
