// Package crm registers deposits indirectly through property-management CRM
// integrations. A CRM variant looks the tenancy up on the CRM side to learn
// which scheme the agency protects deposits with, then delegates to that
// scheme's adapter. The result shape is identical to a direct submission so
// the engine treats both paths the same.
package crm

import (
	"context"
	"fmt"

	"depositgate/internal/scheme"
	id "depositgate/pkg/domain"
)

// Registrar is the capability implemented once per CRM system.
type Registrar interface {
	// System returns the CRM this registrar talks to.
	System() id.CRMSystem

	// RegisterViaCRM performs the CRM-side lookup and the downstream scheme
	// submission. Failures are *scheme.AdapterError, same as direct mode.
	RegisterViaCRM(ctx context.Context, req scheme.RegistrationRequest, cred scheme.Credential) (*scheme.RegistrationResult, error)
}

// Registry resolves a registrar by CRM system, selected once at the engine
// boundary.
type Registry struct {
	registrars map[id.CRMSystem]Registrar
}

func NewRegistry(registrars ...Registrar) (*Registry, error) {
	r := &Registry{registrars: make(map[id.CRMSystem]Registrar, len(registrars))}
	for _, reg := range registrars {
		if _, exists := r.registrars[reg.System()]; exists {
			return nil, fmt.Errorf("registrar for crm %s already registered", reg.System())
		}
		r.registrars[reg.System()] = reg
	}
	return r, nil
}

// ForSystem returns the registrar for a CRM system.
func (r *Registry) ForSystem(system id.CRMSystem) (Registrar, error) {
	reg, ok := r.registrars[system]
	if !ok {
		return nil, fmt.Errorf("no registrar for crm %s", system)
	}
	return reg, nil
}
