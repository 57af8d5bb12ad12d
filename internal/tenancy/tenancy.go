// Package tenancy is the read-only port onto the platform's tenancy and
// property data. The registration core never mutates tenancy records; it
// only reads the facts needed to populate a registration and its adapter
// calls.
package tenancy

import (
	"context"
	"time"

	id "depositgate/pkg/domain"
)

// Details are the tenancy facts the registration engine needs. Deposit
// amounts are in minor units (pence).
type Details struct {
	TenancyID          id.TenancyID
	PropertyID         id.PropertyID
	PropertyAddress    string
	PostCode           string
	DepositAmountPence int64
	StartDate          time.Time
	EndDate            time.Time
	TenantNames        []string
}

// Reader supplies tenancy metadata. Implementations must return
// sentinel.ErrNotFound (wrapped is fine) for unknown tenancies.
type Reader interface {
	GetTenancy(ctx context.Context, tenancyID id.TenancyID) (*Details, error)
}
