package domain

import dErrors "depositgate/pkg/domain-errors"

// SchemeName identifies one of the government-approved deposit protection
// schemes. The set is closed; adapter selection happens once at the engine
// boundary and shared logic never branches on the name again.
type SchemeName string

const (
	SchemeDPS        SchemeName = "dps"
	SchemeMyDeposits SchemeName = "mydeposits"
	SchemeTDS        SchemeName = "tds"
)

// ParseSchemeName validates a scheme name at a trust boundary.
func ParseSchemeName(s string) (SchemeName, error) {
	switch SchemeName(s) {
	case SchemeDPS, SchemeMyDeposits, SchemeTDS:
		return SchemeName(s), nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "scheme name is required")
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown scheme name: %s", s)
	}
}

func (s SchemeName) String() string { return string(s) }

// ProtectionType distinguishes custodial protection (the scheme holds the
// deposit funds) from insured protection (the landlord holds funds and pays
// the scheme a premium).
type ProtectionType string

const (
	ProtectionCustodial ProtectionType = "custodial"
	ProtectionInsured   ProtectionType = "insured"
)

func ParseProtectionType(s string) (ProtectionType, error) {
	switch ProtectionType(s) {
	case ProtectionCustodial, ProtectionInsured:
		return ProtectionType(s), nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "protection type is required")
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown protection type: %s", s)
	}
}

func (p ProtectionType) String() string { return string(p) }

// CRMSystem identifies a property-management CRM that can register a deposit
// on the user's behalf.
type CRMSystem string

const (
	CRMPropertyFile CRMSystem = "propertyfile"
	CRMFixflo       CRMSystem = "fixflo"
	CRMReapit       CRMSystem = "reapit"
	CRMJupix        CRMSystem = "jupix"
)

func ParseCRMSystem(s string) (CRMSystem, error) {
	switch CRMSystem(s) {
	case CRMPropertyFile, CRMFixflo, CRMReapit, CRMJupix:
		return CRMSystem(s), nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "crm system is required")
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown crm system: %s", s)
	}
}

func (c CRMSystem) String() string { return string(c) }
