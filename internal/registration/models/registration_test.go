package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
)

func newTestRegistration(t *testing.T) *Registration {
	t.Helper()
	reg, err := NewRegistration(
		id.RegistrationID(uuid.New()),
		id.TenancyID(uuid.New()),
		id.PropertyID(uuid.New()),
		id.UserID(uuid.New()),
		id.SchemeDPS,
		id.ProtectionCustodial,
		ModeAPI,
		150000,
		time.Now(),
	)
	require.NoError(t, err)
	return reg
}

func TestNewRegistration_Validation(t *testing.T) {
	now := time.Now()
	tenancy := id.TenancyID(uuid.New())
	owner := id.UserID(uuid.New())

	tests := []struct {
		name    string
		tenancy id.TenancyID
		owner   id.UserID
		amount  int64
	}{
		{name: "nil tenancy", tenancy: id.TenancyID{}, owner: owner, amount: 1000},
		{name: "nil owner", tenancy: tenancy, owner: id.UserID{}, amount: 1000},
		{name: "zero amount", tenancy: tenancy, owner: owner, amount: 0},
		{name: "negative amount", tenancy: tenancy, owner: owner, amount: -50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistration(
				id.RegistrationID(uuid.New()), tc.tenancy, id.PropertyID(uuid.New()),
				tc.owner, id.SchemeDPS, id.ProtectionCustodial, ModeManual, tc.amount, now,
			)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}

	reg, err := NewRegistration(
		id.RegistrationID(uuid.New()), tenancy, id.PropertyID(uuid.New()),
		owner, id.SchemeTDS, id.ProtectionInsured, ModeManual, 99900, now,
	)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, reg.Status)
	assert.Empty(t, reg.ErrorMessage)
}

func TestStatus_TransitionTable(t *testing.T) {
	all := []Status{
		StatusPending, StatusInProgress, StatusRegistered,
		StatusFailed, StatusExpired, StatusRenewed, StatusReleased,
	}
	allowed := map[Status]map[Status]bool{
		StatusPending:    {StatusInProgress: true},
		StatusInProgress: {StatusRegistered: true, StatusFailed: true},
		StatusFailed:     {StatusInProgress: true},
		StatusRegistered: {StatusExpired: true, StatusReleased: true},
		StatusRenewed:    {StatusExpired: true, StatusReleased: true},
		StatusExpired:    {StatusRenewed: true},
		StatusReleased:   {},
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransitionTo(to)
			assert.Equal(t, allowed[from][to], got, "%s -> %s", from, to)
		}
	}
}

func TestStatus_Classes(t *testing.T) {
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusReleased.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal())
	assert.False(t, StatusRenewed.IsTerminal())

	assert.True(t, StatusPending.IsActiveAttempt())
	assert.True(t, StatusInProgress.IsActiveAttempt())
	assert.False(t, StatusFailed.IsActiveAttempt())

	assert.True(t, StatusRegistered.IsProtected())
	assert.True(t, StatusRenewed.IsProtected())
	assert.False(t, StatusExpired.IsProtected())
}

func TestRegistration_SuccessPath(t *testing.T) {
	reg := newTestRegistration(t)
	now := time.Now()
	credID := id.CredentialID(uuid.New())

	require.NoError(t, reg.CanDispatch())
	reg.ApplyDispatch(&credID, now)
	assert.Equal(t, StatusInProgress, reg.Status)
	require.NotNil(t, reg.CredentialID)
	assert.Equal(t, credID, *reg.CredentialID)

	expiry := now.AddDate(1, 0, 0)
	require.NoError(t, reg.CanComplete())
	reg.ApplyCompleted("DPS-123456", "https://scheme.example/cert/123456", &expiry, now)
	assert.Equal(t, StatusRegistered, reg.Status)
	assert.Equal(t, "DPS-123456", reg.DepositReferenceID)
	assert.Empty(t, reg.ErrorMessage)
	require.NotNil(t, reg.ExpiryDate)
	assert.True(t, expiry.Equal(*reg.ExpiryDate))
}

func TestRegistration_FailureAndRetry(t *testing.T) {
	reg := newTestRegistration(t)
	now := time.Now()

	require.Error(t, reg.CanRetry(), "retry from pending is a conflict")

	reg.ApplyDispatch(nil, now)
	reg.ApplyFailed("scheme rejected: duplicate deposit reference", now)
	assert.Equal(t, StatusFailed, reg.Status)
	assert.NotEmpty(t, reg.ErrorMessage)

	require.NoError(t, reg.CanRetry())
	reg.ApplyRetry(nil, now)
	assert.Equal(t, StatusInProgress, reg.Status)
	assert.Empty(t, reg.ErrorMessage, "error message must be cleared on retry")

	reg.ApplyCompleted("TDS-9", "https://scheme.example/cert/9", nil, now)
	require.Error(t, reg.CanRetry(), "retry after success is a conflict")
}

func TestRegistration_RenewalCycle(t *testing.T) {
	reg := newTestRegistration(t)
	now := time.Now()

	reg.ApplyDispatch(nil, now)
	reg.ApplyCompleted("REF-1", "", nil, now)

	require.NoError(t, reg.CanExpire())
	reg.ApplyExpire(now)
	assert.Equal(t, StatusExpired, reg.Status)
	require.Error(t, reg.CanRelease(), "expired deposits cannot be released")

	newExpiry := now.AddDate(1, 0, 0)
	require.NoError(t, reg.CanRenew())
	reg.ApplyRenew(newExpiry, now)
	assert.Equal(t, StatusRenewed, reg.Status)
	require.NotNil(t, reg.ExpiryDate)
	assert.True(t, newExpiry.Equal(*reg.ExpiryDate))

	require.NoError(t, reg.CanRelease())
	reg.ApplyRelease(now)
	assert.Equal(t, StatusReleased, reg.Status)
	require.Error(t, reg.CanRenew(), "released is terminal")
	require.Error(t, reg.CanExpire())
}

func TestRegistration_DocumentGate(t *testing.T) {
	reg := newTestRegistration(t)
	now := time.Now()

	require.Error(t, reg.CanGenerateDocuments())

	reg.ApplyDispatch(nil, now)
	reg.ApplyCompleted("REF-2", "", nil, now)
	require.NoError(t, reg.CanGenerateDocuments())

	reg.ApplyPrescribedInfo("https://scheme.example/pi/REF-2", now)
	assert.Equal(t, StatusRegistered, reg.Status, "document generation never changes status")
	assert.Equal(t, "https://scheme.example/pi/REF-2", reg.PrescribedInfoURL)

	reg.ApplyPrescribedInfo("https://scheme.example/pi/REF-2?v=2", now)
	assert.Equal(t, "https://scheme.example/pi/REF-2?v=2", reg.PrescribedInfoURL, "regeneration overwrites")

	reg.ApplyExpire(now)
	require.Error(t, reg.CanGenerateDocuments())
	reg.ApplyRenew(now.AddDate(1, 0, 0), now)
	require.NoError(t, reg.CanGenerateDocuments())
}
