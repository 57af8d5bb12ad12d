package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"depositgate/internal/registration/models"
	regsvc "depositgate/internal/registration/service"
	"depositgate/internal/transport/http/mocks"
	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
	"depositgate/pkg/testutil"
)

//go:generate mockgen -source=handlers_registrations.go -destination=mocks/registration-mocks.go -package=mocks RegistrationService

type RegistrationHandlerSuite struct {
	suite.Suite
	owner     id.UserID
	tenancyID id.TenancyID
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) SetupSuite() {
	s.owner = id.UserID(uuid.New())
	s.tenancyID = id.TenancyID(uuid.New())
}

func (s *RegistrationHandlerSuite) newHandler(t *testing.T) (*mocks.MockRegistrationService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockService := mocks.NewMockRegistrationService(ctrl)
	handler := NewRegistrationHandler(mockService, logger, staticValidator{owner: s.owner})
	r := chi.NewRouter()
	handler.Register(r)
	return mockService, r
}

func (s *RegistrationHandlerSuite) do(t *testing.T, router *chi.Mux, method, path, body string) (int, []byte) {
	t.Helper()
	req := testutil.WithBearer(testutil.NewJSONRequest(t, method, path, body), "valid-token")
	rr := testutil.Do(router, req)
	return rr.Code, testutil.ReadBody(t, rr)
}

func (s *RegistrationHandlerSuite) errBody(t *testing.T, raw []byte) map[string]string {
	t.Helper()
	return testutil.DecodeError(t, raw)
}

func (s *RegistrationHandlerSuite) sampleRegistration(status models.Status) *models.Registration {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	return &models.Registration{
		ID:                 id.RegistrationID(uuid.New()),
		TenancyID:          s.tenancyID,
		PropertyID:         id.PropertyID(uuid.New()),
		OwnerUserID:        s.owner,
		Scheme:             id.SchemeDPS,
		ProtectionType:     id.ProtectionCustodial,
		Mode:               models.ModeAPI,
		DepositAmountPence: 150_000,
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (s *RegistrationHandlerSuite) TestRegister() {
	s.T().Run("manual registration - 201", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		expected := s.sampleRegistration(models.StatusRegistered)
		expected.Mode = models.ModeManual
		expected.DepositReferenceID = "DPS-12345"
		mockService.EXPECT().Register(gomock.Any(), s.owner, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ id.UserID, input regsvc.RegisterInput) (*models.Registration, error) {
				assert.Equal(t, s.tenancyID, input.TenancyID)
				assert.Equal(t, models.ModeManual, input.Mode)
				require.NotNil(t, input.Manual)
				assert.Equal(t, "DPS-12345", input.Manual.DepositID)
				assert.Equal(t, id.SchemeDPS, input.Manual.Scheme)
				return expected, nil
			})

		status, raw := s.do(t, router, http.MethodPost, "/registrations",
			`{"tenancy_id":"`+s.tenancyID.String()+`","mode":"manual","manual":{"scheme":"dps","deposit_id":"DPS-12345"}}`)

		assert.Equal(t, http.StatusCreated, status)
		var got models.Registration
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, models.StatusRegistered, got.Status)
		assert.Equal(t, "DPS-12345", got.DepositReferenceID)
	})

	s.T().Run("api mode with credential - 201", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		credID := id.CredentialID(uuid.New())
		expected := s.sampleRegistration(models.StatusRegistered)
		mockService.EXPECT().Register(gomock.Any(), s.owner, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ id.UserID, input regsvc.RegisterInput) (*models.Registration, error) {
				assert.Equal(t, models.ModeAPI, input.Mode)
				require.NotNil(t, input.CredentialID)
				assert.Equal(t, credID, *input.CredentialID)
				return expected, nil
			})

		status, _ := s.do(t, router, http.MethodPost, "/registrations",
			`{"tenancy_id":"`+s.tenancyID.String()+`","mode":"api","credential_id":"`+credID.String()+`"}`)

		assert.Equal(t, http.StatusCreated, status)
	})

	s.T().Run("failed attempt still returns the row - 201", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		failed := s.sampleRegistration(models.StatusFailed)
		failed.ErrorMessage = "scheme rejected the deposit"
		mockService.EXPECT().Register(gomock.Any(), s.owner, gomock.Any()).Return(failed, nil)

		status, raw := s.do(t, router, http.MethodPost, "/registrations",
			`{"tenancy_id":"`+s.tenancyID.String()+`","mode":"api"}`)

		assert.Equal(t, http.StatusCreated, status)
		var got models.Registration
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Equal(t, "scheme rejected the deposit", got.ErrorMessage)
	})

	s.T().Run("invalid json - 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, raw := s.do(t, router, http.MethodPost, "/registrations", "{bad-json")

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(dErrors.CodeBadRequest), s.errBody(t, raw)["error"])
	})

	s.T().Run("missing tenancy id - 422", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, raw := s.do(t, router, http.MethodPost, "/registrations", `{"mode":"api"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, string(dErrors.CodeInvalidInput), s.errBody(t, raw)["error"])
	})

	s.T().Run("unknown mode - 422", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, raw := s.do(t, router, http.MethodPost, "/registrations",
			`{"tenancy_id":"`+s.tenancyID.String()+`","mode":"telepathy"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, string(dErrors.CodeValidation), s.errBody(t, raw)["error"])
	})

	s.T().Run("unknown tenancy - 404", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), s.owner, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "tenancy not found"))

		status, raw := s.do(t, router, http.MethodPost, "/registrations",
			`{"tenancy_id":"`+s.tenancyID.String()+`","mode":"api"}`)

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, string(dErrors.CodeNotFound), s.errBody(t, raw)["error"])
	})

	s.T().Run("tenancy service down - 504", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), s.owner, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeTimeout, "tenancy service unavailable"))

		status, raw := s.do(t, router, http.MethodPost, "/registrations",
			`{"tenancy_id":"`+s.tenancyID.String()+`","mode":"api"}`)

		assert.Equal(t, http.StatusGatewayTimeout, status)
		assert.Equal(t, string(dErrors.CodeTimeout), s.errBody(t, raw)["error"])
	})
}

func (s *RegistrationHandlerSuite) TestGetCurrent() {
	s.T().Run("current registration - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		expected := s.sampleRegistration(models.StatusRegistered)
		mockService.EXPECT().Get(gomock.Any(), s.owner, s.tenancyID).Return(expected, nil)

		status, raw := s.do(t, router, http.MethodGet, "/registrations/tenancy/"+s.tenancyID.String(), "")

		assert.Equal(t, http.StatusOK, status)
		var got models.Registration
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, expected.ID, got.ID)
	})

	s.T().Run("none - 404", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Get(gomock.Any(), s.owner, s.tenancyID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no current registration for tenancy"))

		status, raw := s.do(t, router, http.MethodGet, "/registrations/tenancy/"+s.tenancyID.String(), "")

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, string(dErrors.CodeNotFound), s.errBody(t, raw)["error"])
	})
}

func (s *RegistrationHandlerSuite) TestRetry() {
	regID := id.RegistrationID(uuid.New())

	s.T().Run("retry with credential override - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		credID := id.CredentialID(uuid.New())
		expected := s.sampleRegistration(models.StatusRegistered)
		mockService.EXPECT().Retry(gomock.Any(), s.owner, regID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ id.UserID, _ id.RegistrationID, override *id.CredentialID) (*models.Registration, error) {
				require.NotNil(t, override)
				assert.Equal(t, credID, *override)
				return expected, nil
			})

		status, _ := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/retry",
			`{"credential_id":"`+credID.String()+`"}`)

		assert.Equal(t, http.StatusOK, status)
	})

	s.T().Run("retry without body reuses attempt credential - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		expected := s.sampleRegistration(models.StatusRegistered)
		mockService.EXPECT().Retry(gomock.Any(), s.owner, regID, nil).Return(expected, nil)

		status, _ := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/retry", "")

		assert.Equal(t, http.StatusOK, status)
	})

	s.T().Run("not in failed state - 409", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Retry(gomock.Any(), s.owner, regID, nil).
			Return(nil, dErrors.New(dErrors.CodeConflict, "retry is only valid for a failed registration"))

		status, raw := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/retry", "")

		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, string(dErrors.CodeConflict), s.errBody(t, raw)["error"])
	})
}

func (s *RegistrationHandlerSuite) TestRenew() {
	regID := id.RegistrationID(uuid.New())

	s.T().Run("renews - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		newExpiry := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
		expected := s.sampleRegistration(models.StatusRenewed)
		mockService.EXPECT().Renew(gomock.Any(), s.owner, regID, newExpiry).Return(expected, nil)

		status, raw := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/renew",
			`{"expiry_date":"2027-06-01T00:00:00Z"}`)

		assert.Equal(t, http.StatusOK, status)
		var got models.Registration
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, models.StatusRenewed, got.Status)
	})

	s.T().Run("missing expiry - 422", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Renew(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		status, raw := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/renew", `{}`)

		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, string(dErrors.CodeValidation), s.errBody(t, raw)["error"])
	})

	s.T().Run("not expired - 409", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Renew(gomock.Any(), s.owner, regID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "only an expired registration can be renewed"))

		status, raw := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/renew",
			`{"expiry_date":"2027-06-01T00:00:00Z"}`)

		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, string(dErrors.CodeConflict), s.errBody(t, raw)["error"])
	})
}

func (s *RegistrationHandlerSuite) TestLifecycleTransitions() {
	regID := id.RegistrationID(uuid.New())

	s.T().Run("expire - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().MarkExpired(gomock.Any(), s.owner, regID).
			Return(s.sampleRegistration(models.StatusExpired), nil)

		status, _ := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/expire", "")

		assert.Equal(t, http.StatusOK, status)
	})

	s.T().Run("release - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Release(gomock.Any(), s.owner, regID).
			Return(s.sampleRegistration(models.StatusReleased), nil)

		status, _ := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/release", "")

		assert.Equal(t, http.StatusOK, status)
	})

	s.T().Run("release while unprotected - 409", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Release(gomock.Any(), s.owner, regID).
			Return(nil, dErrors.New(dErrors.CodeConflict, "only a protected registration can be released"))

		status, raw := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/release", "")

		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, string(dErrors.CodeConflict), s.errBody(t, raw)["error"])
	})
}

func (s *RegistrationHandlerSuite) TestPrescribedInfo() {
	regID := id.RegistrationID(uuid.New())

	s.T().Run("generates document - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		expected := s.sampleRegistration(models.StatusRegistered)
		expected.PrescribedInfoURL = "https://docs.dps.example/pi/DPS-12345.pdf"
		mockService.EXPECT().GeneratePrescribedInfo(gomock.Any(), s.owner, regID).Return(expected, nil)

		status, raw := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/prescribed-info", "")

		assert.Equal(t, http.StatusOK, status)
		var got models.Registration
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, expected.PrescribedInfoURL, got.PrescribedInfoURL)
	})

	s.T().Run("not protected - 412", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().GeneratePrescribedInfo(gomock.Any(), s.owner, regID).
			Return(nil, dErrors.New(dErrors.CodePreconditionFailed, "prescribed information requires a registered or renewed deposit"))

		status, raw := s.do(t, router, http.MethodPost, "/registrations/"+regID.String()+"/prescribed-info", "")

		assert.Equal(t, http.StatusPreconditionFailed, status)
		assert.Equal(t, string(dErrors.CodePreconditionFailed), s.errBody(t, raw)["error"])
	})
}

func (s *RegistrationHandlerSuite) TestHistory() {
	regID := id.RegistrationID(uuid.New())

	s.T().Run("returns transitions oldest first - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		occurred := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
		mockService.EXPECT().History(gomock.Any(), s.owner, regID).Return([]*models.Transition{
			{RegistrationID: regID, FromStatus: models.StatusPending, ToStatus: models.StatusInProgress, Trigger: "dispatch", OccurredAt: occurred},
			{RegistrationID: regID, FromStatus: models.StatusInProgress, ToStatus: models.StatusRegistered, Trigger: "register_succeeded", OccurredAt: occurred.Add(time.Second)},
		}, nil)

		status, raw := s.do(t, router, http.MethodGet, "/registrations/"+regID.String()+"/history", "")

		assert.Equal(t, http.StatusOK, status)
		var got []*models.Transition
		require.NoError(t, json.Unmarshal(raw, &got))
		require.Len(t, got, 2)
		assert.Equal(t, "dispatch", got[0].Trigger)
	})

	s.T().Run("unknown registration - 404", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().History(gomock.Any(), s.owner, regID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "registration not found"))

		status, raw := s.do(t, router, http.MethodGet, "/registrations/"+regID.String()+"/history", "")

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, string(dErrors.CodeNotFound), s.errBody(t, raw)["error"])
	})
}

func (s *RegistrationHandlerSuite) TestList() {
	s.T().Run("returns registrations - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().List(gomock.Any(), s.owner).
			Return([]*models.Registration{s.sampleRegistration(models.StatusRegistered)}, nil)

		status, raw := s.do(t, router, http.MethodGet, "/registrations", "")

		assert.Equal(t, http.StatusOK, status)
		var got []*models.Registration
		require.NoError(t, json.Unmarshal(raw, &got))
		require.Len(t, got, 1)
	})

	s.T().Run("empty yields empty array", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().List(gomock.Any(), s.owner).Return(nil, nil)

		status, raw := s.do(t, router, http.MethodGet, "/registrations", "")

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
	})
}
