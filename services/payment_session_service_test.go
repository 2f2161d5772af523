package services

import (
	"context"
	"testing"

	"payment-challenge-service/models"
	"payment-challenge-service/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// --- Mocks for Dependencies ---

type MockSessionStore struct{ mock.Mock }

func (m *MockSessionStore) GetPaymentSession(ctx context.Context, sessionID string) (*models.StoredPaymentSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoredPaymentSession), args.Error(1)
}
func (m *MockSessionStore) CreatePaymentSession(ctx context.Context, session *models.StoredPaymentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *MockSessionStore) UpdatePaymentSession(ctx context.Context, session *models.StoredPaymentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *MockSessionStore) GetInstrumentSession(ctx context.Context, instrumentID string) (*models.PaymentInstrumentSession, error) {
	args := m.Called(ctx, instrumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentInstrumentSession), args.Error(1)
}
func (m *MockSessionStore) UpsertInstrumentSession(ctx context.Context, instrumentID string, session *models.PaymentInstrumentSession) error {
	args := m.Called(ctx, instrumentID, session)
	return args.Error(0)
}

type MockInstrumentAccessor struct{ mock.Mock }

func (m *MockInstrumentAccessor) GetPaymentInstrument(ctx context.Context, accountID, instrumentID string) (*models.PaymentInstrument, error) {
	args := m.Called(ctx, accountID, instrumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentInstrument), args.Error(1)
}
func (m *MockInstrumentAccessor) LinkSession(ctx context.Context, accountID, instrumentID, sessionID string) error {
	args := m.Called(ctx, accountID, instrumentID, sessionID)
	return args.Error(0)
}

type MockPayerAuthAccessor struct{ mock.Mock }

func (m *MockPayerAuthAccessor) CreatePaymentSessionID(ctx context.Context, req *models.ProviderSessionRequest) (*models.ProviderSessionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderSessionResponse), args.Error(1)
}
func (m *MockPayerAuthAccessor) GetThreeDSMethodURL(ctx context.Context, sessionID string, req *models.ProviderSessionRequest) (*models.ThreeDSMethodData, error) {
	args := m.Called(ctx, sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ThreeDSMethodData), args.Error(1)
}
func (m *MockPayerAuthAccessor) Authenticate(ctx context.Context, req *models.AuthenticationRequest) (*models.AuthenticationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthenticationResponse), args.Error(1)
}
func (m *MockPayerAuthAccessor) CompleteChallenge(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CompletionResponse), args.Error(1)
}

type MockAttestationRepo struct{ mock.Mock }

func (m *MockAttestationRepo) Record(ctx context.Context, accountID, sessionID string, satisfied bool, attestationContext string) error {
	args := m.Called(ctx, accountID, sessionID, satisfied, attestationContext)
	return args.Error(0)
}

// --- Test Harness ---

type serviceFixture struct {
	store       *MockSessionStore
	instruments *MockInstrumentAccessor
	payerAuth   *MockPayerAuthAccessor
	attestRepo  *MockAttestationRepo
	service     PaymentSessionService
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		store:       new(MockSessionStore),
		instruments: new(MockInstrumentAccessor),
		payerAuth:   new(MockPayerAuthAccessor),
		attestRepo:  new(MockAttestationRepo),
	}
	logger := zap.NewNop()
	f.service = NewPaymentSessionService(
		f.store,
		f.instruments,
		f.payerAuth,
		NewAttestationReporter(f.attestRepo, nil, logger),
		NewSafetyNet(nil, logger),
		nil,
		"https://pifd.example.com",
		logger,
	)
	return f
}

func psd2Instrument() *models.PaymentInstrument {
	return &models.PaymentInstrument{
		PaymentInstrumentID: "pi-1",
		AccountID:           "acct-1",
		PaymentMethod:       models.PaymentMethod{Family: models.FamilyCreditCard, Type: "visa"},
		Details:             models.PaymentInstrumentDetails{RequiredChallenge: []string{models.RequiredChallenge3DS2}},
	}
}

func storedChallengeSession(flights ...string) *models.StoredPaymentSession {
	return &models.StoredPaymentSession{
		ID:                    "sess-1",
		AccountID:             "acct-1",
		PaymentInstrumentID:   "pi-1",
		Country:               "DE",
		Currency:              "EUR",
		Amount:                1000,
		PaymentMethodFamily:   models.FamilyCreditCard,
		PaymentMethodType:     "visa",
		IsChallengeRequired:   true,
		ChallengeType:         models.ChallengeTypePSD2,
		ChallengeStatus:       models.ChallengeStatusUnknown,
		DeviceChannel:         models.DeviceChannelAppBased,
		ExposedFlightFeatures: flights,
	}
}

// --- CreateSession ---

func TestCreateSession_MotoRequiresAuthorization(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreatePaymentSession(context.Background(), "acct-1",
		&models.PaymentSessionData{PaymentInstrumentID: "pi-1", IsMOTO: true},
		CreateSessionOptions{DeviceChannel: models.DeviceChannelBrowser})

	validationErr, ok := err.(*models.ValidationError)
	assert.True(t, ok)
	assert.Equal(t, models.ErrCodeUnauthorizedMoto, validationErr.Code)
	f.instruments.AssertNotCalled(t, "GetPaymentInstrument")
}

func TestCreateSession_OwnershipMismatch(t *testing.T) {
	f := newFixture()
	pi := psd2Instrument()
	pi.AccountID = "someone-else"
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-1").Return(pi, nil)

	_, err := f.service.CreatePaymentSession(context.Background(), "acct-1",
		&models.PaymentSessionData{PaymentInstrumentID: "pi-1"},
		CreateSessionOptions{DeviceChannel: models.DeviceChannelBrowser})

	validationErr, ok := err.(*models.ValidationError)
	assert.True(t, ok)
	assert.Equal(t, models.ErrCodeInvalidRequestData, validationErr.Code)
}

func TestCreateSession_InstrumentNotFound(t *testing.T) {
	f := newFixture()
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-404").
		Return(nil, &models.ServiceError{StatusCode: 404, ErrorCode: models.DownstreamErrAccountPINotFound})

	// No flights: an unresolvable instrument is a precondition failure and
	// must reject the request rather than degrade into a bypassed session.
	_, err := f.service.CreatePaymentSession(context.Background(), "acct-1",
		&models.PaymentSessionData{PaymentInstrumentID: "pi-404"},
		CreateSessionOptions{DeviceChannel: models.DeviceChannelBrowser})

	validationErr, ok := err.(*models.ValidationError)
	assert.True(t, ok)
	assert.Equal(t, models.ErrCodePaymentInstrumentNotFound, validationErr.Code)
	f.store.AssertNotCalled(t, "CreatePaymentSession")
}

func TestCreateSession_NoChallengeRequired(t *testing.T) {
	f := newFixture()
	pi := psd2Instrument()
	pi.Details.RequiredChallenge = nil
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-1").Return(pi, nil)

	var persisted *models.StoredPaymentSession
	f.store.On("CreatePaymentSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*models.StoredPaymentSession)
		}).Return(nil)

	session, err := f.service.CreatePaymentSession(context.Background(), "acct-1",
		&models.PaymentSessionData{PaymentInstrumentID: "pi-1", Country: "US", Currency: "USD", Amount: 100},
		CreateSessionOptions{DeviceChannel: models.DeviceChannelBrowser})

	assert.NoError(t, err)
	assert.False(t, session.IsChallengeRequired)
	assert.Equal(t, models.ChallengeStatusNotApplicable, session.ChallengeStatus)
	assert.Equal(t, "acct-1", persisted.AccountID)
	assert.Equal(t, "pi-1", persisted.PaymentInstrumentID)
	f.attestRepo.AssertNotCalled(t, "Record")
}

func TestCreateSession_PSD2UsesProviderSessionID(t *testing.T) {
	f := newFixture()
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-1").Return(psd2Instrument(), nil)
	f.payerAuth.On("CreatePaymentSessionID", mock.Anything, mock.Anything).
		Return(&models.ProviderSessionResponse{PaymentSessionID: "provider-sess-9"}, nil)
	f.store.On("CreatePaymentSession", mock.Anything, mock.Anything).Return(nil)

	session, err := f.service.CreatePaymentSession(context.Background(), "acct-1",
		&models.PaymentSessionData{PaymentInstrumentID: "pi-1", Country: "DE", Currency: "EUR", Amount: 1000},
		CreateSessionOptions{DeviceChannel: models.DeviceChannelAppBased})

	assert.NoError(t, err)
	assert.Equal(t, "provider-sess-9", session.ID)
	assert.True(t, session.IsChallengeRequired)
	assert.Equal(t, models.ChallengeTypePSD2, session.ChallengeType)
	assert.Equal(t, models.ChallengeStatusUnknown, session.ChallengeStatus)
}

func TestCreateSession_ProviderOutageStillCreates(t *testing.T) {
	f := newFixture()
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-1").Return(psd2Instrument(), nil)
	f.payerAuth.On("CreatePaymentSessionID", mock.Anything, mock.Anything).
		Return(nil, &models.ServiceError{StatusCode: 503, ErrorCode: "Unavailable"})
	f.store.On("CreatePaymentSession", mock.Anything, mock.Anything).Return(nil)

	session, err := f.service.CreatePaymentSession(context.Background(), "acct-1",
		&models.PaymentSessionData{PaymentInstrumentID: "pi-1", Country: "DE", Currency: "EUR", Amount: 1000},
		CreateSessionOptions{DeviceChannel: models.DeviceChannelAppBased})

	assert.NoError(t, err)
	assert.NotEmpty(t, session.ID, "falls back to a locally minted id")
	assert.NotEqual(t, "provider-sess-9", session.ID)
}

func TestCreateSession_ReusesTrackedInstrumentSession(t *testing.T) {
	f := newFixture()
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-1").Return(psd2Instrument(), nil)
	f.store.On("GetInstrumentSession", mock.Anything, "pi-1").
		Return(&models.PaymentInstrumentSession{PaymentSessionID: "linked-sess-7", AccountID: "acct-1"}, nil)
	f.store.On("CreatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.instruments.On("LinkSession", mock.Anything, "acct-1", "pi-1", "linked-sess-7").Return(nil)
	f.store.On("UpsertInstrumentSession", mock.Anything, "pi-1", mock.Anything).Return(nil)

	session, err := f.service.CreatePaymentSession(context.Background(), "acct-1",
		&models.PaymentSessionData{PaymentInstrumentID: "pi-1", Country: "DE", Currency: "EUR", Amount: 1000},
		CreateSessionOptions{DeviceChannel: models.DeviceChannelAppBased, Flights: []string{"EnablePaymentInstrumentSession"}})

	assert.NoError(t, err)
	assert.Equal(t, "linked-sess-7", session.ID, "instrument already tracks a provider session")
	f.payerAuth.AssertNotCalled(t, "CreatePaymentSessionID")
}

// --- Authenticate (app) ---

func TestAuthenticate_SafetyNetBypass(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)
	f.payerAuth.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, &models.ServiceError{StatusCode: 502, ErrorCode: "ProviderDown"})
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.attestRepo.On("Record", mock.Anything, "acct-1", "sess-1", true, AttestationContextFallback).Return(nil)

	resp, err := f.service.Authenticate(context.Background(), "acct-1", "sess-1", &models.ChallengeAuthenticationRequest{})

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusSucceeded, resp.ChallengeStatus)
	f.attestRepo.AssertNumberOfCalls(t, "Record", 1)
}

func TestAuthenticate_EnforcementFlightFails(t *testing.T) {
	f := newFixture()
	session := storedChallengeSession("SafetyNetEnforce-appauth-AppBased")
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(session, nil)
	f.payerAuth.On("Authenticate", mock.Anything, mock.Anything).
		Return(nil, &models.ServiceError{StatusCode: 502, ErrorCode: "ProviderDown"})
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.attestRepo.On("Record", mock.Anything, "acct-1", "sess-1", false, AttestationContextFallback).Return(nil)

	_, err := f.service.Authenticate(context.Background(), "acct-1", "sess-1", &models.ChallengeAuthenticationRequest{})

	assert.Error(t, err)
	assert.Equal(t, models.ChallengeStatusFailed, session.ChallengeStatus)
	assert.True(t, session.IsSystemError)
	f.attestRepo.AssertNumberOfCalls(t, "Record", 1)
}

func TestAuthenticate_TerminalSessionReplays(t *testing.T) {
	f := newFixture()
	session := storedChallengeSession()
	session.ChallengeStatus = models.ChallengeStatusSucceeded
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(session, nil)

	resp, err := f.service.Authenticate(context.Background(), "acct-1", "sess-1", &models.ChallengeAuthenticationRequest{})

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusSucceeded, resp.ChallengeStatus)
	f.payerAuth.AssertNotCalled(t, "Authenticate")
	f.attestRepo.AssertNotCalled(t, "Record")
}

func TestAuthenticate_ChallengeRequired(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)
	f.payerAuth.On("Authenticate", mock.Anything, mock.Anything).Return(&models.AuthenticationResponse{
		EnrollmentStatus:  models.EnrollmentStatusEnrolled,
		TransactionStatus: models.TransactionStatusC,
		AcsSignedContent:  "eyJ.signed.content",
		AcsTransactionID:  "acs-1",
	}, nil)
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.Authenticate(context.Background(), "acct-1", "sess-1", &models.ChallengeAuthenticationRequest{})

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusUnknown, resp.ChallengeStatus)
	assert.Equal(t, "eyJ.signed.content", resp.AcsSignedContent)
	assert.Equal(t, "acs-1", resp.AcsTransactionID)
	f.attestRepo.AssertNotCalled(t, "Record")
}

func TestAuthenticate_BypassedEnrollment(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)
	f.payerAuth.On("Authenticate", mock.Anything, mock.Anything).Return(&models.AuthenticationResponse{
		EnrollmentStatus:  models.EnrollmentStatusBypassed,
		TransactionStatus: models.TransactionStatusR,
	}, nil)
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.attestRepo.On("Record", mock.Anything, "acct-1", "sess-1", true, AttestationContextChallenge).Return(nil)

	resp, err := f.service.Authenticate(context.Background(), "acct-1", "sess-1", &models.ChallengeAuthenticationRequest{})

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusByPassed, resp.ChallengeStatus)
	f.attestRepo.AssertNumberOfCalls(t, "Record", 1)
}

func TestAuthenticate_SettingsVersionMismatch(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)

	_, err := f.service.Authenticate(context.Background(), "acct-1", "sess-1", &models.ChallengeAuthenticationRequest{
		SettingsVersion:         "V99",
		SettingsVersionTryCount: 1,
	})

	validationErr, ok := err.(*models.ValidationError)
	assert.True(t, ok)
	assert.Equal(t, models.ErrCodeSettingsVersionMismatch, validationErr.Code)
	assert.Equal(t, "V11", validationErr.Target)
	f.payerAuth.AssertNotCalled(t, "Authenticate")
}

// --- Challenge completion ---

func TestCompleteThreeDSChallenge_Cancelled(t *testing.T) {
	f := newFixture()
	session := storedChallengeSession()
	session.AuthenticationResponse = &models.AuthenticationResponse{
		ThreeDSServerTransactionID: "srv-1",
		AcsTransactionID:           "acs-1",
	}
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(session, nil)
	f.payerAuth.On("CompleteChallenge", mock.Anything, mock.Anything).Return(&models.CompletionResponse{
		TransactionStatus:        models.TransactionStatusN,
		ChallengeCancelIndicator: models.CancelIndicatorCancelledByCardHolder,
	}, nil)
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.attestRepo.On("Record", mock.Anything, "acct-1", "sess-1", false, AttestationContextChallenge).Return(nil)

	result, err := f.service.CompleteThreeDSChallenge(context.Background(), "acct-1", "sess-1")

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusCancelled, result.ChallengeStatus)
	f.attestRepo.AssertNumberOfCalls(t, "Record", 1)
}

func TestCompleteThreeDSChallenge_TerminalReplay(t *testing.T) {
	f := newFixture()
	session := storedChallengeSession()
	session.ChallengeStatus = models.ChallengeStatusCancelled
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(session, nil)

	result, err := f.service.CompleteThreeDSChallenge(context.Background(), "acct-1", "sess-1")

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusCancelled, result.ChallengeStatus)
	f.payerAuth.AssertNotCalled(t, "CompleteChallenge")
	f.attestRepo.AssertNotCalled(t, "Record")
}

func TestCompleteThreeDSChallenge_SafetyNetBypass(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)
	f.payerAuth.On("CompleteChallenge", mock.Anything, mock.Anything).
		Return(nil, &models.ServiceError{StatusCode: 502, ErrorCode: "ProviderDown"})
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.attestRepo.On("Record", mock.Anything, "acct-1", "sess-1", true, AttestationContextFallback).Return(nil)

	result, err := f.service.CompleteThreeDSChallenge(context.Background(), "acct-1", "sess-1")

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusSucceeded, result.ChallengeStatus)
	f.attestRepo.AssertNumberOfCalls(t, "Record", 1)
}

func TestCompleteThreeDSOneChallenge_SyntheticDecline(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)
	f.payerAuth.On("CompleteChallenge", mock.Anything, mock.Anything).
		Return(nil, &models.ServiceError{StatusCode: 503, ErrorCode: "Unavailable"})
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.attestRepo.On("Record", mock.Anything, "acct-1", "sess-1", false, AttestationContextFallback).Return(nil)

	result, err := f.service.CompleteThreeDSOneChallenge(context.Background(), "acct-1", "sess-1", map[string]string{"PaRes": "blob"})

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusInternalServerError, result.ChallengeStatus)
}

// --- UPI ---

func TestAuthenticateUpi_RejectsNonUpiInstrument(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-1").Return(psd2Instrument(), nil)

	_, err := f.service.AuthenticateUpiPaymentTxn(context.Background(), "acct-1", "sess-1")

	validationErr, ok := err.(*models.ValidationError)
	assert.True(t, ok)
	assert.Equal(t, models.ErrCodeInvalidPaymentInstrument, validationErr.Code)
}

func TestAuthenticateUpi_Succeeds(t *testing.T) {
	f := newFixture()
	session := storedChallengeSession()
	session.ChallengeType = models.ChallengeTypeUPI
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(session, nil)
	f.instruments.On("GetPaymentInstrument", mock.Anything, "acct-1", "pi-1").Return(&models.PaymentInstrument{
		PaymentInstrumentID: "pi-1",
		PaymentMethod:       models.PaymentMethod{Family: models.FamilyRealTimePayments, Type: models.MethodTypeUPI},
	}, nil)
	f.payerAuth.On("Authenticate", mock.Anything, mock.Anything).
		Return(&models.AuthenticationResponse{TransactionStatus: models.TransactionStatusY}, nil)
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)
	f.attestRepo.On("Record", mock.Anything, "acct-1", "sess-1", true, AttestationContextChallenge).Return(nil)

	result, err := f.service.AuthenticateUpiPaymentTxn(context.Background(), "acct-1", "sess-1")

	assert.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusSucceeded, result.ChallengeStatus)
}

// --- Browser flow ---

func TestNotifyThreeDSMethodCompleted_AcsChallenge(t *testing.T) {
	f := newFixture()
	session := storedChallengeSession()
	session.DeviceChannel = models.DeviceChannelBrowser
	session.MethodData = &models.ThreeDSMethodData{ThreeDSServerTransactionID: "srv-1"}
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(session, nil)
	f.payerAuth.On("Authenticate", mock.Anything, mock.Anything).Return(&models.AuthenticationResponse{
		TransactionStatus: models.TransactionStatusC,
		AcsURL:            "https://acs.example.com/challenge",
		AcsSignedContent:  "creq-payload",
	}, nil)
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)

	flowCtx, err := f.service.NotifyThreeDSMethodCompleted(context.Background(), "sess-1", models.MethodCompletedY)

	assert.NoError(t, err)
	assert.True(t, flowCtx.IsAcsChallengeRequired)
	assert.Equal(t, "https://acs.example.com/challenge", flowCtx.FormActionURL)
	f.attestRepo.AssertNotCalled(t, "Record")
}

func TestGetBrowserFlowContext_FingerprintForm(t *testing.T) {
	f := newFixture()
	session := storedChallengeSession()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(session, nil)
	f.payerAuth.On("GetThreeDSMethodURL", mock.Anything, "sess-1", mock.Anything).Return(&models.ThreeDSMethodData{
		ThreeDSServerTransactionID: "srv-1",
		ThreeDSMethodURL:           "https://acs.example.com/method",
	}, nil)
	f.store.On("UpdatePaymentSession", mock.Anything, mock.Anything).Return(nil)

	flowCtx, err := f.service.GetBrowserFlowContext(context.Background(), "acct-1", "sess-1", &models.BrowserInfo{UserAgent: "ua"})

	assert.NoError(t, err)
	assert.True(t, flowCtx.IsFingerprintRequired)
	assert.Equal(t, "https://acs.example.com/method", flowCtx.FormActionURL)
	assert.NotEmpty(t, flowCtx.FormInputThreeDSMethodData)
}

// --- Misc ---

func TestGetPaymentSession_OwnershipChecked(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "sess-1").Return(storedChallengeSession(), nil)

	_, err := f.service.GetPaymentSession(context.Background(), "other-acct", "sess-1")

	validationErr, ok := err.(*models.ValidationError)
	assert.True(t, ok)
	assert.Equal(t, models.ErrCodeInvalidAccountID, validationErr.Code)
}

func TestGetPaymentSession_NotFound(t *testing.T) {
	f := newFixture()
	f.store.On("GetPaymentSession", mock.Anything, "missing").Return(nil, repository.ErrSessionNotFound)

	_, err := f.service.GetPaymentSession(context.Background(), "acct-1", "missing")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestGetTransactionServiceStore(t *testing.T) {
	f := newFixture()

	assert.Equal(t, TransactionStoreAzure, f.service.GetTransactionServiceStore("webblends", nil))
	assert.Equal(t, TransactionStoreOMS, f.service.GetTransactionServiceStore("commercialstores", nil))

	omsSetting := &models.PaymentExperienceSetting{Features: map[string]models.FeatureConfig{
		models.FeatureUseOMSTransactionStore: {},
	}}
	assert.Equal(t, TransactionStoreOMS, f.service.GetTransactionServiceStore("webblends", omsSetting))

	azureSetting := &models.PaymentExperienceSetting{Features: map[string]models.FeatureConfig{
		models.FeatureUseAzureTransactionStore: {},
	}}
	assert.Equal(t, TransactionStoreAzure, f.service.GetTransactionServiceStore("commercialstores", azureSetting))
}
