package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"payment-challenge-service/flighting"
	"payment-challenge-service/models"
	"payment-challenge-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Safety-net flow names. Each downstream call site has its own flow so
// enforcement flights and exclusion rules can target it individually.
const (
	FlowCreateSession = "createsession"
	FlowMethodURL     = "methodurl"
	FlowBrowserAuth   = "browserauth"
	FlowAppAuth       = "appauth"
	FlowCompletion    = "completion"
	FlowThreeDSOne    = "threedsone"
	FlowUpi           = "upi"
)

// Transaction ledger stores.
const (
	TransactionStoreAzure = "Azure"
	TransactionStoreOMS   = "OMS"
)

// CreateSessionOptions carries the per-request context CreatePaymentSession
// needs beyond the session data itself.
type CreateSessionOptions struct {
	DeviceChannel    models.DeviceChannel
	EmailAddress     string
	Flights          []string
	IsMotoAuthorized bool
	Setting          *models.PaymentExperienceSetting
	IsGuestUser      bool
}

// PaymentSessionService is the top-level challenge state machine.
type PaymentSessionService interface {
	CreatePaymentSession(ctx context.Context, accountID string, data *models.PaymentSessionData, opts CreateSessionOptions) (*models.PaymentSession, error)
	GetPaymentSession(ctx context.Context, accountID, sessionID string) (*models.PaymentSession, error)
	GetBrowserFlowContext(ctx context.Context, accountID, sessionID string, browserInfo *models.BrowserInfo) (*models.BrowserFlowContext, error)
	NotifyThreeDSMethodCompleted(ctx context.Context, sessionID string, indicator models.ThreeDSMethodCompletionIndicator) (*models.BrowserFlowContext, error)
	Authenticate(ctx context.Context, accountID, sessionID string, req *models.ChallengeAuthenticationRequest) (*models.ChallengeAuthenticationResponse, error)
	CompleteThreeDSChallenge(ctx context.Context, accountID, sessionID string) (*models.PaymentSession, error)
	CompleteThreeDSOneChallenge(ctx context.Context, accountID, sessionID string, authParams map[string]string) (*models.PaymentSession, error)
	AuthenticateUpiPaymentTxn(ctx context.Context, accountID, sessionID string) (*models.PaymentSession, error)
	GetTransactionServiceStore(partner string, setting *models.PaymentExperienceSetting) string
}

type paymentSessionService struct {
	store         repository.SessionStore
	instruments   InstrumentAccessor
	payerAuth     PayerAuthAccessor
	attestor      *AttestationReporter
	safetyNet     *SafetyNet
	certValidator CertValidator
	pifdBaseURL   string
	logger        *zap.Logger
}

func NewPaymentSessionService(
	store repository.SessionStore,
	instruments InstrumentAccessor,
	payerAuth PayerAuthAccessor,
	attestor *AttestationReporter,
	safetyNet *SafetyNet,
	certValidator CertValidator,
	pifdBaseURL string,
	logger *zap.Logger,
) PaymentSessionService {
	return &paymentSessionService{
		store:         store,
		instruments:   instruments,
		payerAuth:     payerAuth,
		attestor:      attestor,
		safetyNet:     safetyNet,
		certValidator: certValidator,
		pifdBaseURL:   pifdBaseURL,
		logger:        logger,
	}
}

func (s *paymentSessionService) CreatePaymentSession(ctx context.Context, accountID string, data *models.PaymentSessionData, opts CreateSessionOptions) (*models.PaymentSession, error) {
	if data.IsMOTO && !opts.IsMotoAuthorized {
		return nil, models.NewValidationError(models.ErrCodeUnauthorizedMoto,
			"MOTO payment sessions require an authorized caller")
	}

	features := flighting.Resolve(opts.Flights)

	piAccountID := accountID
	if data.PaymentInstrumentAccountID != "" {
		piAccountID = data.PaymentInstrumentAccountID
	}

	// Instrument resolution and the ownership check are preconditions, so
	// they run outside the safety net: an unresolved or foreign instrument
	// always rejects the request instead of degrading into a bypass.
	pi, err := s.instruments.GetPaymentInstrument(ctx, piAccountID, data.PaymentInstrumentID)
	if err != nil {
		var serviceErr *models.ServiceError
		if errors.As(err, &serviceErr) &&
			(serviceErr.StatusCode == 404 || serviceErr.ErrorCode == models.DownstreamErrAccountPINotFound) {
			return nil, models.NewValidationError(models.ErrCodePaymentInstrumentNotFound,
				"payment instrument could not be resolved")
		}
		return nil, err
	}

	if !opts.IsGuestUser && pi.AccountID != "" && !strings.EqualFold(pi.AccountID, piAccountID) {
		return nil, models.NewValidationError(models.ErrCodeInvalidRequestData,
			"payment instrument does not belong to the caller")
	}

	decision := EvaluateChallengePolicy(pi, data, features, opts.Setting, opts.IsGuestUser)

	sessionID, err := s.resolveSessionID(ctx, accountID, pi, data, opts, features, decision)
	if err != nil {
		return nil, err
	}

	session := newStoredSession(sessionID, accountID, data, opts, features)
	session.PaymentMethodFamily = pi.PaymentMethod.Family
	session.PaymentMethodType = pi.PaymentMethod.Type
	session.IsChallengeRequired = decision.Required
	session.ChallengeType = decision.Type
	session.IsTokenCollected = decision.TokenCollected
	session.PiRequiresAuthentication = decision.PiRequiresAuthentication
	if decision.Required {
		session.ChallengeStatus = models.ChallengeStatusUnknown
		if data.IsMOTO {
			// MOTO transactions cannot complete an interactive challenge.
			session.IsChallengeRequired = false
			session.ChallengeStatus = models.ChallengeStatusByPassed
		}
	} else {
		session.ChallengeStatus = decision.Status
	}

	if err := s.store.CreatePaymentSession(ctx, session); err != nil {
		return nil, err
	}

	if features.InstrumentSession && session.IsChallengeRequired {
		_, _ = s.safetyNet.Call(ctx, FlowCreateSession, features, opts.DeviceChannel, func(ctx context.Context) error {
			if err := s.instruments.LinkSession(ctx, piAccountID, pi.PaymentInstrumentID, session.ID); err != nil {
				return err
			}
			return s.store.UpsertInstrumentSession(ctx, pi.PaymentInstrumentID, &models.PaymentInstrumentSession{
				PaymentSessionID:  session.ID,
				AccountID:         accountID,
				RequiredChallenge: pi.Details.RequiredChallenge,
				ChallengeStatus:   session.ChallengeStatus,
			})
		})
	}

	return session.ToPaymentSession(), nil
}

// resolveSessionID picks the session id: a guest instrument already linked
// to a provider session reuses that id, an instrument with a tracked
// instrument session reuses its id, a PSD2 challenge asks the provider to
// mint one, everything else gets a local id. Provider failures here fall
// back to a local id rather than blocking creation.
func (s *paymentSessionService) resolveSessionID(ctx context.Context, accountID string, pi *models.PaymentInstrument, data *models.PaymentSessionData, opts CreateSessionOptions, features flighting.Features, decision PolicyDecision) (string, error) {
	if (opts.IsGuestUser || pi.Details.UsageType == models.UsageTypeInline) && pi.Details.LinkedPaymentSessionID != "" {
		return pi.Details.LinkedPaymentSessionID, nil
	}

	if features.InstrumentSession {
		if existing, err := s.store.GetInstrumentSession(ctx, pi.PaymentInstrumentID); err == nil && existing.PaymentSessionID != "" {
			return existing.PaymentSessionID, nil
		}
	}

	if decision.Required && decision.Type == models.ChallengeTypePSD2 {
		var resp *models.ProviderSessionResponse
		bypassed, err := s.safetyNet.Call(ctx, FlowCreateSession, features, opts.DeviceChannel, func(ctx context.Context) error {
			var callErr error
			resp, callErr = s.payerAuth.CreatePaymentSessionID(ctx, &models.ProviderSessionRequest{
				AccountID:                accountID,
				PaymentInstrumentID:      pi.PaymentInstrumentID,
				PaymentMethodFamily:      pi.PaymentMethod.Family,
				PaymentMethodType:        pi.PaymentMethod.Type,
				Partner:                  data.Partner,
				Country:                  data.Country,
				Currency:                 data.Currency,
				Amount:                   data.Amount,
				ChallengeScenario:        data.ChallengeScenario,
				DeviceChannel:            opts.DeviceChannel,
				PiRequiresAuthentication: decision.PiRequiresAuthentication,
			})
			return callErr
		})
		if err != nil {
			return "", err
		}
		if !bypassed && resp.PaymentSessionID != "" {
			return resp.PaymentSessionID, nil
		}
	}

	return uuid.NewString(), nil
}

func newStoredSession(id, accountID string, data *models.PaymentSessionData, opts CreateSessionOptions, features flighting.Features) *models.StoredPaymentSession {
	return &models.StoredPaymentSession{
		ID:                         id,
		AccountID:                  accountID,
		PaymentInstrumentID:        data.PaymentInstrumentID,
		PaymentInstrumentAccountID: data.PaymentInstrumentAccountID,
		Partner:                    data.Partner,
		Country:                    data.Country,
		Currency:                   data.Currency,
		Amount:                     data.Amount,
		Language:                   data.Language,
		EmailAddress:               opts.EmailAddress,
		ChallengeScenario:          data.ChallengeScenario,
		ChallengeWindowSize:        data.ChallengeWindowSize,
		DeviceChannel:              opts.DeviceChannel,
		IsMOTO:                     data.IsMOTO,
		ExposedFlightFeatures:      features.Names(),
		SuccessURL:                 data.SuccessURL,
		FailureURL:                 data.FailureURL,
	}
}

func (s *paymentSessionService) GetPaymentSession(ctx context.Context, accountID, sessionID string) (*models.PaymentSession, error) {
	session, err := s.store.GetPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if accountID != "" && session.AccountID != "" && !strings.EqualFold(session.AccountID, accountID) {
		return nil, models.NewValidationError(models.ErrCodeInvalidAccountID,
			"session does not belong to the caller")
	}
	return session.ToPaymentSession(), nil
}

// GetBrowserFlowContext starts the browser flow: it stores the browser
// info, asks the provider for the 3DS fingerprint URL and returns either a
// fingerprint form descriptor or, when no fingerprint is needed, proceeds
// straight to authentication.
func (s *paymentSessionService) GetBrowserFlowContext(ctx context.Context, accountID, sessionID string, browserInfo *models.BrowserInfo) (*models.BrowserFlowContext, error) {
	session, err := s.store.GetPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ChallengeStatus.IsTerminal() {
		return &models.BrowserFlowContext{PaymentSession: session.ToPaymentSession()}, nil
	}

	features := flighting.Resolve(session.ExposedFlightFeatures)
	session.DeviceChannel = models.DeviceChannelBrowser
	if browserInfo != nil {
		browserInfo.ChallengeWindowSize = session.ChallengeWindowSize
		session.BrowserInfo = browserInfo
	}

	var methodData *models.ThreeDSMethodData
	bypassed, err := s.safetyNet.Call(ctx, FlowMethodURL, features, session.DeviceChannel, func(ctx context.Context) error {
		var callErr error
		methodData, callErr = s.payerAuth.GetThreeDSMethodURL(ctx, session.ID, &models.ProviderSessionRequest{
			AccountID:           session.AccountID,
			PaymentInstrumentID: session.PaymentInstrumentID,
			Partner:             session.Partner,
			Country:             session.Country,
			Currency:            session.Currency,
			Amount:              session.Amount,
		})
		return callErr
	})
	if err != nil {
		return s.finishBrowserWithFailure(ctx, session)
	}
	if bypassed {
		session.IsSystemError = true
		methodData = nil
	}

	if methodData != nil {
		session.MethodData = methodData
	}
	if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
		return nil, err
	}

	if features.SkipFingerprint || methodData == nil || methodData.ThreeDSMethodURL == "" {
		// No fingerprint round trip; authenticate directly.
		return s.authenticateBrowser(ctx, session, models.MethodCompletedU)
	}

	formInput, err := encodeThreeDSMethodData(methodData.ThreeDSServerTransactionID, s.methodNotificationURL(session.ID))
	if err != nil {
		return nil, err
	}
	return &models.BrowserFlowContext{
		IsFingerprintRequired:      true,
		FormActionURL:              methodData.ThreeDSMethodURL,
		FormInputThreeDSMethodData: formInput,
	}, nil
}

func (s *paymentSessionService) NotifyThreeDSMethodCompleted(ctx context.Context, sessionID string, indicator models.ThreeDSMethodCompletionIndicator) (*models.BrowserFlowContext, error) {
	session, err := s.store.GetPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ChallengeStatus.IsTerminal() {
		return &models.BrowserFlowContext{PaymentSession: session.ToPaymentSession()}, nil
	}
	if indicator == "" {
		indicator = models.MethodCompletedY
	}
	return s.authenticateBrowser(ctx, session, indicator)
}

// authenticateBrowser runs the provider authenticate step of the browser
// flow and translates the result into the next-step descriptor.
func (s *paymentSessionService) authenticateBrowser(ctx context.Context, session *models.StoredPaymentSession, indicator models.ThreeDSMethodCompletionIndicator) (*models.BrowserFlowContext, error) {
	features := flighting.Resolve(session.ExposedFlightFeatures)

	authReq := &models.AuthenticationRequest{
		SessionID:                   session.ID,
		AccountID:                   session.AccountID,
		PaymentInstrumentID:         session.PaymentInstrumentID,
		MessageVersion:              DefaultMessageVersion,
		BrowserInfo:                 session.BrowserInfo,
		MethodCompletionIndicator:   indicator,
		AcsChallengeNotificationURL: s.challengeNotificationURL(session.ID),
		IsMOTO:                      session.IsMOTO,
	}
	if session.MethodData != nil {
		authReq.ThreeDSServerTransactionID = session.MethodData.ThreeDSServerTransactionID
	}

	var authResp *models.AuthenticationResponse
	bypassed, err := s.safetyNet.Call(ctx, FlowBrowserAuth, features, models.DeviceChannelBrowser, func(ctx context.Context) error {
		var callErr error
		authResp, callErr = s.payerAuth.Authenticate(ctx, authReq)
		return callErr
	})
	if err != nil {
		return s.finishBrowserWithFailure(ctx, session)
	}
	if bypassed {
		session.IsSystemError = true
		session.ChallengeStatus = models.ChallengeStatusSucceeded
		s.attestor.Report(ctx, session.AccountID, session.ID, true, AttestationContextFallback)
		if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
			return nil, err
		}
		return &models.BrowserFlowContext{PaymentSession: session.ToPaymentSession()}, nil
	}

	session.AuthenticationResponse = authResp
	session.TransactionStatus = string(authResp.TransactionStatus)
	session.TransactionStatusReason = authResp.TransactionStatusReason

	status := MapAuthenticationStatus(authResp, features, session.PaymentMethodType, session.IsMOTO)
	if status == models.ChallengeStatusUnknown {
		// ACS challenge required; the browser posts the CReq and the ACS
		// calls back on completion.
		if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
			return nil, err
		}
		return &models.BrowserFlowContext{
			IsAcsChallengeRequired: true,
			FormActionURL:          authResp.AcsURL,
			FormInputCReq:          authResp.AcsSignedContent,
			CardHolderInfo:         authResp.CardHolderInfo,
			PaymentSession:         session.ToPaymentSession(),
		}, nil
	}

	session.ChallengeStatus = status
	s.attestor.Report(ctx, session.AccountID, session.ID, status.IsVerified(), AttestationContextChallenge)
	if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
		return nil, err
	}
	return &models.BrowserFlowContext{PaymentSession: session.ToPaymentSession()}, nil
}

// finishBrowserWithFailure closes the session as Failed when the safety net
// declined to absorb a browser-flow error.
func (s *paymentSessionService) finishBrowserWithFailure(ctx context.Context, session *models.StoredPaymentSession) (*models.BrowserFlowContext, error) {
	session.ChallengeStatus = models.ChallengeStatusFailed
	session.IsSystemError = true
	s.attestor.Report(ctx, session.AccountID, session.ID, false, AttestationContextFallback)
	if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
		return nil, err
	}
	return &models.BrowserFlowContext{PaymentSession: session.ToPaymentSession()}, nil
}

func (s *paymentSessionService) Authenticate(ctx context.Context, accountID, sessionID string, req *models.ChallengeAuthenticationRequest) (*models.ChallengeAuthenticationResponse, error) {
	var session *models.StoredPaymentSession
	bypassed, err := s.safetyNet.Call(ctx, FlowAppAuth, flighting.Resolve(nil), models.DeviceChannelAppBased, func(ctx context.Context) error {
		var loadErr error
		session, loadErr = s.store.GetPaymentSession(ctx, sessionID)
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	if bypassed {
		s.attestor.Report(ctx, accountID, sessionID, true, AttestationContextFallback)
		return &models.ChallengeAuthenticationResponse{ChallengeStatus: models.ChallengeStatusSucceeded}, nil
	}

	features := flighting.Resolve(session.ExposedFlightFeatures)

	if features.AuthenticateStoredChallengeType && session.ChallengeType == models.ChallengeTypeValidatePIOnAttach {
		s.attestor.Report(ctx, accountID, sessionID, true, AttestationContextFallback)
		return &models.ChallengeAuthenticationResponse{ChallengeStatus: models.ChallengeStatusSucceeded}, nil
	}

	if session.ChallengeStatus.IsTerminal() {
		return s.replayAuthenticationResult(session), nil
	}

	if _, err := ResolveSettingsVersion(req.SettingsVersion, req.SettingsVersionTryCount, features); err != nil {
		return nil, err
	}
	session.SettingsVersion = req.SettingsVersion
	session.TryCount = req.SettingsVersionTryCount
	session.DeviceChannel = models.DeviceChannelAppBased

	authReq := &models.AuthenticationRequest{
		SessionID:           session.ID,
		AccountID:           session.AccountID,
		PaymentInstrumentID: session.PaymentInstrumentID,
		MessageVersion:      ResolveMessageVersion("", req.MessageVersion),
		SdkAppID:            req.SdkAppID,
		SdkEncData:          req.SdkEncData,
		IsMOTO:              session.IsMOTO,
	}

	var authResp *models.AuthenticationResponse
	bypassed, err = s.safetyNet.Call(ctx, FlowAppAuth, features, models.DeviceChannelAppBased, func(ctx context.Context) error {
		var callErr error
		authResp, callErr = s.payerAuth.Authenticate(ctx, authReq)
		return callErr
	})
	if err != nil {
		return nil, s.failAppAuthentication(ctx, session)
	}
	if bypassed {
		session.IsSystemError = true
		session.ChallengeStatus = models.ChallengeStatusSucceeded
		s.attestor.Report(ctx, session.AccountID, session.ID, true, AttestationContextFallback)
		if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
			return nil, err
		}
		return &models.ChallengeAuthenticationResponse{ChallengeStatus: models.ChallengeStatusSucceeded}, nil
	}

	session.AuthenticationResponse = authResp
	session.TransactionStatus = string(authResp.TransactionStatus)
	session.TransactionStatusReason = authResp.TransactionStatusReason

	status := MapAuthenticationStatus(authResp, features, session.PaymentMethodType, session.IsMOTO)

	if status == models.ChallengeStatusUnknown && authResp.AcsSignedContent != "" &&
		features.CertValidationFor(session.PaymentMethodType) && s.certValidator != nil {
		if err := s.certValidator.ValidateAcsSignedContent(authResp.AcsSignedContent); err != nil {
			s.logger.Warn("acs signed content failed certificate validation",
				zap.String("sessionId", session.ID), zap.Error(err))
			status = models.ChallengeStatusFailed
		}
	}

	session.ChallengeStatus = status
	if status.IsTerminal() {
		s.attestor.Report(ctx, session.AccountID, session.ID, status.IsVerified(), AttestationContextChallenge)
	}
	if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
		return nil, err
	}

	resp := &models.ChallengeAuthenticationResponse{
		EnrollmentStatus: authResp.EnrollmentStatus,
		ChallengeStatus:  status,
		MessageVersion:   ResolveMessageVersion(authResp.MessageVersion, req.MessageVersion),
		CardHolderInfo:   authResp.CardHolderInfo,
	}
	if status == models.ChallengeStatusUnknown {
		resp.AcsTransactionID = authResp.AcsTransactionID
		resp.AcsSignedContent = authResp.AcsSignedContent
		resp.ThreeDSServerTransactionID = authResp.ThreeDSServerTransactionID
	}
	return resp, nil
}

func (s *paymentSessionService) failAppAuthentication(ctx context.Context, session *models.StoredPaymentSession) error {
	session.ChallengeStatus = models.ChallengeStatusFailed
	session.IsSystemError = true
	s.attestor.Report(ctx, session.AccountID, session.ID, false, AttestationContextFallback)
	if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
		s.logger.Error("failed to persist failed session", zap.String("sessionId", session.ID), zap.Error(err))
	}
	return &models.ServiceError{StatusCode: 502, ErrorCode: "AuthenticationFailed", Message: "provider authentication failed"}
}

// replayAuthenticationResult returns the stored outcome for an already
// terminal session without touching the provider or the attestation ledger.
func (s *paymentSessionService) replayAuthenticationResult(session *models.StoredPaymentSession) *models.ChallengeAuthenticationResponse {
	resp := &models.ChallengeAuthenticationResponse{ChallengeStatus: session.ChallengeStatus}
	if session.AuthenticationResponse != nil {
		resp.EnrollmentStatus = session.AuthenticationResponse.EnrollmentStatus
		resp.MessageVersion = session.AuthenticationResponse.MessageVersion
	}
	return resp
}

func (s *paymentSessionService) CompleteThreeDSChallenge(ctx context.Context, accountID, sessionID string) (*models.PaymentSession, error) {
	session, err := s.store.GetPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		accountID = session.AccountID
	}
	if session.ChallengeStatus.IsTerminal() {
		return session.ToPaymentSession(), nil
	}

	features := flighting.Resolve(session.ExposedFlightFeatures)

	completionReq := &models.CompletionRequest{SessionID: session.ID}
	if session.AuthenticationResponse != nil {
		completionReq.ThreeDSServerTransactionID = session.AuthenticationResponse.ThreeDSServerTransactionID
		completionReq.AcsTransactionID = session.AuthenticationResponse.AcsTransactionID
	}

	var completionResp *models.CompletionResponse
	bypassed, err := s.safetyNet.Call(ctx, FlowCompletion, features, session.DeviceChannel, func(ctx context.Context) error {
		var callErr error
		completionResp, callErr = s.payerAuth.CompleteChallenge(ctx, completionReq)
		return callErr
	})
	if err != nil {
		return s.finishWithFailure(ctx, accountID, session)
	}

	var status models.ChallengeStatus
	if bypassed {
		session.IsSystemError = true
		status = models.ChallengeStatusSucceeded
	} else {
		session.TransactionStatus = string(completionResp.TransactionStatus)
		session.TransactionStatusReason = completionResp.TransactionStatusReason
		session.ChallengeCancelIndicator = completionResp.ChallengeCancelIndicator
		status = MapCompletionStatus(completionResp, features, session.PaymentMethodType)
	}

	return s.finishCompletion(ctx, accountID, session, status, bypassed)
}

func (s *paymentSessionService) CompleteThreeDSOneChallenge(ctx context.Context, accountID, sessionID string, authParams map[string]string) (*models.PaymentSession, error) {
	session, err := s.store.GetPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		accountID = session.AccountID
	}
	if session.ChallengeStatus.IsTerminal() {
		return session.ToPaymentSession(), nil
	}

	features := flighting.Resolve(session.ExposedFlightFeatures)

	completionReq := &models.CompletionRequest{
		SessionID:               session.ID,
		AuthorizationParameters: authParams,
	}
	if session.AuthenticationResponse != nil {
		completionReq.ThreeDSServerTransactionID = session.AuthenticationResponse.ThreeDSServerTransactionID
	}

	var completionResp *models.CompletionResponse
	bypassed, err := s.safetyNet.Call(ctx, FlowThreeDSOne, features, session.DeviceChannel, func(ctx context.Context) error {
		var callErr error
		completionResp, callErr = s.payerAuth.CompleteChallenge(ctx, completionReq)
		return callErr
	})
	if err != nil {
		return s.finishWithFailure(ctx, accountID, session)
	}
	if bypassed {
		// Synthetic decline so the interpreter reports an internal error
		// instead of an issuer rejection.
		session.IsSystemError = true
		completionResp = &models.CompletionResponse{TransactionStatus: models.TransactionStatusR}
	} else {
		session.TransactionStatus = string(completionResp.TransactionStatus)
		session.TransactionStatusReason = completionResp.TransactionStatusReason
		session.ChallengeCancelIndicator = completionResp.ChallengeCancelIndicator
	}

	status := MapThreeDSOneCompletionStatus(
		completionResp.TransactionStatus,
		completionResp.TransactionStatusReason,
		completionResp.ChallengeCancelIndicator,
		bypassed)

	return s.finishCompletion(ctx, accountID, session, status, bypassed)
}

func (s *paymentSessionService) finishCompletion(ctx context.Context, accountID string, session *models.StoredPaymentSession, status models.ChallengeStatus, fallback bool) (*models.PaymentSession, error) {
	session.ChallengeStatus = status
	if status.IsTerminal() {
		attestationContext := AttestationContextChallenge
		if fallback {
			attestationContext = AttestationContextFallback
		}
		s.attestor.Report(ctx, accountID, session.ID, status.IsVerified(), attestationContext)
	}
	if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
		return nil, err
	}
	return session.ToPaymentSession(), nil
}

func (s *paymentSessionService) finishWithFailure(ctx context.Context, accountID string, session *models.StoredPaymentSession) (*models.PaymentSession, error) {
	session.ChallengeStatus = models.ChallengeStatusFailed
	session.IsSystemError = true
	s.attestor.Report(ctx, accountID, session.ID, false, AttestationContextFallback)
	if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
		return nil, err
	}
	return session.ToPaymentSession(), nil
}

// AuthenticateUpiPaymentTxn drives the UPI collect-request authorization
// for a session created against a UPI or UPI QR instrument.
func (s *paymentSessionService) AuthenticateUpiPaymentTxn(ctx context.Context, accountID, sessionID string) (*models.PaymentSession, error) {
	session, err := s.store.GetPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ChallengeStatus.IsTerminal() {
		return session.ToPaymentSession(), nil
	}

	features := flighting.Resolve(session.ExposedFlightFeatures)

	piAccountID := accountID
	if session.PaymentInstrumentAccountID != "" {
		piAccountID = session.PaymentInstrumentAccountID
	}
	pi, err := s.instruments.GetPaymentInstrument(ctx, piAccountID, session.PaymentInstrumentID)
	if err != nil {
		var serviceErr *models.ServiceError
		if errors.As(err, &serviceErr) &&
			(serviceErr.StatusCode == 404 || serviceErr.ErrorCode == models.DownstreamErrAccountPINotFound) {
			return nil, models.NewValidationError(models.ErrCodePaymentInstrumentNotFound,
				"payment instrument could not be resolved")
		}
		return nil, err
	}
	if !pi.IsUPI() && !pi.IsUPIQr() {
		return nil, models.NewValidationError(models.ErrCodeInvalidPaymentInstrument,
			"payment instrument does not support UPI authorization")
	}

	var authResp *models.AuthenticationResponse
	bypassed, err := s.safetyNet.Call(ctx, FlowUpi, features, session.DeviceChannel, func(ctx context.Context) error {
		var callErr error
		authResp, callErr = s.payerAuth.Authenticate(ctx, &models.AuthenticationRequest{
			SessionID:           session.ID,
			AccountID:           session.AccountID,
			PaymentInstrumentID: session.PaymentInstrumentID,
		})
		return callErr
	})
	if err != nil {
		return s.finishWithFailure(ctx, accountID, session)
	}

	var status models.ChallengeStatus
	if bypassed {
		session.IsSystemError = true
		status = models.ChallengeStatusSucceeded
	} else {
		session.AuthenticationResponse = authResp
		session.TransactionStatus = string(authResp.TransactionStatus)
		session.TransactionStatusReason = authResp.TransactionStatusReason
		status = MapAuthenticationStatus(authResp, features, session.PaymentMethodType, session.IsMOTO)
	}

	if status == models.ChallengeStatusUnknown {
		// Collect request pending at the customer's UPI app.
		if err := s.store.UpdatePaymentSession(ctx, session); err != nil {
			return nil, err
		}
		return session.ToPaymentSession(), nil
	}

	return s.finishCompletion(ctx, accountID, session, status, bypassed)
}

// GetTransactionServiceStore routes a partner to its transaction ledger. A
// configured partner-settings feature wins; the commercial stores partner
// keeps its legacy OMS ledger; everything else uses the Azure ledger.
func (s *paymentSessionService) GetTransactionServiceStore(partner string, setting *models.PaymentExperienceSetting) string {
	if setting.HasFeature(models.FeatureUseOMSTransactionStore) {
		return TransactionStoreOMS
	}
	if setting.HasFeature(models.FeatureUseAzureTransactionStore) {
		return TransactionStoreAzure
	}
	if strings.EqualFold(partner, "commercialstores") {
		return TransactionStoreOMS
	}
	return TransactionStoreAzure
}

func (s *paymentSessionService) methodNotificationURL(sessionID string) string {
	return fmt.Sprintf("%s/paymentSessions/%s/notifyThreeDSMethodCompleted", s.pifdBaseURL, sessionID)
}

func (s *paymentSessionService) challengeNotificationURL(sessionID string) string {
	return fmt.Sprintf("%s/paymentSessions/%s/completeChallenge", s.pifdBaseURL, sessionID)
}

// encodeThreeDSMethodData builds the base64url form field the fingerprint
// iframe posts to the ACS method URL.
func encodeThreeDSMethodData(serverTransID, notificationURL string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"threeDSServerTransID":         serverTransID,
		"threeDSMethodNotificationURL": notificationURL,
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}
