package models

import "time"

// ChallengeStatus is the canonical state of a payment challenge.
type ChallengeStatus string

const (
	ChallengeStatusUnknown             ChallengeStatus = "Unknown"
	ChallengeStatusByPassed            ChallengeStatus = "ByPassed"
	ChallengeStatusSucceeded           ChallengeStatus = "Succeeded"
	ChallengeStatusFailed              ChallengeStatus = "Failed"
	ChallengeStatusCancelled           ChallengeStatus = "Cancelled"
	ChallengeStatusTimedOut            ChallengeStatus = "TimedOut"
	ChallengeStatusNotApplicable       ChallengeStatus = "NotApplicable"
	ChallengeStatusInternalServerError ChallengeStatus = "InternalServerError"
)

// IsTerminal reports whether no further protocol step can change the status.
func (s ChallengeStatus) IsTerminal() bool {
	switch s {
	case ChallengeStatusSucceeded, ChallengeStatusFailed, ChallengeStatusCancelled,
		ChallengeStatusTimedOut, ChallengeStatusByPassed, ChallengeStatusNotApplicable,
		ChallengeStatusInternalServerError:
		return true
	}
	return false
}

// IsVerified reports whether the status counts as a satisfied challenge for
// attestation purposes.
func (s ChallengeStatus) IsVerified() bool {
	return s == ChallengeStatusSucceeded ||
		s == ChallengeStatusByPassed ||
		s == ChallengeStatusNotApplicable
}

type ChallengeType string

const (
	ChallengeTypeCVV                ChallengeType = "CVVChallenge"
	ChallengeTypeSms                ChallengeType = "SmsChallenge"
	ChallengeTypeIndia3DS           ChallengeType = "India3DSChallenge"
	ChallengeTypePSD2               ChallengeType = "PSD2Challenge"
	ChallengeTypeValidatePIOnAttach ChallengeType = "ValidatePIOnAttachChallenge"
	ChallengeTypeUPI                ChallengeType = "UPIChallenge"
	ChallengeTypeUPIQr              ChallengeType = "UpiQRChallenge"
)

type ChallengeScenario string

const (
	ScenarioPaymentTransaction   ChallengeScenario = "PaymentTransaction"
	ScenarioRecurringTransaction ChallengeScenario = "RecurringTransaction"
)

type DeviceChannel string

const (
	DeviceChannelBrowser  DeviceChannel = "Browser"
	DeviceChannelAppBased DeviceChannel = "AppBased"
)

// PaymentSessionData is the transaction context a caller supplies when
// creating a session.
type PaymentSessionData struct {
	PaymentInstrumentID        string            `json:"paymentInstrumentId" binding:"required"`
	PaymentInstrumentAccountID string            `json:"paymentInstrumentAccountId"`
	Partner                    string            `json:"partner"`
	Country                    string            `json:"country"`
	Currency                   string            `json:"currency"`
	Amount                     int64             `json:"amount"` // minor units
	Language                   string            `json:"language"`
	ChallengeScenario          ChallengeScenario `json:"challengeScenario"`
	ChallengeWindowSize        string            `json:"challengeWindowSize"`
	IsMOTO                     bool              `json:"isMoto"`
	SuccessURL                 string            `json:"successUrl"`
	FailureURL                 string            `json:"failureUrl"`
}

// PaymentSession is the public view of a session, consumed by the
// presentation layer for polling and redirect correlation.
type PaymentSession struct {
	ID                         string            `json:"id"`
	AccountID                  string            `json:"accountId,omitempty"`
	PaymentInstrumentID        string            `json:"paymentInstrumentId"`
	PaymentInstrumentAccountID string            `json:"paymentInstrumentAccountId,omitempty"`
	Partner                    string            `json:"partner,omitempty"`
	Country                    string            `json:"country,omitempty"`
	Currency                   string            `json:"currency,omitempty"`
	Amount                     int64             `json:"amount"`
	Language                   string            `json:"language,omitempty"`
	ChallengeScenario          ChallengeScenario `json:"challengeScenario,omitempty"`
	ChallengeWindowSize        string            `json:"challengeWindowSize,omitempty"`
	IsMOTO                     bool              `json:"isMoto"`
	IsChallengeRequired        bool              `json:"isChallengeRequired"`
	ChallengeType              ChallengeType     `json:"challengeType,omitempty"`
	ChallengeStatus            ChallengeStatus   `json:"challengeStatus"`
	MessageVersion             string            `json:"messageVersion,omitempty"`
	UserDisplayMessage         string            `json:"userDisplayMessage,omitempty"`
}

// StoredPaymentSession is the durable unit of work persisted in the session
// store. It carries everything later protocol steps need, including the
// flight set captured at creation so behavior stays consistent across the
// multi-step flow.
type StoredPaymentSession struct {
	ID                         string            `json:"id"`
	AccountID                  string            `json:"accountId"`
	PaymentInstrumentID        string            `json:"paymentInstrumentId"`
	PaymentInstrumentAccountID string            `json:"paymentInstrumentAccountId"`
	Partner                    string            `json:"partner"`
	Country                    string            `json:"country"`
	Currency                   string            `json:"currency"`
	Amount                     int64             `json:"amount"`
	Language                   string            `json:"language"`
	EmailAddress               string            `json:"emailAddress,omitempty"`
	ChallengeScenario          ChallengeScenario `json:"challengeScenario"`
	ChallengeWindowSize        string            `json:"challengeWindowSize"`
	DeviceChannel              DeviceChannel     `json:"deviceChannel"`
	IsMOTO                     bool              `json:"isMoto"`
	PaymentMethodFamily        string            `json:"paymentMethodFamily,omitempty"`
	PaymentMethodType          string            `json:"paymentMethodType,omitempty"`
	ExposedFlightFeatures      []string          `json:"exposedFlightFeatures"`

	IsChallengeRequired      bool            `json:"isChallengeRequired"`
	PiRequiresAuthentication bool            `json:"piRequiresAuthentication"`
	IsTokenCollected         bool            `json:"isTokenCollected"`
	ChallengeType            ChallengeType   `json:"challengeType,omitempty"`
	ChallengeStatus          ChallengeStatus `json:"challengeStatus"`

	// Raw provider outcome, kept for audit and idempotent replay.
	TransactionStatus        string `json:"transactionStatus,omitempty"`
	TransactionStatusReason  string `json:"transactionStatusReason,omitempty"`
	ChallengeCancelIndicator string `json:"challengeCancelIndicator,omitempty"`

	MethodData             *ThreeDSMethodData      `json:"methodData,omitempty"`
	BrowserInfo            *BrowserInfo            `json:"browserInfo,omitempty"`
	AuthenticationResponse *AuthenticationResponse `json:"authenticationResponse,omitempty"`

	SuccessURL    string `json:"successUrl,omitempty"`
	FailureURL    string `json:"failureUrl,omitempty"`
	IsSystemError bool   `json:"isSystemError"`

	SettingsVersion string    `json:"settingsVersion,omitempty"`
	TryCount        int       `json:"tryCount,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ToPaymentSession projects the stored record onto the public view.
func (s *StoredPaymentSession) ToPaymentSession() *PaymentSession {
	return &PaymentSession{
		ID:                         s.ID,
		AccountID:                  s.AccountID,
		PaymentInstrumentID:        s.PaymentInstrumentID,
		PaymentInstrumentAccountID: s.PaymentInstrumentAccountID,
		Partner:                    s.Partner,
		Country:                    s.Country,
		Currency:                   s.Currency,
		Amount:                     s.Amount,
		Language:                   s.Language,
		ChallengeScenario:          s.ChallengeScenario,
		ChallengeWindowSize:        s.ChallengeWindowSize,
		IsMOTO:                     s.IsMOTO,
		IsChallengeRequired:        s.IsChallengeRequired,
		ChallengeType:              s.ChallengeType,
		ChallengeStatus:            s.ChallengeStatus,
	}
}

// PaymentInstrumentSession binds a payment instrument to its most recent
// challenge session, used to avoid duplicate provider-session creation for
// the same instrument across transactions.
type PaymentInstrumentSession struct {
	PaymentSessionID  string          `json:"paymentSessionId"`
	AccountID         string          `json:"accountId"`
	RequiredChallenge []string        `json:"requiredChallenge,omitempty"`
	ChallengeStatus   ChallengeStatus `json:"challengeStatus,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// BrowserFlowContext is the next-step descriptor returned to browser
// clients: either a fingerprint form, an ACS challenge form, or a finished
// session.
type BrowserFlowContext struct {
	IsFingerprintRequired       bool            `json:"isFingerprintRequired"`
	IsAcsChallengeRequired      bool            `json:"isAcsChallengeRequired"`
	FormActionURL               string          `json:"formActionUrl,omitempty"`
	FormInputThreeDSMethodData  string          `json:"formInputThreeDSMethodData,omitempty"`
	FormInputThreeDSSessionData string          `json:"formInputThreeDSSessionData,omitempty"`
	FormInputCReq               string          `json:"formInputCReq,omitempty"`
	CardHolderInfo              string          `json:"cardHolderInfo,omitempty"`
	PaymentSession              *PaymentSession `json:"paymentSession,omitempty"`
}
