package models

// Wire types exchanged with the 3DS / PSD2 payer-auth provider.

// TransactionStatus is the EMV-3DS transStatus value.
type TransactionStatus string

const (
	TransactionStatusY  TransactionStatus = "Y"  // authenticated
	TransactionStatusN  TransactionStatus = "N"  // not authenticated
	TransactionStatusU  TransactionStatus = "U"  // could not be performed
	TransactionStatusA  TransactionStatus = "A"  // attempted
	TransactionStatusC  TransactionStatus = "C"  // challenge required
	TransactionStatusR  TransactionStatus = "R"  // rejected by issuer
	TransactionStatusFR TransactionStatus = "FR" // rejected for fraud
)

// EnrollmentStatus is the instrument's 3DS enrollment as declared by the
// provider.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled    EnrollmentStatus = "Enrolled"
	EnrollmentStatusNotEnrolled EnrollmentStatus = "NotEnrolled"
	EnrollmentStatusBypassed    EnrollmentStatus = "Bypassed"
)

// Challenge-cancel indicator values carried on completion responses.
const (
	CancelIndicatorCancelledByCardHolder = "01"
	CancelIndicatorTransactionTimedOut   = "04"
)

// ThreeDSMethodCompletionIndicator tells the provider whether the browser
// fingerprint step ran.
type ThreeDSMethodCompletionIndicator string

const (
	MethodCompletedY ThreeDSMethodCompletionIndicator = "Y"
	MethodCompletedN ThreeDSMethodCompletionIndicator = "N"
	MethodCompletedU ThreeDSMethodCompletionIndicator = "U"
)

// BrowserInfo is collected from the client and forwarded to the provider.
type BrowserInfo struct {
	UserAgent           string `json:"userAgent,omitempty"`
	AcceptHeader        string `json:"acceptHeader,omitempty"`
	Language            string `json:"language,omitempty"`
	ColorDepth          int    `json:"colorDepth,omitempty"`
	ScreenHeight        int    `json:"screenHeight,omitempty"`
	ScreenWidth         int    `json:"screenWidth,omitempty"`
	TimeZoneOffset      int    `json:"timeZoneOffset,omitempty"`
	JavaEnabled         bool   `json:"javaEnabled,omitempty"`
	IPAddress           string `json:"ipAddress,omitempty"`
	ChallengeWindowSize string `json:"challengeWindowSize,omitempty"`
}

// ThreeDSMethodData is the fingerprint round-trip descriptor.
type ThreeDSMethodData struct {
	ThreeDSServerTransactionID string `json:"threeDSServerTransId"`
	ThreeDSMethodURL           string `json:"threeDSMethodUrl,omitempty"`
}

// ProviderSessionRequest asks the provider to mint a session id for the
// given transaction context.
type ProviderSessionRequest struct {
	AccountID                string            `json:"accountId"`
	PaymentInstrumentID      string            `json:"paymentInstrumentId"`
	PaymentMethodFamily      string            `json:"paymentMethodFamily,omitempty"`
	PaymentMethodType        string            `json:"paymentMethodType,omitempty"`
	Partner                  string            `json:"partner,omitempty"`
	Country                  string            `json:"country,omitempty"`
	Currency                 string            `json:"currency,omitempty"`
	Amount                   int64             `json:"amount"`
	ChallengeScenario        ChallengeScenario `json:"challengeScenario,omitempty"`
	DeviceChannel            DeviceChannel     `json:"deviceChannel,omitempty"`
	PiRequiresAuthentication bool              `json:"piRequiresAuthentication"`
}

type ProviderSessionResponse struct {
	PaymentSessionID string `json:"paymentSessionId"`
}

// AuthenticationRequest is the provider-side authenticate payload.
type AuthenticationRequest struct {
	SessionID                  string                           `json:"sessionId"`
	AccountID                  string                           `json:"accountId,omitempty"`
	PaymentInstrumentID        string                           `json:"paymentInstrumentId,omitempty"`
	MessageVersion             string                           `json:"messageVersion,omitempty"`
	BrowserInfo                *BrowserInfo                     `json:"browserInfo,omitempty"`
	ThreeDSServerTransactionID string                           `json:"threeDSServerTransId,omitempty"`
	MethodCompletionIndicator  ThreeDSMethodCompletionIndicator `json:"threeDSMethodCompletionIndicator,omitempty"`
	AcsChallengeNotificationURL string                          `json:"acsChallengeNotificationUrl,omitempty"`
	SdkAppID                   string                           `json:"sdkAppId,omitempty"`
	SdkEncData                 string                           `json:"sdkEncData,omitempty"`
	IsMOTO                     bool                             `json:"isMoto,omitempty"`
}

// AuthenticationResponse is the provider's authenticate result, carrying
// the raw protocol fields the interpreter maps to a canonical status.
type AuthenticationResponse struct {
	EnrollmentStatus           EnrollmentStatus  `json:"enrollmentStatus,omitempty"`
	TransactionStatus          TransactionStatus `json:"transactionStatus,omitempty"`
	TransactionStatusReason    string            `json:"transactionStatusReason,omitempty"`
	AcsURL                     string            `json:"acsUrl,omitempty"`
	AcsSignedContent           string            `json:"acsSignedContent,omitempty"`
	AcsTransactionID           string            `json:"acsTransactionId,omitempty"`
	ThreeDSServerTransactionID string            `json:"threeDSServerTransactionId,omitempty"`
	MessageVersion             string            `json:"messageVersion,omitempty"`
	CardHolderInfo             string            `json:"cardHolderInfo,omitempty"`
	AcsChallengeMandated       bool              `json:"acsChallengeMandated,omitempty"`
}

// CompletionRequest finalizes a challenge at the provider.
type CompletionRequest struct {
	SessionID                  string `json:"sessionId"`
	ThreeDSServerTransactionID string `json:"threeDSServerTransId,omitempty"`
	AcsTransactionID           string `json:"acsTransactionId,omitempty"`
	AuthorizationParameters    map[string]string `json:"authorizationParameters,omitempty"`
}

type CompletionResponse struct {
	TransactionStatus        TransactionStatus `json:"transactionStatus,omitempty"`
	TransactionStatusReason  string            `json:"transactionStatusReason,omitempty"`
	ChallengeCancelIndicator string            `json:"challengeCancelIndicator,omitempty"`
}

// ChallengeAuthenticationResponse is the surface returned to app-based
// clients after an authenticate call.
type ChallengeAuthenticationResponse struct {
	EnrollmentStatus           EnrollmentStatus `json:"enrollmentStatus,omitempty"`
	ChallengeStatus            ChallengeStatus  `json:"challengeStatus"`
	AcsTransactionID           string           `json:"acsTransactionId,omitempty"`
	AcsSignedContent           string           `json:"acsSignedContent,omitempty"`
	ThreeDSServerTransactionID string           `json:"threeDSServerTransactionId,omitempty"`
	MessageVersion             string           `json:"messageVersion,omitempty"`
	CardHolderInfo             string           `json:"cardHolderInfo,omitempty"`
}

// ChallengeAuthenticationRequest is the client-side authenticate payload
// for app-based flows.
type ChallengeAuthenticationRequest struct {
	MessageVersion          string `json:"messageVersion,omitempty"`
	SettingsVersion         string `json:"settingsVersion,omitempty"`
	SettingsVersionTryCount int    `json:"settingsVersionTryCount,omitempty"`
	SdkAppID                string `json:"sdkAppId,omitempty"`
	SdkEncData              string `json:"sdkEncData,omitempty"`
	Language                string `json:"language,omitempty"`
}
