package models

import "strings"

// Payment method families and types as reported by the instrument service.
const (
	FamilyCreditCard       = "credit_card"
	FamilyRealTimePayments = "real_time_payments"
	FamilyEwallet          = "ewallet"

	MethodTypeAmex  = "amex"
	MethodTypeJcb   = "jcb"
	MethodTypeUPI   = "upi"
	MethodTypeUPIQr = "upi_qr"

	WalletTypeGooglePay = "gpay"
	WalletTypeApplePay  = "apay"
)

// Required-challenge hints carried on the instrument.
const (
	RequiredChallenge3DS  = "3ds"
	RequiredChallenge3DS2 = "3ds2"
	RequiredChallengeCVV  = "cvv"
	RequiredChallengeSms  = "sms"
)

type PaymentMethod struct {
	Family string `json:"paymentMethodFamily"`
	Type   string `json:"paymentMethodType"`
}

type PaymentInstrumentDetails struct {
	RequiredChallenge     []string `json:"requiredChallenge,omitempty"`
	WalletType            string   `json:"walletType,omitempty"`
	UsageType             string   `json:"usageType,omitempty"`
	LinkedPaymentSessionID string  `json:"linkedPaymentSessionId,omitempty"`
}

// UsageType values relevant to guest checkout.
const UsageTypeInline = "inline"

type PaymentInstrument struct {
	PaymentInstrumentID string                   `json:"paymentInstrumentId"`
	AccountID           string                   `json:"accountId,omitempty"`
	PaymentMethod       PaymentMethod            `json:"paymentMethod"`
	Details             PaymentInstrumentDetails `json:"details"`
}

func (pi *PaymentInstrument) IsCreditCard() bool {
	return strings.EqualFold(pi.PaymentMethod.Family, FamilyCreditCard)
}

func (pi *PaymentInstrument) IsAmex() bool {
	return pi.IsCreditCard() && strings.EqualFold(pi.PaymentMethod.Type, MethodTypeAmex)
}

func (pi *PaymentInstrument) IsJcb() bool {
	return pi.IsCreditCard() && strings.EqualFold(pi.PaymentMethod.Type, MethodTypeJcb)
}

func (pi *PaymentInstrument) IsUPI() bool {
	return strings.EqualFold(pi.PaymentMethod.Family, FamilyRealTimePayments) &&
		strings.EqualFold(pi.PaymentMethod.Type, MethodTypeUPI)
}

func (pi *PaymentInstrument) IsUPIQr() bool {
	return strings.EqualFold(pi.PaymentMethod.Family, FamilyRealTimePayments) &&
		strings.EqualFold(pi.PaymentMethod.Type, MethodTypeUPIQr)
}

// IsWalletToken reports whether the instrument is a tokenized wallet
// (Google Pay / Apple Pay).
func (pi *PaymentInstrument) IsWalletToken() bool {
	wt := strings.ToLower(pi.Details.WalletType)
	return wt == WalletTypeGooglePay || wt == WalletTypeApplePay ||
		strings.EqualFold(pi.PaymentMethod.Type, "googlepay") ||
		strings.EqualFold(pi.PaymentMethod.Type, "applepay")
}

// RequiresChallenge reports whether the instrument's declared
// required-challenge list contains the given hint.
func (pi *PaymentInstrument) RequiresChallenge(hint string) bool {
	for _, c := range pi.Details.RequiredChallenge {
		if strings.EqualFold(c, hint) {
			return true
		}
	}
	return false
}
