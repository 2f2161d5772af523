package services

import (
	"strings"

	"payment-challenge-service/flighting"
	"payment-challenge-service/models"
)

// PolicyDecision is the outcome of challenge-requirement evaluation. When
// Required is false, Status carries the terminal no-challenge status the
// session is created with.
type PolicyDecision struct {
	Required                 bool
	Type                     models.ChallengeType
	Status                   models.ChallengeStatus
	TokenCollected           bool
	PiRequiresAuthentication bool
}

func notRequired(status models.ChallengeStatus, tokenCollected bool) PolicyDecision {
	return PolicyDecision{Required: false, Status: status, TokenCollected: tokenCollected}
}

// EvaluateChallengePolicy decides whether a step-up challenge must run for
// the given instrument and transaction context, and which type. Rules run
// in priority order; partner settings, when configured, take precedence
// over server-side default flighting.
func EvaluateChallengePolicy(
	pi *models.PaymentInstrument,
	data *models.PaymentSessionData,
	features flighting.Features,
	setting *models.PaymentExperienceSetting,
	isGuestUser bool,
) PolicyDecision {
	tokenCollected := pi.IsWalletToken()
	market := data.Country

	// Zero-amount recurring transactions never challenge, unless the
	// India override re-enables the check for the IN market.
	if data.Amount <= 0 && data.ChallengeScenario == models.ScenarioRecurringTransaction {
		indiaOverride := features.IndiaRecurringChallenge && strings.EqualFold(market, "IN")
		if !indiaOverride {
			return notRequired(models.ChallengeStatusNotApplicable, tokenCollected)
		}
	}

	switch {
	case pi.IsUPI():
		if !features.UpiConsumer {
			return notRequired(models.ChallengeStatusNotApplicable, tokenCollected)
		}
		return PolicyDecision{
			Required:                 true,
			Type:                     models.ChallengeTypeUPI,
			Status:                   models.ChallengeStatusUnknown,
			TokenCollected:           tokenCollected,
			PiRequiresAuthentication: true,
		}
	case pi.IsUPIQr():
		if !features.UpiQRConsumer {
			return notRequired(models.ChallengeStatusNotApplicable, tokenCollected)
		}
		return PolicyDecision{
			Required:                 true,
			Type:                     models.ChallengeTypeUPIQr,
			Status:                   models.ChallengeStatusUnknown,
			TokenCollected:           tokenCollected,
			PiRequiresAuthentication: true,
		}
	}

	if pi.RequiresChallenge(models.RequiredChallengeCVV) {
		return PolicyDecision{
			Required:       true,
			Type:           models.ChallengeTypeCVV,
			Status:         models.ChallengeStatusUnknown,
			TokenCollected: tokenCollected,
		}
	}
	if pi.RequiresChallenge(models.RequiredChallengeSms) {
		return PolicyDecision{
			Required:       true,
			Type:           models.ChallengeTypeSms,
			Status:         models.ChallengeStatusUnknown,
			TokenCollected: tokenCollected,
		}
	}

	if pi.RequiresChallenge(models.RequiredChallenge3DS) {
		return evaluateIndiaThreeDS(pi, data, features, setting, tokenCollected)
	}

	if pi.RequiresChallenge(models.RequiredChallenge3DS2) {
		return evaluatePSD2(data, features, setting, tokenCollected)
	}

	// Wallet tokens and guest-checkout instruments can be asked to prove
	// possession on attach when the flight is on.
	if features.ValidatePIOnAttach && (tokenCollected || isGuestUser || pi.Details.UsageType == models.UsageTypeInline) {
		return PolicyDecision{
			Required:       true,
			Type:           models.ChallengeTypeValidatePIOnAttach,
			Status:         models.ChallengeStatusUnknown,
			TokenCollected: tokenCollected,
		}
	}

	return notRequired(models.ChallengeStatusNotApplicable, tokenCollected)
}

// evaluateIndiaThreeDS gates the legacy India 3DS1 path. The path exists
// only for IN/INR transactions; Amex never takes it, and JCB takes it only
// behind its enabling flight.
func evaluateIndiaThreeDS(
	pi *models.PaymentInstrument,
	data *models.PaymentSessionData,
	features flighting.Features,
	setting *models.PaymentExperienceSetting,
	tokenCollected bool,
) PolicyDecision {
	if !strings.EqualFold(data.Country, "IN") || !strings.EqualFold(data.Currency, "INR") {
		return notRequired(models.ChallengeStatusNotApplicable, tokenCollected)
	}
	if pi.IsAmex() {
		return notRequired(models.ChallengeStatusNotApplicable, tokenCollected)
	}
	if pi.IsJcb() && !features.JCBChallenge {
		return notRequired(models.ChallengeStatusByPassed, tokenCollected)
	}

	enabled := features.India3DS || features.India3DS1Challenge
	if setting.HasFeature(models.FeatureThreeDSOne) {
		// Configured partner settings override default flighting. The
		// dedicated 3DS1 customization enables non-zero transactions on
		// its own, like its flight counterpart.
		enabled = setting.IsFeatureEnabled(models.FeatureThreeDSOne, data.Country)
		if enabled && data.ChallengeScenario == models.ScenarioPaymentTransaction && data.Amount > 0 &&
			!setting.HasCustomization(models.FeatureThreeDSOne, data.Country, models.CustomizationIndia3DSNonZeroTransaction) &&
			!setting.HasCustomization(models.FeatureThreeDSOne, data.Country, models.CustomizationEnableIndia3DS1Challenge) {
			enabled = false
		}
	}
	if !enabled {
		return notRequired(models.ChallengeStatusNotApplicable, tokenCollected)
	}

	return PolicyDecision{
		Required:                 true,
		Type:                     models.ChallengeTypeIndia3DS,
		Status:                   models.ChallengeStatusUnknown,
		TokenCollected:           tokenCollected,
		PiRequiresAuthentication: true,
	}
}

// evaluatePSD2 decides the strong-customer-authentication requirement. The
// instrument already declared 3ds2, so the challenge runs unless the
// partner's configured challenge handling turns it off for this market.
func evaluatePSD2(
	data *models.PaymentSessionData,
	features flighting.Features,
	setting *models.PaymentExperienceSetting,
	tokenCollected bool,
) PolicyDecision {
	if setting != nil {
		challengeFeature := models.FeatureHandlePaymentChallenge
		if strings.EqualFold(setting.PartnerType, "commercial") {
			challengeFeature = models.FeatureHandlePurchaseRiskChallenge
		}
		if setting.HasFeature(challengeFeature) &&
			!setting.IsFeatureEnabled(challengeFeature, data.Country) {
			return notRequired(models.ChallengeStatusByPassed, tokenCollected)
		}
		if setting.HasFeature(models.FeaturePSD2) &&
			!setting.IsFeatureEnabled(models.FeaturePSD2, data.Country) {
			return notRequired(models.ChallengeStatusByPassed, tokenCollected)
		}
	}

	return PolicyDecision{
		Required:                 true,
		Type:                     models.ChallengeTypePSD2,
		Status:                   models.ChallengeStatusUnknown,
		TokenCollected:           tokenCollected,
		PiRequiresAuthentication: true,
	}
}
