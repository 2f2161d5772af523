package models

import "strings"

// Partner-settings feature names consumed by the policy evaluator and the
// transaction-store routing lookup.
const (
	FeatureThreeDSOne                  = "threeDSOne"
	FeaturePSD2                        = "psd2"
	FeatureHandlePaymentChallenge      = "handlePaymentChallenge"
	FeatureHandlePurchaseRiskChallenge = "handlePurchaseRiskChallenge"
	FeatureUseOMSTransactionStore      = "useOmsTransactionServiceStore"
	FeatureUseAzureTransactionStore    = "useAzureTransactionServiceStore"
)

// Customization detail names.
const (
	CustomizationIndia3DSNonZeroTransaction = "enableIndia3dsForNonZeroPaymentTransaction"
	CustomizationEnableIndia3DS1Challenge   = "enableIndia3ds1Challenge"
)

// FeatureDetail is one typed customization record attached to a feature.
type FeatureDetail struct {
	Name string `json:"name"`
}

// FeatureConfig scopes a feature to markets and carries its customization
// details. An empty ApplicableMarkets list means all markets.
type FeatureConfig struct {
	ApplicableMarkets    []string        `json:"applicableMarkets,omitempty"`
	CustomizationDetails []FeatureDetail `json:"customizationDetails,omitempty"`
}

func (fc *FeatureConfig) appliesTo(market string) bool {
	if len(fc.ApplicableMarkets) == 0 {
		return true
	}
	for _, m := range fc.ApplicableMarkets {
		if strings.EqualFold(m, market) {
			return true
		}
	}
	return false
}

// PaymentExperienceSetting is the deserialized per-partner feature
// configuration. A nil setting or an absent feature means "not configured",
// which is distinct from "configured off": configured features always take
// precedence over server-side default flighting.
type PaymentExperienceSetting struct {
	PartnerType string                   `json:"partnerType,omitempty"` // consumer | commercial
	Features    map[string]FeatureConfig `json:"features,omitempty"`
}

// HasFeature reports whether the feature is configured at all, regardless
// of market.
func (s *PaymentExperienceSetting) HasFeature(feature string) bool {
	if s == nil || s.Features == nil {
		return false
	}
	_, ok := s.Features[feature]
	return ok
}

// IsFeatureEnabled reports whether the feature is configured and applies to
// the given market.
func (s *PaymentExperienceSetting) IsFeatureEnabled(feature, market string) bool {
	if s == nil || s.Features == nil {
		return false
	}
	fc, ok := s.Features[feature]
	if !ok {
		return false
	}
	return fc.appliesTo(market)
}

// HasCustomization reports whether the feature applies to the market and
// carries the named customization detail.
func (s *PaymentExperienceSetting) HasCustomization(feature, market, detail string) bool {
	if !s.IsFeatureEnabled(feature, market) {
		return false
	}
	for _, d := range s.Features[feature].CustomizationDetails {
		if strings.EqualFold(d.Name, detail) {
			return true
		}
	}
	return false
}
