// Package flighting resolves the flat set of enabled feature names that
// accompanies each request into a typed capability set. Flight names are
// parsed exactly once per request; the engine never does string matching
// on flight names itself.
package flighting

import (
	"regexp"
	"strconv"
	"strings"

	"payment-challenge-service/models"
)

// Boolean capability flight names.
const (
	FlagIndiaRecurringChallenge         = "EnableIndiaRecurringChallenge"
	FlagIndia3DS                        = "EnableIndia3DS"
	FlagIndia3DS1Challenge              = "EnableIndia3DS1Challenge"
	FlagJCBChallenge                    = "EnableJCBChallenge"
	FlagUpiConsumer                     = "EnableLtsUpiConsumer"
	FlagUpiQRConsumer                   = "EnableLtsUpiQRConsumer"
	FlagValidatePIOnAttach              = "EnableValidatePIOnAttach"
	FlagInstrumentSession               = "EnablePaymentInstrumentSession"
	FlagSkipFingerprint                 = "PSD2SkipFingerprint"
	FlagCertificateValidation           = "PSD2ServiceSideCertificateValidation"
	FlagAuthenticateStoredChallengeType = "AuthenticateChallengeTypeOnStoredSession"
)

// Prefixes for parameterized flights.
const (
	hardFailPrefix = "PSD2AuthHardFail-"
	enforcePrefix  = "SafetyNetEnforce-"
)

var settingsVersionRe = regexp.MustCompile(`^PSD2SettingsVersionV(\d{1,4})$`)

// HardFailRule marks a transaction-status-reason code as a hard failure,
// optionally scoped to one card brand.
type HardFailRule struct {
	Reason string
	Brand  string // empty means all brands
}

// Features is the typed capability set for one request.
type Features struct {
	IndiaRecurringChallenge         bool
	India3DS                        bool
	India3DS1Challenge              bool
	JCBChallenge                    bool
	UpiConsumer                     bool
	UpiQRConsumer                   bool
	ValidatePIOnAttach              bool
	InstrumentSession               bool
	SkipFingerprint                 bool
	CertificateValidation           bool
	CertificateValidationBrands     []string // empty with CertificateValidation set means all brands
	AuthenticateStoredChallengeType bool

	SettingsVersions []int          // versions advertised by the ladder flights
	HardFailReasons  []HardFailRule // interpreter overrides

	// enforcements maps flow -> channels for which the safety net is
	// disabled. An empty channel set means every channel.
	enforcements map[string][]models.DeviceChannel

	names []string
}

// Resolve parses the flat flight-name set into Features.
func Resolve(names []string) Features {
	f := Features{
		enforcements: make(map[string][]models.DeviceChannel),
		names:        append([]string(nil), names...),
	}

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		switch {
		case strings.EqualFold(name, FlagIndiaRecurringChallenge):
			f.IndiaRecurringChallenge = true
		case strings.EqualFold(name, FlagIndia3DS):
			f.India3DS = true
		case strings.EqualFold(name, FlagIndia3DS1Challenge):
			f.India3DS1Challenge = true
		case strings.EqualFold(name, FlagJCBChallenge):
			f.JCBChallenge = true
		case strings.EqualFold(name, FlagUpiConsumer):
			f.UpiConsumer = true
		case strings.EqualFold(name, FlagUpiQRConsumer):
			f.UpiQRConsumer = true
		case strings.EqualFold(name, FlagValidatePIOnAttach):
			f.ValidatePIOnAttach = true
		case strings.EqualFold(name, FlagInstrumentSession):
			f.InstrumentSession = true
		case strings.EqualFold(name, FlagSkipFingerprint):
			f.SkipFingerprint = true
		case strings.EqualFold(name, FlagCertificateValidation):
			f.CertificateValidation = true
		case strings.EqualFold(name, FlagAuthenticateStoredChallengeType):
			f.AuthenticateStoredChallengeType = true
		case strings.HasPrefix(name, FlagCertificateValidation+"-"):
			f.CertificateValidation = true
			f.CertificateValidationBrands = append(
				f.CertificateValidationBrands,
				strings.ToLower(strings.TrimPrefix(name, FlagCertificateValidation+"-")))
		case strings.HasPrefix(name, hardFailPrefix):
			rest := strings.TrimPrefix(name, hardFailPrefix)
			parts := strings.SplitN(rest, "-", 2)
			rule := HardFailRule{Reason: parts[0]}
			if len(parts) == 2 {
				rule.Brand = strings.ToLower(parts[1])
			}
			if rule.Reason != "" {
				f.HardFailReasons = append(f.HardFailReasons, rule)
			}
		case strings.HasPrefix(name, enforcePrefix):
			rest := strings.TrimPrefix(name, enforcePrefix)
			parts := strings.SplitN(rest, "-", 2)
			flow := strings.ToLower(parts[0])
			if flow == "" {
				continue
			}
			if len(parts) == 2 && parts[1] != "" {
				f.enforcements[flow] = append(f.enforcements[flow], models.DeviceChannel(parts[1]))
			} else if _, ok := f.enforcements[flow]; !ok {
				f.enforcements[flow] = nil // all channels
			}
		default:
			if m := settingsVersionRe.FindStringSubmatch(name); m != nil {
				if v, err := strconv.Atoi(m[1]); err == nil {
					f.SettingsVersions = append(f.SettingsVersions, v)
				}
			}
		}
	}

	return f
}

// Names returns the raw flight set, for capture on the stored session and
// replay on later calls.
func (f Features) Names() []string {
	return f.names
}

// EnforcedFor reports whether the safety net is disabled (failures surface
// as Failed) for the given flow and device channel.
func (f Features) EnforcedFor(flow string, channel models.DeviceChannel) bool {
	channels, ok := f.enforcements[strings.ToLower(flow)]
	if !ok {
		return false
	}
	if len(channels) == 0 {
		return true
	}
	for _, c := range channels {
		if strings.EqualFold(string(c), string(channel)) {
			return true
		}
	}
	return false
}

// HardFailFor reports whether the transaction-status-reason code is marked
// as a hard failure for the given card brand.
func (f Features) HardFailFor(reason, brand string) bool {
	for _, r := range f.HardFailReasons {
		if !strings.EqualFold(r.Reason, reason) {
			continue
		}
		if r.Brand == "" || strings.EqualFold(r.Brand, brand) {
			return true
		}
	}
	return false
}

// CertValidationFor reports whether service-side certificate validation is
// active for the given card brand.
func (f Features) CertValidationFor(brand string) bool {
	if !f.CertificateValidation {
		return false
	}
	if len(f.CertificateValidationBrands) == 0 {
		return true
	}
	for _, b := range f.CertificateValidationBrands {
		if strings.EqualFold(b, brand) {
			return true
		}
	}
	return false
}
