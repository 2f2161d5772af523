package services

import (
	"fmt"
	"strconv"
	"strings"

	"payment-challenge-service/flighting"
	"payment-challenge-service/models"
)

// Protocol version defaults.
const (
	DefaultSettingsVersion = 11

	DefaultMessageVersion  = "2.1.0"
	FallbackMessageVersion = "1.0.2"
)

// ResolveMessageVersion picks the EMV-3DS message version for an
// authenticate call. The provider's advertised version wins when present;
// a client-requested downgrade to the fallback version is honored.
func ResolveMessageVersion(providerVersion, requestedVersion string) string {
	if requestedVersion == FallbackMessageVersion {
		return FallbackMessageVersion
	}
	if providerVersion != "" {
		return providerVersion
	}
	if requestedVersion != "" {
		return requestedVersion
	}
	return DefaultMessageVersion
}

// ResolveSettingsVersion negotiates the PSD2 settings version between what
// the client sent and what the flight set advertises.
//
// The target is the highest advertised version, never lower than the
// default. A request matching the target, or matching any advertised
// version, is accepted as-is. A retry (tryCount > 1) is accepted without
// further checks so a client stuck behind a stale settings cache is not
// locked out. Anything else is rejected with the target version so the
// client can refresh and retry.
func ResolveSettingsVersion(requested string, tryCount int, features flighting.Features) (string, error) {
	target := DefaultSettingsVersion
	for _, v := range features.SettingsVersions {
		if v > target {
			target = v
		}
	}
	targetStr := fmt.Sprintf("V%d", target)

	if requested == "" {
		return targetStr, nil
	}
	if tryCount > 1 {
		return requested, nil
	}

	reqNum, ok := parseSettingsVersion(requested)
	if ok {
		if reqNum == target || reqNum == DefaultSettingsVersion {
			return requested, nil
		}
		for _, v := range features.SettingsVersions {
			if reqNum == v {
				return requested, nil
			}
		}
	}

	return "", &models.ValidationError{
		Code:    models.ErrCodeSettingsVersionMismatch,
		Message: "requested settings version is not available",
		Target:  targetStr,
	}
}

func parseSettingsVersion(s string) (int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "V")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
