package services

import (
	"payment-challenge-service/flighting"
	"payment-challenge-service/models"
)

// ReasonTransactionTimedOut is the transStatusReason an ACS sends when the
// challenge window expired without cardholder input.
const ReasonTransactionTimedOut = "14"

// MapAuthenticationStatus maps a provider authenticate result onto the
// canonical challenge status. A hard-fail flight can demote a reason code
// to Failed globally or for one card brand; absent that, N is treated as a
// benign decline and the transaction proceeds. C leaves the session
// pending. MOTO transactions bypass instead of succeed so downstream
// reporting can tell the two apart.
func MapAuthenticationStatus(resp *models.AuthenticationResponse, features flighting.Features, brand string, isMoto bool) models.ChallengeStatus {
	if resp == nil {
		return models.ChallengeStatusInternalServerError
	}
	if resp.EnrollmentStatus == models.EnrollmentStatusBypassed {
		return models.ChallengeStatusByPassed
	}
	if resp.TransactionStatus == models.TransactionStatusFR {
		return models.ChallengeStatusFailed
	}

	switch resp.TransactionStatus {
	case models.TransactionStatusC:
		return models.ChallengeStatusUnknown
	case models.TransactionStatusR:
		return models.ChallengeStatusFailed
	case models.TransactionStatusN:
		// The hard-fail flight only demotes declines; authenticated
		// statuses keep their outcome regardless of the reason code.
		if features.HardFailFor(resp.TransactionStatusReason, brand) {
			return models.ChallengeStatusFailed
		}
	}
	if isMoto {
		return models.ChallengeStatusByPassed
	}
	return models.ChallengeStatusSucceeded
}

// MapCompletionStatus maps a provider challenge-completion result onto the
// canonical challenge status. For an N the cancel indicator decides between
// Cancelled and TimedOut; a bare N with the timeout reason code also maps
// to TimedOut, and an N with neither is a benign decline.
func MapCompletionStatus(resp *models.CompletionResponse, features flighting.Features, brand string) models.ChallengeStatus {
	if resp == nil {
		return models.ChallengeStatusInternalServerError
	}

	switch resp.TransactionStatus {
	case models.TransactionStatusR, models.TransactionStatusFR:
		return models.ChallengeStatusFailed
	case models.TransactionStatusN:
		if features.HardFailFor(resp.TransactionStatusReason, brand) {
			return models.ChallengeStatusFailed
		}
		switch resp.ChallengeCancelIndicator {
		case models.CancelIndicatorCancelledByCardHolder:
			return models.ChallengeStatusCancelled
		case models.CancelIndicatorTransactionTimedOut:
			return models.ChallengeStatusTimedOut
		}
		if resp.ChallengeCancelIndicator == "" && resp.TransactionStatusReason == ReasonTransactionTimedOut {
			return models.ChallengeStatusTimedOut
		}
		return models.ChallengeStatusSucceeded
	case models.TransactionStatusY, models.TransactionStatusA, models.TransactionStatusU:
		return models.ChallengeStatusSucceeded
	case models.TransactionStatusC, "":
		return models.ChallengeStatusUnknown
	}
	return models.ChallengeStatusSucceeded
}

// MapThreeDSOneAuthenticationStatus maps the legacy 3DS1 enrollment check.
// The legacy protocol has no attempt semantics: U and N both mean the
// redirect cannot proceed.
func MapThreeDSOneAuthenticationStatus(status models.TransactionStatus) models.ChallengeStatus {
	switch status {
	case models.TransactionStatusC:
		return models.ChallengeStatusUnknown
	case models.TransactionStatusU, models.TransactionStatusN:
		return models.ChallengeStatusFailed
	}
	return models.ChallengeStatusSucceeded
}

// MapThreeDSOneCompletionStatus maps the legacy 3DS1 redirect outcome. An R
// produced by the safety net's synthetic completion is reported as an
// internal error rather than an issuer decline.
func MapThreeDSOneCompletionStatus(status models.TransactionStatus, statusReason, cancelIndicator string, isSystemError bool) models.ChallengeStatus {
	switch status {
	case models.TransactionStatusU:
		return models.ChallengeStatusFailed
	case models.TransactionStatusR:
		if isSystemError {
			return models.ChallengeStatusInternalServerError
		}
		return models.ChallengeStatusFailed
	case models.TransactionStatusN:
		switch cancelIndicator {
		case models.CancelIndicatorCancelledByCardHolder:
			return models.ChallengeStatusCancelled
		case models.CancelIndicatorTransactionTimedOut:
			return models.ChallengeStatusTimedOut
		}
		if cancelIndicator == "" && statusReason == ReasonTransactionTimedOut {
			return models.ChallengeStatusTimedOut
		}
		return models.ChallengeStatusSucceeded
	}
	return models.ChallengeStatusSucceeded
}
