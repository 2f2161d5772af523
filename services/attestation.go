package services

import (
	"context"

	"payment-challenge-service/repository"

	"go.uber.org/zap"
)

// Attestation contexts recorded with each ledger entry.
const (
	AttestationContextChallenge = "challenge"
	AttestationContextFallback  = "fallback"
)

// AttestationReporter records the challenge-satisfied outcome for a session
// to the compliance ledger and, when configured, publishes an event. It is
// best effort: its own failures are logged and swallowed so attestation can
// never fail the payment flow.
type AttestationReporter struct {
	repo      repository.AttestationRepository
	publisher EventPublisher // optional
	logger    *zap.Logger
}

func NewAttestationReporter(repo repository.AttestationRepository, publisher EventPublisher, logger *zap.Logger) *AttestationReporter {
	return &AttestationReporter{repo: repo, publisher: publisher, logger: logger}
}

// Report writes one attestation row. Callers invoke it exactly once per
// terminal status transition and never for non-terminal states.
func (r *AttestationReporter) Report(ctx context.Context, accountID, sessionID string, satisfied bool, attestationContext string) {
	if err := r.repo.Record(ctx, accountID, sessionID, satisfied, attestationContext); err != nil {
		r.logger.Error("failed to record challenge attestation",
			zap.String("accountId", accountID),
			zap.String("sessionId", sessionID),
			zap.Bool("satisfied", satisfied),
			zap.Error(err))
	}

	if r.publisher == nil {
		return
	}
	err := r.publisher.Publish(ctx, "challenge.attested", map[string]interface{}{
		"account_id": accountID,
		"session_id": sessionID,
		"satisfied":  satisfied,
		"context":    attestationContext,
	})
	if err != nil {
		r.logger.Error("failed to publish attestation event",
			zap.String("sessionId", sessionID),
			zap.Error(err))
	}
}
