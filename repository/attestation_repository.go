package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeAttestation is one compliance-ledger row asserting whether a
// required challenge was satisfied for a session.
type ChallengeAttestation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID string    `gorm:"type:varchar(64);index;not null;uniqueIndex:idx_account_session"`
	SessionID string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_account_session"`
	Satisfied bool      `gorm:"not null"`
	Context   string    `gorm:"type:varchar(32)"` // challenge | fallback
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// AttestationRepository records challenge-satisfied attestations keyed by
// (accountId, sessionId).
type AttestationRepository interface {
	Record(ctx context.Context, accountID, sessionID string, satisfied bool, attestationContext string) error
}

type gormAttestationRepo struct {
	db *gorm.DB
}

func NewGormAttestationRepo(db *gorm.DB) AttestationRepository {
	return &gormAttestationRepo{db: db}
}

func (r *gormAttestationRepo) Record(ctx context.Context, accountID, sessionID string, satisfied bool, attestationContext string) error {
	row := &ChallengeAttestation{
		ID:        uuid.New(),
		AccountID: accountID,
		SessionID: sessionID,
		Satisfied: satisfied,
		Context:   attestationContext,
	}
	// Re-attestation for the same session overwrites the outcome.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"satisfied", "context", "updated_at"}),
	}).Create(row).Error
}
