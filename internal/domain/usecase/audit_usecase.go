package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"lrt-predictor/internal/domain/entity"
)

// ErrBadEvent marks an event that can never be recorded and must not be
// redelivered.
var ErrBadEvent = errors.New("malformed prediction event")

// AuditUseCase records published prediction events in the audit log.
type AuditUseCase struct {
	AuditRepo AuditRepo
	Logger    *zap.Logger
}

func NewAuditUseCase(repo AuditRepo, logger *zap.Logger) *AuditUseCase {
	return &AuditUseCase{AuditRepo: repo, Logger: logger}
}

func (u *AuditUseCase) Record(ctx context.Context, msg entity.PredictionCreatedMessage) error {
	if msg.EntryID == "" || msg.SessionID == "" {
		return fmt.Errorf("%w: missing entry or session id", ErrBadEvent)
	}

	if err := u.AuditRepo.CreatePrediction(ctx, entity.PredictionRecordFromMessage(msg)); err != nil {
		return err
	}

	u.Logger.Debug("prediction audited",
		zap.String("entry_id", msg.EntryID),
		zap.Bool("failure", msg.Failure))
	return nil
}
