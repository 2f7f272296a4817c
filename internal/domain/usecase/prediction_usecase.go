package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lrt-predictor/internal/domain/entity"
	"lrt-predictor/pkg/utils"
)

// ErrExportDisabled is returned by ExportURL when no object storage is set up.
var ErrExportDisabled = errors.New("export storage is not configured")

type Predictor interface {
	Predict(ctx context.Context, r entity.Reading) (entity.Prediction, error)
}

type HistoryRepo interface {
	Append(ctx context.Context, sessionID string, entry entity.HistoryEntry) error
	List(ctx context.Context, sessionID string) ([]entity.HistoryEntry, error)
	Clear(ctx context.Context, sessionID string) error
}

type S3Uploader interface {
	Upload(ctx context.Context, key, contentType string, file []byte) error
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type AuditRepo interface {
	CreatePrediction(ctx context.Context, rec *entity.PredictionRecord) error
}

type Publisher interface {
	Publish(ctx context.Context, msg entity.PredictionCreatedMessage) error
}

// PredictionUseCase runs submissions for all sessions. Predictor and
// HistoryRepo are required; the remaining collaborators may be nil.
type PredictionUseCase struct {
	Predictor   Predictor
	HistoryRepo HistoryRepo
	S3Repo      S3Uploader
	AuditRepo   AuditRepo
	Publisher   Publisher
	Logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewPredictionUseCase(p Predictor, h HistoryRepo, s3 S3Uploader, audit AuditRepo, pub Publisher, logger *zap.Logger) *PredictionUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionUseCase{
		Predictor:   p,
		HistoryRepo: h,
		S3Repo:      s3,
		AuditRepo:   audit,
		Publisher:   pub,
		Logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Submit validates raw, predicts and appends one entry to the session's
// history. A *ValidationError means nothing was appended.
func (u *PredictionUseCase) Submit(ctx context.Context, sessionID string, raw entity.RawReading) (*entity.HistoryEntry, error) {
	reading, err := Validate(raw)
	if err != nil {
		return nil, err
	}

	prediction, err := u.Predictor.Predict(ctx, reading)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	entry := entity.NewHistoryEntry(u.newID(), reading, prediction, u.now().UTC())
	if err := u.HistoryRepo.Append(ctx, sessionID, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	u.Logger.Info("prediction served",
		zap.String("session_id", sessionID),
		zap.String("entry_id", entry.ID),
		zap.Float64s("features", reading.Vector()),
		zap.String("failure", entry.Failure))

	u.notify(ctx, sessionID, entry)

	return &entry, nil
}

// notify feeds the optional sinks. Their failures never fail a submission.
func (u *PredictionUseCase) notify(ctx context.Context, sessionID string, entry entity.HistoryEntry) {
	if u.AuditRepo != nil {
		if err := u.AuditRepo.CreatePrediction(ctx, entity.NewPredictionRecord(sessionID, entry)); err != nil {
			u.Logger.Warn("audit write failed", zap.String("entry_id", entry.ID), zap.Error(err))
		}
	}

	if u.Publisher != nil {
		err := u.publishWithRetry(ctx, entity.PredictionCreatedMessage{
			EntryID:     entry.ID,
			SessionID:   sessionID,
			Reading:     entry.Reading,
			Failure:     entry.Prediction.IsFailure(),
			SubmittedAt: entry.SubmittedAt,
		})
		if err != nil {
			u.Logger.Warn("publish prediction failed", zap.String("entry_id", entry.ID), zap.Error(err))
		}
	}
}

// History returns the session's entries most recent first.
func (u *PredictionUseCase) History(ctx context.Context, sessionID string) ([]entity.HistoryEntry, error) {
	entries, err := u.HistoryRepo.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Recent(entries), nil
}

func (u *PredictionUseCase) Clear(ctx context.Context, sessionID string) error {
	if err := u.HistoryRepo.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	u.Logger.Info("history cleared", zap.String("session_id", sessionID))
	return nil
}

// Export renders the session's history as CSV in submission order.
func (u *PredictionUseCase) Export(ctx context.Context, sessionID string) ([]byte, error) {
	entries, err := u.HistoryRepo.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := utils.WriteHistoryCSV(&buf, entries); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportURL uploads the CSV export and returns a presigned download link.
func (u *PredictionUseCase) ExportURL(ctx context.Context, sessionID string) (string, error) {
	if u.S3Repo == nil {
		return "", ErrExportDisabled
	}

	data, err := u.Export(ctx, sessionID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/%s/%s.csv", sessionID, u.now().UTC().Format("20060102T150405Z"))
	if err := u.S3Repo.Upload(ctx, key, "text/csv", data); err != nil {
		return "", err
	}
	return u.S3Repo.GetPresignedURL(ctx, key, 24*time.Hour)
}

// Recent returns a reversed copy of entries.
func Recent(entries []entity.HistoryEntry) []entity.HistoryEntry {
	out := make([]entity.HistoryEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

func (u *PredictionUseCase) publishWithRetry(ctx context.Context, msg entity.PredictionCreatedMessage) error {
	var (
		baseDelay   = 100 * time.Millisecond
		maxDelay    = time.Second
		maxAttempts = 3
	)

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := u.Publisher.Publish(ctx, msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		backoff := baseDelay << (attempt - 1)
		if backoff > maxDelay {
			backoff = maxDelay
		}

		select {
		case <-time.After(backoff):

		case <-ctx.Done():
			return errors.New("publish canceled by context")
		}
	}

	return lastErr
}
