package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lrt-predictor/internal/domain/entity"
)

func TestAuditRecord(t *testing.T) {
	audit := &recordingAudit{}
	u := NewAuditUseCase(audit, zap.NewNop())

	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	err := u.Record(context.Background(), entity.PredictionCreatedMessage{
		EntryID:     "entry-1",
		SessionID:   sessionA,
		Reading:     entity.Reading{AirTemp: 300, ProcessTemp: 310, RotationSpeed: 1500, Torque: 70, ToolWear: 200},
		Failure:     true,
		SubmittedAt: at,
	})
	require.NoError(t, err)

	require.Len(t, audit.records, 1)
	rec := audit.records[0]
	assert.Equal(t, "entry-1", rec.ID)
	assert.Equal(t, sessionA, rec.SessionID)
	assert.Equal(t, 70.0, rec.Torque)
	assert.True(t, rec.Failure)
	assert.Equal(t, at, rec.CreatedAt)
}

func TestAuditRecordRejectsIncompleteEvent(t *testing.T) {
	audit := &recordingAudit{}
	u := NewAuditUseCase(audit, zap.NewNop())

	err := u.Record(context.Background(), entity.PredictionCreatedMessage{SessionID: sessionA})
	assert.ErrorIs(t, err, ErrBadEvent)
	assert.Empty(t, audit.records)
}

func TestAuditRecordRepoError(t *testing.T) {
	u := NewAuditUseCase(&recordingAudit{err: errors.New("db down")}, zap.NewNop())

	err := u.Record(context.Background(), entity.PredictionCreatedMessage{EntryID: "e", SessionID: sessionA})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadEvent)
}
