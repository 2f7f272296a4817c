package entity

import (
	"time"
)

// PredictionRecord is the audit row written for every served prediction.
// It is never read back into a session history.
type PredictionRecord struct {
	ID            string    `gorm:"primaryKey;type:uuid"`
	SessionID     string    `gorm:"not null;type:uuid;index"`
	AirTemp       float64   `gorm:"not null"`
	ProcessTemp   float64   `gorm:"not null"`
	RotationSpeed float64   `gorm:"not null"`
	Torque        float64   `gorm:"not null"`
	ToolWear      float64   `gorm:"not null"`
	Failure       bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (PredictionRecord) TableName() string { return "prediction_records" }

func NewPredictionRecord(sessionID string, e HistoryEntry) *PredictionRecord {
	return &PredictionRecord{
		ID:            e.ID,
		SessionID:     sessionID,
		AirTemp:       e.Reading.AirTemp,
		ProcessTemp:   e.Reading.ProcessTemp,
		RotationSpeed: e.Reading.RotationSpeed,
		Torque:        e.Reading.Torque,
		ToolWear:      e.Reading.ToolWear,
		Failure:       e.Prediction.IsFailure(),
		CreatedAt:     e.SubmittedAt,
	}
}

// PredictionRecordFromMessage builds the audit row for a published event.
func PredictionRecordFromMessage(m PredictionCreatedMessage) *PredictionRecord {
	return &PredictionRecord{
		ID:            m.EntryID,
		SessionID:     m.SessionID,
		AirTemp:       m.Reading.AirTemp,
		ProcessTemp:   m.Reading.ProcessTemp,
		RotationSpeed: m.Reading.RotationSpeed,
		Torque:        m.Reading.Torque,
		ToolWear:      m.Reading.ToolWear,
		Failure:       m.Failure,
		CreatedAt:     m.SubmittedAt,
	}
}
