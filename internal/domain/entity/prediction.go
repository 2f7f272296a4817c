package entity

import (
	"fmt"
	"time"
)

type Prediction int

const (
	NoFailure Prediction = 0
	Failure   Prediction = 1
)

// PredictionFromClass maps a classifier class code to a Prediction.
// Only 0 and 1 are part of the model contract.
func PredictionFromClass(class int) (Prediction, error) {
	switch class {
	case 0:
		return NoFailure, nil
	case 1:
		return Failure, nil
	default:
		return NoFailure, fmt.Errorf("classifier returned class %d outside {0,1}", class)
	}
}

// Label is the export value of the Failure column.
func (p Prediction) Label() string {
	if p == Failure {
		return "Yes"
	}
	return "No"
}

func (p Prediction) Message() string {
	if p == Failure {
		return "FAILURE DETECTED"
	}
	return "NO FAILURE"
}

func (p Prediction) IsFailure() bool {
	return p == Failure
}

func (p Prediction) String() string {
	return p.Label()
}

type HistoryEntry struct {
	ID          string     `json:"id"`
	Reading     Reading    `json:"reading"`
	Prediction  Prediction `json:"prediction"`
	Failure     string     `json:"failure"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

func NewHistoryEntry(id string, reading Reading, prediction Prediction, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:          id,
		Reading:     reading,
		Prediction:  prediction,
		Failure:     prediction.Label(),
		SubmittedAt: at,
	}
}

// PredictionCreatedMessage is published once per successful prediction.
type PredictionCreatedMessage struct {
	EntryID     string    `json:"entry_id"`
	SessionID   string    `json:"session_id"`
	Reading     Reading   `json:"reading"`
	Failure     bool      `json:"failure"`
	SubmittedAt time.Time `json:"submitted_at"`
}
