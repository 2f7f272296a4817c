package usecase

import (
	"math"
	"strconv"
	"strings"

	"lrt-predictor/internal/domain/entity"
)

const (
	MsgRequired   = "required"
	MsgNotANumber = "must be a number"
)

type FieldError struct {
	Field   string `json:"field"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Label + ": " + e.Message
}

// ValidationError carries every rejected field of one submission, in
// feature order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "invalid reading: " + strings.Join(parts, "; ")
}

// ByField returns field key -> message.
func (e *ValidationError) ByField() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Message
	}
	return m
}

// Validate parses the five raw values. Either all fields parse and a Reading
// is returned, or a *ValidationError lists every bad field.
func Validate(raw entity.RawReading) (entity.Reading, error) {
	var (
		values [entity.NumFeatures]float64
		errs   []FieldError
	)

	for i, s := range raw.Values() {
		f := entity.Features[i]
		v, msg := parseField(s)
		if msg != "" {
			errs = append(errs, FieldError{Field: f.Key, Label: f.Label, Message: msg})
			continue
		}
		values[i] = v
	}

	if len(errs) > 0 {
		return entity.Reading{}, &ValidationError{Fields: errs}
	}
	return entity.ReadingFromVector(values), nil
}

func parseField(s string) (float64, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, MsgRequired
	}
	s, ok := decimalText(s)
	if !ok {
		return 0, MsgNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, MsgNotANumber
	}
	return v, ""
}

// decimalText accepts decimal notation only, with single underscores allowed
// between digits ("1_000"). Hex floats are rejected. The underscores are
// stripped from the result.
func decimalText(s string) (string, bool) {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return "", false
	}
	if !strings.Contains(s, "_") {
		return s, true
	}

	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return strings.ReplaceAll(s, "_", ""), true
}
