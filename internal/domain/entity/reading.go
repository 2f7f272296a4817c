package entity

// Field keys in feature order. The classifier was fitted on this order.
const (
	FieldAirTemp       = "air_temp"
	FieldProcessTemp   = "process_temp"
	FieldRotationSpeed = "rotation_speed"
	FieldTorque        = "torque"
	FieldToolWear      = "tool_wear"
)

const NumFeatures = 5

type Feature struct {
	Key   string
	Label string
}

// Features lists the model inputs in feature order.
var Features = [NumFeatures]Feature{
	{Key: FieldAirTemp, Label: "Air temperature [K]"},
	{Key: FieldProcessTemp, Label: "Process temperature [K]"},
	{Key: FieldRotationSpeed, Label: "Rotational speed [rpm]"},
	{Key: FieldTorque, Label: "Torque [Nm]"},
	{Key: FieldToolWear, Label: "Tool wear [min]"},
}

// RawReading is the form input before validation.
type RawReading struct {
	AirTemp       string `json:"air_temp" form:"air_temp"`
	ProcessTemp   string `json:"process_temp" form:"process_temp"`
	RotationSpeed string `json:"rotation_speed" form:"rotation_speed"`
	Torque        string `json:"torque" form:"torque"`
	ToolWear      string `json:"tool_wear" form:"tool_wear"`
}

// Values returns the raw strings in feature order.
func (r RawReading) Values() [NumFeatures]string {
	return [NumFeatures]string{r.AirTemp, r.ProcessTemp, r.RotationSpeed, r.Torque, r.ToolWear}
}

type Reading struct {
	AirTemp       float64 `json:"air_temp"`
	ProcessTemp   float64 `json:"process_temp"`
	RotationSpeed float64 `json:"rotation_speed"`
	Torque        float64 `json:"torque"`
	ToolWear      float64 `json:"tool_wear"`
}

// Vector returns the reading as a feature vector in model order.
func (r Reading) Vector() []float64 {
	return []float64{r.AirTemp, r.ProcessTemp, r.RotationSpeed, r.Torque, r.ToolWear}
}

func ReadingFromVector(v [NumFeatures]float64) Reading {
	return Reading{
		AirTemp:       v[0],
		ProcessTemp:   v[1],
		RotationSpeed: v[2],
		Torque:        v[3],
		ToolWear:      v[4],
	}
}
