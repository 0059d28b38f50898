package notifications

import (
	"fmt"
	"math/rand/v2"
)

// Sample vocabulary names available to generated and previewed templates.
const (
	VarAccuracy          = "accuracy"
	VarRecords           = "records"
	VarDuration          = "duration"
	VarCPUUsage          = "cpu_usage"
	VarConfidence        = "confidence"
	VarImprovement       = "improvement"
	VarFileSize          = "file_size"
	VarRecordCount       = "record_count"
	VarModelVersion      = "model_version"
	VarPredictorVersion  = "predictor_version"
	VarProductionVersion = "production_version"
	VarAnomalyConfidence = "anomaly_confidence"
	VarNeuralNetVersion  = "neural_net_version"
)

// Variable documents one vocabulary entry for operators editing templates.
type Variable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// VariableHelp lists the vocabulary in display order.
var VariableHelp = []Variable{
	{VarAccuracy, "Model accuracy (85.0-95.0)"},
	{VarRecords, "Number of records (1000-11000)"},
	{VarDuration, "Processing time in minutes (5-65)"},
	{VarCPUUsage, "CPU usage percentage (70-90)"},
	{VarConfidence, "Prediction confidence (0.70-1.00)"},
	{VarImprovement, "Accuracy improvement (0.5-2.5)"},
	{VarFileSize, "File size in MB (10-60)"},
	{VarRecordCount, "Dataset record count (10000-110000)"},
	{VarModelVersion, "Model version (1-10)"},
	{VarPredictorVersion, "Predictor version (1-3)"},
	{VarProductionVersion, "Production model version (1-3)"},
	{VarAnomalyConfidence, "Anomaly confidence (0.80-1.00)"},
	{VarNeuralNetVersion, "Neural network version (1-5)"},
}

// SampleValues draws one fresh substitution set from rng. Decimal values are
// pre-formatted strings so their precision survives rendering.
func SampleValues(rng *rand.Rand) map[string]any {
	return map[string]any{
		VarAccuracy:          fmt.Sprintf("%.1f", 85+rng.Float64()*10),
		VarRecords:           between(rng, 1000, 11000),
		VarDuration:          between(rng, 5, 65),
		VarCPUUsage:          between(rng, 70, 90),
		VarConfidence:        fmt.Sprintf("%.2f", 0.7+rng.Float64()*0.3),
		VarImprovement:       fmt.Sprintf("%.1f", 0.5+rng.Float64()*2),
		VarFileSize:          between(rng, 10, 60),
		VarRecordCount:       between(rng, 10000, 110000),
		VarModelVersion:      between(rng, 1, 10),
		VarPredictorVersion:  between(rng, 1, 3),
		VarProductionVersion: between(rng, 1, 3),
		VarAnomalyConfidence: fmt.Sprintf("%.2f", 0.8+rng.Float64()*0.2),
		VarNeuralNetVersion:  between(rng, 1, 5),
	}
}

// PreviewValues returns the fixed substitution set used for template previews.
func PreviewValues() map[string]any {
	return map[string]any{
		VarAccuracy:          "94.2",
		VarRecords:           "5000",
		VarDuration:          "30",
		VarCPUUsage:          "75",
		VarConfidence:        "0.87",
		VarImprovement:       "1.5",
		VarFileSize:          "25",
		VarRecordCount:       "50000",
		VarModelVersion:      "3",
		VarPredictorVersion:  "2",
		VarProductionVersion: "1",
		VarAnomalyConfidence: "0.92",
		VarNeuralNetVersion:  "4",
	}
}

// between returns an integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}
