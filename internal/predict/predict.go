// Package predict defines the spend-prediction contract the API exposes.
//
// The predictor is a black box to the ledger core: it never reads the event
// log and the log never depends on its output. Real deployments plug in an
// external model; Static provides an in-process implementation for
// development and tests.
package predict

import (
	"context"
	"time"
)

// Label classifies an estimate against the predicted actual spend.
type Label string

const (
	// LabelGood means the estimate leaves a safety buffer over the
	// predicted spend.
	LabelGood Label = "good"

	// LabelModerate means the estimate is close to the predicted spend.
	LabelModerate Label = "moderate"

	// LabelBad means the estimate falls short of the predicted spend.
	LabelBad Label = "bad"
)

// Request carries one spend estimate to classify. Amounts are minor units.
type Request struct {
	Date      time.Time `json:"date"`
	Category  string    `json:"category"`
	Estimated int64     `json:"estimated"`
}

// Result is the predictor's verdict on a request.
type Result struct {
	PredictedAmount int64   `json:"predicted_amount"`
	Label           Label   `json:"label"`
	Confidence      float64 `json:"confidence"`
}

// Predictor classifies spend estimates.
type Predictor interface {
	Predict(ctx context.Context, req Request) (Result, error)
}

// Static predicts from a fixed per-category table, labeling estimates by
// how they compare with the table amount within a tolerance band.
//
// Thread-safety: Static is read-only after construction and safe for
// concurrent use.
type Static struct {
	amounts   map[string]int64
	fallback  int64
	tolerance int64
}

// NewStatic builds a static predictor. amounts maps category -> predicted
// minor units; categories not in the table predict fallback. tolerance is
// the half-width of the "moderate" band around the prediction.
func NewStatic(amounts map[string]int64, fallback, tolerance int64) *Static {
	copied := make(map[string]int64, len(amounts))
	for k, v := range amounts {
		copied[k] = v
	}
	return &Static{amounts: copied, fallback: fallback, tolerance: tolerance}
}

// Predict classifies the estimate against the table amount:
// above the band is good (buffer), inside is moderate, below is bad.
func (s *Static) Predict(_ context.Context, req Request) (Result, error) {
	predicted, ok := s.amounts[req.Category]
	if !ok {
		predicted = s.fallback
	}

	diff := req.Estimated - predicted
	var label Label
	switch {
	case diff > s.tolerance:
		label = LabelGood
	case diff < -s.tolerance:
		label = LabelBad
	default:
		label = LabelModerate
	}

	return Result{
		PredictedAmount: predicted,
		Label:           label,
		Confidence:      0.5,
	}, nil
}
