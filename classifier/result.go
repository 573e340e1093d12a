package classifier

import (
	"fmt"
)

// Summarize turns a probability vector into a Result. Confidence is the top
// probability as a percentage; every label gets its own percentage.
func Summarize(probs []float32, labels []string) (*Result, error) {
	if len(probs) != len(labels) || len(labels) == 0 {
		return nil, fmt.Errorf("%w: %d outputs for %d labels", ErrLabelMismatch, len(probs), len(labels))
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	scores := make(map[string]float64, len(labels))
	for i, label := range labels {
		scores[label] = percent(probs[i])
	}

	disease := labels[best]
	return &Result{
		Disease:       disease,
		Confidence:    percent(probs[best]),
		Probabilities: scores,
		Tips:          Tip(disease),
	}, nil
}
