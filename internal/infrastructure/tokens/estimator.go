package tokens

import (
	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens with a tiktoken encoding. It backs the budget
// accounting when the model provider does not report usage.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// NewEstimator loads the named encoding. When the encoding cannot be
// loaded the estimator degrades to a bytes/4 approximation.
func NewEstimator(encoding string) *Estimator {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e.enc == nil {
		approx := len(text) / 4
		if approx == 0 {
			approx = 1
		}
		return approx
	}
	return len(e.enc.Encode(text, nil, nil))
}
