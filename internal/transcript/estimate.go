package transcript

// Estimator approximates the token count of a piece of text. Counts are used
// for pruning and compression decisions, which are threshold comparisons,
// an estimate within a few percent is sufficient.
type Estimator interface {
	Count(text string) int
}

// HeuristicEstimator approximates tokens as len/4, the usual rule of thumb
// for English text and code.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Count(text string) int {
	return len(text) / 4
}
