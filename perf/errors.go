package perf

import "errors"

// Aggregation stage.
var (
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrMissingColumn  = errors.New("missing column")
	ErrEmptyInput     = errors.New("empty input")
	ErrType           = errors.New("type error")
)

// ErrInvalidFraction is returned by the splitter for a train fraction outside (0,1).
var ErrInvalidFraction = errors.New("train fraction must lie in (0,1)")

// ErrInvalidTrainingData is returned by trainers for empty, ragged, non-finite
// or rank-deficient feature sets. It is never downgraded to a degenerate model.
var ErrInvalidTrainingData = errors.New("invalid training data")

// ErrGenerationContract means the tree-code generator returned output whose
// shape does not match what the emitter expects. Fatal; never retried.
var ErrGenerationContract = errors.New("generation contract violation")
