package host

import "errors"

var (
	ErrRequiredFunctionNotExported = errors.New("required function not exported")
	ErrABIVersionMarkerNotExported = errors.New("required ABI version marker not exported")
	// ErrEvaluation reports a guest that trapped or exited with a non-zero
	// status while running its entry point.
	ErrEvaluation = errors.New("guest evaluation failed")
)
