package models

import (
	"fmt"
	"strings"
)

// UnknownModelError reports a requested tag that is not in the registry.
type UnknownModelError struct {
	Tag string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model tag %q", e.Tag)
}

// DefaultModelMisconfiguredError reports a configured default tag that is
// absent from the registry. Distinct from UnknownModelError: the caller asked
// for nothing, the operator's default is broken.
type DefaultModelMisconfiguredError struct {
	Tag string
}

func (e *DefaultModelMisconfiguredError) Error() string {
	return fmt.Sprintf("default model tag %q is not loaded", e.Tag)
}

// FeatureValidationError aggregates every offending feature name of one
// request, so a caller can fix the request in a single round trip.
type FeatureValidationError struct {
	Missing []string // declared names absent from the request
	Invalid []string // declared names present with a non-numeric value
}

func (e *FeatureValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing features: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "non-numeric features: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// InferenceError wraps a failure inside the artifact invocation, or a
// non-finite output.
type InferenceError struct {
	Tag string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for model %q: %v", e.Tag, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
