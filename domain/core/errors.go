package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrExperimentNotFound = fmt.Errorf("%w: experiment", ErrNotFound)
	ErrStudyNotFound      = fmt.Errorf("%w: study", ErrNotFound)

	// Shape and construction errors, detected eagerly at training-set
	// construction and learner initialization
	ErrShapeMismatch  = errors.New("challenge/response shape mismatch")
	ErrChainCount     = errors.New("invalid chain count")
	ErrStageCount     = errors.New("invalid stage count")
	ErrEmptyChallenge = errors.New("empty challenge set")

	// Learner errors
	ErrDegenerateReliability = errors.New("reliability vector has zero variance")
	ErrNonConvergence        = errors.New("search budget exhausted without convergence")

	// Strategy selection errors
	ErrUnknownTransform = errors.New("unknown transform")
	ErrUnknownCombiner  = errors.New("unknown combiner")
)

// Error constructors with context
func NewShapeError(want, got int, what string) error {
	return fmt.Errorf("%w: %s: want %d, got %d", ErrShapeMismatch, what, want, got)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsShapeError(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}
