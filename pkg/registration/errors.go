package registration

import (
	"errors"

	"simpleelastix/pkg/dispatch"
)

// Errors returned by a Session. They are wrapped with context, so match
// them with errors.Is.
var (
	// ErrMissingInput means no fixed or no moving image is set.
	ErrMissingInput = errors.New("missing input image")

	// ErrDimensionMismatch means an image or mask does not have the
	// reference dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidMaskType means a mask is not of the mask pixel type.
	ErrInvalidMaskType = errors.New("invalid mask pixel type")

	// ErrUnsupportedCombination means no execution path exists for the
	// pixel type and dimension of the fixed image.
	ErrUnsupportedCombination = dispatch.ErrUnsupportedCombination

	// ErrIndexOutOfRange means an indexed accessor was given an index not
	// below the collection size.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEmptyInput means an empty image or empty collection was given
	// where at least one element is required.
	ErrEmptyInput = errors.New("empty input")

	// ErrNotYetComputed means a result was read before the run producing
	// it completed.
	ErrNotYetComputed = errors.New("not yet computed")

	// ErrRegistrationFailure wraps an error raised by the engine.
	ErrRegistrationFailure = errors.New("registration failed")

	// ErrIndexRequired means a parameter was read without an index while
	// more than one parameter map is present.
	ErrIndexRequired = errors.New("parameter map index required")
)
