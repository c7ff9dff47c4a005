package graph

import "errors"

// Sentinel errors for the fact graph. Callers match with errors.Is; the
// proof verifier downgrades all of these to a failed step rather than
// letting them escape.
var (
	// ErrUnknownObject means a name could not be resolved to a node.
	ErrUnknownObject = errors.New("unknown object")

	// ErrUnsupportedPredicate means the predicate kind is not in this
	// graph's predicate table.
	ErrUnsupportedPredicate = errors.New("unsupported predicate")

	// ErrMalformedFact means the argument count or shape is invalid for
	// the predicate kind.
	ErrMalformedFact = errors.New("malformed fact")
)
