package domain

import (
	"errors"
)

var (
	// ErrDatasetInvalid signals a dataset file that cannot be read or parsed.
	ErrDatasetInvalid = errors.New("invalid dataset")
	// ErrDuplicateID signals two Q&A records sharing one identifier.
	ErrDuplicateID = errors.New("duplicate question id")
	// ErrInvalidRequest signals a malformed query request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrCountMismatch signals a collection that accepted fewer documents than were upserted.
	ErrCountMismatch = errors.New("collection count mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// Kind classifies a failure for the caller of an entry point.
type Kind int

// Failure kinds, ordered as they are reported to callers.
const (
	KindUnknown Kind = iota
	KindInput
	KindUnavailable
	KindMutation
	KindQuery
	KindValidation
)

// String returns the name emitted in the "type" field of error objects.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "InputError"
	case KindUnavailable:
		return "CollaboratorUnavailableError"
	case KindMutation:
		return "MutationError"
	case KindQuery:
		return "QueryError"
	case KindValidation:
		return "ValidationError"
	default:
		return "InternalError"
	}
}

// KindError attaches a Kind to an underlying cause.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string { return e.Err.Error() }

func (e *KindError) Unwrap() error { return e.Err }

// WithKind tags err with kind. A nil err stays nil.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// KindOf returns the outermost Kind attached to err, or KindUnknown.
func KindOf(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindUnknown
}

// ErrorResponse is the serialized error object every entry point emits.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// NewErrorResponse converts err into its wire form.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Type: KindOf(err).String()}
}
