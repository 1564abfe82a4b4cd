package util

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by where it came from
type Kind string

// Error kinds
const (
	DataAccess     Kind = "data-access"
	Authentication Kind = "authentication"
	Configuration  Kind = "configuration"
	ExternalTool   Kind = "external-tool"
)

// KindError attaches a Kind to an underlying error
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// NewError returns a KindError with a formatted message
func NewError(kind Kind, format string, args ...interface{}) error {
	return &KindError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapError tags err with kind. A nil err stays nil.
func WrapError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// IsKind reports whether any error in err's chain has the given kind
func IsKind(err error, kind Kind) bool {
	var ke *KindError
	if errors.As(err, &ke) {
		if ke.Kind == kind {
			return true
		}
		return IsKind(ke.Err, kind)
	}
	var he HTTPErr
	if errors.As(err, &he) {
		return kind == DataAccess
	}
	return false
}

// HTTPErr is an error with an HTTP status that should be passed on to the client
type HTTPErr struct {
	Status  int
	Message string
}

func (err HTTPErr) Error() string {
	return fmt.Sprintf("%d: %s", err.Status, err.Message)
}
