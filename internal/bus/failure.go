package bus

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// FailureCode identifies why a bus request failed. The numeric values are
// part of the reply contract; do not reorder.
type FailureCode int

const (
	// CodeNoActionSpecified means the request carried no action tag.
	CodeNoActionSpecified FailureCode = iota
	// CodeBadAction means the action tag was not recognised by the consumer.
	CodeBadAction
	// CodeDBError means the request was dispatched but the store operation failed.
	CodeDBError
)

func (c FailureCode) String() string {
	switch c {
	case CodeNoActionSpecified:
		return "no-action-specified"
	case CodeBadAction:
		return "bad-action"
	case CodeDBError:
		return "db-error"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Failure is the only error type delivered across the bus boundary. It
// carries a code from the closed set plus a human-readable message, never
// wrapped internals.
type Failure struct {
	Code    FailureCode
	Message string
}

// NewFailure builds a Failure with the provided code and message.
func NewFailure(code FailureCode, message string) *Failure {
	return &Failure{Code: code, Message: message}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// AsFailure extracts a *Failure from an error chain when one is present.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if eris.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
