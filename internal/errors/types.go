package errors

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"
)

// ProcessingError is a typed failure raised while turning one document into
// features, labels or markup. "Nothing to process" is never reported through
// this type; builders return an empty result for it instead.
type ProcessingError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Document    string    `json:"document,omitempty"`
	Line        int       `json:"line,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	Cause       error     `json:"-"`
}

// ErrorType represents the categories of processing errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeInvalidInput
	ErrorTypeNoBlocks
	ErrorTypeMissingWorkDir
	ErrorTypeDesync
	ErrorTypeMalformedResult
	ErrorTypeTaggerFailure
	ErrorTypeResourceNotFound
)

// Error implements the error interface
func (e *ProcessingError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Document != "" {
		msg += " (" + e.Document + ")"
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeInvalidInput:
		return "INVALID_INPUT"
	case ErrorTypeNoBlocks:
		return "NO_BLOCKS"
	case ErrorTypeMissingWorkDir:
		return "MISSING_WORK_DIR"
	case ErrorTypeDesync:
		return "DESYNC"
	case ErrorTypeMalformedResult:
		return "MALFORMED_RESULT"
	case ErrorTypeTaggerFailure:
		return "TAGGER_FAILURE"
	case ErrorTypeResourceNotFound:
		return "RESOURCE_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether processing of the same document may go on
// after an error of this type.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeDesync:
		return true // re-anchored, the item is dropped
	case ErrorTypeTaggerFailure:
		return true // retried
	default:
		return false
	}
}

// New creates a ProcessingError of the given type
func New(errorType ErrorType, message string) *ProcessingError {
	return &ProcessingError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// Newf creates a ProcessingError with a formatted message
func Newf(errorType ErrorType, format string, args ...any) *ProcessingError {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap wraps err as a ProcessingError, keeping it as the cause
func Wrap(errorType ErrorType, err error) *ProcessingError {
	e := New(errorType, err.Error())
	e.Cause = err
	return e
}

// WithContext adds context to an existing error
func (e *ProcessingError) WithContext(context string) *ProcessingError {
	e.Context = context
	return e
}

// WithDocument records the document the error belongs to
func (e *ProcessingError) WithDocument(id string) *ProcessingError {
	e.Document = id
	return e
}

// WithLine records the input line where the error was detected
func (e *ProcessingError) WithLine(line int) *ProcessingError {
	e.Line = line
	return e
}

// As extracts a ProcessingError from an error chain
func As(err error) (*ProcessingError, bool) {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsType reports whether err is a ProcessingError of the given type
func IsType(err error, errorType ErrorType) bool {
	pe, ok := As(err)
	return ok && pe.Type == errorType
}

// IsFatal reports whether err aborts the current document
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	pe, ok := As(err)
	if !ok {
		return true
	}
	return !pe.Recoverable
}

// Collection gathers per-document errors of a batch run. It is safe for
// concurrent use.
type Collection struct {
	mu     sync.Mutex
	errors []*ProcessingError
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{}
}

// Add records err for the given document. Plain errors are wrapped as
// ErrorTypeUnknown.
func (c *Collection) Add(document string, err error) {
	if err == nil {
		return
	}
	pe, ok := As(err)
	if !ok {
		pe = Wrap(ErrorTypeUnknown, err)
	}
	if pe.Document == "" {
		pe.Document = document
	}
	c.mu.Lock()
	c.errors = append(c.errors, pe)
	c.mu.Unlock()
}

// Errors returns a copy of the collected errors
func (c *Collection) Errors() []*ProcessingError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ProcessingError, len(c.errors))
	copy(out, c.errors)
	return out
}

// Len returns the number of collected errors
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Summary returns a text summary of the collection
func (c *Collection) Summary() string {
	errs := c.Errors()
	if len(errs) == 0 {
		return "No errors"
	}
	recoverable := 0
	for _, e := range errs {
		if e.Recoverable {
			recoverable++
		}
	}
	return fmt.Sprintf("Found %d error(s), %d recoverable", len(errs), recoverable)
}
