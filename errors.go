package cesil

import (
	"fmt"

	"github.com/pkg/errors"
)

// SyntaxKind distinguishes the grammar-level failures the state machine can
// raise while advancing over a character stream.
type SyntaxKind int

const (
	// UnexpectedCharInEscape is raised when a character other than the
	// escape-start, separator, or a row-ending byte follows an
	// escape-escape inside an escaped value.
	UnexpectedCharInEscape SyntaxKind = iota
	// UnexpectedEnd is raised when the input ends while a value is still
	// inside an open escape sequence.
	UnexpectedEnd
	// ExpectedEndOfRecordOrValue is raised when a byte appears where a
	// delimiter or row terminator was required.
	ExpectedEndOfRecordOrValue
)

func (k SyntaxKind) String() string {
	switch k {
	case UnexpectedCharInEscape:
		return "unexpected character in escape sequence"
	case UnexpectedEnd:
		return "unexpected end of input"
	case ExpectedEndOfRecordOrValue:
		return "expected end of record or value"
	default:
		return "unknown syntax error"
	}
}

// ConfigError reports that an [Options] value could not be built.
//
// It is raised synchronously from [Builder.Build]; no partially built
// [Options] is ever returned alongside it.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cesil: invalid configuration for %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SyntaxError reports a grammar-level failure from the state machine. Kind
// names the failure; the reader does not fill in Row or Column, so both
// are always zero.
type SyntaxError struct {
	Kind   SyntaxKind
	Row    int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("cesil: %s at row %d, column %d", e.Kind, e.Row, e.Column)
}

// ParseFailedError reports that a column's [Parser] returned an error for
// a given record. The row is not produced and the reader that raised it is
// poisoned.
type ParseFailedError struct {
	Row    int
	Column string
	Text   string
	Err    error
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("cesil: parse failed for column %q at row %d (input %q): %v", e.Column, e.Row, e.Text, e.Err)
}

func (e *ParseFailedError) Unwrap() error { return e.Err }

// SetterFailedError reports that a column's [Setter] (or [Reset]) returned
// an error while assigning a parsed value onto a row. The writer reports a
// failing [Getter], [Formatter] or ShouldSerialize with it too.
type SetterFailedError struct {
	Row    int
	Column string
	Err    error
}

func (e *SetterFailedError) Error() string {
	return fmt.Sprintf("cesil: setter failed for column %q at row %d: %v", e.Column, e.Row, e.Err)
}

func (e *SetterFailedError) Unwrap() error { return e.Err }

// RequiredColumnError reports that a column marked required never received
// a value during a record.
type RequiredColumnError struct {
	Row    int
	Column string
}

func (e *RequiredColumnError) Error() string {
	return fmt.Sprintf("cesil: required column %q missing a value at row %d", e.Column, e.Row)
}

// UnencodableValueError reports that a column's formatted text requires
// escaping to round-trip safely, but the dialect has no escape character
// configured.
type UnencodableValueError struct {
	Row    int
	Column string
	Text   string
}

func (e *UnencodableValueError) Error() string {
	return fmt.Sprintf("cesil: column %q at row %d produced %q, which requires escaping but no escape character is configured", e.Column, e.Row, e.Text)
}

// PoolError is fatal: a buffer grew beyond the pool's configured maximum
// size.
type PoolError struct {
	Requested int
	Max       int
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("cesil: buffer growth to %d exceeds pool maximum %d", e.Requested, e.Max)
}

// CancelledError reports that a context was cancelled mid-operation. The
// reader or writer that raised it is poisoned.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("cesil: cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// PoisonedError is returned by the read and write methods of a [Reader] or
// [Writer] after a prior operation has failed; after a cancellation they
// return [CancelledError] instead.
type PoisonedError struct {
	// Cause is the error that originally poisoned the reader or writer.
	Cause error
}

func (e *PoisonedError) Error() string {
	return fmt.Sprintf("cesil: previous error: %v", e.Cause)
}

func (e *PoisonedError) Unwrap() error { return e.Cause }

var (
	errNeedsHoldNoReuse    = errors.New("cesil: TryReadWithReuse requires ConstructSimple mode")
	errDisposeWhilePinned  = errors.New("cesil: Dispose called while a record scan is still pinned")
	errNoCommentConfigured = errors.New("cesil: WriteComment requires a comment character to be configured")
)

// wrapCause attaches msg as context around err using github.com/pkg/errors,
// preserving err's identity for errors.Is/errors.As while producing a
// message that names the operation that failed.
func wrapCause(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
