package cesil

import "bytes"

// Parser converts a column's raw text into a typed value. Columns are
// declared explicitly by the caller (no reflection/attribute scanning lives
// here) but its shape is what the row constructor composes against directly.
type Parser[T any] func(ctx *ReadContext, raw string) (T, error)

// Setter applies a parsed value onto a row. When the row cannot exist yet
// (Column.Bind is called with a nil row), the parsed value is staged in a
// Hold slot instead and the Setter runs once the row has been built.
type Setter[R, T any] func(ctx *ReadContext, row *R, value T) error

// Reset runs before Setter for a column, letting a row type clear
// previous state (useful when a Reader is reused across records via
// TryReadWithReuse).
type Reset[R any] func(ctx *ReadContext, row *R) error

// Getter reads a typed value off a row for writing.
type Getter[R, T any] func(ctx *WriteContext, row *R) (T, error)

// Formatter renders a typed value's text into dst.
type Formatter[T any] func(ctx *WriteContext, value T, dst *bytes.Buffer) error

// ShouldSerialize decides whether a column is emitted at all for a given
// row.
type ShouldSerialize[R any] func(ctx *WriteContext, row *R) (bool, error)

// ColumnReader is the type-erased interface the Row Constructor drives: one
// per declared column, regardless of the column's Go value type T.
type ColumnReader[R any] interface {
	Name() string
	Index() int
	Required() bool
	// Bind parses raw and applies it to row directly (the Simple
	// constructor path) or, when row is nil, to hold at holdSlot (the
	// NeedsHold path).
	Bind(ctx *ReadContext, row *R, hold *Hold, holdSlot int, raw string, escaped bool) error
}

// ColumnWriter is the type-erased interface the Writer Pipeline drives.
type ColumnWriter[R any] interface {
	Name() string
	Index() int
	Write(ctx *WriteContext, row *R, dst *bytes.Buffer) (skip bool, err error)
}

// ColumnOption configures optional behavior on a Column at construction
// time, mirroring the functional-options shape
// other_examples/burungbangkai-go-csv-serde__options.go uses for dialect
// configuration, here applied one level down to a single column.
type ColumnOption[R, T any] func(*Column[R, T])

// WithReset attaches a Reset hook, run immediately before Setter.
func WithReset[R, T any](r Reset[R]) ColumnOption[R, T] {
	return func(c *Column[R, T]) { c.reset = r }
}

// WithRequired marks the column as required: a record that never supplies
// it is rejected with a RequiredColumnError.
func WithRequired[R, T any](required bool) ColumnOption[R, T] {
	return func(c *Column[R, T]) { c.required = required }
}

// Column is the generic, concrete ColumnReader/ColumnWriter implementation
// most callers build with NewColumn.
type Column[R, T any] struct {
	name     string
	index    int
	required bool

	parser Parser[T]
	setter Setter[R, T]
	reset  Reset[R]

	getter          Getter[R, T]
	formatter       Formatter[T]
	shouldSerialize ShouldSerialize[R]
}

// NewColumn builds a read-capable column descriptor.
func NewColumn[R, T any](name string, index int, parser Parser[T], setter Setter[R, T], opts ...ColumnOption[R, T]) *Column[R, T] {
	c := &Column[R, T]{name: name, index: index, parser: parser, setter: setter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWriteColumn builds a write-capable column descriptor.
func NewWriteColumn[R, T any](name string, index int, getter Getter[R, T], formatter Formatter[T], opts ...ColumnOption[R, T]) *Column[R, T] {
	c := &Column[R, T]{name: name, index: index, getter: getter, formatter: formatter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithShouldSerialize attaches a ShouldSerialize hook to a write column.
func WithShouldSerialize[R, T any](s ShouldSerialize[R]) ColumnOption[R, T] {
	return func(c *Column[R, T]) { c.shouldSerialize = s }
}

func (c *Column[R, T]) Name() string  { return c.name }
func (c *Column[R, T]) Index() int    { return c.index }
func (c *Column[R, T]) Required() bool { return c.required }

// Bind implements ColumnReader. When row is non-nil (the Simple
// constructor path) the parsed value is applied directly; when row is nil
// (the NeedsHold path, before the constructor has run) it is staged into
// hold at holdSlot instead, regardless of whether this column is itself a
// constructor parameter — simple setters are staged too so they can be
// replayed once the row exists.
func (c *Column[R, T]) Bind(ctx *ReadContext, row *R, hold *Hold, holdSlot int, raw string, escaped bool) error {
	ctx.Column = c.name
	ctx.Mode = ConvertingColumn
	value, err := c.parser(ctx, raw)
	if err != nil {
		return &ParseFailedError{Row: ctx.RowNumber, Column: c.name, Text: raw, Err: err}
	}

	if row == nil {
		hold.set(holdSlot, value)
		return nil
	}

	ctx.Mode = ConvertingRow
	if c.reset != nil {
		if err := c.reset(ctx, row); err != nil {
			return &SetterFailedError{Row: ctx.RowNumber, Column: c.name, Err: wrapCause(err, "reset")}
		}
	}
	if err := c.setter(ctx, row, value); err != nil {
		return &SetterFailedError{Row: ctx.RowNumber, Column: c.name, Err: wrapCause(err, "set")}
	}
	return nil
}

// replayFromHold applies this column's already-parsed value, staged in
// hold at holdSlot, onto row now that the row exists. Used only by the
// NeedsHold constructor after invoking the instance provider.
func (c *Column[R, T]) replayFromHold(ctx *ReadContext, row *R, hold *Hold, holdSlot int) error {
	ctx.Column = c.name
	v, ok := hold.get(holdSlot)
	if !ok {
		return nil
	}
	value, _ := v.(T)
	if c.reset != nil {
		if err := c.reset(ctx, row); err != nil {
			return &SetterFailedError{Row: ctx.RowNumber, Column: c.name, Err: wrapCause(err, "reset")}
		}
	}
	if err := c.setter(ctx, row, value); err != nil {
		return &SetterFailedError{Row: ctx.RowNumber, Column: c.name, Err: wrapCause(err, "set")}
	}
	return nil
}

// Write implements ColumnWriter.
func (c *Column[R, T]) Write(ctx *WriteContext, row *R, dst *bytes.Buffer) (bool, error) {
	ctx.Column = c.name
	if c.shouldSerialize != nil {
		ok, err := c.shouldSerialize(ctx, row)
		if err != nil {
			return false, &SetterFailedError{Row: ctx.RowNumber, Column: c.name, Err: wrapCause(err, "should-serialize")}
		}
		if !ok {
			return true, nil
		}
	}
	ctx.Mode = DiscoveringCells
	value, err := c.getter(ctx, row)
	if err != nil {
		return false, &SetterFailedError{Row: ctx.RowNumber, Column: c.name, Err: wrapCause(err, "get")}
	}
	ctx.Mode = WritingColumn
	if err := c.formatter(ctx, value, dst); err != nil {
		return false, &SetterFailedError{Row: ctx.RowNumber, Column: c.name, Err: wrapCause(err, "format")}
	}
	return false, nil
}
