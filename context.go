package cesil

import (
	"context"
	"errors"
	"sync/atomic"
)

// ReadMode is the phase a ReadContext reports while a record is in flight.
type ReadMode int

const (
	ReadingColumn ReadMode = iota
	ConvertingColumn
	ConvertingRow
)

// ReadContext is handed to every Parser, Setter, and Reset call so user
// code can report errors with row/column context without threading it
// through every function signature by hand.
type ReadContext struct {
	Mode      ReadMode
	RowNumber int
	Column    string
	// Caller is an arbitrary value the Reader was constructed with via
	// WithCallerContext, threaded through untouched.
	Caller any
}

// WriteMode is the phase a WriteContext reports while a record is being
// emitted.
type WriteMode int

const (
	DiscoveringColumns WriteMode = iota
	DiscoveringCells
	WritingColumn
)

// WriteContext is handed to every Getter, Formatter, and ShouldSerialize
// call.
type WriteContext struct {
	Mode      WriteMode
	RowNumber int
	Column    string
	Caller    any
}

// poisonState is the one-way tagged state shared by Reader and Writer:
// ok -> {poisoned, cancelled}; only reset (used by Reader.Reset and
// Writer.Reset) returns it to ok.
type poisonState struct {
	flag  atomic.Int32
	cause atomic.Value // causeBox
}

// causeBox gives every value stored in poisonState.cause the same concrete
// type, as atomic.Value requires, whatever the type of the error inside.
type causeBox struct{ err error }

const (
	poisonOK = iota
	poisonFailed
	poisonCancelled
)

// check returns a PoisonedError or CancelledError if the state has already
// poisoned, and nil otherwise.
func (p *poisonState) check() error {
	switch p.flag.Load() {
	case poisonFailed:
		return &PoisonedError{Cause: p.causeErr()}
	case poisonCancelled:
		if c := p.causeErr(); c != nil {
			return &CancelledError{Err: c}
		}
		return &CancelledError{}
	default:
		return nil
	}
}

// reset returns the state to poisonOK in place, for Reader.Reset/Writer.Reset
// reuse. It must not be replaced with a fresh poisonState{} composite literal
// assignment: poisonState embeds sync/atomic values, and assigning over them
// copies their internal no-copy guards.
func (p *poisonState) reset() {
	p.flag.Store(poisonOK)
	p.cause.Store(causeBox{})
}

func (p *poisonState) causeErr() error {
	v := p.cause.Load()
	if v == nil {
		return nil
	}
	return v.(causeBox).err
}

// poison transitions to poisonFailed (or poisonCancelled, if err is a
// context cancellation) the first time it is called; subsequent calls are
// no-ops, making poisoning sticky.
func (p *poisonState) poison(err error) {
	if p.flag.Load() != poisonOK {
		return
	}
	kind := int32(poisonFailed)
	if isCancellation(err) {
		kind = poisonCancelled
	}
	if p.flag.CompareAndSwap(poisonOK, kind) {
		p.cause.Store(causeBox{errOrNil(err)})
	}
}

func errOrNil(err error) error {
	if err == nil {
		return errNoCause
	}
	return err
}

var errNoCause = &PoisonedError{}

func isCancellation(err error) bool {
	if err == nil {
		return false
	}
	var ce *CancelledError
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
