package cesil

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestPoisonStateCheckStartsClean(t *testing.T) {
	var ps poisonState
	assert.NilError(t, ps.check())
}

func TestPoisonStatePoisonSticksToFirstError(t *testing.T) {
	var ps poisonState
	first := errors.New("boom")
	second := errors.New("later")

	ps.poison(first)
	ps.poison(second)

	err := ps.check()
	assert.Check(t, cmp.ErrorType(err, &PoisonedError{}))
	var pe *PoisonedError
	assert.Check(t, errors.As(err, &pe))
	assert.Equal(t, pe.Cause.Error(), "boom")
}

func TestPoisonStateClassifiesContextCancellation(t *testing.T) {
	var ps poisonState
	ps.poison(context.Canceled)

	err := ps.check()
	assert.Check(t, cmp.ErrorType(err, &CancelledError{}))
}

func TestPoisonStateClassifiesDeadlineExceeded(t *testing.T) {
	var ps poisonState
	ps.poison(context.DeadlineExceeded)

	err := ps.check()
	assert.Check(t, cmp.ErrorType(err, &CancelledError{}))
}

func TestPoisonStatePoisonNilErrorStillPoisons(t *testing.T) {
	var ps poisonState
	ps.poison(nil)

	err := ps.check()
	assert.Check(t, cmp.ErrorType(err, &PoisonedError{}))
}

func TestIsCancellationRecognizesWrappedCancelledError(t *testing.T) {
	assert.Check(t, isCancellation(&CancelledError{Err: context.Canceled}))
	assert.Check(t, !isCancellation(errors.New("unrelated")))
	assert.Check(t, !isCancellation(nil))
}
