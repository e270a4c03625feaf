package filter

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSelector       = errors.New("unknown filter selector")
	ErrUnknownParameter      = errors.New("unknown metadata parameter")
	ErrWrongConditionType    = errors.New("wrong condition type")
	ErrUnknownOperator       = errors.New("unknown operator")
	ErrStreamIndexOutOfRange = errors.New("stream index out of range")
	ErrUnknownStreamType     = errors.New("unknown stream type")
	ErrConditionPair         = errors.New("condition pair processing failed")
)

// PairError reports a comparison that could not be carried out, either
// because the probed value could not be converted to the expected type or
// because the operator does not apply to that type.
type PairError struct {
	Left     any
	Operator Operator
	Right    any
	Err      error
}

func (e *PairError) Error() string {
	msg := fmt.Sprintf("%s: %v (%T) %s %v (%T)", ErrConditionPair, e.Left, e.Left, e.Operator, e.Right, e.Right)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PairError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConditionPair}
	}
	return []error{ErrConditionPair, e.Err}
}
