package tvmsym

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Standard widths.
const (
	WidthBool = 1
	WidthSize = 32   // cell lengths, cursors & ref counters
	WidthInt  = 257  // TVM integers
	WidthData = 1023 // cell data
)

// Cell limits imposed by the virtual machine.
const (
	MaxDataBits  = 1023
	MaxRefs      = 4
	MaxTupleSize = 255
	MaxGlobals   = 32
)

// MainMethodID is the id of the method that dispatches on incoming messages.
const MainMethodID = math.MaxInt32

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
)

var (
	// ErrNotSupported is returned when an instruction has no modeled semantics.
	ErrNotSupported = errors.New("not supported")

	// ErrUnknownMethod is returned when a method id is not in the contract.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrInvalidContract is returned for malformed contract code.
	ErrInvalidContract = errors.New("invalid contract")
)

// SolverError wraps a solver failure that occurred while forking a state.
type SolverError struct {
	Err error
}

// Error returns the error message.
func (e *SolverError) Error() string {
	return fmt.Sprintf("solver: %s", e.Err)
}

// Cause returns the underlying solver error.
func (e *SolverError) Cause() error { return e.Err }

// Unwrap returns the underlying solver error.
func (e *SolverError) Unwrap() error { return e.Err }

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
