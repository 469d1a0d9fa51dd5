package tvmsym

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"github.com/benbjohnson/immutable"
	"github.com/pkg/errors"
)

// stateIDSeq is an autoincrementing state ID shared by all executors.
var stateIDSeq int64

func nextStateID() int {
	return int(atomic.AddInt64(&stateIDSeq, 1))
}

// ExecutionState representing a path under exploration.
type ExecutionState struct {
	id int

	// Execution hierarchy.
	parent   *ExecutionState
	children []*ExecutionState

	// Shows whether state is running, finished, or terminated by error state.
	status ExecutionStatus
	reason string
	result MethodResult

	method int      // entry method id
	loc    Location // next instruction
	last   Location // most recently executed instruction
	cont   *Continuation
	c4     uint64 // persistent data cell, zero until first access

	stack   Stack
	calls   *immutable.List // callFrame
	globals [MaxGlobals]Value

	// Heap memory address space.
	heap *immutable.SortedMap

	// Materialized input placeholders.
	inputs *immutable.SortedMap

	// Constraints collected so far during execution.
	constraints []Expr

	gasUsed  int64
	gasLimit int64
	gasMax   int64

	// Number of two-way forks per instruction along this path.
	forkCounts map[Location]int

	nextVarID uint64
	args      []Value
}

func newExecutionState(method, block int, args []Value) *ExecutionState {
	s := &ExecutionState{
		id:         nextStateID(),
		status:     ExecutionStatusRunning,
		method:     method,
		loc:        Location{Block: block},
		last:       Location{Block: block},
		cont:       &Continuation{Block: block},
		stack:      NewStack(args...),
		calls:      immutable.NewList(),
		heap:       immutable.NewSortedMap(&uint64Comparer{}),
		inputs:     immutable.NewSortedMap(&inputValueComparer{}),
		forkCounts: make(map[Location]int),
		args:       args,
	}
	s.calls = s.calls.Append(callFrame{Block: block})
	return s
}

// ID returns an autoincrementing ID assigned on creation.
func (s *ExecutionState) ID() int { return s.id }

// Parent returns the state this state was forked from.
func (s *ExecutionState) Parent() *ExecutionState { return s.parent }

// Children returns the states forked from this state.
func (s *ExecutionState) Children() []*ExecutionState { return s.children }

// MethodID returns the id of the method under execution.
func (s *ExecutionState) MethodID() int { return s.method }

// Location returns the location of the next instruction to execute.
func (s *ExecutionState) Location() Location { return s.loc }

// LastLocation returns the location of the most recently executed instruction.
// For failed states this is the failing instruction.
func (s *ExecutionState) LastLocation() Location { return s.last }

// Continuation returns the current continuation.
func (s *ExecutionState) Continuation() *Continuation { return s.cont }

// Stack returns the current operand stack.
func (s *ExecutionState) Stack() Stack { return s.stack }

// Constraints returns the path constraints.
func (s *ExecutionState) Constraints() []Expr {
	return s.constraints
}

// GasUsed returns the total gas consumed on this path.
func (s *ExecutionState) GasUsed() int64 { return s.gasUsed }

// GasLimit returns the current gas limit.
func (s *ExecutionState) GasLimit() int64 { return s.gasLimit }

// Result returns the method result or nil if the state has not terminated.
func (s *ExecutionState) Result() MethodResult { return s.result }

// Clone returns a copy of the state. However, this does not clone child states.
func (s *ExecutionState) Clone() *ExecutionState {
	constraints := make([]Expr, len(s.constraints))
	copy(constraints, s.constraints)

	forkCounts := make(map[Location]int, len(s.forkCounts))
	for k, v := range s.forkCounts {
		forkCounts[k] = v
	}

	other := *s
	other.id = nextStateID()
	other.children = nil
	other.constraints = constraints
	other.forkCounts = forkCounts
	return &other
}

// Fork returns a child copy of the given state with the additional constraint.
func (s *ExecutionState) Fork(constraint Expr) *ExecutionState {
	child := s.Clone()
	child.parent = s
	if constraint != nil {
		child.AddConstraint(constraint)
	}
	s.children = append(s.children, child)
	return child
}

// Forked returns true if state has a child state.
func (s *ExecutionState) Forked() bool {
	return len(s.children) > 0
}

// Leaves returns the states without children in the subtree rooted at s.
func (s *ExecutionState) Leaves() []*ExecutionState {
	if len(s.children) == 0 {
		return []*ExecutionState{s}
	}
	var a []*ExecutionState
	for _, child := range s.children {
		a = append(a, child.Leaves()...)
	}
	return a
}

// Status returns the current status of the state.
// See Reason() for additional information if status is in an error state.
func (s *ExecutionState) Status() ExecutionStatus {
	return s.status
}

// Reason returns additional information about the status of the state.
func (s *ExecutionState) Reason() string {
	return s.reason
}

// Terminated returns true if the state completes execution of a path.
func (s *ExecutionState) Terminated() bool {
	return s.status != ExecutionStatusRunning
}

// AddConstraint adds a constraint to the state. Panic if expr is a constant false.
func (s *ExecutionState) AddConstraint(expr Expr) {
	if expr, ok := expr.(*ConstantExpr); ok {
		assert(expr.IsTrue(), "invalid false constraint")
		return
	}
	s.constraints = AddConstraint(s.constraints, expr)
}

// AddConstraint adds expr to constraints and returns the new constraint list.
// If expr is a binary AND expression then its LHS & RHS are split into
// independent constraints.
func AddConstraint(a []Expr, expr Expr) []Expr {
	if expr, ok := expr.(*BinaryExpr); ok && expr.Op == AND && ExprWidth(expr) == WidthBool {
		a = AddConstraint(a, expr.LHS)
		a = AddConstraint(a, expr.RHS)
		return a
	}
	return append(a, expr)
}

// newVar returns a fresh symbolic variable.
func (s *ExecutionState) newVar(name string, width uint) *VarExpr {
	s.nextVarID++
	return NewVarExpr(s.nextVarID, name, width)
}

func (s *ExecutionState) succeed(result Success) {
	s.status = ExecutionStatusSucceeded
	s.result = result
}

// fail terminates the state with a contract-level failure. The exit code is
// pushed on top of the stack.
func (s *ExecutionState) fail(f *Failure) {
	f.Loc = s.last
	s.status = ExecutionStatusFailed
	s.reason = f.Error()
	s.result = f
	s.stack = s.stack.Push(NewIntValue(int64(f.ExitCode)))
}

// abort terminates the state without a result.
func (s *ExecutionState) abort(reason string) {
	s.status = ExecutionStatusAborted
	s.reason = reason
}

// failure returns an error that terminates s with the given exit code.
func (s *ExecutionState) failure(code ExitCode) error {
	return &failureError{state: s, failure: NewFailure(code)}
}

// push adds v to the top of the stack.
func (s *ExecutionState) push(v Value) {
	s.stack = s.stack.Push(v)
}

// pushInt adds an integer expression to the top of the stack.
func (s *ExecutionState) pushInt(expr Expr) {
	assert(ExprWidth(expr) == WidthInt, "invalid int width: %d", ExprWidth(expr))
	s.push(IntValue{Expr: expr})
}

// pop removes the top of the stack without resolving input placeholders.
func (s *ExecutionState) pop() Value {
	var v Value
	s.stack, v = s.stack.Pop()
	return v
}

// resolve returns the value an input placeholder stands for, materializing it
// as kind on first access. Other values are returned as is.
func (s *ExecutionState) resolve(v Value, kind ValueKind) (Value, error) {
	in, ok := v.(InputValue)
	if !ok {
		return v, nil
	}
	if other, ok := s.inputs.Get(in); ok {
		return other.(Value), nil
	}

	name := in.String()
	switch kind {
	case KindInt:
		v = IntValue{Expr: s.newVar(name, WidthInt)}
	case KindCell:
		v = CellValue{Addr: s.allocInputCell(name)}
	case KindSlice:
		v = SliceValue{Addr: s.allocInputSlice(name)}
	case KindBuilder:
		v = BuilderValue{Addr: s.allocInputBuilder(name)}
	case KindTuple:
		v = TupleValue{Addr: s.allocInputTuple(name)}
	case KindNull:
		v = NullValue{}
	default:
		return nil, errors.Wrapf(ErrNotSupported, "input of kind %s", kind)
	}
	s.inputs = s.inputs.Set(in, v)
	return v, nil
}

// resolved returns the materialized value of an input placeholder, if any.
func (s *ExecutionState) resolved(v Value) (Value, bool) {
	in, ok := v.(InputValue)
	if !ok {
		return v, true
	}
	if other, ok := s.inputs.Get(in); ok {
		return other.(Value), true
	}
	return nil, false
}

// take pops the top of the stack as a value of the given kind. A value of
// another kind terminates the state with a type-check failure.
func (s *ExecutionState) take(kind ValueKind) (Value, error) {
	v, err := s.resolve(s.pop(), kind)
	if err != nil {
		return nil, err
	} else if v.Kind() != kind {
		return nil, s.failure(ExitWrongType)
	}
	return v, nil
}

// popInt pops an integer expression from the stack.
func (s *ExecutionState) popInt() (Expr, error) {
	v, err := s.take(KindInt)
	if err != nil {
		return nil, err
	}
	return v.(IntValue).Expr, nil
}

// popCell pops the address of a cell from the stack.
func (s *ExecutionState) popCell() (uint64, error) {
	v, err := s.take(KindCell)
	if err != nil {
		return 0, err
	}
	return v.(CellValue).Addr, nil
}

// popSlice pops the address of a slice from the stack.
func (s *ExecutionState) popSlice() (uint64, error) {
	v, err := s.take(KindSlice)
	if err != nil {
		return 0, err
	}
	return v.(SliceValue).Addr, nil
}

// popBuilder pops the address of a builder from the stack.
func (s *ExecutionState) popBuilder() (uint64, error) {
	v, err := s.take(KindBuilder)
	if err != nil {
		return 0, err
	}
	return v.(BuilderValue).Addr, nil
}

// popTuple pops the address of a tuple from the stack.
func (s *ExecutionState) popTuple() (uint64, error) {
	v, err := s.take(KindTuple)
	if err != nil {
		return 0, err
	}
	return v.(TupleValue).Addr, nil
}

// popCont pops a continuation from the stack.
func (s *ExecutionState) popCont() (*Continuation, error) {
	v, err := s.take(KindCont)
	if err != nil {
		return nil, err
	}
	return v.(*Continuation), nil
}

// Inputs returns the input placeholders of the initial stack, deepest first.
func (s *ExecutionState) Inputs() []InputValue {
	a := make([]InputValue, s.stack.Inputs())
	for i := range a {
		a[i] = InputValue{Index: len(a) - 1 - i}
	}
	return a
}

// Dump returns the contents of the state as a string.
func (s *ExecutionState) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "EXECUTION STATE")
	fmt.Fprintln(&buf, "===============")
	fmt.Fprintf(&buf, "id=%d method=%d loc=%s\n", s.id, s.method, s.loc)
	fmt.Fprintf(&buf, "status=%s\n", s.status)
	fmt.Fprintf(&buf, "reason=%s\n", s.reason)
	fmt.Fprintf(&buf, "gas=%d/%d\n", s.gasUsed, s.gasLimit)
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== STACK")
	fmt.Fprintln(&buf, s.stack.String())
	fmt.Fprintf(&buf, "calls=%v\n", s.CallStack())
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== INPUTS")
	itr := s.inputs.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		fmt.Fprintf(&buf, "%s = %s\n", k.(InputValue), v.(Value))
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== HEAP")
	fmt.Fprintln(&buf, s.dumpHeap())

	fmt.Fprintln(&buf, "== CONSTRAINTS")
	for i, expr := range s.constraints {
		fmt.Fprintf(&buf, "%d. %s\n", i, expr.String())
	}
	return buf.String()
}

// ExecutionStatus represents the current status of the execution state.
// The state will also include a reason if the status is not running.
type ExecutionStatus string

const (
	ExecutionStatusRunning     = ExecutionStatus("running")     // has future states
	ExecutionStatusSucceeded   = ExecutionStatus("succeeded")   // returned from entry method
	ExecutionStatusFailed      = ExecutionStatus("failed")      // contract-level failure
	ExecutionStatusUnreachable = ExecutionStatus("unreachable") // path constraints unsatisfiable
	ExecutionStatusAborted     = ExecutionStatus("aborted")     // solver could not decide
)

// MethodResult is the outcome of a terminated state: Success or *Failure.
type MethodResult interface {
	methodResult()
}

func (Success) methodResult()  {}
func (*Failure) methodResult() {}

// Success is the result of returning from the entry method.
type Success struct {
	Block int
	Stack Stack
}

// ExitCode is a failure code reported by the virtual machine.
type ExitCode int

// Exit codes of built-in failures.
const (
	ExitIntegerOverflow   = ExitCode(4)
	ExitIntegerOutOfRange = ExitCode(5)
	ExitWrongType         = ExitCode(7)
	ExitCellOverflow      = ExitCode(8)
	ExitCellUnderflow     = ExitCode(9)
	ExitOutOfGas          = ExitCode(13)
)

// Rule returns the name of the failure class for the exit code.
func (c ExitCode) Rule() string {
	switch c {
	case ExitIntegerOverflow:
		return "integer-overflow"
	case ExitIntegerOutOfRange:
		return "integer-out-of-range"
	case ExitWrongType:
		return "wrong-type"
	case ExitCellOverflow:
		return "cell-overflow"
	case ExitCellUnderflow:
		return "cell-underflow"
	case ExitOutOfGas:
		return "out-of-gas"
	default:
		return "user-defined-error"
	}
}

// Failure is a contract-level failure.
type Failure struct {
	ExitCode ExitCode
	Rule     string
	Loc      Location

	// Set for out-of-gas failures only.
	GasUsed  int64
	GasLimit int64
}

// NewFailure returns a failure for a built-in exit code.
func NewFailure(code ExitCode) *Failure {
	return &Failure{ExitCode: code, Rule: code.Rule()}
}

// NewUserFailure returns a failure raised explicitly by the contract.
func NewUserFailure(code int) *Failure {
	return &Failure{ExitCode: ExitCode(code), Rule: "user-defined-error"}
}

// Error returns the failure description.
func (f *Failure) Error() string {
	if f.ExitCode == ExitOutOfGas {
		return fmt.Sprintf("%s (%d): used=%d limit=%d", f.Rule, f.ExitCode, f.GasUsed, f.GasLimit)
	}
	return fmt.Sprintf("%s (%d)", f.Rule, f.ExitCode)
}

// failureError carries a failure out of a handler to the state it terminates.
type failureError struct {
	state   *ExecutionState
	failure *Failure
}

func (e *failureError) Error() string {
	return fmt.Sprintf("state %d: %s", e.state.id, e.failure.Error())
}
