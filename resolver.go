package tvmsym

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnsatisfiable is returned when a state has no model.
var ErrUnsatisfiable = errors.New("unsatisfiable path constraints")

// Resolver converts the symbolic values of a terminated state into concrete
// test values using one model of its path constraints.
type Resolver struct {
	state *ExecutionState
	eval  *ExprEvaluator

	// Resolved cells by heap address. Shared references resolve to the same
	// test cell.
	cells map[uint64]*TestDataCell
}

// NewResolver solves the path constraints of state and returns a resolver
// for the resulting model.
func NewResolver(solver Solver, state *ExecutionState) (*Resolver, error) {
	vars := FindVars(state.constraints...)
	ok, values, err := solver.Solve(state.constraints, vars)
	if err != nil {
		return nil, errors.Wrapf(err, "state %d", state.id)
	} else if !ok {
		return nil, errors.Wrapf(ErrUnsatisfiable, "state %d", state.id)
	} else if len(values) != len(vars) {
		return nil, errors.Errorf("state %d: solver returned %d values for %d vars", state.id, len(values), len(vars))
	}

	return &Resolver{
		state: state,
		eval:  NewExprEvaluator(vars, values),
		cells: make(map[uint64]*TestDataCell),
	}, nil
}

// Record returns the test record of the state.
func (r *Resolver) Record() (*TestRecord, error) {
	s := r.state
	if s.status != ExecutionStatusSucceeded && s.status != ExecutionStatusFailed {
		return nil, errors.Errorf("state %d: no test for %s state", s.id, s.status)
	}

	inputs, err := r.Inputs()
	if err != nil {
		return nil, err
	}
	outputs, err := r.Outputs()
	if err != nil {
		return nil, err
	}

	rec := &TestRecord{
		ID:       uuid.New(),
		MethodID: s.method,
		Status:   s.status,
		Inputs:   inputs,
		Outputs:  outputs,
		GasUsed:  s.gasUsed,
	}
	if f, ok := s.result.(*Failure); ok {
		rec.ExitCode, rec.Rule, rec.Loc = f.ExitCode, f.Rule, f.Loc
	}
	return rec, nil
}

// Inputs returns the initial stack of the method, bottom first. Inputs never
// accessed on the path resolve to zero.
func (r *Resolver) Inputs() ([]TestValue, error) {
	var a []TestValue
	for _, in := range r.state.Inputs() {
		v, err := r.resolveEntry(in, NewTestInt(0))
		if err != nil {
			return nil, err
		}
		a = append(a, v)
	}
	for _, arg := range r.state.args {
		v, err := r.Resolve(arg)
		if err != nil {
			return nil, err
		}
		a = append(a, v)
	}
	return a, nil
}

// Outputs returns the final stack, bottom first. The exit code pushed by a
// failure is not included.
func (r *Resolver) Outputs() ([]TestValue, error) {
	values := r.state.stack.Values()
	if _, ok := r.state.result.(*Failure); ok && len(values) > 0 {
		values = values[:len(values)-1]
	}

	a := make([]TestValue, 0, len(values))
	for _, v := range values {
		tv, err := r.resolveEntry(v, NewTestInt(0))
		if err != nil {
			return nil, err
		}
		a = append(a, tv)
	}
	return a, nil
}

// resolveEntry resolves v, using def for input placeholders never accessed.
func (r *Resolver) resolveEntry(v Value, def TestValue) (TestValue, error) {
	other, ok := r.state.resolved(v)
	if !ok {
		return def, nil
	}
	return r.Resolve(other)
}

// Resolve returns the concrete value of v in the model.
func (r *Resolver) Resolve(v Value) (TestValue, error) {
	switch v := v.(type) {
	case IntValue:
		c, err := r.eval.Evaluate(v.Expr)
		if err != nil {
			return nil, err
		}
		return TestInt{Value: c.Int()}, nil
	case CellValue:
		return r.resolveCell(v.Addr)
	case SliceValue:
		return r.resolveSlice(v.Addr)
	case BuilderValue:
		return r.resolveBuilder(v.Addr)
	case TupleValue:
		return r.resolveTuple(v.Addr)
	case *Continuation:
		return TestContinuation{Block: v.Block}, nil
	case NullValue:
		return TestNull{}, nil
	case InputValue:
		return r.resolveEntry(v, TestNull{})
	default:
		return nil, errors.Errorf("cannot resolve value: %T", v)
	}
}

// size evaluates a size expression as a non-negative int clamped to max.
func (r *Resolver) size(expr Expr, max int) (int, error) {
	c, err := r.eval.Evaluate(expr)
	if err != nil {
		return 0, err
	}
	if !c.Value.IsUint64() || c.Value.Uint64() > uint64(max) {
		return max, nil
	}
	return int(c.Value.Uint64()), nil
}

// bits returns the n low bits of data as a bit string.
func (r *Resolver) bits(data Expr, n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	c, err := r.eval.Evaluate(data)
	if err != nil {
		return "", err
	}
	v := new(big.Int).And(c.Value, bitmask(uint(n)))
	return fmt.Sprintf("%0*b", n, v), nil
}

// resolveCellData returns the data bits & references of cell content.
func (r *Resolver) resolveCellData(d CellData) (string, []*TestDataCell, error) {
	n, err := r.size(d.DataLen, MaxDataBits)
	if err != nil {
		return "", nil, err
	}
	data, err := r.bits(d.Data, n)
	if err != nil {
		return "", nil, err
	}

	refsLen, err := r.size(d.RefsLen, MaxRefs)
	if err != nil {
		return "", nil, err
	}
	refs := make([]*TestDataCell, refsLen)
	for i := range refs {
		// References of input cells that were never loaded are empty.
		if d.Refs[i] == 0 {
			refs[i] = &TestDataCell{}
			continue
		}
		if refs[i], err = r.resolveCell(d.Refs[i]); err != nil {
			return "", nil, err
		}
	}
	return data, refs, nil
}

func (r *Resolver) resolveCell(addr uint64) (*TestDataCell, error) {
	if c := r.cells[addr]; c != nil {
		return c, nil
	}

	cell := r.state.Cell(addr)
	c := &TestDataCell{}
	r.cells[addr] = c

	var err error
	if c.Data, c.Refs, err = r.resolveCellData(cell.CellData); err != nil {
		return nil, err
	}

	for _, load := range cell.Loads {
		offset, err := r.size(load.Offset, MaxDataBits)
		if err != nil {
			return nil, err
		}
		c.KnownTypes = append(c.KnownTypes, TestTypeLoad{Kind: load.Kind, Bits: load.Bits, Offset: offset})
	}
	return c, nil
}

func (r *Resolver) resolveSlice(addr uint64) (*TestSlice, error) {
	sl := r.state.Slice(addr)
	cell, err := r.resolveCell(sl.Cell)
	if err != nil {
		return nil, err
	}
	dataPos, err := r.size(sl.DataPos, MaxDataBits)
	if err != nil {
		return nil, err
	}
	refPos, err := r.size(sl.RefPos, MaxRefs)
	if err != nil {
		return nil, err
	}
	return &TestSlice{Cell: cell, DataPos: dataPos, RefPos: refPos}, nil
}

func (r *Resolver) resolveBuilder(addr uint64) (*TestBuilder, error) {
	data, refs, err := r.resolveCellData(r.state.Builder(addr).CellData)
	if err != nil {
		return nil, err
	}
	return &TestBuilder{Data: data, Refs: refs}, nil
}

func (r *Resolver) resolveTuple(addr uint64) (*TestTuple, error) {
	t := r.state.Tuple(addr)
	n := len(t.Elems)
	if t.Input {
		var err error
		if n, err = r.size(t.Size, MaxTupleSize); err != nil {
			return nil, err
		}
	}

	// Elements never accessed on the path resolve to null.
	elems := make([]TestValue, n)
	for i := range elems {
		v, err := r.resolveEntry(r.state.tupleElem(addr, i), TestNull{})
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &TestTuple{Elems: elems}, nil
}
