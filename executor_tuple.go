package tvmsym

import (
	"github.com/sirupsen/logrus"
)

func (e *Executor) executeTupleInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpNull:
		state.push(NullValue{})
		return nil

	case OpIsNull, OpIsTuple:
		kind := KindNull
		if instr.Op == OpIsTuple {
			kind = KindTuple
		}
		v := state.pop()
		if r, ok := state.resolved(v); ok {
			state.pushInt(boolToInt(NewBoolConstantExpr(r.Kind() == kind)))
			return nil
		}

		// An input of unknown kind is either of the tested kind or an integer.
		if e.blacklisted(state) {
			if _, err := state.resolve(v, KindInt); err != nil {
				return err
			}
			state.pushInt(boolToInt(NewBoolConstantExpr(false)))
			return nil
		}
		state.forkCounts[state.last]++
		t, f := state.Fork(nil), state.Fork(nil)
		e.log(state).WithFields(logrus.Fields{"true": t.id, "false": f.id}).Debug("fork")
		if _, err := t.resolve(v, kind); err != nil {
			return err
		}
		t.pushInt(boolToInt(NewBoolConstantExpr(true)))
		if _, err := f.resolve(v, KindInt); err != nil {
			return err
		}
		f.pushInt(boolToInt(NewBoolConstantExpr(false)))
		return nil

	case OpTuple:
		n := instr.I
		if n < 0 || n > MaxTupleSize {
			return notSupported(instr)
		}
		elems := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = state.pop()
		}
		if err := state.consume(int64(n)); err != nil {
			return err
		}
		state.push(TupleValue{Addr: state.alloc(&Tuple{Elems: elems})})
		return nil

	case OpIndex:
		t, err := state.popTuple()
		if err != nil {
			return err
		}
		k := instr.I
		state, err = e.check(state, NewBinaryExpr(ULT, NewSizeConstantExpr(k), state.Tuple(t).Len()), ExitIntegerOutOfRange)
		if err != nil || state == nil {
			return err
		}
		state.push(state.tupleElem(t, k))
		return nil

	case OpUntuple:
		t, err := state.popTuple()
		if err != nil {
			return err
		}
		n := instr.I
		state, err = e.check(state, NewBinaryExpr(EQ, state.Tuple(t).Len(), NewSizeConstantExpr(n)), ExitWrongType)
		if err != nil || state == nil {
			return err
		}
		for i := 0; i < n; i++ {
			state.push(state.tupleElem(t, i))
		}
		return state.consume(int64(n))

	case OpTLen:
		t, err := state.popTuple()
		if err != nil {
			return err
		}
		state.pushInt(sizeToInt(state.Tuple(t).Len()))
		return nil

	case OpNullSwapIf, OpNullSwapIfNot, OpNullSwapIf2, OpNullSwapIfNot2:
		return e.insertNulls(state, instr, 0)
	case OpNullRotrIf, OpNullRotrIfNot, OpNullRotrIf2, OpNullRotrIfNot2:
		return e.insertNulls(state, instr, 1)

	default:
		return notSupported(instr)
	}
}

// tupleElem returns element i of the tuple at addr. Elements of input tuples
// are placeholders resolved on first use.
func (s *ExecutionState) tupleElem(addr uint64, i int) Value {
	t := s.Tuple(addr)
	if t.Input {
		return InputValue{Tuple: addr, Index: i}
	}
	return t.Elems[i]
}

// insertNulls implements the NULLSWAPIF & NULLROTRIF families. The integer on
// top of the stack decides whether nulls are inserted below the top value and
// the skip values under it.
func (e *Executor) insertNulls(state *ExecutionState, instr Instr, skip int) error {
	x, err := state.popInt()
	if err != nil {
		return err
	}
	below := make([]Value, skip)
	for i := skip - 1; i >= 0; i-- {
		below[i] = state.pop()
	}

	nulls := 1
	switch instr.Op {
	case OpNullSwapIf2, OpNullSwapIfNot2, OpNullRotrIf2, OpNullRotrIfNot2:
		nulls = 2
	}

	t, f, err := e.fork(state, isTrue(x))
	if err != nil {
		return err
	}
	switch instr.Op {
	case OpNullSwapIfNot, OpNullSwapIfNot2, OpNullRotrIfNot, OpNullRotrIfNot2:
		t, f = f, t
	}

	for _, s := range []*ExecutionState{t, f} {
		if s == nil {
			continue
		}
		if s == t {
			for i := 0; i < nulls; i++ {
				s.push(NullValue{})
			}
		}
		for _, v := range below {
			s.push(v)
		}
		s.pushInt(x)
	}
	return nil
}
