package tvmsym

import (
	"math/big"

	"github.com/pkg/errors"
)

// Bounds of the 257-bit signed integer range.
var (
	intMinValue = new(big.Int).Neg(pow2(WidthInt - 1))
	intMaxValue = new(big.Int).Sub(pow2(WidthInt-1), big.NewInt(1))
)

// Widths used for overflow checks.
const (
	widthAdd   = WidthInt + 1
	widthMul   = 2 * WidthInt
	widthShift = WidthInt + MaxDataBits + 1
)

// maxShift is the largest shift accepted by LSHIFTX & RSHIFTX.
const maxShift = 1023

func newInt(v int64) *ConstantExpr { return NewIntConstantExpr(v, WidthInt) }

// boolToInt returns -1 if cond holds and 0 otherwise.
func boolToInt(cond Expr) Expr {
	return NewIteExpr(cond, newInt(-1), newInt(0))
}

// isTrue returns a predicate that the integer x is non-zero.
func isTrue(x Expr) Expr {
	return NewBinaryExpr(NE, x, newInt(0))
}

// inIntRange returns a predicate that x, of any width, lies in the 257-bit
// signed integer range.
func inIntRange(x Expr) (le, ge Expr) {
	w := ExprWidth(x)
	return NewBinaryExpr(SLE, x, NewBigConstantExpr(intMaxValue, w)),
		NewBinaryExpr(SGE, x, NewBigConstantExpr(intMinValue, w))
}

// fitsSigned returns a predicate that x fits in n signed bits.
func fitsSigned(x, n Expr) Expr {
	shifted := NewBinaryExpr(ASHR, x, NewBinaryExpr(SUB, n, newInt(1)))
	return NewIteExpr(NewIsZeroExpr(n),
		NewIsZeroExpr(x),
		NewBinaryExpr(OR, NewIsZeroExpr(shifted), NewBinaryExpr(EQ, shifted, newInt(-1))),
	)
}

// fitsUnsigned returns a predicate that x fits in n unsigned bits.
func fitsUnsigned(x, n Expr) Expr {
	return NewBinaryExpr(AND,
		NewBinaryExpr(SGE, x, newInt(0)),
		NewIsZeroExpr(NewBinaryExpr(LSHR, x, n)),
	)
}

// pushChecked pushes the integer value of wide, an expression wider than an
// integer, after checking that it does not overflow.
func (e *Executor) pushChecked(state *ExecutionState, wide Expr) error {
	le, ge := inIntRange(wide)
	state, err := e.check(state, le, ExitIntegerOverflow)
	if err != nil || state == nil {
		return err
	}
	if state, err = e.check(state, ge, ExitIntegerOverflow); err != nil || state == nil {
		return err
	}
	state.pushInt(NewExtractExpr(wide, 0, WidthInt))
	return nil
}

func (e *Executor) executeConstInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpPushInt4:
		v := int64(instr.I)
		if v > 10 {
			v -= 16
		}
		state.pushInt(newInt(v))
		return nil

	case OpPushInt8, OpPushInt16, OpPushIntLong:
		if instr.Int == nil {
			return errors.Wrapf(ErrInvalidContract, "%s without literal", instr.Op)
		} else if instr.Int.Cmp(intMinValue) < 0 || instr.Int.Cmp(intMaxValue) > 0 {
			return errors.Wrapf(ErrInvalidContract, "integer literal out of range: %s", instr.Int)
		}
		state.pushInt(NewBigConstantExpr(instr.Int, WidthInt))
		return nil

	case OpPushPow2, OpPushPow2Dec, OpPushNegPow2:
		if instr.I < 0 || instr.I > WidthInt-1 {
			return errors.Wrapf(ErrInvalidContract, "%s exponent out of range: %d", instr.Op, instr.I)
		}
		v := pow2(uint(instr.I))
		switch instr.Op {
		case OpPushPow2Dec:
			v.Sub(v, big.NewInt(1))
		case OpPushNegPow2:
			v.Neg(v)
		}
		if v.Cmp(intMaxValue) > 0 {
			return state.failure(ExitIntegerOverflow)
		}
		state.pushInt(NewBigConstantExpr(v, WidthInt))
		return nil

	case OpPushSlice:
		cell := state.allocConstCell(instr.Bits)
		state.push(SliceValue{Addr: state.alloc(newSlice(cell))})
		return nil
	case OpPushRef:
		state.push(CellValue{Addr: state.allocConstCell(instr.Bits)})
		return nil
	case OpPushRefSlice:
		cell := state.allocConstCell(instr.Bits)
		state.push(SliceValue{Addr: state.alloc(newSlice(cell))})
		return nil
	case OpPushCont:
		state.push(&Continuation{Block: instr.Body})
		return nil

	default:
		return notSupported(instr)
	}
}

func (e *Executor) executeArithInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpAdd, OpSub, OpSubR, OpMul:
		y, err := state.popInt()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}

		switch instr.Op {
		case OpAdd:
			return e.pushChecked(state, NewBinaryExpr(ADD, NewCastExpr(x, widthAdd, true), NewCastExpr(y, widthAdd, true)))
		case OpSub:
			return e.pushChecked(state, NewBinaryExpr(SUB, NewCastExpr(x, widthAdd, true), NewCastExpr(y, widthAdd, true)))
		case OpSubR:
			return e.pushChecked(state, NewBinaryExpr(SUB, NewCastExpr(y, widthAdd, true), NewCastExpr(x, widthAdd, true)))
		default:
			return e.pushChecked(state, NewBinaryExpr(MUL, NewCastExpr(x, widthMul, true), NewCastExpr(y, widthMul, true)))
		}

	case OpNegate, OpInc, OpDec, OpAddConst, OpMulConst:
		x, err := state.popInt()
		if err != nil {
			return err
		}

		switch instr.Op {
		case OpNegate:
			return e.pushChecked(state, NewBinaryExpr(SUB, NewConstantExpr(0, widthAdd), NewCastExpr(x, widthAdd, true)))
		case OpInc:
			return e.pushChecked(state, NewBinaryExpr(ADD, NewCastExpr(x, widthAdd, true), NewConstantExpr(1, widthAdd)))
		case OpDec:
			return e.pushChecked(state, NewBinaryExpr(SUB, NewCastExpr(x, widthAdd, true), NewConstantExpr(1, widthAdd)))
		case OpAddConst:
			return e.pushChecked(state, NewBinaryExpr(ADD, NewCastExpr(x, widthAdd, true), NewIntConstantExpr(int64(instr.I), widthAdd)))
		default:
			return e.pushChecked(state, NewBinaryExpr(MUL, NewCastExpr(x, widthMul, true), NewIntConstantExpr(int64(instr.I), widthMul)))
		}

	case OpDiv, OpMod, OpDivMod:
		y, err := state.popInt()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}

		if state, err = e.check(state, isTrue(y), ExitIntegerOverflow); err != nil || state == nil {
			return err
		}
		minOverNegOne := NewBinaryExpr(AND,
			NewBinaryExpr(EQ, x, NewBigConstantExpr(intMinValue, WidthInt)),
			NewBinaryExpr(EQ, y, newInt(-1)),
		)
		if state, err = e.check(state, NewNotExpr(minOverNegOne), ExitIntegerOverflow); err != nil || state == nil {
			return err
		}

		q, r := NewBinaryExpr(SDIV, x, y), NewBinaryExpr(SREM, x, y)
		switch instr.Op {
		case OpDiv:
			state.pushInt(q)
		case OpMod:
			state.pushInt(r)
		default:
			state.pushInt(q)
			state.pushInt(r)
		}
		return nil

	default:
		return notSupported(instr)
	}
}

func (e *Executor) executeLogicalInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpAnd, OpOr, OpXor, OpMin, OpMax, OpMinMax:
		y, err := state.popInt()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}

		lt := NewBinaryExpr(SLT, x, y)
		switch instr.Op {
		case OpAnd:
			state.pushInt(NewBinaryExpr(AND, x, y))
		case OpOr:
			state.pushInt(NewBinaryExpr(OR, x, y))
		case OpXor:
			state.pushInt(NewBinaryExpr(XOR, x, y))
		case OpMin:
			state.pushInt(NewIteExpr(lt, x, y))
		case OpMax:
			state.pushInt(NewIteExpr(lt, y, x))
		default:
			state.pushInt(NewIteExpr(lt, x, y))
			state.pushInt(NewIteExpr(lt, y, x))
		}
		return nil

	case OpNot:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		state.pushInt(NewNotExpr(x))
		return nil

	case OpAbs:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		wide := NewCastExpr(x, widthAdd, true)
		neg := NewBinaryExpr(SUB, NewConstantExpr(0, widthAdd), wide)
		return e.pushChecked(state, NewIteExpr(NewBinaryExpr(SLT, x, newInt(0)), neg, wide))

	case OpLShift:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		return e.pushChecked(state, NewBinaryExpr(SHL, NewCastExpr(x, widthMul, true), NewConstantExpr(uint64(instr.I), widthMul)))

	case OpRShift:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		state.pushInt(NewBinaryExpr(ASHR, x, newInt(int64(instr.I))))
		return nil

	case OpLShiftX, OpRShiftX:
		n, err := state.popInt()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}

		inRange := NewBinaryExpr(AND,
			NewBinaryExpr(SGE, n, newInt(0)),
			NewBinaryExpr(SLE, n, newInt(maxShift)),
		)
		if state, err = e.check(state, inRange, ExitIntegerOutOfRange); err != nil || state == nil {
			return err
		}

		if instr.Op == OpRShiftX {
			state.pushInt(NewBinaryExpr(ASHR, x, n))
			return nil
		}
		return e.pushChecked(state, NewBinaryExpr(SHL, NewCastExpr(x, widthShift, true), NewCastExpr(n, widthShift, false)))

	case OpFits, OpUFits:
		x, err := state.popInt()
		if err != nil {
			return err
		}

		cond := fitsSigned(x, newInt(int64(instr.I)))
		if instr.Op == OpUFits {
			cond = fitsUnsigned(x, newInt(int64(instr.I)))
		}
		if state, err = e.check(state, cond, ExitIntegerOverflow); err != nil || state == nil {
			return err
		}
		state.pushInt(x)
		return nil

	case OpBitSize, OpUBitSize:
		x, err := state.popInt()
		if err != nil {
			return err
		}

		fits, max := fitsSigned, WidthInt
		if instr.Op == OpUBitSize {
			fits, max = fitsUnsigned, WidthInt-1
			if state, err = e.check(state, NewBinaryExpr(SGE, x, newInt(0)), ExitIntegerOutOfRange); err != nil || state == nil {
				return err
			}
		}
		state.pushInt(bitSize(state, x, fits, max))
		return nil

	default:
		return notSupported(instr)
	}
}

// bitSize returns the smallest n in 0..max for which fits(x, n) holds. For a
// symbolic x the result is a new variable constrained by a case split over
// all widths.
func bitSize(state *ExecutionState, x Expr, fits func(x, n Expr) Expr, max int) Expr {
	if _, ok := x.(*ConstantExpr); ok {
		for n := 0; n < max; n++ {
			if IsConstantTrue(fits(x, newInt(int64(n)))) {
				return newInt(int64(n))
			}
		}
		return newInt(int64(max))
	}

	r := state.newVar("bitsize", WidthInt)
	cases := make([]Expr, 0, max+1)
	prev := Expr(NewBoolConstantExpr(false))
	for n := 0; n <= max; n++ {
		cur := fits(x, newInt(int64(n)))
		if n == max {
			cur = NewBoolConstantExpr(true)
		}
		cases = append(cases, NewAndExpr(
			NewBinaryExpr(EQ, r, newInt(int64(n))),
			cur,
			NewNotExpr(prev),
		))
		prev = cur
	}
	state.AddConstraint(NewOrExpr(cases...))
	return r
}

func (e *Executor) executeCompareInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpLess, OpEqual, OpLeq, OpGreater, OpNeq, OpGeq, OpCmp:
		y, err := state.popInt()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}
		state.pushInt(compare(instr.Op, x, y))
		return nil

	case OpSgn:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		state.pushInt(compare(OpCmp, x, newInt(0)))
		return nil

	case OpEqInt, OpLessInt, OpGtInt, OpNeqInt:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		y := newInt(int64(instr.I))

		switch instr.Op {
		case OpEqInt:
			state.pushInt(compare(OpEqual, x, y))
		case OpLessInt:
			state.pushInt(compare(OpLess, x, y))
		case OpGtInt:
			state.pushInt(compare(OpGreater, x, y))
		default:
			state.pushInt(compare(OpNeq, x, y))
		}
		return nil

	case OpSEmpty, OpSDEmpty, OpSREmpty:
		addr, err := state.popSlice()
		if err != nil {
			return err
		}
		bits, refs := state.sliceRemaining(addr)
		noBits := NewIsZeroExpr(bits)
		noRefs := NewIsZeroExpr(refs)

		switch instr.Op {
		case OpSEmpty:
			state.pushInt(boolToInt(NewBinaryExpr(AND, noBits, noRefs)))
		case OpSDEmpty:
			state.pushInt(boolToInt(noBits))
		default:
			state.pushInt(boolToInt(noRefs))
		}
		return nil

	default:
		return notSupported(instr)
	}
}

// compare returns the integer result of a comparison opcode.
func compare(op Opcode, x, y Expr) Expr {
	switch op {
	case OpLess:
		return boolToInt(NewBinaryExpr(SLT, x, y))
	case OpEqual:
		return boolToInt(NewBinaryExpr(EQ, x, y))
	case OpLeq:
		return boolToInt(NewBinaryExpr(SLE, x, y))
	case OpGreater:
		return boolToInt(NewBinaryExpr(SGT, x, y))
	case OpNeq:
		return boolToInt(NewBinaryExpr(NE, x, y))
	case OpGeq:
		return boolToInt(NewBinaryExpr(SGE, x, y))
	case OpCmp:
		return NewIteExpr(NewBinaryExpr(SLT, x, y), newInt(-1),
			NewIteExpr(NewBinaryExpr(EQ, x, y), newInt(0), newInt(1)))
	default:
		panic("unreachable")
	}
}
