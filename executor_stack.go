package tvmsym

import (
	"github.com/pkg/errors"
)

func (e *Executor) executeStackInstr(state *ExecutionState, instr Instr) error {
	s := state.stack

	switch instr.Op {
	case OpNop:
		return nil
	case OpXchg0I, OpXchg0ILong:
		s = s.Swap(0, instr.I)
	case OpXchgIJ:
		s = s.Swap(instr.I, instr.J)
	case OpXchg1I:
		s = s.Swap(1, instr.I)
	case OpPush, OpPushLong:
		s = s.Dup(instr.I)
	case OpPop, OpPopLong:
		s = s.PopTo(instr.I)

	case OpBlkDrop2:
		s = s.BlkDrop2(instr.I, instr.J)
	case OpBlkDrop:
		s = s.BlkDrop2(instr.I, 0)
	case OpReverse:
		s = s.Reverse(instr.I, instr.J)
	case OpBlkSwap:
		if instr.I < 1 || instr.J < 1 {
			return errors.Wrapf(ErrInvalidContract, "BLKSWAP %d %d", instr.I, instr.J)
		}
		s = s.BlkSwap(instr.I, instr.J)
	case OpRot:
		s = s.BlkSwap(1, 2)
	case OpRotRev:
		s = s.BlkSwap(2, 1)
	case OpSwap2:
		s = s.BlkSwap(2, 2)
	case OpDrop2:
		s = s.BlkDrop2(2, 0)
	case OpDup2:
		s = s.Dup(1).Dup(1)
	case OpOver2:
		s = s.Dup(3).Dup(3)
	case OpBlkPush:
		for i := 0; i < instr.I; i++ {
			s = s.Dup(instr.J)
		}
	case OpPush2:
		s = s.Dup(instr.I).Dup(instr.J + 1)
	case OpPush3:
		s = s.Dup(instr.I).Dup(instr.J + 1).Dup(instr.K + 2)
	case OpXchg2:
		s = s.Xchg2(instr.I, instr.J)
	case OpXchg3, OpXchg3Alt:
		s = s.Xchg3(instr.I, instr.J, instr.K)
	case OpXcpu:
		s = s.Swap(0, instr.I).Dup(instr.J)
	case OpXcpu2:
		s = s.Swap(0, instr.I).Dup(instr.J).Dup(instr.K + 1)
	case OpXcpuxc:
		s = s.Swap(1, instr.I).Puxc(instr.J, instr.K)
	case OpXc2pu:
		s = s.Xchg2(instr.I, instr.J).Dup(instr.K)
	case OpTuck:
		s = s.Swap(0, 1).Dup(1)
	case OpPuxc:
		s = s.Puxc(instr.I, instr.J)
	case OpPuxc2:
		s = s.Dup(instr.I).Swap(0, 2).Xchg2(instr.J+1, instr.K+1)
	case OpPuxcpu:
		s = s.Puxc(instr.I, instr.J).Dup(instr.K + 1)
	case OpPu2xc:
		s = s.Dup(instr.I).Swap(0, 1).Puxc(instr.J+1, instr.K+1)

	// Operands taken from the stack.
	case OpPick, OpXchgX, OpDropX, OpRollX, OpMinusRollX:
		i, err := e.popIndex(state)
		if err != nil {
			return err
		}
		s = state.stack

		switch instr.Op {
		case OpPick:
			s = s.Dup(i)
		case OpXchgX:
			s = s.Swap(0, i)
		case OpDropX:
			s = s.BlkDrop2(i, 0)
		case OpRollX:
			if i > 0 {
				s = s.BlkSwap(1, i)
			}
		case OpMinusRollX:
			if i > 0 {
				s = s.BlkSwap(i, 1)
			}
		}
	case OpBlkSwx, OpRevX:
		j, err := e.popIndex(state)
		if err != nil {
			return err
		}
		i, err := e.popIndex(state)
		if err != nil {
			return err
		}
		s = state.stack

		switch instr.Op {
		case OpBlkSwx:
			if i > 0 && j > 0 {
				s = s.BlkSwap(i, j)
			}
		case OpRevX:
			s = s.Reverse(i, j)
		}

	default:
		return notSupported(instr)
	}

	state.stack = s
	return nil
}

// maxStackIndex is the largest stack index accepted from the stack.
const maxStackIndex = 255

// popIndex pops a stack index operand. Indices must be concrete; an index
// outside 0..255 is a range-check failure.
func (e *Executor) popIndex(state *ExecutionState) (int, error) {
	expr, err := state.popInt()
	if err != nil {
		return 0, err
	}
	return e.concreteInt(state, expr, 0, maxStackIndex)
}

// concreteInt returns the value of a concrete integer expression in min..max.
// A value outside the range is a range-check failure.
func (e *Executor) concreteInt(state *ExecutionState, expr Expr, min, max int64) (int, error) {
	c, ok := expr.(*ConstantExpr)
	if !ok {
		return 0, errors.Wrapf(ErrNotSupported, "symbolic operand: %s", expr)
	}
	v := c.Int()
	if !v.IsInt64() || v.Int64() < min || v.Int64() > max {
		return 0, state.failure(ExitIntegerOutOfRange)
	}
	return int(v.Int64()), nil
}
