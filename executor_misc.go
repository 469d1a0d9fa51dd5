package tvmsym

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func (e *Executor) executeExceptionInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpThrowShort, OpThrow:
		return &failureError{state: state, failure: NewUserFailure(instr.I)}

	case OpThrowIf, OpThrowIfNot:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		t, f, err := e.fork(state, isTrue(x))
		if err != nil {
			return err
		}
		if instr.Op == OpThrowIfNot {
			t, f = f, t
		}
		if t != nil {
			t.fail(NewUserFailure(instr.I))
		}
		return nil

	case OpThrowArg:
		state.push(state.pop())
		return &failureError{state: state, failure: NewUserFailure(instr.I)}

	default:
		return notSupported(instr)
	}
}

// Lengths of message address fields.
const (
	addrTagBits       = 2
	addrAnycastBits   = 1
	addrLenBits       = 9
	addrWorkchainBits = 8
	addrVarWorkchain  = 32
	addrAccountBits   = 256

	// Length of an addr_std without anycast.
	addrStdBits = addrTagBits + addrAnycastBits + addrWorkchainBits + addrAccountBits
)

// Message address tags.
const (
	addrNone = iota
	addrExtern
	addrStd
	addrVar
)

func (e *Executor) executeAddressInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpLdMsgAddr:
		s, err := state.popSlice()
		if err != nil {
			return err
		}
		return e.loadMsgAddr(state, s)

	case OpRewriteStdAddr:
		s, err := state.popSlice()
		if err != nil {
			return err
		}
		return e.rewriteStdAddr(state, s)

	default:
		return notSupported(instr)
	}
}

// sliceField returns n bits at offset off from the data cursor of a slice
// after checking that they are available. Fields are not recorded as loads.
func (e *Executor) sliceField(state *ExecutionState, addr uint64, off, n int) (*ExecutionState, Expr, error) {
	sl := state.Slice(addr)
	c := state.Cell(sl.Cell)

	pos := NewBinaryExpr(ADD, sl.DataPos, NewSizeConstantExpr(off))
	end := NewBinaryExpr(ADD, pos, NewSizeConstantExpr(n))
	state, err := e.check(state, NewBinaryExpr(ULE, end, c.DataLen), ExitCellUnderflow)
	if err != nil || state == nil {
		return nil, nil, err
	}
	return state, extractBits(c.Data, c.DataLen, pos, NewSizeConstantExpr(n)), nil
}

// loadMsgAddr splits a slice into a message address and the data after it.
func (e *Executor) loadMsgAddr(state *ExecutionState, addr uint64) error {
	sl := state.Slice(addr)

	state, tag, err := e.sliceField(state, addr, 0, addrTagBits)
	if err != nil || state == nil {
		return err
	}
	state.recordLoad(sl.Cell, TypeLoad{Kind: TypeMsgAddr, Offset: sl.DataPos})

	conds := make([]Expr, 4)
	for i := range conds {
		conds[i] = NewBinaryExpr(EQ, tag, NewConstantExpr(uint64(i), WidthData))
	}
	states, err := e.forkMulti(state, conds)
	if err != nil {
		return err
	}

	for kind, s := range states {
		if s == nil {
			continue
		}
		if err := e.loadMsgAddrKind(s, addr, kind); err != nil {
			return err
		}
	}
	return nil
}

// loadMsgAddrKind finishes LDMSGADDR for an address with a known tag.
func (e *Executor) loadMsgAddrKind(state *ExecutionState, addr uint64, kind int) (err error) {
	var n Expr
	switch kind {
	case addrNone:
		n = NewSizeConstantExpr(addrTagBits)

	case addrExtern:
		var l Expr
		if state, l, err = e.sliceField(state, addr, addrTagBits, addrLenBits); err != nil || state == nil {
			return err
		}
		n = NewBinaryExpr(ADD, NewSizeConstantExpr(addrTagBits+addrLenBits), NewExtractExpr(l, 0, WidthSize))

	case addrStd, addrVar:
		var anycast Expr
		if state, anycast, err = e.sliceField(state, addr, addrTagBits, addrAnycastBits); err != nil || state == nil {
			return err
		}
		if state, err = e.assume(state, NewIsZeroExpr(anycast)); err != nil || state == nil {
			return err
		}

		if kind == addrStd {
			n = NewSizeConstantExpr(addrStdBits)
			break
		}

		var l Expr
		if state, l, err = e.sliceField(state, addr, addrTagBits+addrAnycastBits, addrLenBits); err != nil || state == nil {
			return err
		}
		n = NewBinaryExpr(ADD,
			NewSizeConstantExpr(addrTagBits+addrAnycastBits+addrLenBits+addrVarWorkchain),
			NewExtractExpr(l, 0, WidthSize),
		)
	}

	state, bits, rest, err := e.sliceLoadBits(state, addr, n, TypeLoad{})
	if err != nil || state == nil {
		return err
	}

	d := emptyCellData()
	d.Data, d.DataLen = bits, n
	prefix := state.alloc(&Cell{CellData: d})

	state.push(SliceValue{Addr: state.alloc(newSlice(prefix))})
	state.push(SliceValue{Addr: rest})
	return nil
}

// rewriteStdAddr pushes the workchain & account id of a standard address.
func (e *Executor) rewriteStdAddr(state *ExecutionState, addr uint64) (err error) {
	sl := state.Slice(addr)

	var tag, anycast, wc, account Expr
	if state, tag, err = e.sliceField(state, addr, 0, addrTagBits); err != nil || state == nil {
		return err
	}
	if state, err = e.check(state, NewBinaryExpr(EQ, tag, NewConstantExpr(addrStd, WidthData)), ExitIntegerOutOfRange); err != nil || state == nil {
		return err
	}
	if state, anycast, err = e.sliceField(state, addr, addrTagBits, addrAnycastBits); err != nil || state == nil {
		return err
	}
	if state, err = e.check(state, NewIsZeroExpr(anycast), ExitIntegerOutOfRange); err != nil || state == nil {
		return err
	}
	if state, wc, err = e.sliceField(state, addr, addrTagBits+addrAnycastBits, addrWorkchainBits); err != nil || state == nil {
		return err
	}
	if state, account, err = e.sliceField(state, addr, addrTagBits+addrAnycastBits+addrWorkchainBits, addrAccountBits); err != nil || state == nil {
		return err
	}
	state.recordLoad(sl.Cell, TypeLoad{Kind: TypeMsgAddr, Offset: sl.DataPos})

	state.pushInt(NewCastExpr(NewExtractExpr(wc, 0, addrWorkchainBits), WidthInt, true))
	state.pushInt(NewExtractExpr(account, 0, WidthInt))
	return nil
}

// Coins are stored as a 4-bit byte length followed by the value bytes.
const (
	coinsLenBits  = 4
	coinsMaxBytes = 15
)

func (e *Executor) executeCurrencyInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpLdGrams:
		s, err := state.popSlice()
		if err != nil {
			return err
		}

		state, l, rest, err := e.sliceLoadBits(state, s, NewSizeConstantExpr(coinsLenBits), TypeLoad{Kind: TypeCoins})
		if err != nil || state == nil {
			return err
		}
		n := NewBinaryExpr(MUL, NewExtractExpr(l, 0, WidthSize), NewSizeConstantExpr(8))

		state, bits, rest, err := e.sliceLoadBits(state, rest, n, TypeLoad{})
		if err != nil || state == nil {
			return err
		}
		state.pushInt(bitsToInt(bits, n, false))
		state.push(SliceValue{Addr: rest})
		return nil

	case OpStGrams:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		b, err := state.popBuilder()
		if err != nil {
			return err
		}
		return e.storeCoins(state, b, x)

	default:
		return notSupported(instr)
	}
}

// storeCoins stores x using the least number of value bytes.
func (e *Executor) storeCoins(state *ExecutionState, b uint64, x Expr) error {
	bound := NewBigConstantExpr(pow2(8*coinsMaxBytes), WidthInt)
	valid := NewBinaryExpr(AND, NewBinaryExpr(SGE, x, newInt(0)), NewBinaryExpr(SLT, x, bound))
	state, err := e.check(state, valid, ExitIntegerOutOfRange)
	if err != nil || state == nil {
		return err
	}

	conds := make([]Expr, coinsMaxBytes+1)
	for l := range conds {
		cond := NewBinaryExpr(SLT, x, NewBigConstantExpr(pow2(uint(8*l)), WidthInt))
		if l > 0 {
			cond = NewBinaryExpr(AND, cond, NewBinaryExpr(SGE, x, NewBigConstantExpr(pow2(uint(8*(l-1))), WidthInt)))
		}
		conds[l] = cond
	}
	states, err := e.forkMulti(state, conds)
	if err != nil {
		return err
	}

	for l, s := range states {
		if s == nil {
			continue
		}
		s, addr, err := e.builderStoreBits(s, b, NewSizeConstantExpr(coinsLenBits), NewConstantExpr(uint64(l), WidthData))
		if err != nil {
			return err
		} else if s == nil {
			continue
		}
		n := NewSizeConstantExpr(8 * l)
		if s, addr, err = e.builderStoreBits(s, addr, n, intToBits(x, sizeToInt(n))); err != nil {
			return err
		} else if s == nil {
			continue
		}
		s.push(BuilderValue{Addr: addr})
	}
	return nil
}

func (e *Executor) executeGasInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpAccept:
		return state.setGasLimit(state.gasMax)

	case OpSetGasLimit:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		g, err := e.concreteInt(state, x, 0, math.MaxInt64)
		if err != nil {
			return err
		}
		return state.setGasLimit(int64(g))

	case OpCommit:
		return nil

	default:
		return notSupported(instr)
	}
}

func (e *Executor) executeGlobalInstr(state *ExecutionState, instr Instr) error {
	k := instr.I
	if k < 1 || k >= MaxGlobals {
		return errors.Wrapf(ErrInvalidContract, "%s: global index out of range: %d", instr.Op, k)
	}

	switch instr.Op {
	case OpGetGlob:
		v := state.globals[k]
		if v == nil {
			v = NullValue{}
		}
		state.push(v)
		return nil

	case OpSetGlob:
		state.globals[k] = state.pop()
		return nil

	default:
		return notSupported(instr)
	}
}

func (e *Executor) executeDebugInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpDebug, OpDump, OpStrDump, OpDebugStr:
		return nil

	case OpDumpStk:
		e.log(state).WithFields(logrus.Fields{"stack": state.stack.String()}).Debug("dumpstk")
		return nil

	case OpSetCp:
		if instr.I != 0 {
			return errors.Wrapf(ErrNotSupported, "codepage %d", instr.I)
		}
		return nil

	default:
		return notSupported(instr)
	}
}
