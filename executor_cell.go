package tvmsym

func (e *Executor) executeCellBuildInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpNewC:
		d := emptyCellData()
		state.push(BuilderValue{Addr: state.alloc(&Builder{CellData: d})})
		return nil

	case OpEndC:
		b, err := state.popBuilder()
		if err != nil {
			return err
		}
		state.push(CellValue{Addr: state.sealBuilder(b)})
		return nil

	case OpStU, OpStI:
		b, err := state.popBuilder()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}
		return e.storeInt(state, b, x, NewSizeConstantExpr(instr.I), instr.Op == OpStI)

	case OpStUX, OpStIX:
		l, err := state.popInt()
		if err != nil {
			return err
		}
		b, err := state.popBuilder()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}

		max := int64(WidthInt - 1)
		if instr.Op == OpStIX {
			max = WidthInt
		}
		if state, err = e.check(state, inRange(l, 0, max), ExitIntegerOutOfRange); err != nil || state == nil {
			return err
		}
		return e.storeInt(state, b, x, intToSize(l), instr.Op == OpStIX)

	case OpStRef:
		b, err := state.popBuilder()
		if err != nil {
			return err
		}
		c, err := state.popCell()
		if err != nil {
			return err
		}
		return e.builderStoreRef(state, b, c)

	case OpStSlice:
		b, err := state.popBuilder()
		if err != nil {
			return err
		}
		s, err := state.popSlice()
		if err != nil {
			return err
		}
		return e.builderStoreSlice(state, b, s)

	case OpBBits, OpBRefs:
		b, err := state.popBuilder()
		if err != nil {
			return err
		}
		if instr.Op == OpBBits {
			state.pushInt(sizeToInt(state.Builder(b).DataLen))
		} else {
			state.pushInt(sizeToInt(state.Builder(b).RefsLen))
		}
		return nil

	default:
		return notSupported(instr)
	}
}

// storeInt stores x as n bits into the builder b and pushes the new builder.
func (e *Executor) storeInt(state *ExecutionState, b uint64, x, n Expr, signed bool) error {
	state, b, err := e.builderStoreInt(state, b, x, n, signed)
	if err != nil || state == nil {
		return err
	}
	state.push(BuilderValue{Addr: b})
	return nil
}

// inRange returns a predicate that the integer x lies in min..max.
func inRange(x Expr, min, max int64) Expr {
	return NewBinaryExpr(AND,
		NewBinaryExpr(SGE, x, newInt(min)),
		NewBinaryExpr(SLE, x, newInt(max)),
	)
}

func (e *Executor) executeCellParseInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpCtos:
		c, err := state.popCell()
		if err != nil {
			return err
		}
		state.push(SliceValue{Addr: state.alloc(newSlice(c))})
		return nil

	case OpEnds:
		s, err := state.popSlice()
		if err != nil {
			return err
		}
		bits, refs := state.sliceRemaining(s)
		_, err = e.check(state, NewBinaryExpr(AND, NewIsZeroExpr(bits), NewIsZeroExpr(refs)), ExitCellUnderflow)
		return err

	case OpLdU, OpLdI, OpPldU, OpPldI:
		s, err := state.popSlice()
		if err != nil {
			return err
		}
		return e.loadInt(state, s, NewSizeConstantExpr(instr.I), instr.Op == OpLdI || instr.Op == OpPldI, instr.Op == OpPldU || instr.Op == OpPldI)

	case OpLdUX, OpLdIX:
		l, err := state.popInt()
		if err != nil {
			return err
		}
		s, err := state.popSlice()
		if err != nil {
			return err
		}

		max := int64(WidthInt - 1)
		if instr.Op == OpLdIX {
			max = WidthInt
		}
		if state, err = e.check(state, inRange(l, 0, max), ExitIntegerOutOfRange); err != nil || state == nil {
			return err
		}
		return e.loadInt(state, s, intToSize(l), instr.Op == OpLdIX, false)

	case OpLdRef:
		s, err := state.popSlice()
		if err != nil {
			return err
		}
		refs, err := e.sliceLoadRef(state, s)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			ref.state.push(CellValue{Addr: ref.cell})
			ref.state.push(SliceValue{Addr: ref.slice})
		}
		return nil

	case OpSBits, OpSRefs:
		s, err := state.popSlice()
		if err != nil {
			return err
		}
		bits, refs := state.sliceRemaining(s)
		if instr.Op == OpSBits {
			state.pushInt(sizeToInt(bits))
		} else {
			state.pushInt(sizeToInt(refs))
		}
		return nil

	default:
		return notSupported(instr)
	}
}

// loadInt reads an n-bit integer from slice s and pushes it, followed by the
// remaining slice unless preload is set.
func (e *Executor) loadInt(state *ExecutionState, s uint64, n Expr, signed, preload bool) error {
	load := TypeLoad{Kind: TypeUint}
	if signed {
		load.Kind = TypeInt
	}
	if n, ok := n.(*ConstantExpr); ok {
		load.Bits = int(n.Uint64())
	}

	state, bits, rest, err := e.sliceLoadBits(state, s, n, load)
	if err != nil || state == nil {
		return err
	}

	state.pushInt(bitsToInt(bits, n, signed))
	if !preload {
		state.push(SliceValue{Addr: rest})
	}
	return nil
}
