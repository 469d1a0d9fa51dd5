package tvmsym

import (
	"fmt"
	"math/big"
)

// sizeToData zero-extends a size expression to the data width.
func sizeToData(n Expr) Expr { return NewCastExpr(n, WidthData, false) }

// sizeToInt zero-extends a size expression to an integer.
func sizeToInt(n Expr) Expr { return NewCastExpr(n, WidthInt, false) }

// intToSize truncates a non-negative integer below 2^32 to a size expression.
func intToSize(x Expr) Expr { return NewExtractExpr(x, 0, WidthSize) }

// mask returns (1 << n) - 1 at the given width. The mask is all ones for n
// equal to the width.
func mask(n Expr, width uint) Expr {
	one := NewConstantExpr(1, width)
	return NewBinaryExpr(SUB, NewBinaryExpr(SHL, one, NewCastExpr(n, width, false)), one)
}

// extractBits returns n bits of the dataLen-bit content data, starting at
// position pos counted from the first stored bit. The bits are right-aligned.
func extractBits(data, dataLen, pos, n Expr) Expr {
	shift := NewBinaryExpr(SUB, NewBinaryExpr(SUB, dataLen, pos), n)
	return NewBinaryExpr(AND, NewBinaryExpr(LSHR, data, sizeToData(shift)), mask(n, WidthData))
}

// appendBits returns data followed by the n-bit value bits.
func appendBits(data, n, bits Expr) Expr {
	return NewBinaryExpr(OR, NewBinaryExpr(SHL, data, sizeToData(n)), bits)
}

// intToBits returns the n-bit two's complement encoding of the integer x at
// the data width.
func intToBits(x, n Expr) Expr {
	return NewCastExpr(NewBinaryExpr(AND, x, mask(n, WidthInt)), WidthData, false)
}

// bitsToInt returns the integer value of n right-aligned bits.
func bitsToInt(bits, n Expr, signed bool) Expr {
	x := NewExtractExpr(bits, 0, WidthInt)
	if !signed {
		return x
	}
	if n, ok := n.(*ConstantExpr); ok && n.Uint64() > 0 {
		return NewCastExpr(NewExtractExpr(bits, 0, uint(n.Uint64())), WidthInt, true)
	}
	shift := NewBinaryExpr(SUB, newInt(WidthInt), sizeToInt(n))
	return NewBinaryExpr(ASHR, NewBinaryExpr(SHL, x, shift), shift)
}

// newSlice returns a slice over the whole cell.
func newSlice(cell uint64) *Slice {
	return &Slice{Cell: cell, DataPos: NewSizeConstantExpr(0), RefPos: NewSizeConstantExpr(0)}
}

// allocConstCell allocates a cell holding a literal bit string.
func (s *ExecutionState) allocConstCell(bits string) uint64 {
	v := new(big.Int)
	if bits != "" {
		_, ok := v.SetString(bits, 2)
		assert(ok, "invalid bit string: %q", bits)
	}
	d := emptyCellData()
	d.Data = NewBigConstantExpr(v, WidthData)
	d.DataLen = NewSizeConstantExpr(len(bits))
	return s.alloc(&Cell{CellData: d})
}

// sliceRemaining returns the number of unread bits & refs of a slice.
func (s *ExecutionState) sliceRemaining(addr uint64) (bits, refs Expr) {
	sl := s.Slice(addr)
	c := s.Cell(sl.Cell)
	return NewBinaryExpr(SUB, c.DataLen, sl.DataPos), NewBinaryExpr(SUB, c.RefsLen, sl.RefPos)
}

// branch is a state in which a symbolic value equals a concrete value.
type branch struct {
	state *ExecutionState
	value int
}

// concretize splits state over the values 0..max of a size expression.
// Values above max are not explored.
func (e *Executor) concretize(state *ExecutionState, expr Expr, max int) ([]branch, error) {
	if c, ok := expr.(*ConstantExpr); ok {
		return []branch{{state: state, value: int(c.Uint64())}}, nil
	}

	conds := make([]Expr, max+1)
	for k := range conds {
		conds[k] = NewBinaryExpr(EQ, expr, NewConstantExpr(uint64(k), ExprWidth(expr)))
	}
	states, err := e.forkMulti(state, conds)
	if err != nil {
		return nil, err
	}

	var a []branch
	for k, s := range states {
		if s != nil {
			a = append(a, branch{state: s, value: k})
		}
	}
	return a, nil
}

// sliceLoadBits reads n bits at the data cursor of a slice. It returns the
// branch in which the read is in bounds, the right-aligned bits and a new
// slice with the cursor advanced. The other branch fails with cell underflow.
// A load with an empty kind is not recorded on input cells.
func (e *Executor) sliceLoadBits(state *ExecutionState, addr uint64, n Expr, load TypeLoad) (*ExecutionState, Expr, uint64, error) {
	sl := state.Slice(addr)
	c := state.Cell(sl.Cell)

	end := NewBinaryExpr(ADD, sl.DataPos, n)
	state, err := e.check(state, NewBinaryExpr(ULE, end, c.DataLen), ExitCellUnderflow)
	if err != nil || state == nil {
		return nil, nil, 0, err
	}

	if load.Kind != "" {
		load.Offset = sl.DataPos
		state.recordLoad(sl.Cell, load)
	}

	bits := extractBits(c.Data, c.DataLen, sl.DataPos, n)
	other := &Slice{Cell: sl.Cell, DataPos: end, RefPos: sl.RefPos}
	return state, bits, state.alloc(other), nil
}

// sliceLoadRef reads the next reference of a slice. It returns the branches
// in which a reference is available, each with the loaded cell and a slice
// with the cursor advanced.
func (e *Executor) sliceLoadRef(state *ExecutionState, addr uint64) ([]loadedRef, error) {
	sl := state.Slice(addr)
	c := state.Cell(sl.Cell)

	state, err := e.check(state, NewBinaryExpr(ULT, sl.RefPos, c.RefsLen), ExitCellUnderflow)
	if err != nil || state == nil {
		return nil, err
	}

	branches, err := e.concretize(state, sl.RefPos, MaxRefs-1)
	if err != nil {
		return nil, err
	}

	a := make([]loadedRef, 0, len(branches))
	for _, b := range branches {
		ref := b.state.cellRefAt(sl.Cell, b.value)
		other := &Slice{Cell: sl.Cell, DataPos: sl.DataPos, RefPos: NewSizeConstantExpr(b.value + 1)}
		a = append(a, loadedRef{state: b.state, cell: ref, slice: b.state.alloc(other)})
	}
	return a, nil
}

type loadedRef struct {
	state *ExecutionState
	cell  uint64
	slice uint64
}

// cellRefAt returns reference i of the cell at addr, allocating it first if
// the cell is an input cell.
func (s *ExecutionState) cellRefAt(addr uint64, i int) uint64 {
	c := s.Cell(addr)
	ref, data, changed := s.cellRef(c.CellData, i, fmt.Sprintf("cell%d", addr))
	if changed {
		other := *c
		other.CellData = data
		s.store(addr, &other)
	}
	return ref
}

// builderStoreBits appends n bits to a builder. It returns the branch in
// which the builder does not overflow and the address of the new builder.
func (e *Executor) builderStoreBits(state *ExecutionState, addr uint64, n, bits Expr) (*ExecutionState, uint64, error) {
	b := state.Builder(addr)

	end := NewBinaryExpr(ADD, b.DataLen, n)
	state, err := e.check(state, NewBinaryExpr(ULE, end, NewSizeConstantExpr(MaxDataBits)), ExitCellOverflow)
	if err != nil || state == nil {
		return nil, 0, err
	}

	other := *b
	other.Data = appendBits(b.Data, n, bits)
	other.DataLen = end
	return state, state.alloc(&other), nil
}

// builderStoreInt stores the integer x as n bits after checking its range.
func (e *Executor) builderStoreInt(state *ExecutionState, addr uint64, x, n Expr, signed bool) (*ExecutionState, uint64, error) {
	nInt := sizeToInt(n)
	cond := fitsUnsigned(x, nInt)
	if signed {
		cond = fitsSigned(x, nInt)
	}

	state, err := e.check(state, cond, ExitIntegerOutOfRange)
	if err != nil || state == nil {
		return nil, 0, err
	}
	return e.builderStoreBits(state, addr, n, intToBits(x, nInt))
}

// builderStoreRef appends a reference to a builder and pushes the new builder
// in every feasible branch.
func (e *Executor) builderStoreRef(state *ExecutionState, addr, cell uint64) error {
	b := state.Builder(addr)

	state, err := e.check(state, NewBinaryExpr(ULT, b.RefsLen, NewSizeConstantExpr(MaxRefs)), ExitCellOverflow)
	if err != nil || state == nil {
		return err
	}

	branches, err := e.concretize(state, b.RefsLen, MaxRefs-1)
	if err != nil {
		return err
	}
	for _, br := range branches {
		other := *br.state.Builder(addr)
		other.Refs[br.value] = cell
		other.RefsLen = NewSizeConstantExpr(br.value + 1)
		br.state.push(BuilderValue{Addr: br.state.alloc(&other)})
	}
	return nil
}

// builderStoreSlice appends the unread content of a slice to a builder and
// pushes the new builder in every feasible branch.
func (e *Executor) builderStoreSlice(state *ExecutionState, addr, slice uint64) error {
	sl := state.Slice(slice)
	c := state.Cell(sl.Cell)

	n := NewBinaryExpr(SUB, c.DataLen, sl.DataPos)
	state, addr, err := e.builderStoreBits(state, addr, n, extractBits(c.Data, c.DataLen, sl.DataPos, n))
	if err != nil || state == nil {
		return err
	}

	starts, err := e.concretize(state, sl.RefPos, MaxRefs)
	if err != nil {
		return err
	}
	for _, start := range starts {
		ends, err := e.concretize(start.state, c.RefsLen, MaxRefs)
		if err != nil {
			return err
		}
		for _, end := range ends {
			if end.value < start.value {
				continue
			}
			b := end.state.Builder(addr)
			counts, err := e.concretize(end.state, b.RefsLen, MaxRefs)
			if err != nil {
				return err
			}

			for _, count := range counts {
				s := count.state
				if count.value+end.value-start.value > MaxRefs {
					s.fail(NewFailure(ExitCellOverflow))
					continue
				}

				other := *s.Builder(addr)
				for i := start.value; i < end.value; i++ {
					other.Refs[count.value+i-start.value] = s.cellRefAt(sl.Cell, i)
				}
				other.RefsLen = NewSizeConstantExpr(count.value + end.value - start.value)
				s.push(BuilderValue{Addr: s.alloc(&other)})
			}
		}
	}
	return nil
}

// sealBuilder copies a builder into a new cell.
func (s *ExecutionState) sealBuilder(addr uint64) uint64 {
	b := s.Builder(addr)
	return s.alloc(&Cell{CellData: b.CellData})
}
