package tvmsym

import (
	"bytes"
	"fmt"
)

// CellData is the content shared by cells & builders. Data holds DataLen
// significant bits right-aligned in a WidthData bit-vector; bits above
// DataLen are zero.
type CellData struct {
	Data    Expr
	DataLen Expr
	RefsLen Expr
	Refs    [MaxRefs]uint64 // zero for references not yet allocated

	// Input is set for objects supplied from outside the method. References
	// of input objects are allocated lazily on first access.
	Input bool
}

// Cell is an immutable cell on the heap.
type Cell struct {
	CellData

	// Loads records how the cell data was parsed, used to describe input cells.
	Loads []TypeLoad
}

// Builder is a cell under construction.
type Builder struct {
	CellData
}

// Slice is a read cursor over a cell.
type Slice struct {
	Cell    uint64
	DataPos Expr
	RefPos  Expr
}

// Tuple is either a concrete list of values or an input tuple of symbolic size
// whose elements are placeholders.
type Tuple struct {
	Elems []Value
	Input bool
	Size  Expr // input tuples only
}

// Len returns the size of the tuple as an expression.
func (t *Tuple) Len() Expr {
	if t.Input {
		return t.Size
	}
	return NewSizeConstantExpr(len(t.Elems))
}

// TypeKind identifies the shape of a value loaded from cell data.
type TypeKind string

const (
	TypeInt      = TypeKind("int")
	TypeUint     = TypeKind("uint")
	TypeMsgAddr  = TypeKind("msgaddr")
	TypeCoins    = TypeKind("coins")
	TypeBitArray = TypeKind("bits")
)

// TypeLoad records a load of Bits bits of a given kind at a data offset.
// Bits is zero for variable-length kinds.
type TypeLoad struct {
	Kind   TypeKind
	Bits   int
	Offset Expr
}

// emptyCellData returns the content of an empty cell.
func emptyCellData() CellData {
	return CellData{
		Data:    NewConstantExpr(0, WidthData),
		DataLen: NewSizeConstantExpr(0),
		RefsLen: NewSizeConstantExpr(0),
	}
}

// alloc stores obj at a new heap address.
func (s *ExecutionState) alloc(obj interface{}) uint64 {
	addr := s.nextAddr()
	s.heap = s.heap.Set(addr, obj)
	return addr
}

// nextAddr returns the next available address on the heap.
// Ensures the address is always non-zero.
func (s *ExecutionState) nextAddr() uint64 {
	itr := s.heap.Iterator()
	itr.Last()
	if k, _ := itr.Prev(); k != nil {
		return k.(uint64) + 1
	}
	return 1
}

// store replaces the object at addr.
func (s *ExecutionState) store(addr uint64, obj interface{}) {
	s.heap = s.heap.Set(addr, obj)
}

func (s *ExecutionState) load(addr uint64) interface{} {
	obj, ok := s.heap.Get(addr)
	assert(ok, "heap object not found: addr=%d", addr)
	return obj
}

// Cell returns the cell at addr.
func (s *ExecutionState) Cell(addr uint64) *Cell { return s.load(addr).(*Cell) }

// Builder returns the builder at addr.
func (s *ExecutionState) Builder(addr uint64) *Builder { return s.load(addr).(*Builder) }

// Slice returns the slice at addr.
func (s *ExecutionState) Slice(addr uint64) *Slice { return s.load(addr).(*Slice) }

// Tuple returns the tuple at addr.
func (s *ExecutionState) Tuple(addr uint64) *Tuple { return s.load(addr).(*Tuple) }

// newInputCellData returns symbolic cell content constrained to valid bounds.
func (s *ExecutionState) newInputCellData(name string) CellData {
	data := s.newVar(name+".data", WidthData)
	dataLen := s.newVar(name+".len", WidthSize)
	refsLen := s.newVar(name+".refs", WidthSize)

	s.AddConstraint(NewBinaryExpr(ULE, dataLen, NewSizeConstantExpr(MaxDataBits)))
	s.AddConstraint(NewBinaryExpr(ULE, refsLen, NewSizeConstantExpr(MaxRefs)))
	s.AddConstraint(NewIsZeroExpr(NewBinaryExpr(LSHR, data, sizeToData(dataLen))))

	return CellData{Data: data, DataLen: dataLen, RefsLen: refsLen, Input: true}
}

// allocInputCell allocates a cell with unknown content.
func (s *ExecutionState) allocInputCell(name string) uint64 {
	return s.alloc(&Cell{CellData: s.newInputCellData(name)})
}

// allocInputBuilder allocates a builder with unknown content.
func (s *ExecutionState) allocInputBuilder(name string) uint64 {
	return s.alloc(&Builder{CellData: s.newInputCellData(name)})
}

// allocInputSlice allocates a slice over an unknown cell with unknown cursors.
func (s *ExecutionState) allocInputSlice(name string) uint64 {
	cell := s.allocInputCell(name)
	c := s.Cell(cell)

	dataPos := s.newVar(name+".dpos", WidthSize)
	refPos := s.newVar(name+".rpos", WidthSize)
	s.AddConstraint(NewBinaryExpr(ULE, dataPos, c.DataLen))
	s.AddConstraint(NewBinaryExpr(ULE, refPos, c.RefsLen))

	return s.alloc(&Slice{Cell: cell, DataPos: dataPos, RefPos: refPos})
}

// allocInputTuple allocates a tuple of unknown size.
func (s *ExecutionState) allocInputTuple(name string) uint64 {
	size := s.newVar(name+".size", WidthSize)
	s.AddConstraint(NewBinaryExpr(ULE, size, NewSizeConstantExpr(MaxTupleSize)))
	return s.alloc(&Tuple{Input: true, Size: size})
}

// cellRef returns the address of reference i of the cell data, allocating an
// input cell if the reference belongs to an input object and does not exist yet.
// The returned data must be stored back by the caller if changed is true.
func (s *ExecutionState) cellRef(d CellData, i int, name string) (ref uint64, data CellData, changed bool) {
	if d.Refs[i] != 0 {
		return d.Refs[i], d, false
	}
	assert(d.Input, "missing reference %d of concrete cell", i)
	d.Refs[i] = s.allocInputCell(fmt.Sprintf("%s.ref%d", name, i))
	return d.Refs[i], d, true
}

// recordLoad appends a type load to the cell at addr if it is an input cell.
func (s *ExecutionState) recordLoad(addr uint64, load TypeLoad) {
	c := s.Cell(addr)
	if !c.Input {
		return
	}
	other := *c
	other.Loads = append(c.Loads[:len(c.Loads):len(c.Loads)], load)
	s.store(addr, &other)
}

func (s *ExecutionState) dumpHeap() string {
	var buf bytes.Buffer
	itr := s.heap.Iterator()
	for {
		k, v := itr.Next()
		if k == nil {
			return buf.String()
		}
		switch obj := v.(type) {
		case *Cell:
			fmt.Fprintf(&buf, "%08d cell data=%s len=%s refs=%s %v input=%v\n", k.(uint64), obj.Data, obj.DataLen, obj.RefsLen, obj.Refs, obj.Input)
		case *Builder:
			fmt.Fprintf(&buf, "%08d builder data=%s len=%s refs=%s %v input=%v\n", k.(uint64), obj.Data, obj.DataLen, obj.RefsLen, obj.Refs, obj.Input)
		case *Slice:
			fmt.Fprintf(&buf, "%08d slice cell=%d dpos=%s rpos=%s\n", k.(uint64), obj.Cell, obj.DataPos, obj.RefPos)
		case *Tuple:
			if obj.Input {
				fmt.Fprintf(&buf, "%08d tuple size=%s (input)\n", k.(uint64), obj.Size)
			} else {
				fmt.Fprintf(&buf, "%08d tuple %v\n", k.(uint64), obj.Elems)
			}
		}
	}
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not an int.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
