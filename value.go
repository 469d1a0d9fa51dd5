package tvmsym

import (
	"fmt"
)

// ValueKind is the type tag of a stack value.
type ValueKind int

const (
	KindInput = ValueKind(iota)
	KindInt
	KindCell
	KindSlice
	KindBuilder
	KindTuple
	KindCont
	KindNull
)

var valueKinds = [...]string{
	KindInput:   "input",
	KindInt:     "int",
	KindCell:    "cell",
	KindSlice:   "slice",
	KindBuilder: "builder",
	KindTuple:   "tuple",
	KindCont:    "cont",
	KindNull:    "null",
}

// String returns the name of the kind.
func (k ValueKind) String() string {
	if k >= 0 && int(k) < len(valueKinds) {
		return valueKinds[k]
	}
	return fmt.Sprintf("ValueKind<%d>", int(k))
}

// Value represents an entry on the stack or in a tuple.
type Value interface {
	Kind() ValueKind
	String() string
}

func (IntValue) Kind() ValueKind      { return KindInt }
func (CellValue) Kind() ValueKind     { return KindCell }
func (SliceValue) Kind() ValueKind    { return KindSlice }
func (BuilderValue) Kind() ValueKind  { return KindBuilder }
func (TupleValue) Kind() ValueKind    { return KindTuple }
func (*Continuation) Kind() ValueKind { return KindCont }
func (NullValue) Kind() ValueKind     { return KindNull }
func (InputValue) Kind() ValueKind    { return KindInput }

// IntValue is a 257-bit signed integer.
type IntValue struct {
	Expr Expr
}

// NewIntValue returns an integer value for a concrete int64.
func NewIntValue(v int64) IntValue {
	return IntValue{Expr: NewIntConstantExpr(v, WidthInt)}
}

func (v IntValue) String() string { return v.Expr.String() }

// CellValue references a cell on the heap.
type CellValue struct {
	Addr uint64
}

func (v CellValue) String() string { return fmt.Sprintf("cell@%d", v.Addr) }

// SliceValue references a slice on the heap.
type SliceValue struct {
	Addr uint64
}

func (v SliceValue) String() string { return fmt.Sprintf("slice@%d", v.Addr) }

// BuilderValue references a builder on the heap.
type BuilderValue struct {
	Addr uint64
}

func (v BuilderValue) String() string { return fmt.Sprintf("builder@%d", v.Addr) }

// TupleValue references a tuple on the heap.
type TupleValue struct {
	Addr uint64
}

func (v TupleValue) String() string { return fmt.Sprintf("tuple@%d", v.Addr) }

// NullValue is the null value.
type NullValue struct{}

func (NullValue) String() string { return "null" }

// InputValue is a placeholder for a value supplied to the method from outside.
// Tuple is zero for entries of the initial stack and the tuple address for
// elements of input tuples. Index counts from the top of the initial stack.
//
// The placeholder has no type until it is first accessed as a specific kind;
// from then on the state resolves it to the same value.
type InputValue struct {
	Tuple uint64
	Index int
}

func (v InputValue) String() string {
	if v.Tuple == 0 {
		return fmt.Sprintf("input#%d", v.Index)
	}
	return fmt.Sprintf("input@%d#%d", v.Tuple, v.Index)
}

// inputValueComparer orders input placeholders. Implements immutable.Comparer.
type inputValueComparer struct{}

func (c *inputValueComparer) Compare(a, b interface{}) int {
	x, y := a.(InputValue), b.(InputValue)
	if x.Tuple < y.Tuple {
		return -1
	} else if x.Tuple > y.Tuple {
		return 1
	} else if x.Index < y.Index {
		return -1
	} else if x.Index > y.Index {
		return 1
	}
	return 0
}
