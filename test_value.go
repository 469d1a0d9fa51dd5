package tvmsym

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// TestValue is a concrete value resolved from a model of a terminated path.
type TestValue interface {
	Kind() ValueKind
	String() string
}

func (TestInt) Kind() ValueKind          { return KindInt }
func (*TestDataCell) Kind() ValueKind    { return KindCell }
func (*TestSlice) Kind() ValueKind       { return KindSlice }
func (*TestBuilder) Kind() ValueKind     { return KindBuilder }
func (*TestTuple) Kind() ValueKind       { return KindTuple }
func (TestContinuation) Kind() ValueKind { return KindCont }
func (TestNull) Kind() ValueKind         { return KindNull }

// TestInt is a concrete integer.
type TestInt struct {
	Value *big.Int
}

// NewTestInt returns an integer test value.
func NewTestInt(v int64) TestInt {
	return TestInt{Value: big.NewInt(v)}
}

func (v TestInt) String() string { return v.Value.String() }

// TestDataCell is a concrete cell. Data is a string of '0' and '1'.
type TestDataCell struct {
	Data       string
	Refs       []*TestDataCell
	KnownTypes []TestTypeLoad
}

func (c *TestDataCell) String() string {
	if len(c.Refs) == 0 {
		return fmt.Sprintf("x{%s}", c.Data)
	}
	a := make([]string, len(c.Refs))
	for i, ref := range c.Refs {
		a[i] = ref.String()
	}
	return fmt.Sprintf("x{%s}[%s]", c.Data, strings.Join(a, " "))
}

// Depth returns the length of the longest reference chain below the cell.
func (c *TestDataCell) Depth() int {
	depth := 0
	for _, ref := range c.Refs {
		if d := ref.Depth() + 1; d > depth {
			depth = d
		}
	}
	return depth
}

// TestTypeLoad describes how the bits at Offset of an input cell were read.
type TestTypeLoad struct {
	Kind   TypeKind
	Bits   int
	Offset int
}

// TestSlice is a concrete slice over a cell.
type TestSlice struct {
	Cell    *TestDataCell
	DataPos int
	RefPos  int
}

func (s *TestSlice) String() string {
	return fmt.Sprintf("%s@%d,%d", s.Cell, s.DataPos, s.RefPos)
}

// Remaining returns the unread data bits of the slice.
func (s *TestSlice) Remaining() string {
	if s.DataPos > len(s.Cell.Data) {
		return ""
	}
	return s.Cell.Data[s.DataPos:]
}

// TestBuilder is a concrete builder.
type TestBuilder struct {
	Data string
	Refs []*TestDataCell
}

func (b *TestBuilder) String() string {
	return fmt.Sprintf("builder%s", (&TestDataCell{Data: b.Data, Refs: b.Refs}).String())
}

// TestTuple is a concrete tuple.
type TestTuple struct {
	Elems []TestValue
}

func (t *TestTuple) String() string {
	a := make([]string, len(t.Elems))
	for i, v := range t.Elems {
		a[i] = v.String()
	}
	return "[" + strings.Join(a, " ") + "]"
}

// TestContinuation references the code block of a continuation.
type TestContinuation struct {
	Block int
}

func (c TestContinuation) String() string { return fmt.Sprintf("cont@%d", c.Block) }

// TestNull is the null value.
type TestNull struct{}

func (TestNull) String() string { return "null" }

// TestRecord is a reproducible test case derived from one terminated path.
type TestRecord struct {
	ID       uuid.UUID
	MethodID int
	Status   ExecutionStatus

	// Set for failed paths only.
	ExitCode ExitCode
	Rule     string
	Loc      Location

	// Initial stack, bottom first, and the final stack without the exit code.
	Inputs  []TestValue
	Outputs []TestValue

	GasUsed int64
}

// Failed returns true if the record describes a failed path.
func (r *TestRecord) Failed() bool {
	return r.Status == ExecutionStatusFailed
}
