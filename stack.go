package tvmsym

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/immutable"
)

// Stack is a persistent operand stack. The top of the stack is the last entry
// of the list. Accessing entries below the bottom extends the stack downwards
// with input placeholders, so every operation is total.
//
// Stack has value semantics: operations return an updated copy and leave the
// receiver unchanged.
type Stack struct {
	list   *immutable.List
	inputs int // number of input placeholders added below the initial bottom
}

// NewStack returns a stack holding values, the last value on top.
func NewStack(values ...Value) Stack {
	list := immutable.NewList()
	for _, v := range values {
		list = list.Append(v)
	}
	return Stack{list: list}
}

// Len returns the number of entries currently on the stack.
func (s Stack) Len() int {
	if s.list == nil {
		return 0
	}
	return s.list.Len()
}

// Inputs returns the number of input placeholders created so far.
func (s Stack) Inputs() int { return s.inputs }

// Values returns the entries from bottom to top.
func (s Stack) Values() []Value {
	a := make([]Value, s.Len())
	for i := range a {
		a[i] = s.list.Get(i).(Value)
	}
	return a
}

// ensure returns a stack with at least n entries.
func (s Stack) ensure(n int) Stack {
	if s.list == nil {
		s.list = immutable.NewList()
	}
	for s.list.Len() < n {
		s.list = s.list.Prepend(InputValue{Index: s.inputs})
		s.inputs++
	}
	return s
}

// index returns the list index of the entry at depth.
func (s Stack) index(depth int) int {
	return s.list.Len() - 1 - depth
}

// Peek returns the entry at depth, counted from the top.
func (s Stack) Peek(depth int) (Stack, Value) {
	assert(depth >= 0, "negative stack depth: %d", depth)
	s = s.ensure(depth + 1)
	return s, s.list.Get(s.index(depth)).(Value)
}

// Push adds v on top of the stack.
func (s Stack) Push(v Value) Stack {
	if s.list == nil {
		s.list = immutable.NewList()
	}
	s.list = s.list.Append(v)
	return s
}

// Pop removes and returns the top entry.
func (s Stack) Pop() (Stack, Value) {
	s, v := s.Peek(0)
	s.list = s.list.Slice(0, s.list.Len()-1)
	return s, v
}

// Set replaces the entry at depth.
func (s Stack) Set(depth int, v Value) Stack {
	assert(depth >= 0, "negative stack depth: %d", depth)
	s = s.ensure(depth + 1)
	s.list = s.list.Set(s.index(depth), v)
	return s
}

// Dup pushes a copy of the entry at depth.
func (s Stack) Dup(depth int) Stack {
	s, v := s.Peek(depth)
	return s.Push(v)
}

// PopTo removes the top entry and, if i is positive, stores it at depth i-1
// of the remaining stack.
func (s Stack) PopTo(i int) Stack {
	assert(i >= 0, "negative stack depth: %d", i)
	s = s.ensure(i + 1)
	s, v := s.Pop()
	if i > 0 {
		s = s.Set(i-1, v)
	}
	return s
}

// Swap exchanges the entries at depths i and j.
func (s Stack) Swap(i, j int) Stack {
	if i == j {
		return s.ensure(i + 1)
	}
	s, x := s.Peek(i)
	s, y := s.Peek(j)
	return s.Set(i, y).Set(j, x)
}

// BlkDrop2 removes i entries below the top j entries.
func (s Stack) BlkDrop2(i, j int) Stack {
	assert(i >= 0 && j >= 0, "negative stack depth: %d, %d", i, j)
	if i == 0 {
		return s.ensure(j)
	}
	s = s.ensure(i + j)
	n := s.list.Len()
	list := s.list.Slice(0, n-i-j)
	for k := n - j; k < n; k++ {
		list = list.Append(s.list.Get(k))
	}
	s.list = list
	return s
}

// Reverse reverses the order of count entries starting at depth start.
func (s Stack) Reverse(count, start int) Stack {
	assert(count >= 0 && start >= 0, "negative stack depth: %d, %d", count, start)
	s = s.ensure(count + start)
	for i, j := start, start+count-1; i < j; i, j = i+1, j-1 {
		s = s.Swap(i, j)
	}
	return s
}

// BlkSwap exchanges the block of i entries below the top j entries with
// those j entries. Both sizes must be positive.
func (s Stack) BlkSwap(i, j int) Stack {
	return s.Reverse(i, j).Reverse(j, 0).Reverse(i+j, 0)
}

// Puxc pushes a copy of entry i, then exchanges the previous top with entry j.
func (s Stack) Puxc(i, j int) Stack {
	return s.Dup(i).Swap(0, 1).Swap(0, j+1)
}

// Xchg2 exchanges entry i with depth 1 and entry j with the top.
func (s Stack) Xchg2(i, j int) Stack {
	return s.Swap(1, i).Swap(0, j)
}

// Xchg3 exchanges entries i, j & k with depths 2, 1 & 0.
func (s Stack) Xchg3(i, j, k int) Stack {
	return s.Swap(2, i).Swap(1, j).Swap(0, k)
}

// String returns the entries from bottom to top.
func (s Stack) String() string {
	var buf bytes.Buffer
	buf.WriteRune('[')
	for i, v := range s.Values() {
		if i > 0 {
			buf.WriteRune(' ')
		}
		fmt.Fprint(&buf, v.String())
	}
	buf.WriteRune(']')
	return buf.String()
}
