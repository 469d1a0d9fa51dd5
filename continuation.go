package tvmsym

import (
	"fmt"
)

// Continuation is a resumption point at the start of a code block.
type Continuation struct {
	Block int
}

// String returns the string representation of the continuation.
func (c *Continuation) String() string {
	return fmt.Sprintf("cont@%d", c.Block)
}

// callFrame is an entry of the call stack. Return is nil for the frame of the
// entry method.
type callFrame struct {
	Block  int
	Return *Location
}

// callDepth returns the number of frames on the call stack.
func (s *ExecutionState) callDepth() int {
	return s.calls.Len()
}

// jump transfers control to the first instruction of cont. If isCall is true,
// the successor of the current instruction is pushed as the return site.
func (s *ExecutionState) jump(cont *Continuation, isCall bool) {
	if isCall {
		ret := s.last.Next()
		s.calls = s.calls.Append(callFrame{Block: cont.Block, Return: &ret})
	} else if n := s.calls.Len(); n > 0 {
		// A tail jump replaces the block of the current frame.
		frame := s.calls.Get(n - 1).(callFrame)
		frame.Block = cont.Block
		s.calls = s.calls.Set(n-1, frame)
	}
	s.cont = cont
	s.loc = Location{Block: cont.Block}
}

// ret returns from the current block. Returning from the entry method
// terminates the state successfully.
func (s *ExecutionState) ret() {
	n := s.calls.Len()
	assert(n > 0, "return with empty call stack")

	frame := s.calls.Get(n - 1).(callFrame)
	s.calls = s.calls.Slice(0, n-1)

	if frame.Return == nil {
		s.succeed(Success{Block: frame.Block, Stack: s.stack})
		return
	}

	s.loc = *frame.Return
	s.cont = &Continuation{Block: frame.Return.Block}
}

// CallStack returns the blocks of the active frames, outermost first.
func (s *ExecutionState) CallStack() []int {
	a := make([]int, s.calls.Len())
	for i := range a {
		a[i] = s.calls.Get(i).(callFrame).Block
	}
	return a
}
