package tvmsym

// Gas costs not covered by the opcode table.
const (
	// ImplicitRetGas is charged for the return at the end of a code block.
	ImplicitRetGas = 5

	// DefaultGasLimit is the gas limit of a method without ACCEPT.
	DefaultGasLimit = 1000000
)

// consume charges cost units of gas. Exceeding the gas limit terminates the
// state with an out-of-gas failure.
func (s *ExecutionState) consume(cost int64) error {
	assert(cost >= 0, "negative gas cost: %d", cost)
	s.gasUsed += cost
	if s.gasUsed > s.gasLimit {
		f := NewFailure(ExitOutOfGas)
		f.GasUsed, f.GasLimit = s.gasUsed, s.gasLimit
		return &failureError{state: s, failure: f}
	}
	return nil
}

// instrGas returns the base cost of the instruction at loc.
func (e *Executor) instrGas(loc Location, instr Instr) int64 {
	if e.Contract.IsImplicitRet(loc) {
		return ImplicitRetGas
	}
	return instr.Op.Gas()
}

// setGasLimit sets the gas limit to min(limit, max). A limit below the gas
// already consumed is an out-of-gas failure.
func (s *ExecutionState) setGasLimit(limit int64) error {
	if limit > s.gasMax {
		limit = s.gasMax
	}
	s.gasLimit = limit
	if s.gasUsed > limit {
		f := NewFailure(ExitOutOfGas)
		f.GasUsed, f.GasLimit = s.gasUsed, s.gasLimit
		return &failureError{state: s, failure: f}
	}
	return nil
}
