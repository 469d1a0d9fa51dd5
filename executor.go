package tvmsym

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Executor interprets instructions of a contract on execution states. An
// executor holds no per-state data and may step any state of its contract,
// but it is not safe for concurrent use when its solver is not.
type Executor struct {
	Contract *Contract

	// Used for solving symbolic values.
	// Must set before execution.
	Solver Solver

	Logger logrus.FieldLogger

	// Initial gas limit and the ceiling that ACCEPT & SETGASLIMIT may raise it to.
	GasLimit int64
	GasMax   int64

	// If true, every step must charge gas unless its instruction is a
	// zero-cost meta instruction.
	StrictGas bool

	// If true, solver failures are treated as unsatisfiable queries.
	UnknownAsUnsat bool

	// Number of two-way forks allowed per instruction along a path before
	// only a single branch is explored. Zero means unbounded.
	MaxForksPerLocation int

	// Locations where only a single branch is explored.
	Blacklist mapset.Set[Location]
}

// NewExecutor returns a new instance of Executor.
func NewExecutor(contract *Contract, solver Solver) *Executor {
	return &Executor{
		Contract:  contract,
		Solver:    solver,
		Logger:    logrus.StandardLogger(),
		GasLimit:  DefaultGasLimit,
		GasMax:    DefaultGasLimit,
		StrictGas: true,
	}
}

// InitialState returns the state at the entry of a method. The args are
// placed on the initial stack, the last one on top; stack entries below them
// are symbolic inputs. Only integers, null & continuations can be passed.
func (e *Executor) InitialState(methodID int, args ...Value) (*ExecutionState, error) {
	block, err := e.Contract.Method(methodID)
	if err != nil {
		return nil, err
	}

	for _, arg := range args {
		switch arg.(type) {
		case IntValue, NullValue, *Continuation:
		default:
			return nil, errors.Errorf("unsupported method argument: %s", arg)
		}
	}

	s := newExecutionState(methodID, block, args)
	s.gasLimit, s.gasMax = e.GasLimit, e.GasMax
	if s.gasMax < s.gasLimit {
		s.gasMax = s.gasLimit
	}
	return s, nil
}

// Step executes the next instruction of state and returns the states that
// result from it: state itself, the leaves of its subtree if it forked, or
// none if the path turned out to be infeasible. Returned states are either
// running or terminated.
//
// Contract-level failures terminate states and are not returned as errors.
// An error is returned for malformed contracts and unsupported instructions.
func (e *Executor) Step(state *ExecutionState) ([]*ExecutionState, error) {
	assert(state.status == ExecutionStatusRunning, "cannot step %s state", state.status)
	assert(!state.Forked(), "cannot step forked state")

	loc := state.loc
	instr, err := e.Contract.Instr(loc)
	if err != nil {
		return nil, err
	}

	state.last, state.loc = loc, loc.Next()
	gas := state.gasUsed

	e.log(state).WithField("op", instr.String()).Debug("exec")

	if err = state.consume(e.instrGas(loc, instr)); err == nil {
		err = e.execute(state, instr)
	}

	var fe *failureError
	var se *SolverError
	switch {
	case err == nil:
	case errors.As(err, &fe):
		fe.state.fail(fe.failure)
	case errors.As(err, &se):
		for _, leaf := range state.Leaves() {
			if leaf.status == ExecutionStatusRunning {
				leaf.abort(se.Error())
			}
		}
	default:
		return nil, errors.Wrapf(err, "%s: %s", loc, instr)
	}

	var states []*ExecutionState
	for _, leaf := range state.Leaves() {
		switch leaf.status {
		case ExecutionStatusUnreachable:
			continue
		case ExecutionStatusRunning, ExecutionStatusSucceeded:
			if e.StrictGas && leaf.gasUsed <= gas && !instr.Op.IsMeta() {
				return nil, errors.Errorf("%s: %s: gas not charged", loc, instr)
			}
		}
		if leaf.Terminated() {
			e.log(leaf).WithFields(logrus.Fields{"status": leaf.status, "reason": leaf.reason}).Debug("term")
		}
		states = append(states, leaf)
	}
	return states, nil
}

// Run executes state depth-first until every path terminates and returns the
// terminated states.
func (e *Executor) Run(state *ExecutionState) ([]*ExecutionState, error) {
	searcher := NewDFSSearcher()
	searcher.AddState(state)

	var terminated []*ExecutionState
	for {
		s := searcher.SelectState()
		if s == nil {
			return terminated, nil
		}

		states, err := e.Step(s)
		if err != nil {
			return terminated, err
		}
		for _, other := range states {
			if other.Terminated() {
				terminated = append(terminated, other)
			} else {
				searcher.AddState(other)
			}
		}
	}
}

// execute dispatches instr to the handler of its family.
func (e *Executor) execute(state *ExecutionState, instr Instr) error {
	if instr.Op.IsAlias() {
		return e.execute(state, instr.canonical())
	}

	switch instr.Op.Family() {
	case FamilyStackBasic, FamilyStackComplex:
		return e.executeStackInstr(state, instr)
	case FamilyConstInt, FamilyConstData:
		return e.executeConstInstr(state, instr)
	case FamilyArithBasic, FamilyArithDiv:
		return e.executeArithInstr(state, instr)
	case FamilyArithLogical:
		return e.executeLogicalInstr(state, instr)
	case FamilyCompareInt, FamilyCompareOther:
		return e.executeCompareInstr(state, instr)
	case FamilyCellBuild:
		return e.executeCellBuildInstr(state, instr)
	case FamilyCellParse:
		return e.executeCellParseInstr(state, instr)
	case FamilyContBasic, FamilyContConditional, FamilyContRegisters, FamilyContDict:
		return e.executeContInstr(state, instr)
	case FamilyExceptions:
		return e.executeExceptionInstr(state, instr)
	case FamilyTuple:
		return e.executeTupleInstr(state, instr)
	case FamilyAddress:
		return e.executeAddressInstr(state, instr)
	case FamilyCurrency:
		return e.executeCurrencyInstr(state, instr)
	case FamilyGas:
		return e.executeGasInstr(state, instr)
	case FamilyGlobals:
		return e.executeGlobalInstr(state, instr)
	case FamilyDebug, FamilyCodepage:
		return e.executeDebugInstr(state, instr)
	default:
		return errors.Wrapf(ErrNotSupported, "%s instructions", instr.Op.Family())
	}
}

// notSupported returns an error for an instruction without modeled semantics.
func notSupported(instr Instr) error {
	return errors.Wrapf(ErrNotSupported, "%s", instr.Op)
}

// log returns a logger with the state fields attached.
func (e *Executor) log(state *ExecutionState) logrus.FieldLogger {
	logger := e.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(logrus.Fields{"state": state.id, "loc": state.last})
}
