package tvmsym

import (
	"github.com/sirupsen/logrus"
)

// fork splits state on cond. The returned states are the branches where cond
// holds (t) and where it does not (f); a nil branch is infeasible.
//
// If both branches are feasible, they are new children of state and state
// itself stops executing. If only one branch is feasible, execution continues
// in state with the constraint added. If neither is feasible, state becomes
// unreachable and both branches are nil.
func (e *Executor) fork(state *ExecutionState, cond Expr) (t, f *ExecutionState, err error) {
	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.IsTrue() {
			return state, nil, nil
		}
		return nil, state, nil
	}
	notCond := NewNotExpr(cond)

	tSat, err := e.satisfiable(state, cond)
	if err != nil {
		return nil, nil, err
	}

	// Only explore a single branch at black listed locations.
	if tSat && e.blacklisted(state) {
		state.AddConstraint(cond)
		return state, nil, nil
	}

	fSat, err := e.satisfiable(state, notCond)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case tSat && fSat:
		state.forkCounts[state.last]++
		t, f = state.Fork(cond), state.Fork(notCond)
		e.log(state).WithFields(logrus.Fields{"true": t.id, "false": f.id}).Debug("fork")
		return t, f, nil
	case tSat:
		state.AddConstraint(cond)
		return state, nil, nil
	case fSat:
		state.AddConstraint(notCond)
		return nil, state, nil
	default:
		e.prune(state)
		return nil, nil, nil
	}
}

// forkMulti splits state over mutually exclusive conditions. The returned
// slice is aligned with conds and holds nil for infeasible conditions.
func (e *Executor) forkMulti(state *ExecutionState, conds []Expr) ([]*ExecutionState, error) {
	sat := make([]bool, len(conds))
	n := 0
	for i, cond := range conds {
		ok, err := e.satisfiable(state, cond)
		if err != nil {
			return nil, err
		} else if ok {
			sat[i] = true
			if n++; e.blacklisted(state) {
				break
			}
		}
	}

	branches := make([]*ExecutionState, len(conds))
	switch n {
	case 0:
		e.prune(state)
	case 1:
		for i := range conds {
			if sat[i] {
				state.AddConstraint(conds[i])
				branches[i] = state
			}
		}
	default:
		state.forkCounts[state.last]++
		ids := make([]int, 0, n)
		for i := range conds {
			if sat[i] {
				branches[i] = state.Fork(conds[i])
				ids = append(ids, branches[i].id)
			}
		}
		e.log(state).WithField("children", ids).Debug("fork")
	}
	return branches, nil
}

// check continues in the branch of state where cond holds and terminates the
// branch where it does not with a failure.
func (e *Executor) check(state *ExecutionState, cond Expr, code ExitCode) (*ExecutionState, error) {
	t, f, err := e.fork(state, cond)
	if err != nil {
		return nil, err
	} else if f != nil {
		f.fail(NewFailure(code))
		e.log(f).WithField("reason", f.reason).Debug("term")
	}
	return t, nil
}

// assume restricts state to the paths where cond holds without exploring
// the others.
func (e *Executor) assume(state *ExecutionState, cond Expr) (*ExecutionState, error) {
	if IsConstantTrue(cond) {
		return state, nil
	}
	ok, err := e.satisfiable(state, cond)
	if err != nil {
		return nil, err
	} else if !ok {
		e.prune(state)
		return nil, nil
	}
	state.AddConstraint(cond)
	return state, nil
}

// satisfiable returns true if the path constraints of state extended by cond
// can be satisfied.
func (e *Executor) satisfiable(state *ExecutionState, cond Expr) (bool, error) {
	if cond, ok := cond.(*ConstantExpr); ok {
		return cond.IsTrue(), nil
	}

	constraints := AddConstraint(state.constraints[:len(state.constraints):len(state.constraints)], cond)
	ok, _, err := e.Solver.Solve(constraints, nil)
	if err != nil {
		if e.UnknownAsUnsat {
			e.log(state).WithError(err).Warn("solver failure treated as unsatisfiable")
			return false, nil
		}
		return false, &SolverError{Err: err}
	}
	return ok, nil
}

// blacklisted returns true if forking at the current instruction is suppressed.
func (e *Executor) blacklisted(state *ExecutionState) bool {
	if e.Blacklist != nil && e.Blacklist.Contains(state.last) {
		return true
	}
	return e.MaxForksPerLocation > 0 && state.forkCounts[state.last] >= e.MaxForksPerLocation
}

// prune marks state as unreachable.
func (e *Executor) prune(state *ExecutionState) {
	state.status = ExecutionStatusUnreachable
	state.reason = "unsatisfiable path constraints"
	e.log(state).Debug("prune")
}
