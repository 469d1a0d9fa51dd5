package tvmsym

import (
	"github.com/pkg/errors"
)

func (e *Executor) executeContInstr(state *ExecutionState, instr Instr) error {
	switch instr.Op {
	case OpExecute, OpJmpX:
		cont, err := state.popCont()
		if err != nil {
			return err
		}
		state.jump(cont, instr.Op == OpExecute)
		return nil

	case OpRet:
		state.ret()
		return nil

	case OpIfRet, OpIfNotRet:
		x, err := state.popInt()
		if err != nil {
			return err
		}
		t, f, err := e.fork(state, isTrue(x))
		if err != nil {
			return err
		}
		if instr.Op == OpIfNotRet {
			t, f = f, t
		}
		if t != nil {
			t.ret()
		}
		return nil

	case OpIf, OpIfNot, OpIfJmp, OpIfNotJmp:
		cont, err := state.popCont()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}
		t, f, err := e.fork(state, isTrue(x))
		if err != nil {
			return err
		}
		if instr.Op == OpIfNot || instr.Op == OpIfNotJmp {
			t, f = f, t
		}
		if t != nil {
			t.jump(cont, instr.Op == OpIf || instr.Op == OpIfNot)
		}
		return nil

	case OpIfElse:
		other, err := state.popCont()
		if err != nil {
			return err
		}
		cont, err := state.popCont()
		if err != nil {
			return err
		}
		x, err := state.popInt()
		if err != nil {
			return err
		}
		t, f, err := e.fork(state, isTrue(x))
		if err != nil {
			return err
		}
		if t != nil {
			t.jump(cont, true)
		}
		if f != nil {
			f.jump(other, true)
		}
		return nil

	case OpCallDict, OpJmpDict:
		block, err := e.Contract.Method(instr.I)
		if err != nil {
			return err
		}
		state.jump(&Continuation{Block: block}, instr.Op == OpCallDict)
		return nil

	case OpDictPushConst:
		return nil

	case OpDictIGetJmpZ:
		return e.executeDictIGetJmpZ(state)

	case OpPushCtr:
		switch instr.I {
		case 3:
			block, err := e.Contract.Method(MainMethodID)
			if err != nil {
				return err
			}
			state.push(&Continuation{Block: block})
		case 4:
			if state.c4 == 0 {
				state.c4 = state.allocInputCell("c4")
			}
			state.push(CellValue{Addr: state.c4})
		default:
			return errors.Wrapf(ErrNotSupported, "%s c%d", instr.Op, instr.I)
		}
		return nil

	case OpPopCtr:
		if instr.I != 4 {
			return errors.Wrapf(ErrNotSupported, "%s c%d", instr.Op, instr.I)
		}
		c, err := state.popCell()
		if err != nil {
			return err
		}
		state.c4 = c
		return nil

	default:
		return notSupported(instr)
	}
}

// executeDictIGetJmpZ jumps to the method whose id is on top of the stack.
// The dictionary is the method table of the contract, so DICTPUSHCONST pushes
// nothing and only the id is popped. An id missing from the table is pushed
// back and execution falls through.
func (e *Executor) executeDictIGetJmpZ(state *ExecutionState) error {
	id, err := state.popInt()
	if err != nil {
		return err
	}

	if c, ok := id.(*ConstantExpr); ok {
		if v := c.Int(); v.IsInt64() {
			if block, ok := e.Contract.Methods[int(v.Int64())]; ok {
				state.jump(&Continuation{Block: block}, false)
				return nil
			}
		}
		state.pushInt(id)
		return nil
	}

	ids := e.Contract.MethodIDs()
	conds := make([]Expr, len(ids)+1)
	missing := Expr(NewBoolConstantExpr(true))
	for i, methodID := range ids {
		conds[i] = NewBinaryExpr(EQ, id, newInt(int64(methodID)))
		missing = NewBinaryExpr(AND, missing, NewNotExpr(conds[i]))
	}
	conds[len(ids)] = missing

	states, err := e.forkMulti(state, conds)
	if err != nil {
		return err
	}
	for i, s := range states[:len(ids)] {
		if s != nil {
			s.jump(&Continuation{Block: e.Contract.Methods[ids[i]]}, false)
		}
	}
	if s := states[len(ids)]; s != nil {
		s.pushInt(id)
	}
	return nil
}
