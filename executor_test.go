package tvmsym_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/benbjohnson/tvmsym"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// NewExecutor returns a new instance of Executor with a brute-force solver.
func NewExecutor(contract *tvmsym.Contract) *tvmsym.Executor {
	return tvmsym.NewExecutor(contract, NewSolver())
}

// NewMethod returns a contract holding a single method with id 0.
func NewMethod(instrs ...tvmsym.Instr) *tvmsym.Contract {
	c := tvmsym.NewContract()
	c.AddMethod(0, instrs...)
	return c
}

// MustRun explores a method to completion & returns the terminated states.
// Fatal on error.
func MustRun(tb testing.TB, contract *tvmsym.Contract, methodID int, args ...tvmsym.Value) []*tvmsym.ExecutionState {
	tb.Helper()

	e := NewExecutor(contract)
	state, err := e.InitialState(methodID, args...)
	if err != nil {
		tb.Fatal(err)
	}
	states, err := e.Run(state)
	if err != nil {
		tb.Fatal(err)
	}
	return states
}

// Filter returns the states with the given status.
func Filter(states []*tvmsym.ExecutionState, status tvmsym.ExecutionStatus) []*tvmsym.ExecutionState {
	var a []*tvmsym.ExecutionState
	for _, s := range states {
		if s.Status() == status {
			a = append(a, s)
		}
	}
	return a
}

// MustSucceed returns the single terminated state. Fatal if there is more
// than one state or the state did not succeed.
func MustSucceed(tb testing.TB, states []*tvmsym.ExecutionState) *tvmsym.ExecutionState {
	tb.Helper()
	if len(states) != 1 {
		tb.Fatalf("expected one state, got %d", len(states))
	} else if states[0].Status() != tvmsym.ExecutionStatusSucceeded {
		tb.Fatalf("unexpected status: %s (%s)", states[0].Status(), states[0].Reason())
	}
	return states[0]
}

// ExitCodes returns the exit codes of the failed states.
func ExitCodes(states []*tvmsym.ExecutionState) []tvmsym.ExitCode {
	var a []tvmsym.ExitCode
	for _, s := range Filter(states, tvmsym.ExecutionStatusFailed) {
		a = append(a, s.Result().(*tvmsym.Failure).ExitCode)
	}
	return a
}

// StackInts returns the constant integers of a stack, bottom first.
// Fatal if any entry is not a constant integer.
func StackInts(tb testing.TB, stack tvmsym.Stack) []*big.Int {
	tb.Helper()

	var a []*big.Int
	for _, v := range stack.Values() {
		iv, ok := v.(tvmsym.IntValue)
		if !ok {
			tb.Fatalf("expected int, got %s", v)
		}
		c, ok := iv.Expr.(*tvmsym.ConstantExpr)
		if !ok {
			tb.Fatalf("expected constant, got %s", iv.Expr)
		}
		a = append(a, c.Int())
	}
	return a
}

// RequireInts fails unless states is a single successful state whose stack
// holds the constant integers want, bottom first.
func RequireInts(tb testing.TB, states []*tvmsym.ExecutionState, want ...int64) {
	tb.Helper()
	state := MustSucceed(tb, states)
	if len(want) == 0 {
		require.Zero(tb, state.Stack().Len(), "stack: %s", state.Stack())
		return
	}
	if diff := cmp.Diff(StackInts(tb, state.Stack()), Ints(want...), bigIntComparer); diff != "" {
		tb.Fatal(diff)
	}
}

// Ints returns a list of big integers.
func Ints(a ...int64) []*big.Int {
	other := make([]*big.Int, len(a))
	for i, v := range a {
		other[i] = big.NewInt(v)
	}
	return other
}

var bigIntComparer = cmp.Comparer(func(x, y *big.Int) bool { return x.Cmp(y) == 0 })

var (
	intMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	intMin = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 256))
)

func TestExecutor_Add(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		states := MustRun(t, NewMethod(tvmsym.PushInt(5), tvmsym.PushInt(3), tvmsym.NewInstr(tvmsym.OpAdd)), 0)
		state := MustSucceed(t, states)
		if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(8), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		for _, tt := range []struct {
			name string
			a, b *big.Int
			want *big.Int // nil on overflow
		}{
			{"MaxPlusOne", intMax, big.NewInt(1), nil},
			{"MaxPlusZero", intMax, big.NewInt(0), intMax},
			{"MinMinusOne", intMin, big.NewInt(-1), nil},
			{"MinPlusMax", intMin, intMax, big.NewInt(-1)},
			{"MaxPlusMax", intMax, intMax, nil},
		} {
			t.Run(tt.name, func(t *testing.T) {
				states := MustRun(t, NewMethod(tvmsym.PushBigInt(tt.a), tvmsym.PushBigInt(tt.b), tvmsym.NewInstr(tvmsym.OpAdd)), 0)
				require.Len(t, states, 1)
				if tt.want == nil {
					require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOverflow}, ExitCodes(states))
					return
				}
				state := MustSucceed(t, states)
				if diff := cmp.Diff(StackInts(t, state.Stack()), []*big.Int{tt.want}, bigIntComparer); diff != "" {
					t.Fatal(diff)
				}
			})
		}
	})

	t.Run("Symbolic", func(t *testing.T) {
		states := MustRun(t, NewMethod(tvmsym.NewInstr(tvmsym.OpAdd)), 0)
		require.Len(t, Filter(states, tvmsym.ExecutionStatusSucceeded), 1)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOverflow, tvmsym.ExitIntegerOverflow}, ExitCodes(states))
	})
}

func TestExecutor_SwapPop(t *testing.T) {
	states := MustRun(t, NewMethod(
		tvmsym.PushInt(0),
		tvmsym.PushInt(5),
		tvmsym.NewInstr(tvmsym.OpSwap),
		tvmsym.NewInstr(tvmsym.OpPop, 1),
	), 0)
	state := MustSucceed(t, states)
	if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(0), bigIntComparer); diff != "" {
		t.Fatal(diff)
	}
}

func TestExecutor_Div(t *testing.T) {
	t.Run("ByZero", func(t *testing.T) {
		// The dividend is a symbolic input.
		states := MustRun(t, NewMethod(tvmsym.PushInt(0), tvmsym.NewInstr(tvmsym.OpDiv)), 0)
		require.Len(t, states, 1)
		require.Empty(t, Filter(states, tvmsym.ExecutionStatusSucceeded))
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOverflow}, ExitCodes(states))
	})

	t.Run("Truncate", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.PushInt(-7), tvmsym.PushInt(2), tvmsym.NewInstr(tvmsym.OpDivMod),
		), 0)
		state := MustSucceed(t, states)
		if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(-3, -1), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("MinByMinusOne", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.PushBigInt(intMin), tvmsym.PushInt(-1), tvmsym.NewInstr(tvmsym.OpDiv),
		), 0)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOverflow}, ExitCodes(states))
	})
}

func TestExecutor_SEmpty(t *testing.T) {
	for _, tt := range []struct {
		name   string
		instrs []tvmsym.Instr
		want   int64
	}{
		{"Empty", []tvmsym.Instr{tvmsym.PushSlice("")}, -1},
		{"Data", []tvmsym.Instr{tvmsym.PushSlice("1")}, 0},
		{"Consumed", []tvmsym.Instr{
			tvmsym.PushSlice("101"),
			tvmsym.NewInstr(tvmsym.OpLdU, 3),
			tvmsym.NewInstr(tvmsym.OpNip),
		}, -1},
		{"Refs", []tvmsym.Instr{
			tvmsym.NewInstr(tvmsym.OpNewC),
			tvmsym.NewInstr(tvmsym.OpEndC),
			tvmsym.NewInstr(tvmsym.OpNewC),
			tvmsym.NewInstr(tvmsym.OpStRef),
			tvmsym.NewInstr(tvmsym.OpEndC),
			tvmsym.NewInstr(tvmsym.OpCtos),
		}, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			states := MustRun(t, NewMethod(append(tt.instrs, tvmsym.NewInstr(tvmsym.OpSEmpty))...), 0)
			state := MustSucceed(t, states)
			if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(tt.want), bigIntComparer); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	// An input slice is empty on one path only; the resolved slice agrees.
	t.Run("Input", func(t *testing.T) {
		contract := NewMethod(tvmsym.NewInstr(tvmsym.OpSEmpty), tvmsym.NewInstr(tvmsym.OpThrowIf, 77))
		states := MustRun(t, contract, 0)
		require.Len(t, states, 2)

		for _, state := range states {
			r, err := tvmsym.NewResolver(NewSolver(), state)
			require.NoError(t, err)
			inputs, err := r.Inputs()
			require.NoError(t, err)
			require.Len(t, inputs, 1)

			s := inputs[0].(*tvmsym.TestSlice)
			empty := s.Remaining() == "" && s.RefPos == len(s.Cell.Refs)
			require.Equal(t, state.Status() == tvmsym.ExecutionStatusFailed, empty, "state %d: %s", state.ID(), s)
		}
	})
}

func TestExecutor_StoreLoad(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.PushInt(5),
			tvmsym.NewInstr(tvmsym.OpNewC),
			tvmsym.NewInstr(tvmsym.OpStU, 8),
			tvmsym.PushInt(-3),
			tvmsym.NewInstr(tvmsym.OpSwap),
			tvmsym.NewInstr(tvmsym.OpStI, 4),
			tvmsym.PushInt(1000),
			tvmsym.NewInstr(tvmsym.OpSwap),
			tvmsym.NewInstr(tvmsym.OpStU, 16),
			tvmsym.NewInstr(tvmsym.OpEndC),
			tvmsym.NewInstr(tvmsym.OpCtos),
			tvmsym.NewInstr(tvmsym.OpLdU, 8),
			tvmsym.NewInstr(tvmsym.OpLdI, 4),
			tvmsym.NewInstr(tvmsym.OpLdU, 16),
			tvmsym.NewInstr(tvmsym.OpEnds),
		), 0)
		state := MustSucceed(t, states)
		if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(5, -3, 1000), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})

	// A symbolic input survives a store & load unchanged; values outside
	// the field width fail the range check.
	t.Run("Symbolic", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.NewInstr(tvmsym.OpDup),
			tvmsym.NewInstr(tvmsym.OpNewC),
			tvmsym.NewInstr(tvmsym.OpStU, 8),
			tvmsym.NewInstr(tvmsym.OpEndC),
			tvmsym.NewInstr(tvmsym.OpCtos),
			tvmsym.NewInstr(tvmsym.OpLdU, 8),
			tvmsym.NewInstr(tvmsym.OpEnds),
			tvmsym.NewInstr(tvmsym.OpEqual),
			tvmsym.NewInstr(tvmsym.OpThrowIfNot, 99),
		), 0)
		require.Len(t, Filter(states, tvmsym.ExecutionStatusSucceeded), 1)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOutOfRange}, ExitCodes(states))
	})

	t.Run("SymbolicValue", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.NewInstr(tvmsym.OpNewC),
			tvmsym.NewInstr(tvmsym.OpStU, 8),
			tvmsym.NewInstr(tvmsym.OpEndC),
			tvmsym.NewInstr(tvmsym.OpCtos),
			tvmsym.NewInstr(tvmsym.OpLdU, 8),
			tvmsym.NewInstr(tvmsym.OpEnds),
		), 0)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOutOfRange}, ExitCodes(states))

		ok := Filter(states, tvmsym.ExecutionStatusSucceeded)
		require.Len(t, ok, 1)
		r, err := tvmsym.NewResolver(NewSolver(), ok[0])
		require.NoError(t, err)
		inputs, err := r.Inputs()
		require.NoError(t, err)
		require.Len(t, inputs, 1)

		values := ok[0].Stack().Values()
		require.Len(t, values, 1)
		got, err := r.Resolve(values[0])
		require.NoError(t, err)
		require.Equal(t, 0, inputs[0].(tvmsym.TestInt).Value.Cmp(got.(tvmsym.TestInt).Value))
	})

	t.Run("OutOfRange", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.PushInt(256),
			tvmsym.NewInstr(tvmsym.OpNewC),
			tvmsym.NewInstr(tvmsym.OpStU, 8),
		), 0)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOutOfRange}, ExitCodes(states))
	})

	t.Run("Underflow", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.PushSlice("1010"),
			tvmsym.NewInstr(tvmsym.OpLdU, 5),
		), 0)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitCellUnderflow}, ExitCodes(states))
	})

	for _, tt := range []struct {
		name string
		n    int
		code tvmsym.ExitCode // zero on success
	}{
		{"AtLimit", 23, 0},
		{"OverLimit", 24, tvmsym.ExitCellOverflow},
	} {
		t.Run(tt.name, func(t *testing.T) {
			states := MustRun(t, NewMethod(
				tvmsym.PushSlice(strings.Repeat("1", 1000)),
				tvmsym.NewInstr(tvmsym.OpNewC),
				tvmsym.NewInstr(tvmsym.OpStSlice),
				tvmsym.PushInt(0),
				tvmsym.NewInstr(tvmsym.OpSwap),
				tvmsym.NewInstr(tvmsym.OpStU, tt.n),
				tvmsym.NewInstr(tvmsym.OpBBits),
			), 0)
			if tt.code != 0 {
				require.Equal(t, []tvmsym.ExitCode{tt.code}, ExitCodes(states))
				return
			}
			state := MustSucceed(t, states)
			if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(1023), bigIntComparer); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestExecutor_Continuations(t *testing.T) {
	t.Run("IfElse", func(t *testing.T) {
		c := tvmsym.NewContract()
		then := c.AddLambda(tvmsym.PushInt(1))
		els := c.AddLambda(tvmsym.PushInt(2))
		c.AddMethod(0, tvmsym.PushCont(then), tvmsym.PushCont(els), tvmsym.NewInstr(tvmsym.OpIfElse), tvmsym.PushInt(3))

		states := MustRun(t, c, 0)
		require.Len(t, Filter(states, tvmsym.ExecutionStatusSucceeded), 2)

		var got []int64
		for _, state := range states {
			values := state.Stack().Values()
			require.Len(t, values, 2)
			got = append(got, values[0].(tvmsym.IntValue).Expr.(*tvmsym.ConstantExpr).Int().Int64())
		}
		require.ElementsMatch(t, []int64{1, 2}, got)
	})

	t.Run("CallDict", func(t *testing.T) {
		c := tvmsym.NewContract()
		c.AddMethod(1, tvmsym.NewInstr(tvmsym.OpInc))
		c.AddMethod(0, tvmsym.PushInt(4), tvmsym.NewInstr(tvmsym.OpCallDict, 1), tvmsym.PushInt(2), tvmsym.NewInstr(tvmsym.OpMul))

		state := MustSucceed(t, MustRun(t, c, 0))
		if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(10), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UnknownMethod", func(t *testing.T) {
		c := NewMethod(tvmsym.NewInstr(tvmsym.OpCallDict, 99))
		e := NewExecutor(c)
		state, err := e.InitialState(0)
		require.NoError(t, err)
		_, err = e.Run(state)
		require.ErrorIs(t, err, tvmsym.ErrUnknownMethod)
	})
}

func TestExecutor_Throw(t *testing.T) {
	states := MustRun(t, NewMethod(tvmsym.PushInt(1), tvmsym.NewInstr(tvmsym.OpThrowIf, 42)), 0)
	require.Equal(t, []tvmsym.ExitCode{42}, ExitCodes(states))

	f := states[0].Result().(*tvmsym.Failure)
	require.Equal(t, "user-defined-error", f.Rule)
	require.Equal(t, tvmsym.Location{Block: 0, Index: 1}, f.Loc)

	// The exit code is pushed on top of the stack.
	if diff := cmp.Diff(StackInts(t, states[0].Stack()), Ints(42), bigIntComparer); diff != "" {
		t.Fatal(diff)
	}
}

func TestExecutor_Tuple(t *testing.T) {
	t.Run("IndexOutOfRange", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.PushInt(1), tvmsym.PushInt(2), tvmsym.NewInstr(tvmsym.OpPair),
			tvmsym.NewInstr(tvmsym.OpIndex, 2),
		), 0)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitIntegerOutOfRange}, ExitCodes(states))
	})

	t.Run("Unpair", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.PushInt(1), tvmsym.PushInt(2), tvmsym.NewInstr(tvmsym.OpPair),
			tvmsym.NewInstr(tvmsym.OpDup), tvmsym.NewInstr(tvmsym.OpTLen),
			tvmsym.NewInstr(tvmsym.OpSwap), tvmsym.NewInstr(tvmsym.OpUnpair),
		), 0)
		state := MustSucceed(t, states)
		if diff := cmp.Diff(StackInts(t, state.Stack()), Ints(2, 1, 2), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("WrongType", func(t *testing.T) {
		states := MustRun(t, NewMethod(tvmsym.PushInt(1), tvmsym.NewInstr(tvmsym.OpTLen)), 0)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitWrongType}, ExitCodes(states))
	})
}

func TestExecutor_IsNull(t *testing.T) {
	for _, tt := range []struct {
		name   string
		instrs []tvmsym.Instr
		want   int64
	}{
		{"ISNULL/Null", []tvmsym.Instr{tvmsym.NewInstr(tvmsym.OpNull), tvmsym.NewInstr(tvmsym.OpIsNull)}, -1},
		{"ISNULL/Int", []tvmsym.Instr{tvmsym.PushInt(0), tvmsym.NewInstr(tvmsym.OpIsNull)}, 0},
		{"ISTUPLE/Tuple", []tvmsym.Instr{tvmsym.NewInstr(tvmsym.OpNil), tvmsym.NewInstr(tvmsym.OpIsTuple)}, -1},
		{"ISTUPLE/Null", []tvmsym.Instr{tvmsym.NewInstr(tvmsym.OpNull), tvmsym.NewInstr(tvmsym.OpIsTuple)}, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			RequireInts(t, MustRun(t, NewMethod(tt.instrs...), 0), tt.want)
		})
	}

	// An input of unknown kind is split into the tested kind & an integer.
	t.Run("Input", func(t *testing.T) {
		for _, tt := range []struct {
			op   tvmsym.Opcode
			kind tvmsym.TestValue
		}{
			{tvmsym.OpIsNull, tvmsym.TestNull{}},
			{tvmsym.OpIsTuple, &tvmsym.TestTuple{}},
		} {
			t.Run(tt.op.String(), func(t *testing.T) {
				states := MustRun(t, NewMethod(tvmsym.NewInstr(tt.op), tvmsym.NewInstr(tvmsym.OpThrowIf, 40)), 0)
				require.Equal(t, []tvmsym.ExitCode{40}, ExitCodes(states))
				require.Len(t, Filter(states, tvmsym.ExecutionStatusSucceeded), 1)

				for _, state := range states {
					r, err := tvmsym.NewResolver(NewSolver(), state)
					require.NoError(t, err)
					inputs, err := r.Inputs()
					require.NoError(t, err)
					require.Len(t, inputs, 1)

					if state.Status() == tvmsym.ExecutionStatusFailed {
						require.IsType(t, tt.kind, inputs[0])
					} else {
						require.IsType(t, tvmsym.TestInt{}, inputs[0])
					}
				}
			})
		}
	})

	// A materialized input keeps its kind.
	t.Run("Resolved", func(t *testing.T) {
		states := MustRun(t, NewMethod(
			tvmsym.NewInstr(tvmsym.OpDup),
			tvmsym.NewInstr(tvmsym.OpEqInt, 5),
			tvmsym.NewInstr(tvmsym.OpDrop),
			tvmsym.NewInstr(tvmsym.OpIsNull),
		), 0)
		RequireInts(t, states, 0)
	})
}

func TestExecutor_NotSupported(t *testing.T) {
	for _, op := range []tvmsym.Opcode{tvmsym.OpDepth, tvmsym.OpDictGet, tvmsym.OpNow, tvmsym.OpRetAlt} {
		t.Run(op.String(), func(t *testing.T) {
			e := NewExecutor(NewMethod(tvmsym.NewInstr(op)))
			state, err := e.InitialState(0)
			require.NoError(t, err)
			_, err = e.Run(state)
			require.ErrorIs(t, err, tvmsym.ErrNotSupported)
		})
	}
}

func TestExecutor_PushIntWithoutLiteral(t *testing.T) {
	for _, op := range []tvmsym.Opcode{tvmsym.OpPushInt8, tvmsym.OpPushInt16, tvmsym.OpPushIntLong} {
		t.Run(op.String(), func(t *testing.T) {
			c := NewMethod(tvmsym.Instr{Op: op})
			require.ErrorIs(t, c.Validate(), tvmsym.ErrInvalidContract)

			e := NewExecutor(c)
			state, err := e.InitialState(0)
			require.NoError(t, err)
			_, err = e.Run(state)
			require.ErrorIs(t, err, tvmsym.ErrInvalidContract)
		})
	}
}

func TestExecutor_Gas(t *testing.T) {
	t.Run("Monotonic", func(t *testing.T) {
		c := NewMethod(
			tvmsym.NewInstr(tvmsym.OpSetCp, 0),
			tvmsym.PushInt(5),
			tvmsym.NewInstr(tvmsym.OpDebug, 1),
			tvmsym.NewInstr(tvmsym.OpDup),
			tvmsym.NewInstr(tvmsym.OpMul),
			tvmsym.NewInstr(tvmsym.OpNewC),
			tvmsym.NewInstr(tvmsym.OpStU, 8),
			tvmsym.NewInstr(tvmsym.OpEndC),
		)
		e := NewExecutor(c)
		state, err := e.InitialState(0)
		require.NoError(t, err)

		for !state.Terminated() {
			instr, err := c.Instr(state.Location())
			require.NoError(t, err)

			gas := state.GasUsed()
			states, err := e.Step(state)
			require.NoError(t, err)
			require.Len(t, states, 1)
			state = states[0]

			if instr.Op.IsMeta() {
				require.Equal(t, gas, state.GasUsed(), "%s", instr)
			} else {
				require.Greater(t, state.GasUsed(), gas, "%s", instr)
			}
		}
		require.Equal(t, tvmsym.ExecutionStatusSucceeded, state.Status())
	})

	t.Run("OutOfGas", func(t *testing.T) {
		e := NewExecutor(NewMethod(tvmsym.PushInt(1), tvmsym.PushInt(2), tvmsym.PushInt(3)))
		e.GasLimit = 40
		state, err := e.InitialState(0)
		require.NoError(t, err)
		states, err := e.Run(state)
		require.NoError(t, err)
		require.Equal(t, []tvmsym.ExitCode{tvmsym.ExitOutOfGas}, ExitCodes(states))
	})
}
