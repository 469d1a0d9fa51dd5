package z3_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/tvmsym"
	"github.com/benbjohnson/tvmsym/z3"
	"github.com/google/go-cmp/cmp"
)

func TestSolver_Solve(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		t.Run("True", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, _, err := s.Solve([]tvmsym.Expr{tvmsym.NewBoolConstantExpr(true)}, nil); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("False", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, _, err := s.Solve([]tvmsym.Expr{tvmsym.NewBoolConstantExpr(false)}, nil); err != nil {
				t.Fatal(err)
			} else if satisfiable {
				t.Fatal("expected unsatisfiable")
			}
		})
		t.Run("Wide", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			x := new(big.Int).Lsh(big.NewInt(1), 256)
			if satisfiable, _, err := s.Solve([]tvmsym.Expr{
				&tvmsym.BinaryExpr{
					Op:  tvmsym.EQ,
					LHS: tvmsym.NewBigConstantExpr(x, tvmsym.WidthInt),
					RHS: tvmsym.NewBigConstantExpr(x, tvmsym.WidthInt),
				},
			}, nil); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			}
		})
	})

	t.Run("Var", func(t *testing.T) {
		t.Run("Int", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			x := tvmsym.NewVarExpr(1, "x", tvmsym.WidthInt)
			if satisfiable, values, err := s.Solve([]tvmsym.Expr{
				tvmsym.NewBinaryExpr(tvmsym.EQ,
					tvmsym.NewBinaryExpr(tvmsym.ADD, x, tvmsym.NewIntConstantExpr(3, tvmsym.WidthInt)),
					tvmsym.NewIntConstantExpr(-5, tvmsym.WidthInt),
				),
			}, []*tvmsym.VarExpr{x}); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if diff := cmp.Diff(values[0].Int(), big.NewInt(-8), bigIntComparer); diff != "" {
				t.Fatal(diff)
			}
		})
		t.Run("Bool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			b := tvmsym.NewVarExpr(1, "b", tvmsym.WidthBool)
			if satisfiable, values, err := s.Solve([]tvmsym.Expr{
				tvmsym.NewIsZeroExpr(b),
			}, []*tvmsym.VarExpr{b}); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if !values[0].IsFalse() {
				t.Fatalf("unexpected value: %s", values[0])
			}
		})
		t.Run("Unconstrained", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			x := tvmsym.NewVarExpr(1, "x", tvmsym.WidthSize)
			y := tvmsym.NewVarExpr(2, "y", tvmsym.WidthSize)
			if satisfiable, values, err := s.Solve([]tvmsym.Expr{
				tvmsym.NewBinaryExpr(tvmsym.EQ, x, tvmsym.NewConstantExpr32(7)),
			}, []*tvmsym.VarExpr{x, y}); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if got := values[0].Uint64(); got != 7 {
				t.Fatalf("unexpected x: %d", got)
			} else if values[1].Width != tvmsym.WidthSize {
				t.Fatalf("unexpected y width: %d", values[1].Width)
			}
		})
		t.Run("Unsatisfiable", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			x := tvmsym.NewVarExpr(1, "x", tvmsym.WidthSize)
			if satisfiable, _, err := s.Solve([]tvmsym.Expr{
				tvmsym.NewBinaryExpr(tvmsym.ULT, x, tvmsym.NewConstantExpr32(3)),
				tvmsym.NewBinaryExpr(tvmsym.UGT, x, tvmsym.NewConstantExpr32(5)),
			}, []*tvmsym.VarExpr{x}); err != nil {
				t.Fatal(err)
			} else if satisfiable {
				t.Fatal("expected unsatisfiable")
			}
		})
	})

	t.Run("Cast", func(t *testing.T) {
		t.Run("Signed", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			x := tvmsym.NewVarExpr(1, "x", 8)
			if satisfiable, values, err := s.Solve([]tvmsym.Expr{
				&tvmsym.BinaryExpr{
					Op:  tvmsym.EQ,
					LHS: &tvmsym.CastExpr{Src: x, Width: 16, Signed: true},
					RHS: tvmsym.NewConstantExpr(0xFFFE, 16),
				},
			}, []*tvmsym.VarExpr{x}); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if got := values[0].Uint64(); got != 0xFE {
				t.Fatalf("unexpected x: %x", got)
			}
		})
		t.Run("UnsignedBool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, _, err := s.Solve([]tvmsym.Expr{
				&tvmsym.BinaryExpr{
					Op:  tvmsym.EQ,
					LHS: &tvmsym.CastExpr{Src: tvmsym.NewBoolConstantExpr(true), Width: 16},
					RHS: tvmsym.NewConstantExpr(1, 16),
				},
			}, nil); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			}
		})
	})

	t.Run("Ite", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := tvmsym.NewVarExpr(1, "x", tvmsym.WidthSize)
		if satisfiable, values, err := s.Solve([]tvmsym.Expr{
			&tvmsym.BinaryExpr{
				Op: tvmsym.EQ,
				LHS: &tvmsym.IteExpr{
					Cond: &tvmsym.BinaryExpr{Op: tvmsym.ULT, LHS: x, RHS: tvmsym.NewConstantExpr32(10)},
					Then: tvmsym.NewConstantExpr32(1),
					Else: tvmsym.NewConstantExpr32(2),
				},
				RHS: tvmsym.NewConstantExpr32(2),
			},
		}, []*tvmsym.VarExpr{x}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		} else if got := values[0].Uint64(); got < 10 {
			t.Fatalf("unexpected x: %d", got)
		}
	})

	t.Run("ConcatExtract", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := tvmsym.NewVarExpr(1, "x", 8)
		if satisfiable, values, err := s.Solve([]tvmsym.Expr{
			&tvmsym.BinaryExpr{
				Op:  tvmsym.EQ,
				LHS: &tvmsym.ConcatExpr{MSB: x, LSB: tvmsym.NewConstantExpr(0x34, 8)},
				RHS: tvmsym.NewConstantExpr(0x1234, 16),
			},
			&tvmsym.ExtractExpr{Expr: x, Offset: 4, Width: 1},
		}, []*tvmsym.VarExpr{x}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		} else if got := values[0].Uint64(); got != 0x12 {
			t.Fatalf("unexpected x: %x", got)
		}
	})

	t.Run("BinaryExpr", func(t *testing.T) {
		for _, tt := range []struct {
			op       tvmsym.BinaryOp
			lhs, rhs int64
			want     int64
		}{
			{tvmsym.ADD, 1000, 200, 1200},
			{tvmsym.SUB, 1000, 200, 800},
			{tvmsym.MUL, 30, 200, 6000},
			{tvmsym.UDIV, 1000, 200, 5},
			{tvmsym.SDIV, -1000, 200, -5},
			{tvmsym.UREM, 1003, 200, 3},
			{tvmsym.SREM, -1003, 200, -3},
			{tvmsym.AND, 0x0FF0, 0x00FF, 0x00F0},
			{tvmsym.OR, 0x0F00, 0x00F0, 0x0FF0},
			{tvmsym.XOR, 0x0FF0, 0x00FF, 0x0F0F},
			{tvmsym.SHL, 0x0001, 4, 0x0010},
			{tvmsym.LSHR, 0x0100, 4, 0x0010},
			{tvmsym.ASHR, -16, 2, -4},
		} {
			t.Run(tt.op.String(), func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if satisfiable, _, err := s.Solve([]tvmsym.Expr{
					&tvmsym.BinaryExpr{
						Op: tvmsym.EQ,
						LHS: &tvmsym.BinaryExpr{
							Op:  tt.op,
							LHS: tvmsym.NewIntConstantExpr(tt.lhs, 16),
							RHS: tvmsym.NewIntConstantExpr(tt.rhs, 16),
						},
						RHS: tvmsym.NewIntConstantExpr(tt.want, 16),
					},
				}, nil); err != nil {
					t.Fatal(err)
				} else if !satisfiable {
					t.Fatal("expected satisfiable")
				}
			})
		}

		t.Run("BoolXOR", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, _, err := s.Solve([]tvmsym.Expr{
				&tvmsym.BinaryExpr{Op: tvmsym.XOR, LHS: tvmsym.NewBoolConstantExpr(true), RHS: tvmsym.NewBoolConstantExpr(true)},
			}, nil); err != nil {
				t.Fatal(err)
			} else if satisfiable {
				t.Fatal("expected unsatisfiable")
			}
		})
	})

	t.Run("Timeout", func(t *testing.T) {
		s := z3.NewSolver()
		s.Timeout = time.Second
		defer MustCloseSolver(s)

		x := tvmsym.NewVarExpr(1, "x", tvmsym.WidthSize)
		if satisfiable, _, err := s.Solve([]tvmsym.Expr{
			tvmsym.NewBinaryExpr(tvmsym.EQ, x, tvmsym.NewConstantExpr32(1)),
		}, []*tvmsym.VarExpr{x}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		} else if s.Stats().SolveN != 1 {
			t.Fatalf("unexpected solve count: %d", s.Stats().SolveN)
		}
	})
}

var bigIntComparer = cmp.Comparer(func(x, y *big.Int) bool { return x.Cmp(y) == 0 })

// MustCloseSolver closes s. Panic on error.
func MustCloseSolver(s *z3.Solver) {
	if err := s.Close(); err != nil {
		panic(err)
	}
}
