package tvmsym_test

import (
	"math/big"
	"testing"

	"github.com/benbjohnson/tvmsym"
	"github.com/google/go-cmp/cmp"
)

func TestExprWidth(t *testing.T) {
	x := tvmsym.NewVarExpr(1, "x", 8)
	for _, tt := range []struct {
		name string
		expr tvmsym.Expr
		want uint
	}{
		{"ConstantExpr", tvmsym.NewConstantExpr(0, 8), 8},
		{"VarExpr", x, 8},
		{"NotOptimizedExpr", &tvmsym.NotOptimizedExpr{Src: x}, 8},
		{"ConcatExpr", &tvmsym.ConcatExpr{MSB: x, LSB: tvmsym.NewVarExpr(2, "y", 16)}, 24},
		{"ExtractExpr", &tvmsym.ExtractExpr{Expr: x, Offset: 2, Width: 4}, 4},
		{"NotExpr", &tvmsym.NotExpr{Expr: x}, 8},
		{"CastExpr", &tvmsym.CastExpr{Src: x, Width: 16}, 16},
		{"IteExpr", &tvmsym.IteExpr{Cond: tvmsym.NewVarExpr(3, "c", tvmsym.WidthBool), Then: x, Else: x}, 8},
		{"BinaryExpr/Arithmetic", &tvmsym.BinaryExpr{Op: tvmsym.ADD, LHS: x, RHS: x}, 8},
		{"BinaryExpr/Compare", &tvmsym.BinaryExpr{Op: tvmsym.SLT, LHS: x, RHS: x}, tvmsym.WidthBool},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if w := tvmsym.ExprWidth(tt.expr); w != tt.want {
				t.Fatalf("unexpected width: %d", w)
			}
		})
	}
}

func TestNewBinaryExpr(t *testing.T) {
	c8 := func(v int64) *tvmsym.ConstantExpr { return tvmsym.NewIntConstantExpr(v, 8) }

	t.Run("Constant", func(t *testing.T) {
		for _, tt := range []struct {
			name     string
			op       tvmsym.BinaryOp
			lhs, rhs int64
			want     *tvmsym.ConstantExpr
		}{
			{"ADD/Wrap", tvmsym.ADD, 255, 1, c8(0)},
			{"SUB", tvmsym.SUB, 3, 5, c8(-2)},
			{"MUL", tvmsym.MUL, 16, 17, c8(16)},
			{"UDIV", tvmsym.UDIV, -2, 2, c8(127)},
			{"UDIV/Zero", tvmsym.UDIV, 5, 0, c8(-1)},
			{"SDIV", tvmsym.SDIV, -7, 2, c8(-3)},
			{"UREM", tvmsym.UREM, 7, 3, c8(1)},
			{"SREM", tvmsym.SREM, -7, 2, c8(-1)},
			{"AND", tvmsym.AND, 0x0F, 0x3C, c8(0x0C)},
			{"OR", tvmsym.OR, 0x0F, 0x30, c8(0x3F)},
			{"XOR", tvmsym.XOR, 0x0F, 0x3C, c8(0x33)},
			{"SHL", tvmsym.SHL, 3, 6, c8(-64)},
			{"LSHR", tvmsym.LSHR, -128, 7, c8(1)},
			{"ASHR", tvmsym.ASHR, -128, 7, c8(-1)},
			{"EQ", tvmsym.EQ, 4, 4, tvmsym.NewBoolConstantExpr(true)},
			{"NE", tvmsym.NE, 4, 4, tvmsym.NewBoolConstantExpr(false)},
			{"ULT", tvmsym.ULT, -1, 1, tvmsym.NewBoolConstantExpr(false)},
			{"SLT", tvmsym.SLT, -1, 1, tvmsym.NewBoolConstantExpr(true)},
			{"UGE", tvmsym.UGE, -1, 1, tvmsym.NewBoolConstantExpr(true)},
			{"SGE", tvmsym.SGE, -1, 1, tvmsym.NewBoolConstantExpr(false)},
		} {
			t.Run(tt.name, func(t *testing.T) {
				expr := tvmsym.NewBinaryExpr(tt.op, c8(tt.lhs), c8(tt.rhs))
				if diff := cmp.Diff(tt.want, expr, bigIntComparer); diff != "" {
					t.Fatal(diff)
				}
			})
		}
	})

	t.Run("Simplify", func(t *testing.T) {
		x := tvmsym.NewVarExpr(1, "x", 8)
		for _, tt := range []struct {
			name string
			expr tvmsym.Expr
			want tvmsym.Expr
		}{
			{"AddZero", tvmsym.NewBinaryExpr(tvmsym.ADD, x, c8(0)), x},
			{"AddConstLeft", tvmsym.NewBinaryExpr(tvmsym.ADD, x, c8(3)), &tvmsym.BinaryExpr{Op: tvmsym.ADD, LHS: c8(3), RHS: x}},
			{"AddMerge", tvmsym.NewBinaryExpr(tvmsym.ADD, c8(2), tvmsym.NewBinaryExpr(tvmsym.ADD, c8(3), x)), &tvmsym.BinaryExpr{Op: tvmsym.ADD, LHS: c8(5), RHS: x}},
			{"SubSelf", tvmsym.NewBinaryExpr(tvmsym.SUB, x, x), c8(0)},
			{"SubConst", tvmsym.NewBinaryExpr(tvmsym.SUB, x, c8(1)), &tvmsym.BinaryExpr{Op: tvmsym.ADD, LHS: c8(-1), RHS: x}},
			{"MulOne", tvmsym.NewBinaryExpr(tvmsym.MUL, x, c8(1)), x},
			{"MulZero", tvmsym.NewBinaryExpr(tvmsym.MUL, c8(0), x), c8(0)},
			{"DivOne", tvmsym.NewBinaryExpr(tvmsym.SDIV, x, c8(1)), x},
			{"AndZero", tvmsym.NewBinaryExpr(tvmsym.AND, x, c8(0)), c8(0)},
			{"AndOnes", tvmsym.NewBinaryExpr(tvmsym.AND, c8(-1), x), x},
			{"OrZero", tvmsym.NewBinaryExpr(tvmsym.OR, x, c8(0)), x},
			{"XorZero", tvmsym.NewBinaryExpr(tvmsym.XOR, c8(0), x), x},
			{"ShiftZero", tvmsym.NewBinaryExpr(tvmsym.LSHR, x, c8(0)), x},
			{"ShlZero", tvmsym.NewBinaryExpr(tvmsym.SHL, x, c8(0)), x},
			{"AShrZero", tvmsym.NewBinaryExpr(tvmsym.ASHR, x, c8(0)), x},
			{"EqSelf", tvmsym.NewBinaryExpr(tvmsym.EQ, x, x), tvmsym.NewBoolConstantExpr(true)},
			{"EqAdd", tvmsym.NewBinaryExpr(tvmsym.EQ, c8(5), tvmsym.NewBinaryExpr(tvmsym.ADD, x, c8(2))), &tvmsym.BinaryExpr{Op: tvmsym.EQ, LHS: c8(3), RHS: x}},
			{"UleZero", tvmsym.NewBinaryExpr(tvmsym.ULE, c8(0), x), tvmsym.NewBoolConstantExpr(true)},
			{"SltSelf", tvmsym.NewBinaryExpr(tvmsym.SLT, x, x), tvmsym.NewBoolConstantExpr(false)},
		} {
			t.Run(tt.name, func(t *testing.T) {
				if diff := cmp.Diff(tt.want, tt.expr, bigIntComparer); diff != "" {
					t.Fatal(diff)
				}
			})
		}
	})

	// Comparing a cast to a constant outside the source range is false.
	t.Run("EqCast", func(t *testing.T) {
		x := tvmsym.NewVarExpr(1, "x", 8)
		expr := tvmsym.NewBinaryExpr(tvmsym.EQ, tvmsym.NewCastExpr(x, 16, false), tvmsym.NewConstantExpr(256, 16))
		if diff := cmp.Diff(tvmsym.NewBoolConstantExpr(false), expr, bigIntComparer); diff != "" {
			t.Fatal(diff)
		}

		expr = tvmsym.NewBinaryExpr(tvmsym.EQ, tvmsym.NewCastExpr(x, 16, true), tvmsym.NewIntConstantExpr(-1, 16))
		if diff := cmp.Diff(&tvmsym.BinaryExpr{Op: tvmsym.EQ, LHS: c8(-1), RHS: x}, expr, bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNewExtractExpr(t *testing.T) {
	x := tvmsym.NewVarExpr(1, "x", 8)
	y := tvmsym.NewVarExpr(2, "y", 8)

	t.Run("Constant", func(t *testing.T) {
		expr := tvmsym.NewExtractExpr(tvmsym.NewConstantExpr(0xABCD, 16), 4, 8)
		if diff := cmp.Diff(tvmsym.NewConstantExpr(0xBC, 8), expr, bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("FullWidth", func(t *testing.T) {
		if expr := tvmsym.NewExtractExpr(x, 0, 8); expr != x {
			t.Fatalf("unexpected expr: %s", expr)
		}
	})
	t.Run("ConcatMSB", func(t *testing.T) {
		expr := tvmsym.NewExtractExpr(tvmsym.NewConcatExpr(x, y), 8, 8)
		if expr != x {
			t.Fatalf("unexpected expr: %s", expr)
		}
	})
	t.Run("ConcatLSB", func(t *testing.T) {
		expr := tvmsym.NewExtractExpr(tvmsym.NewConcatExpr(x, y), 2, 4)
		if diff := cmp.Diff(&tvmsym.ExtractExpr{Expr: y, Offset: 2, Width: 4}, expr); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ZeroExtension", func(t *testing.T) {
		expr := tvmsym.NewExtractExpr(tvmsym.NewCastExpr(x, 32, false), 8, 16)
		if diff := cmp.Diff(tvmsym.NewConstantExpr(0, 16), expr, bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Nested", func(t *testing.T) {
		z := tvmsym.NewVarExpr(3, "z", 32)
		expr := tvmsym.NewExtractExpr(tvmsym.NewExtractExpr(z, 8, 16), 4, 8)
		if diff := cmp.Diff(&tvmsym.ExtractExpr{Expr: z, Offset: 12, Width: 8}, expr); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNewConcatExpr(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		expr := tvmsym.NewConcatExpr(tvmsym.NewConstantExpr(0x01, 8), tvmsym.NewConstantExpr(0x02, 8))
		if diff := cmp.Diff(tvmsym.NewConstantExpr(0x0102, 16), expr, bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ContiguousExtract", func(t *testing.T) {
		x := tvmsym.NewVarExpr(1, "x", 32)
		expr := tvmsym.NewConcatExpr(tvmsym.NewExtractExpr(x, 8, 8), tvmsym.NewExtractExpr(x, 0, 8))
		if diff := cmp.Diff(&tvmsym.ExtractExpr{Expr: x, Offset: 0, Width: 16}, expr); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNewCastExpr(t *testing.T) {
	minusOne := tvmsym.NewIntConstantExpr(-1, 8)

	t.Run("SignExtend", func(t *testing.T) {
		if diff := cmp.Diff(tvmsym.NewConstantExpr(0xFFFF, 16), tvmsym.NewCastExpr(minusOne, 16, true), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ZeroExtend", func(t *testing.T) {
		if diff := cmp.Diff(tvmsym.NewConstantExpr(0xFF, 16), tvmsym.NewCastExpr(minusOne, 16, false), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Truncate", func(t *testing.T) {
		if diff := cmp.Diff(tvmsym.NewConstantExpr(0xF, 4), tvmsym.NewCastExpr(minusOne, 4, true), bigIntComparer); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Nested", func(t *testing.T) {
		x := tvmsym.NewVarExpr(1, "x", 8)
		expr := tvmsym.NewCastExpr(tvmsym.NewCastExpr(x, 16, true), 32, true)
		if diff := cmp.Diff(&tvmsym.CastExpr{Src: x, Width: 32, Signed: true}, expr); diff != "" {
			t.Fatal(diff)
		}

		expr = tvmsym.NewCastExpr(tvmsym.NewCastExpr(x, 16, false), 32, false)
		if diff := cmp.Diff(&tvmsym.CastExpr{Src: x, Width: 32, Signed: false}, expr); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("MixedSign", func(t *testing.T) {
		x := tvmsym.NewVarExpr(1, "x", 8)
		inner := tvmsym.NewCastExpr(x, 16, true)
		expr := tvmsym.NewCastExpr(inner, 32, false)
		if diff := cmp.Diff(&tvmsym.CastExpr{Src: inner, Width: 32, Signed: false}, expr); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNewIteExpr(t *testing.T) {
	c := tvmsym.NewVarExpr(1, "c", tvmsym.WidthBool)
	x := tvmsym.NewVarExpr(2, "x", 8)
	y := tvmsym.NewVarExpr(3, "y", 8)

	t.Run("ConstantCond", func(t *testing.T) {
		if expr := tvmsym.NewIteExpr(tvmsym.NewBoolConstantExpr(true), x, y); expr != x {
			t.Fatalf("unexpected expr: %s", expr)
		} else if expr := tvmsym.NewIteExpr(tvmsym.NewBoolConstantExpr(false), x, y); expr != y {
			t.Fatalf("unexpected expr: %s", expr)
		}
	})
	t.Run("SameBranches", func(t *testing.T) {
		if expr := tvmsym.NewIteExpr(c, x, x); expr != x {
			t.Fatalf("unexpected expr: %s", expr)
		}
	})
	t.Run("BoolBranches", func(t *testing.T) {
		if expr := tvmsym.NewIteExpr(c, tvmsym.NewBoolConstantExpr(true), tvmsym.NewBoolConstantExpr(false)); expr != c {
			t.Fatalf("unexpected expr: %s", expr)
		}
	})

	// Comparing an ite of constants reduces to its condition.
	t.Run("EqConstantBranches", func(t *testing.T) {
		ite := tvmsym.NewIteExpr(c, tvmsym.NewIntConstantExpr(-1, 8), tvmsym.NewConstantExpr(0, 8))
		if expr := tvmsym.NewBinaryExpr(tvmsym.EQ, ite, tvmsym.NewIntConstantExpr(-1, 8)); expr != c {
			t.Fatalf("unexpected expr: %s", expr)
		}
	})
}

func TestFindVars(t *testing.T) {
	x := tvmsym.NewVarExpr(2, "x", 8)
	y := tvmsym.NewVarExpr(1, "y", 8)
	sum := tvmsym.NewBinaryExpr(tvmsym.ADD, x, y)

	vars := tvmsym.FindVars(sum, tvmsym.NewBinaryExpr(tvmsym.MUL, sum, x), nil)
	if diff := cmp.Diff([]*tvmsym.VarExpr{y, x}, vars); diff != "" {
		t.Fatal(diff)
	}
}

func TestExprEvaluator(t *testing.T) {
	x := tvmsym.NewVarExpr(1, "x", 16)
	y := tvmsym.NewVarExpr(2, "y", 16)
	z := tvmsym.NewVarExpr(3, "z", 16)

	eval := tvmsym.NewExprEvaluator([]*tvmsym.VarExpr{x, y}, []*tvmsym.ConstantExpr{
		tvmsym.NewConstantExpr(2, 16),
		tvmsym.NewIntConstantExpr(-5, 16),
	})

	t.Run("Arithmetic", func(t *testing.T) {
		expr := &tvmsym.BinaryExpr{Op: tvmsym.MUL, LHS: &tvmsym.BinaryExpr{Op: tvmsym.ADD, LHS: x, RHS: tvmsym.NewConstantExpr(3, 16)}, RHS: y}
		c, err := eval.Evaluate(expr)
		if err != nil {
			t.Fatal(err)
		} else if got := c.Int(); got.Cmp(big.NewInt(-25)) != 0 {
			t.Fatalf("unexpected value: %s", got)
		}
	})

	t.Run("Ite", func(t *testing.T) {
		expr := &tvmsym.IteExpr{Cond: &tvmsym.BinaryExpr{Op: tvmsym.SLT, LHS: y, RHS: x}, Then: x, Else: y}
		c, err := eval.Evaluate(expr)
		if err != nil {
			t.Fatal(err)
		} else if got := c.Int(); got.Int64() != 2 {
			t.Fatalf("unexpected value: %s", got)
		}
	})

	t.Run("Cast", func(t *testing.T) {
		expr := &tvmsym.CastExpr{Src: &tvmsym.ExtractExpr{Expr: y, Offset: 0, Width: 8}, Width: 32, Signed: true}
		c, err := eval.Evaluate(expr)
		if err != nil {
			t.Fatal(err)
		} else if c.Width != 32 || c.Int().Int64() != -5 {
			t.Fatalf("unexpected value: %s", c)
		}
	})

	t.Run("MissingVar", func(t *testing.T) {
		c, err := eval.Evaluate(z)
		if err != nil {
			t.Fatal(err)
		} else if !c.IsZero() || c.Width != 16 {
			t.Fatalf("unexpected value: %s", c)
		}
	})
}

func TestConstantExpr_Int(t *testing.T) {
	for _, tt := range []struct {
		value uint64
		width uint
		want  int64
	}{
		{0x7F, 8, 127},
		{0x80, 8, -128},
		{0xFF, 8, -1},
		{1, tvmsym.WidthBool, -1},
		{0xFFFFFFFF, 32, -1},
	} {
		if got := tvmsym.NewConstantExpr(tt.value, tt.width).Int(); got.Int64() != tt.want {
			t.Errorf("Int(%#x/%d)=%s, want %d", tt.value, tt.width, got, tt.want)
		}
	}
}
