package z3

import (
	"fmt"
	"math/big"
	"strings"
	"time"
	"unsafe"

	"github.com/benbjohnson/tvmsym"
	"github.com/pkg/errors"
)

/*
#cgo LDFLAGS: -lz3
#include <stdint.h>
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure solver implements interface.
var _ tvmsym.Solver = (*Solver)(nil)

// Solver represents a solver that uses an embedded Z3 solver. A solver is not
// safe for concurrent use.
type Solver struct {
	ctx   *Context
	stats Stats

	// Per-query time limit. Zero means no limit.
	Timeout time.Duration
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{
		ctx: NewContext(),
	}
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Solve checks the conjunction of constraints & returns a model value for
// each variable if it is satisfiable.
func (s *Solver) Solve(constraints []tvmsym.Expr, vars []*tvmsym.VarExpr) (satisfiable bool, values []*tvmsym.ConstantExpr, err error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	solver := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return false, nil, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(s.ctx.raw, solver)

	if s.Timeout > 0 {
		if err := s.ctx.setTimeout(solver, s.Timeout); err != nil {
			return false, nil, err
		}
	}

	for _, constraint := range constraints {
		ast, err := s.ctx.toAST(constraint)
		if err != nil {
			return false, nil, err
		}
		C.Z3_solver_assert(s.ctx.raw, solver, ast)
		if err := s.ctx.err("Z3_solver_assert"); err != nil {
			return false, nil, err
		}
	}

	// Exit immediately if unsatisfiable or the solver gave up.
	ret := C.Z3_solver_check(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, nil, err
	} else if ret == C.Z3_L_FALSE {
		return false, nil, nil
	} else if ret == C.Z3_L_UNDEF {
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return false, nil, tvmsym.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return false, nil, tvmsym.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return false, nil, tvmsym.ErrSolverResourceLimit
		case strings.Contains(reason, "unknown"):
			return false, nil, tvmsym.ErrSolverUnknown
		default:
			return false, nil, errors.Errorf("z3: %s", reason)
		}
	} else if len(vars) == 0 {
		return true, nil, nil // no symbolics, ignore model
	}

	model := C.Z3_solver_get_model(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_get_model"); err != nil {
		return true, nil, err
	}
	C.Z3_model_inc_ref(s.ctx.raw, model)
	defer C.Z3_model_dec_ref(s.ctx.raw, model)

	if values, err = s.ctx.eval(model, vars); err != nil {
		return true, nil, err
	}
	return true, values, nil
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

func (ctx *Context) setTimeout(solver C.Z3_solver, d time.Duration) error {
	params := C.Z3_mk_params(ctx.raw)
	if err := ctx.err("Z3_mk_params"); err != nil {
		return err
	}
	C.Z3_params_inc_ref(ctx.raw, params)
	defer C.Z3_params_dec_ref(ctx.raw, params)

	name := C.CString("timeout")
	defer C.free(unsafe.Pointer(name))

	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	C.Z3_params_set_uint(ctx.raw, params, C.Z3_mk_string_symbol(ctx.raw, name), C.uint(ms))
	if err := ctx.err("Z3_params_set_uint"); err != nil {
		return err
	}
	C.Z3_solver_set_params(ctx.raw, solver, params)
	return ctx.err("Z3_solver_set_params")
}

// toAST returns a new instance of Z3_ast from an expression. Expressions of
// width one are translated into the boolean sort; all others into bit-vectors.
func (ctx *Context) toAST(expr tvmsym.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *tvmsym.ConstantExpr:
		return ctx.toConstantAST(expr)
	case *tvmsym.NotOptimizedExpr:
		return ctx.toAST(expr.Src)
	case *tvmsym.VarExpr:
		return ctx.toVarAST(expr)
	case *tvmsym.IteExpr:
		return ctx.toIteAST(expr)
	case *tvmsym.ConcatExpr:
		return ctx.toConcatAST(expr)
	case *tvmsym.ExtractExpr:
		return ctx.toExtractAST(expr)
	case *tvmsym.CastExpr:
		return ctx.toCastAST(expr)
	case *tvmsym.NotExpr:
		return ctx.toNotAST(expr)
	case *tvmsym.BinaryExpr:
		return ctx.toBinaryAST(expr)
	default:
		return nil, errors.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

// toBVAST returns expr as a bit-vector, converting booleans to one-bit vectors.
func (ctx *Context) toBVAST(expr tvmsym.Expr) (C.Z3_ast, error) {
	ast, err := ctx.toAST(expr)
	if err != nil {
		return nil, err
	} else if tvmsym.ExprWidth(expr) != tvmsym.WidthBool {
		return ast, nil
	}
	return ctx.boolToBV(ast, 1, 1)
}

// boolToBV returns an if-then-else selecting t or 0 of the given width.
func (ctx *Context) boolToBV(ast C.Z3_ast, width uint, t int64) (C.Z3_ast, error) {
	whenTrue, err := ctx.makeInt(width, big.NewInt(t))
	if err != nil {
		return nil, err
	}
	whenFalse, err := ctx.makeInt(width, new(big.Int))
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, ast, whenTrue, whenFalse), ctx.err("Z3_mk_ite")
}

// bvToBool returns a boolean that is true if the one-bit vector is set.
func (ctx *Context) bvToBool(ast C.Z3_ast) (C.Z3_ast, error) {
	one, err := ctx.makeInt(1, big.NewInt(1))
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_eq(ctx.raw, ast, one), ctx.err("Z3_mk_eq")
}

func (ctx *Context) toConstantAST(expr *tvmsym.ConstantExpr) (C.Z3_ast, error) {
	if expr.Width == tvmsym.WidthBool {
		if expr.IsTrue() {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	}
	return ctx.makeInt(expr.Width, expr.Value)
}

func (ctx *Context) toVarAST(expr *tvmsym.VarExpr) (C.Z3_ast, error) {
	var sort C.Z3_sort
	if expr.Width == tvmsym.WidthBool {
		sort = C.Z3_mk_bool_sort(ctx.raw)
		if err := ctx.err("Z3_mk_bool_sort"); err != nil {
			return nil, err
		}
	} else {
		var err error
		if sort, err = ctx.makeBVSort(expr.Width); err != nil {
			return nil, err
		}
	}

	cname := C.CString(varName(expr))
	defer C.free(unsafe.Pointer(cname))
	symbol := C.Z3_mk_string_symbol(ctx.raw, cname)
	return C.Z3_mk_const(ctx.raw, symbol, sort), ctx.err("Z3_mk_const")
}

func (ctx *Context) toIteAST(expr *tvmsym.IteExpr) (C.Z3_ast, error) {
	cond, err := ctx.toAST(expr.Cond)
	if err != nil {
		return nil, err
	}
	then, err := ctx.toAST(expr.Then)
	if err != nil {
		return nil, err
	}
	els, err := ctx.toAST(expr.Else)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, then, els), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toConcatAST(expr *tvmsym.ConcatExpr) (C.Z3_ast, error) {
	msb, err := ctx.toBVAST(expr.MSB)
	if err != nil {
		return nil, err
	}
	lsb, err := ctx.toBVAST(expr.LSB)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(ctx.raw, msb, lsb), ctx.err("Z3_mk_concat")
}

func (ctx *Context) toExtractAST(expr *tvmsym.ExtractExpr) (C.Z3_ast, error) {
	src, err := ctx.toBVAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	// A single bit is converted to the bool sort.
	if expr.Width == tvmsym.WidthBool {
		bit := C.Z3_mk_extract(ctx.raw, C.uint(expr.Offset), C.uint(expr.Offset), src)
		if err := ctx.err("Z3_mk_extract[bool]"); err != nil {
			return nil, err
		}
		return ctx.bvToBool(bit)
	}
	return C.Z3_mk_extract(ctx.raw, C.uint(expr.Offset+expr.Width-1), C.uint(expr.Offset), src), ctx.err("Z3_mk_extract")
}

func (ctx *Context) toCastAST(expr *tvmsym.CastExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Src)
	if err != nil {
		return nil, err
	}

	// Booleans extend to all ones when signed & one when unsigned.
	if tvmsym.ExprWidth(expr.Src) == tvmsym.WidthBool {
		if expr.Signed {
			return ctx.boolToBV(src, expr.Width, -1)
		}
		return ctx.boolToBV(src, expr.Width, 1)
	}

	n := C.uint(expr.Width - ctx.bvSize(src))
	if expr.Signed {
		return C.Z3_mk_sign_ext(ctx.raw, n, src), ctx.err("Z3_mk_sign_ext")
	}
	return C.Z3_mk_zero_ext(ctx.raw, n, src), ctx.err("Z3_mk_zero_ext")
}

func (ctx *Context) toNotAST(expr *tvmsym.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	if tvmsym.ExprWidth(expr.Expr) == tvmsym.WidthBool {
		return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
	}
	return C.Z3_mk_bvnot(ctx.raw, src), ctx.err("Z3_mk_bvnot")
}

func (ctx *Context) toBinaryAST(expr *tvmsym.BinaryExpr) (C.Z3_ast, error) {
	if tvmsym.ExprWidth(expr.LHS) == tvmsym.WidthBool {
		switch expr.Op {
		case tvmsym.AND, tvmsym.OR, tvmsym.XOR, tvmsym.EQ:
			return ctx.toBoolBinaryAST(expr)
		}
	}

	lhs, err := ctx.toBVAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toBVAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	var ast C.Z3_ast
	switch expr.Op {
	case tvmsym.ADD:
		ast = C.Z3_mk_bvadd(ctx.raw, lhs, rhs)
	case tvmsym.SUB:
		ast = C.Z3_mk_bvsub(ctx.raw, lhs, rhs)
	case tvmsym.MUL:
		ast = C.Z3_mk_bvmul(ctx.raw, lhs, rhs)
	case tvmsym.UDIV:
		ast = C.Z3_mk_bvudiv(ctx.raw, lhs, rhs)
	case tvmsym.SDIV:
		ast = C.Z3_mk_bvsdiv(ctx.raw, lhs, rhs)
	case tvmsym.UREM:
		ast = C.Z3_mk_bvurem(ctx.raw, lhs, rhs)
	case tvmsym.SREM:
		ast = C.Z3_mk_bvsrem(ctx.raw, lhs, rhs)
	case tvmsym.AND:
		ast = C.Z3_mk_bvand(ctx.raw, lhs, rhs)
	case tvmsym.OR:
		ast = C.Z3_mk_bvor(ctx.raw, lhs, rhs)
	case tvmsym.XOR:
		ast = C.Z3_mk_bvxor(ctx.raw, lhs, rhs)
	case tvmsym.SHL:
		ast = C.Z3_mk_bvshl(ctx.raw, lhs, rhs)
	case tvmsym.LSHR:
		ast = C.Z3_mk_bvlshr(ctx.raw, lhs, rhs)
	case tvmsym.ASHR:
		ast = C.Z3_mk_bvashr(ctx.raw, lhs, rhs)
	case tvmsym.EQ:
		ast = C.Z3_mk_eq(ctx.raw, lhs, rhs)
	case tvmsym.ULT:
		ast = C.Z3_mk_bvult(ctx.raw, lhs, rhs)
	case tvmsym.ULE:
		ast = C.Z3_mk_bvule(ctx.raw, lhs, rhs)
	case tvmsym.SLT:
		ast = C.Z3_mk_bvslt(ctx.raw, lhs, rhs)
	case tvmsym.SLE:
		ast = C.Z3_mk_bvsle(ctx.raw, lhs, rhs)
	default:
		return nil, errors.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
	if err := ctx.err(fmt.Sprintf("Z3_mk[%s]", expr.Op)); err != nil {
		return nil, err
	}

	// Arithmetic on one-bit operands must be converted back to the bool sort.
	if expr.Op.IsArithmetic() && tvmsym.ExprWidth(expr.LHS) == tvmsym.WidthBool {
		return ctx.bvToBool(ast)
	}
	return ast, nil
}

func (ctx *Context) toBoolBinaryAST(expr *tvmsym.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	args := [2]C.Z3_ast{lhs, rhs}
	switch expr.Op {
	case tvmsym.AND:
		return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
	case tvmsym.OR:
		return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
	case tvmsym.XOR:
		return C.Z3_mk_xor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_xor")
	default:
		return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

// makeInt returns a bit-vector numeral. Negative values are stored in two's
// complement.
func (ctx *Context) makeInt(width uint, value *big.Int) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	if value.IsUint64() {
		return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value.Uint64()), t), ctx.err("Z3_mk_unsigned_int64")
	}

	v := value
	if v.Sign() < 0 {
		v = new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), width))
	}
	cstr := C.CString(v.String())
	defer C.free(unsafe.Pointer(cstr))
	return C.Z3_mk_numeral(ctx.raw, cstr, t), ctx.err("Z3_mk_numeral")
}

func (ctx *Context) bvSize(expr C.Z3_ast) uint {
	t := C.Z3_get_sort(ctx.raw, expr)
	if err := ctx.err("Z3_get_sort"); err != nil {
		panic(err)
	}
	sz := uint(C.Z3_get_bv_sort_size(ctx.raw, t))
	if err := ctx.err("Z3_get_bv_sort_size"); err != nil {
		panic(err)
	}
	return sz
}

// eval evaluates variables in the model. Variables left unconstrained by the
// model evaluate to zero.
func (ctx *Context) eval(model C.Z3_model, vars []*tvmsym.VarExpr) ([]*tvmsym.ConstantExpr, error) {
	values := make([]*tvmsym.ConstantExpr, 0, len(vars))
	for _, v := range vars {
		value, err := ctx.evalVar(model, v)
		if err != nil {
			return nil, errors.Wrapf(err, "var %s", varName(v))
		}
		values = append(values, value)
	}
	return values, nil
}

func (ctx *Context) evalVar(model C.Z3_model, v *tvmsym.VarExpr) (*tvmsym.ConstantExpr, error) {
	ast, err := ctx.toVarAST(v)
	if err != nil {
		return nil, err
	}

	var result C.Z3_ast
	C.Z3_model_eval(ctx.raw, model, ast, C.bool(true), &result)
	if err := ctx.err("Z3_model_eval"); err != nil {
		return nil, err
	}

	if v.Width == tvmsym.WidthBool {
		b := C.Z3_get_bool_value(ctx.raw, result)
		if err := ctx.err("Z3_get_bool_value"); err != nil {
			return nil, err
		}
		return tvmsym.NewBoolConstantExpr(b == C.Z3_L_TRUE), nil
	}

	s := C.GoString(C.Z3_get_numeral_string(ctx.raw, result))
	if err := ctx.err("Z3_get_numeral_string"); err != nil {
		return nil, err
	}
	value, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("invalid numeral: %q", s)
	}
	return tvmsym.NewBigConstantExpr(value, v.Width), nil
}

// varName returns the solver symbol of a variable. Ids keep symbols unique.
func varName(v *tvmsym.VarExpr) string {
	return fmt.Sprintf("%s#%d", v.Name, v.ID)
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats holds solver counters.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
