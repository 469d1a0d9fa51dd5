package tvmsym

import (
	"fmt"
	"math/big"
	"strings"
)

// Family groups opcodes by their semantic handler.
type Family int

const (
	FamilyInvalid = Family(iota)
	FamilyStackBasic
	FamilyStackComplex
	FamilyConstInt
	FamilyConstData
	FamilyArithBasic
	FamilyArithDiv
	FamilyArithLogical
	FamilyCompareInt
	FamilyCompareOther
	FamilyCellBuild
	FamilyCellParse
	FamilyContBasic
	FamilyContConditional
	FamilyContRegisters
	FamilyContDict
	FamilyExceptions
	FamilyTuple
	FamilyAddress
	FamilyCurrency
	FamilyGas
	FamilyGlobals
	FamilyDebug
	FamilyCodepage
	FamilyDict
	FamilyCrypto
	FamilyApp
)

var families = [...]string{
	FamilyStackBasic:      "stack-basic",
	FamilyStackComplex:    "stack-complex",
	FamilyConstInt:        "const-int",
	FamilyConstData:       "const-data",
	FamilyArithBasic:      "arith-basic",
	FamilyArithDiv:        "arith-div",
	FamilyArithLogical:    "arith-logical",
	FamilyCompareInt:      "compare-int",
	FamilyCompareOther:    "compare-other",
	FamilyCellBuild:       "cell-build",
	FamilyCellParse:       "cell-parse",
	FamilyContBasic:       "cont-basic",
	FamilyContConditional: "cont-conditional",
	FamilyContRegisters:   "cont-registers",
	FamilyContDict:        "cont-dict",
	FamilyExceptions:      "exceptions",
	FamilyTuple:           "tuple",
	FamilyAddress:         "address",
	FamilyCurrency:        "currency",
	FamilyGas:             "gas",
	FamilyGlobals:         "globals",
	FamilyDebug:           "debug",
	FamilyCodepage:        "codepage",
	FamilyDict:            "dict",
	FamilyCrypto:          "crypto",
	FamilyApp:             "app",
}

// String returns the name of the family.
func (f Family) String() string {
	if f > 0 && int(f) < len(families) {
		return families[f]
	}
	return fmt.Sprintf("Family<%d>", f)
}

// Opcode identifies a single instruction of the virtual machine.
type Opcode int

const (
	OpInvalid = Opcode(iota)

	// Basic stack manipulation.
	OpNop
	OpSwap
	OpDup
	OpOver
	OpDrop
	OpNip
	OpXchg0I
	OpXchgIJ
	OpXchg1I
	OpXchg0ILong
	OpPush
	OpPop

	// Compound stack manipulation.
	OpBlkDrop2
	OpReverse
	OpBlkSwap
	OpRot
	OpRotRev
	OpBlkDrop
	OpBlkPush
	OpBlkSwx
	OpDrop2
	OpDropX
	OpDup2
	OpOver2
	OpSwap2
	OpPopLong
	OpPushLong
	OpPush2
	OpPush3
	OpXchg2
	OpXchg3
	OpXchg3Alt
	OpXcpu
	OpXcpu2
	OpXcpuxc
	OpXc2pu
	OpTuck
	OpMinusRollX
	OpRollX
	OpPick
	OpPuxc
	OpPuxc2
	OpPuxcpu
	OpPu2xc
	OpRevX
	OpXchgX
	OpDepth
	OpChkDepth
	OpOnlyTopX
	OpOnlyX
	OpRoll
	OpRollRev
	OpRot2

	// Integer constants.
	OpPushInt4
	OpPushInt8
	OpPushInt16
	OpPushIntLong
	OpZero
	OpOne
	OpTwo
	OpTen
	OpTrue
	OpPushPow2
	OpPushPow2Dec
	OpPushNegPow2
	OpPushNaN

	// Data & continuation constants.
	OpPushSlice
	OpPushRef
	OpPushRefSlice
	OpPushCont

	// Arithmetic.
	OpAdd
	OpSub
	OpSubR
	OpNegate
	OpInc
	OpDec
	OpAddConst
	OpMulConst
	OpMul
	OpDiv
	OpMod
	OpDivMod
	OpAnd
	OpOr
	OpXor
	OpNot
	OpLShift
	OpRShift
	OpLShiftX
	OpRShiftX
	OpFits
	OpUFits
	OpBitSize
	OpUBitSize
	OpMin
	OpMax
	OpMinMax
	OpAbs

	// Comparison.
	OpSgn
	OpLess
	OpEqual
	OpLeq
	OpGreater
	OpNeq
	OpGeq
	OpCmp
	OpEqInt
	OpLessInt
	OpGtInt
	OpNeqInt
	OpIsZero
	OpIsNeg
	OpIsPos
	OpIsNNeg
	OpIsNPos
	OpSEmpty
	OpSDEmpty
	OpSREmpty
	OpIsNull

	// Cell serialization.
	OpNewC
	OpEndC
	OpStU
	OpStI
	OpStUX
	OpStIX
	OpStRef
	OpStSlice
	OpBBits
	OpBRefs

	// Cell deserialization.
	OpCtos
	OpEnds
	OpLdU
	OpLdI
	OpPldU
	OpPldI
	OpLdUX
	OpLdIX
	OpLdRef
	OpSBits
	OpSRefs

	// Continuations.
	OpExecute
	OpJmpX
	OpRet
	OpRetAlt
	OpIfRet
	OpIfNotRet
	OpIf
	OpIfNot
	OpIfJmp
	OpIfNotJmp
	OpIfElse
	OpCallDict
	OpJmpDict
	OpDictIGetJmpZ
	OpPushCtr
	OpPopCtr

	// Exceptions.
	OpThrowShort
	OpThrow
	OpThrowIf
	OpThrowIfNot
	OpThrowArg

	// Tuples & null.
	OpNull
	OpTuple
	OpIndex
	OpUntuple
	OpTLen
	OpIsTuple
	OpNullSwapIf
	OpNullSwapIfNot
	OpNullRotrIf
	OpNullRotrIfNot
	OpNullSwapIf2
	OpNullSwapIfNot2
	OpNullRotrIf2
	OpNullRotrIfNot2
	OpNil
	OpSingle
	OpPair
	OpTriple
	OpFirst
	OpSecond
	OpThird
	OpUnsingle
	OpUnpair
	OpUntriple

	// Message addresses & currency.
	OpLdMsgAddr
	OpRewriteStdAddr
	OpLdGrams
	OpStGrams

	// Gas, globals, debug.
	OpAccept
	OpSetGasLimit
	OpCommit
	OpGetGlob
	OpSetGlob
	OpDebug
	OpDumpStk
	OpDump
	OpStrDump
	OpDebugStr
	OpSetCp

	// Families without modeled semantics.
	OpDictGet
	OpDictSet
	OpDictUGet
	OpDictIGet
	OpDictPushConst
	OpHashCU
	OpHashSU
	OpSha256U
	OpChkSignU
	OpChkSignS
	OpNow
	OpBalance
	OpMyAddr
	OpRandSeed
	OpSendRawMsg

	opcodeEnd
)

// opcodeInfo holds the static properties of an opcode.
type opcodeInfo struct {
	name   string
	family Family
	gas    int64
	alias  bool // rewritten to a canonical instruction before dispatch
}

var opcodes = [...]opcodeInfo{
	OpNop:        {"NOP", FamilyStackBasic, 18, false},
	OpSwap:       {"SWAP", FamilyStackBasic, 18, true},
	OpDup:        {"DUP", FamilyStackBasic, 18, true},
	OpOver:       {"OVER", FamilyStackBasic, 18, true},
	OpDrop:       {"DROP", FamilyStackBasic, 18, true},
	OpNip:        {"NIP", FamilyStackBasic, 18, true},
	OpXchg0I:     {"XCHG_0I", FamilyStackBasic, 18, false},
	OpXchgIJ:     {"XCHG_IJ", FamilyStackBasic, 26, false},
	OpXchg1I:     {"XCHG_1I", FamilyStackBasic, 18, false},
	OpXchg0ILong: {"XCHG_0I_LONG", FamilyStackBasic, 26, false},
	OpPush:       {"PUSH", FamilyStackBasic, 18, false},
	OpPop:        {"POP", FamilyStackBasic, 18, false},

	OpBlkDrop2:   {"BLKDROP2", FamilyStackComplex, 26, false},
	OpReverse:    {"REVERSE", FamilyStackComplex, 26, false},
	OpBlkSwap:    {"BLKSWAP", FamilyStackComplex, 26, false},
	OpRot:        {"ROT", FamilyStackComplex, 18, false},
	OpRotRev:     {"ROTREV", FamilyStackComplex, 18, false},
	OpBlkDrop:    {"BLKDROP", FamilyStackComplex, 26, false},
	OpBlkPush:    {"BLKPUSH", FamilyStackComplex, 26, false},
	OpBlkSwx:     {"BLKSWX", FamilyStackComplex, 18, false},
	OpDrop2:      {"DROP2", FamilyStackComplex, 18, false},
	OpDropX:      {"DROPX", FamilyStackComplex, 18, false},
	OpDup2:       {"DUP2", FamilyStackComplex, 18, false},
	OpOver2:      {"OVER2", FamilyStackComplex, 18, false},
	OpSwap2:      {"SWAP2", FamilyStackComplex, 18, false},
	OpPopLong:    {"POP_LONG", FamilyStackComplex, 26, false},
	OpPushLong:   {"PUSH_LONG", FamilyStackComplex, 26, false},
	OpPush2:      {"PUSH2", FamilyStackComplex, 26, false},
	OpPush3:      {"PUSH3", FamilyStackComplex, 34, false},
	OpXchg2:      {"XCHG2", FamilyStackComplex, 26, false},
	OpXchg3:      {"XCHG3", FamilyStackComplex, 26, false},
	OpXchg3Alt:   {"XCHG3_ALT", FamilyStackComplex, 34, false},
	OpXcpu:       {"XCPU", FamilyStackComplex, 26, false},
	OpXcpu2:      {"XCPU2", FamilyStackComplex, 34, false},
	OpXcpuxc:     {"XCPUXC", FamilyStackComplex, 34, false},
	OpXc2pu:      {"XC2PU", FamilyStackComplex, 34, false},
	OpTuck:       {"TUCK", FamilyStackComplex, 18, false},
	OpMinusRollX: {"MINUSROLLX", FamilyStackComplex, 18, false},
	OpRollX:      {"ROLLX", FamilyStackComplex, 18, false},
	OpPick:       {"PICK", FamilyStackComplex, 18, false},
	OpPuxc:       {"PUXC", FamilyStackComplex, 26, false},
	OpPuxc2:      {"PUXC2", FamilyStackComplex, 34, false},
	OpPuxcpu:     {"PUXCPU", FamilyStackComplex, 34, false},
	OpPu2xc:      {"PU2XC", FamilyStackComplex, 34, false},
	OpRevX:       {"REVX", FamilyStackComplex, 18, false},
	OpXchgX:      {"XCHGX", FamilyStackComplex, 18, false},
	OpDepth:      {"DEPTH", FamilyStackComplex, 18, false},
	OpChkDepth:   {"CHKDEPTH", FamilyStackComplex, 18, false},
	OpOnlyTopX:   {"ONLYTOPX", FamilyStackComplex, 18, false},
	OpOnlyX:      {"ONLYX", FamilyStackComplex, 18, false},
	OpRoll:       {"ROLL", FamilyStackComplex, 26, false},
	OpRollRev:    {"ROLLREV", FamilyStackComplex, 26, false},
	OpRot2:       {"ROT2", FamilyStackComplex, 18, false},

	OpPushInt4:    {"PUSHINT_4", FamilyConstInt, 18, false},
	OpPushInt8:    {"PUSHINT_8", FamilyConstInt, 26, false},
	OpPushInt16:   {"PUSHINT_16", FamilyConstInt, 34, false},
	OpPushIntLong: {"PUSHINT_LONG", FamilyConstInt, 34, false},
	OpZero:        {"ZERO", FamilyConstInt, 18, true},
	OpOne:         {"ONE", FamilyConstInt, 18, true},
	OpTwo:         {"TWO", FamilyConstInt, 18, true},
	OpTen:         {"TEN", FamilyConstInt, 18, true},
	OpTrue:        {"TRUE", FamilyConstInt, 18, true},
	OpPushPow2:    {"PUSHPOW2", FamilyConstInt, 26, false},
	OpPushPow2Dec: {"PUSHPOW2DEC", FamilyConstInt, 26, false},
	OpPushNegPow2: {"PUSHNEGPOW2", FamilyConstInt, 26, false},
	OpPushNaN:     {"PUSHNAN", FamilyConstInt, 26, false},

	OpPushSlice:    {"PUSHSLICE", FamilyConstData, 22, false},
	OpPushRef:      {"PUSHREF", FamilyConstData, 18, false},
	OpPushRefSlice: {"PUSHREFSLICE", FamilyConstData, 118, false},
	OpPushCont:     {"PUSHCONT", FamilyConstData, 26, false},

	OpAdd:      {"ADD", FamilyArithBasic, 18, false},
	OpSub:      {"SUB", FamilyArithBasic, 18, false},
	OpSubR:     {"SUBR", FamilyArithBasic, 18, false},
	OpNegate:   {"NEGATE", FamilyArithBasic, 18, false},
	OpInc:      {"INC", FamilyArithBasic, 18, false},
	OpDec:      {"DEC", FamilyArithBasic, 18, false},
	OpAddConst: {"ADDCONST", FamilyArithBasic, 26, false},
	OpMulConst: {"MULCONST", FamilyArithBasic, 26, false},
	OpMul:      {"MUL", FamilyArithBasic, 18, false},
	OpDiv:      {"DIV", FamilyArithDiv, 26, false},
	OpMod:      {"MOD", FamilyArithDiv, 26, false},
	OpDivMod:   {"DIVMOD", FamilyArithDiv, 26, false},
	OpAnd:      {"AND", FamilyArithLogical, 18, false},
	OpOr:       {"OR", FamilyArithLogical, 18, false},
	OpXor:      {"XOR", FamilyArithLogical, 18, false},
	OpNot:      {"NOT", FamilyArithLogical, 18, false},
	OpLShift:   {"LSHIFT", FamilyArithLogical, 26, false},
	OpRShift:   {"RSHIFT", FamilyArithLogical, 26, false},
	OpLShiftX:  {"LSHIFTX", FamilyArithLogical, 18, false},
	OpRShiftX:  {"RSHIFTX", FamilyArithLogical, 18, false},
	OpFits:     {"FITS", FamilyArithLogical, 34, false},
	OpUFits:    {"UFITS", FamilyArithLogical, 34, false},
	OpBitSize:  {"BITSIZE", FamilyArithLogical, 26, false},
	OpUBitSize: {"UBITSIZE", FamilyArithLogical, 26, false},
	OpMin:      {"MIN", FamilyArithLogical, 26, false},
	OpMax:      {"MAX", FamilyArithLogical, 26, false},
	OpMinMax:   {"MINMAX", FamilyArithLogical, 26, false},
	OpAbs:      {"ABS", FamilyArithLogical, 26, false},

	OpSgn:     {"SGN", FamilyCompareInt, 18, false},
	OpLess:    {"LESS", FamilyCompareInt, 18, false},
	OpEqual:   {"EQUAL", FamilyCompareInt, 18, false},
	OpLeq:     {"LEQ", FamilyCompareInt, 18, false},
	OpGreater: {"GREATER", FamilyCompareInt, 18, false},
	OpNeq:     {"NEQ", FamilyCompareInt, 18, false},
	OpGeq:     {"GEQ", FamilyCompareInt, 18, false},
	OpCmp:     {"CMP", FamilyCompareInt, 18, false},
	OpEqInt:   {"EQINT", FamilyCompareInt, 26, false},
	OpLessInt: {"LESSINT", FamilyCompareInt, 26, false},
	OpGtInt:   {"GTINT", FamilyCompareInt, 26, false},
	OpNeqInt:  {"NEQINT", FamilyCompareInt, 26, false},
	OpIsZero:  {"ISZERO", FamilyCompareInt, 26, true},
	OpIsNeg:   {"ISNEG", FamilyCompareInt, 26, true},
	OpIsPos:   {"ISPOS", FamilyCompareInt, 26, true},
	OpIsNNeg:  {"ISNNEG", FamilyCompareInt, 26, true},
	OpIsNPos:  {"ISNPOS", FamilyCompareInt, 26, true},
	OpSEmpty:  {"SEMPTY", FamilyCompareOther, 26, false},
	OpSDEmpty: {"SDEMPTY", FamilyCompareOther, 26, false},
	OpSREmpty: {"SREMPTY", FamilyCompareOther, 26, false},
	OpIsNull:  {"ISNULL", FamilyTuple, 18, false},

	OpNewC:    {"NEWC", FamilyCellBuild, 18, false},
	OpEndC:    {"ENDC", FamilyCellBuild, 518, false},
	OpStU:     {"STU", FamilyCellBuild, 26, false},
	OpStI:     {"STI", FamilyCellBuild, 26, false},
	OpStUX:    {"STUX", FamilyCellBuild, 26, false},
	OpStIX:    {"STIX", FamilyCellBuild, 26, false},
	OpStRef:   {"STREF", FamilyCellBuild, 18, false},
	OpStSlice: {"STSLICE", FamilyCellBuild, 18, false},
	OpBBits:   {"BBITS", FamilyCellBuild, 26, false},
	OpBRefs:   {"BREFS", FamilyCellBuild, 26, false},

	OpCtos:  {"CTOS", FamilyCellParse, 118, false},
	OpEnds:  {"ENDS", FamilyCellParse, 18, false},
	OpLdU:   {"LDU", FamilyCellParse, 26, false},
	OpLdI:   {"LDI", FamilyCellParse, 26, false},
	OpPldU:  {"PLDU", FamilyCellParse, 26, false},
	OpPldI:  {"PLDI", FamilyCellParse, 26, false},
	OpLdUX:  {"LDUX", FamilyCellParse, 26, false},
	OpLdIX:  {"LDIX", FamilyCellParse, 26, false},
	OpLdRef: {"LDREF", FamilyCellParse, 18, false},
	OpSBits: {"SBITS", FamilyCellParse, 26, false},
	OpSRefs: {"SREFS", FamilyCellParse, 26, false},

	OpExecute:      {"EXECUTE", FamilyContBasic, 18, false},
	OpJmpX:         {"JMPX", FamilyContBasic, 18, false},
	OpRet:          {"RET", FamilyContBasic, 26, false},
	OpRetAlt:       {"RETALT", FamilyContBasic, 26, false},
	OpIfRet:        {"IFRET", FamilyContConditional, 18, false},
	OpIfNotRet:     {"IFNOTRET", FamilyContConditional, 18, false},
	OpIf:           {"IF", FamilyContConditional, 18, false},
	OpIfNot:        {"IFNOT", FamilyContConditional, 18, false},
	OpIfJmp:        {"IFJMP", FamilyContConditional, 18, false},
	OpIfNotJmp:     {"IFNOTJMP", FamilyContConditional, 18, false},
	OpIfElse:       {"IFELSE", FamilyContConditional, 18, false},
	OpCallDict:     {"CALLDICT", FamilyContDict, 26, false},
	OpJmpDict:      {"JMPDICT", FamilyContDict, 26, false},
	OpDictIGetJmpZ: {"DICTIGETJMPZ", FamilyContDict, 26, false},
	OpPushCtr:      {"PUSHCTR", FamilyContRegisters, 26, false},
	OpPopCtr:       {"POPCTR", FamilyContRegisters, 26, false},

	OpThrowShort: {"THROW_SHORT", FamilyExceptions, 76, false},
	OpThrow:      {"THROW", FamilyExceptions, 84, false},
	OpThrowIf:    {"THROWIF", FamilyExceptions, 26, false},
	OpThrowIfNot: {"THROWIFNOT", FamilyExceptions, 26, false},
	OpThrowArg:   {"THROWARG", FamilyExceptions, 84, false},

	OpNull:           {"NULL", FamilyTuple, 18, false},
	OpTuple:          {"TUPLE", FamilyTuple, 26, false},
	OpIndex:          {"INDEX", FamilyTuple, 26, false},
	OpUntuple:        {"UNTUPLE", FamilyTuple, 26, false},
	OpTLen:           {"TLEN", FamilyTuple, 26, false},
	OpIsTuple:        {"ISTUPLE", FamilyTuple, 26, false},
	OpNullSwapIf:     {"NULLSWAPIF", FamilyTuple, 26, false},
	OpNullSwapIfNot:  {"NULLSWAPIFNOT", FamilyTuple, 26, false},
	OpNullRotrIf:     {"NULLROTRIF", FamilyTuple, 26, false},
	OpNullRotrIfNot:  {"NULLROTRIFNOT", FamilyTuple, 26, false},
	OpNullSwapIf2:    {"NULLSWAPIF2", FamilyTuple, 26, false},
	OpNullSwapIfNot2: {"NULLSWAPIFNOT2", FamilyTuple, 26, false},
	OpNullRotrIf2:    {"NULLROTRIF2", FamilyTuple, 26, false},
	OpNullRotrIfNot2: {"NULLROTRIFNOT2", FamilyTuple, 26, false},
	OpNil:            {"NIL", FamilyTuple, 26, true},
	OpSingle:         {"SINGLE", FamilyTuple, 26, true},
	OpPair:           {"PAIR", FamilyTuple, 26, true},
	OpTriple:         {"TRIPLE", FamilyTuple, 26, true},
	OpFirst:          {"FIRST", FamilyTuple, 26, true},
	OpSecond:         {"SECOND", FamilyTuple, 26, true},
	OpThird:          {"THIRD", FamilyTuple, 26, true},
	OpUnsingle:       {"UNSINGLE", FamilyTuple, 26, true},
	OpUnpair:         {"UNPAIR", FamilyTuple, 26, true},
	OpUntriple:       {"UNTRIPLE", FamilyTuple, 26, true},

	OpLdMsgAddr:      {"LDMSGADDR", FamilyAddress, 26, false},
	OpRewriteStdAddr: {"REWRITESTDADDR", FamilyAddress, 26, false},
	OpLdGrams:        {"LDGRAMS", FamilyCurrency, 26, false},
	OpStGrams:        {"STGRAMS", FamilyCurrency, 26, false},

	OpAccept:      {"ACCEPT", FamilyGas, 26, false},
	OpSetGasLimit: {"SETGASLIMIT", FamilyGas, 26, false},
	OpCommit:      {"COMMIT", FamilyGas, 26, false},
	OpGetGlob:     {"GETGLOB", FamilyGlobals, 26, false},
	OpSetGlob:     {"SETGLOB", FamilyGlobals, 26, false},
	OpDebug:       {"DEBUG", FamilyDebug, 0, false},
	OpDumpStk:     {"DUMPSTK", FamilyDebug, 0, false},
	OpDump:        {"DUMP", FamilyDebug, 0, false},
	OpStrDump:     {"STRDUMP", FamilyDebug, 0, false},
	OpDebugStr:    {"DEBUGSTR", FamilyDebug, 0, false},
	OpSetCp:       {"SETCP", FamilyCodepage, 0, false},

	OpDictGet:       {"DICTGET", FamilyDict, 26, false},
	OpDictSet:       {"DICTSET", FamilyDict, 26, false},
	OpDictUGet:      {"DICTUGET", FamilyDict, 26, false},
	OpDictIGet:      {"DICTIGET", FamilyDict, 26, false},
	OpDictPushConst: {"DICTPUSHCONST", FamilyContDict, 34, false},
	OpHashCU:        {"HASHCU", FamilyCrypto, 26, false},
	OpHashSU:        {"HASHSU", FamilyCrypto, 26, false},
	OpSha256U:       {"SHA256U", FamilyCrypto, 26, false},
	OpChkSignU:      {"CHKSIGNU", FamilyCrypto, 26, false},
	OpChkSignS:      {"CHKSIGNS", FamilyCrypto, 26, false},
	OpNow:           {"NOW", FamilyApp, 26, false},
	OpBalance:       {"BALANCE", FamilyApp, 26, false},
	OpMyAddr:        {"MYADDR", FamilyApp, 26, false},
	OpRandSeed:      {"RANDSEED", FamilyApp, 26, false},
	OpSendRawMsg:    {"SENDRAWMSG", FamilyApp, 526, false},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodes))
	for op := Opcode(1); op < opcodeEnd; op++ {
		assert(opcodes[op].name != "", "opcode without name: %d", op)
		m[opcodes[op].name] = op
	}
	return m
}()

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[strings.ToUpper(name)]
	return op, ok
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	if op > 0 && op < opcodeEnd {
		return opcodes[op].name
	}
	return fmt.Sprintf("Opcode<%d>", int(op))
}

// Family returns the semantic family of the opcode.
func (op Opcode) Family() Family {
	if op > 0 && op < opcodeEnd {
		return opcodes[op].family
	}
	return FamilyInvalid
}

// Gas returns the base gas cost of the opcode.
func (op Opcode) Gas() int64 {
	if op > 0 && op < opcodeEnd {
		return opcodes[op].gas
	}
	return 0
}

// IsAlias returns true if the opcode is shorthand for a canonical instruction.
func (op Opcode) IsAlias() bool {
	return op > 0 && op < opcodeEnd && opcodes[op].alias
}

// IsMeta returns true if the opcode has no effect on the execution state
// and therefore consumes no gas.
func (op Opcode) IsMeta() bool {
	return op.Family() == FamilyDebug || op.Family() == FamilyCodepage
}

// Instr represents a decoded instruction and its immediate operands.
type Instr struct {
	Op   Opcode
	I    int      // first stack index or small immediate
	J    int      // second stack index
	K    int      // third stack index
	Int  *big.Int // integer literal
	Bits string   // bit string literal, e.g. "1010"
	Body int      // code block of an inline continuation
}

// String returns the assembly representation of the instruction.
func (instr Instr) String() string {
	var buf strings.Builder
	buf.WriteString(instr.Op.String())

	switch instr.Op {
	case OpPushInt8, OpPushInt16, OpPushIntLong:
		fmt.Fprintf(&buf, " %s", instr.Int)
	case OpPushSlice, OpPushRef, OpPushRefSlice:
		fmt.Fprintf(&buf, " x{%s}", instr.Bits)
	case OpPushCont:
		fmt.Fprintf(&buf, " <{%d}>", instr.Body)
	case OpXchgIJ, OpBlkDrop2, OpReverse, OpBlkSwap, OpBlkPush, OpPush2, OpXchg2, OpXcpu, OpPuxc:
		fmt.Fprintf(&buf, " %d %d", instr.I, instr.J)
	case OpPush3, OpXchg3, OpXchg3Alt, OpXcpu2, OpXcpuxc, OpXc2pu, OpPuxc2, OpPuxcpu, OpPu2xc:
		fmt.Fprintf(&buf, " %d %d %d", instr.I, instr.J, instr.K)
	default:
		if instr.hasImmediate() {
			fmt.Fprintf(&buf, " %d", instr.I)
		}
	}
	return buf.String()
}

// hasImmediate returns true if the instruction carries a single small immediate in I.
func (instr Instr) hasImmediate() bool {
	switch instr.Op {
	case OpXchg0I, OpXchg1I, OpXchg0ILong, OpPush, OpPop, OpBlkDrop, OpPopLong, OpPushLong,
		OpPushInt4, OpPushPow2, OpPushPow2Dec, OpPushNegPow2,
		OpAddConst, OpMulConst, OpLShift, OpRShift, OpFits, OpUFits,
		OpEqInt, OpLessInt, OpGtInt, OpNeqInt,
		OpStU, OpStI, OpLdU, OpLdI, OpPldU, OpPldI,
		OpCallDict, OpJmpDict, OpDictPushConst, OpPushCtr, OpPopCtr,
		OpThrowShort, OpThrow, OpThrowIf, OpThrowIfNot, OpThrowArg,
		OpTuple, OpIndex, OpUntuple, OpGetGlob, OpSetGlob, OpDebug, OpDump, OpSetCp:
		return true
	}
	return false
}

// canonical returns the instruction that an alias stands for.
func (instr Instr) canonical() Instr {
	switch instr.Op {
	case OpSwap:
		return Instr{Op: OpXchg0I, I: 1}
	case OpDup:
		return Instr{Op: OpPush, I: 0}
	case OpOver:
		return Instr{Op: OpPush, I: 1}
	case OpDrop:
		return Instr{Op: OpPop, I: 0}
	case OpNip:
		return Instr{Op: OpPop, I: 1}
	case OpZero:
		return Instr{Op: OpPushInt4, I: 0}
	case OpOne:
		return Instr{Op: OpPushInt4, I: 1}
	case OpTwo:
		return Instr{Op: OpPushInt4, I: 2}
	case OpTen:
		return Instr{Op: OpPushInt4, I: 10}
	case OpTrue:
		return Instr{Op: OpPushInt4, I: 15}
	case OpIsZero:
		return Instr{Op: OpEqInt, I: 0}
	case OpIsNeg:
		return Instr{Op: OpLessInt, I: 0}
	case OpIsPos:
		return Instr{Op: OpGtInt, I: 0}
	case OpIsNNeg:
		return Instr{Op: OpGtInt, I: -1}
	case OpIsNPos:
		return Instr{Op: OpLessInt, I: 1}
	case OpNil:
		return Instr{Op: OpTuple, I: 0}
	case OpSingle:
		return Instr{Op: OpTuple, I: 1}
	case OpPair:
		return Instr{Op: OpTuple, I: 2}
	case OpTriple:
		return Instr{Op: OpTuple, I: 3}
	case OpFirst:
		return Instr{Op: OpIndex, I: 0}
	case OpSecond:
		return Instr{Op: OpIndex, I: 1}
	case OpThird:
		return Instr{Op: OpIndex, I: 2}
	case OpUnsingle:
		return Instr{Op: OpUntuple, I: 1}
	case OpUnpair:
		return Instr{Op: OpUntuple, I: 2}
	case OpUntriple:
		return Instr{Op: OpUntuple, I: 3}
	default:
		return instr
	}
}

// NewInstr returns an instruction with up to three stack-index operands.
func NewInstr(op Opcode, args ...int) Instr {
	assert(len(args) <= 3, "too many operands for %s", op)
	instr := Instr{Op: op}
	for i, v := range args {
		switch i {
		case 0:
			instr.I = v
		case 1:
			instr.J = v
		case 2:
			instr.K = v
		}
	}
	return instr
}

// PushInt returns the shortest integer-constant instruction for v.
func PushInt(v int64) Instr {
	switch {
	case v >= -5 && v <= 10:
		return Instr{Op: OpPushInt4, I: int((v + 16) % 16)}
	case v >= -128 && v <= 127:
		return Instr{Op: OpPushInt8, Int: big.NewInt(v)}
	case v >= -32768 && v <= 32767:
		return Instr{Op: OpPushInt16, Int: big.NewInt(v)}
	default:
		return Instr{Op: OpPushIntLong, Int: big.NewInt(v)}
	}
}

// PushBigInt returns an integer-constant instruction for an arbitrary v.
func PushBigInt(v *big.Int) Instr {
	if v.IsInt64() {
		return PushInt(v.Int64())
	}
	return Instr{Op: OpPushIntLong, Int: new(big.Int).Set(v)}
}

// PushSlice returns an instruction pushing a slice over the given bit string.
func PushSlice(bits string) Instr {
	return Instr{Op: OpPushSlice, Bits: bits}
}

// PushCont returns an instruction pushing a continuation of a lambda block.
func PushCont(block int) Instr {
	return Instr{Op: OpPushCont, Body: block}
}
