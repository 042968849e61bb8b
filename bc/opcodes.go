package bc

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies a decoded bytecode instruction. Opcodes are numbered in
// groups by kind; the numbers are this package's own, not GNU R's, and are
// what the CBOR fixture codec stores.
type Opcode uint8

// Control flow and stack
const (
	OpBCMismatch Opcode = iota // deprecated version marker
	OpReturn
	OpGoto
	OpBrIfNot
	OpPop
	OpDup
	OpPrintValue
	OpStartLoopCntxt
	OpEndLoopCntxt
	OpDoLoopNext
	OpDoLoopBreak
	OpStartFor
	OpStepFor
	OpEndFor
	OpSetLoopVal
	OpInvisible
)

// Constants and variables
const (
	OpLdConst Opcode = iota + 16
	OpLdNull
	OpLdTrue
	OpLdFalse
	OpGetVar
	OpDDVal
	OpSetVar
	OpGetFun
	OpGetGlobFun
	OpGetSymFun
	OpGetBuiltin
	OpGetIntlBuiltin
	OpCheckFun
	OpMakeProm
	OpDoMissing
	OpSetTag
	OpDoDots
	OpPushArg
	OpPushConstArg
	OpPushNullArg
	OpPushTrueArg
	OpPushFalseArg
	OpCall
	OpCallBuiltin
	OpCallSpecial
	OpMakeClosure
)

// Arithmetic, comparison and logic
const (
	OpUMinus Opcode = iota + 48
	OpUPlus
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpExpt
	OpSqrt
	OpExp
	OpEq
	OpNe
	OpLt
	OpLe
	OpGe
	OpGt
	OpAnd
	OpOr
	OpNot
	OpDotsErr
)

// Complex assignment and dispatch
const (
	OpStartAssign Opcode = iota + 72
	OpEndAssign
	OpStartSubset
	OpDfltSubset
	OpStartC
	OpDfltC
	OpStartSubassign
	OpDfltSubassign
	OpStartSubset2
	OpDfltSubset2
	OpStartSubassign2
	OpDfltSubassign2
	OpDollar
	OpDollarGets
)

// Type predicates and fast subsetting
const (
	OpIsNull Opcode = iota + 96
	OpIsLogical
	OpIsInteger
	OpIsDouble
	OpIsComplex
	OpIsCharacter
	OpIsSymbol
	OpIsObject
	OpIsNumeric
	OpVecSubset
	OpMatSubset
	OpVecSubassign
	OpMatSubassign
	OpAnd1st
	OpAnd2nd
	OpOr1st
	OpOr2nd
	OpGetVarMissOK
	OpDDValMissOK
	OpVisible
	OpSetVar2
	OpStartAssign2
	OpEndAssign2
	OpSetterCall
	OpGetterCall
	OpSwap
	OpDup2nd
	OpSwitch
	OpReturnJmp
)

// Indexed subsetting, math and reference counting
const (
	OpStartSubsetN Opcode = iota + 128
	OpStartSubassignN
	OpVecSubset2
	OpMatSubset2
	OpVecSubassign2
	OpMatSubassign2
	OpStartSubset2N
	OpStartSubassign2N
	OpSubsetN
	OpSubset2N
	OpSubassignN
	OpSubassign2N
	OpLog
	OpLogBase
	OpMath1
	OpDotCall
	OpColon
	OpSeqAlong
	OpSeqLen
	OpBaseGuard
	OpIncLnk
	OpDecLnk
	OpDecLnkN
	OpIncLnkStk
	OpDecLnkStk
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// Operands is a bit set describing which Instr fields an opcode uses.
type Operands uint8

const (
	UsesCall   Operands = 1 << iota // Instr.Call holds a constant-pool index of the call AST
	UsesArg                         // Instr.Arg holds a constant-pool index
	UsesLabel                       // Instr.Label holds a jump target
	UsesN                           // Instr.N holds an immediate
	UsesSwitch                      // Instr.ChrLabels/NumLabels hold jump targets
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name     string
	Operands Operands
	// ArgOptional marks opcodes whose Arg may be NoConst (SWITCH names).
	ArgOptional bool
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpBCMismatch:     {"BCMISMATCH", 0, false},
	OpReturn:         {"RETURN", 0, false},
	OpGoto:           {"GOTO", UsesLabel, false},
	OpBrIfNot:        {"BRIFNOT", UsesCall | UsesLabel, false},
	OpPop:            {"POP", 0, false},
	OpDup:            {"DUP", 0, false},
	OpPrintValue:     {"PRINTVALUE", 0, false},
	OpStartLoopCntxt: {"STARTLOOPCNTXT", UsesN | UsesLabel, false},
	OpEndLoopCntxt:   {"ENDLOOPCNTXT", UsesN, false},
	OpDoLoopNext:     {"DOLOOPNEXT", 0, false},
	OpDoLoopBreak:    {"DOLOOPBREAK", 0, false},
	OpStartFor:       {"STARTFOR", UsesCall | UsesArg | UsesLabel, false},
	OpStepFor:        {"STEPFOR", UsesLabel, false},
	OpEndFor:         {"ENDFOR", 0, false},
	OpSetLoopVal:     {"SETLOOPVAL", 0, false},
	OpInvisible:      {"INVISIBLE", 0, false},

	OpLdConst:        {"LDCONST", UsesArg, false},
	OpLdNull:         {"LDNULL", 0, false},
	OpLdTrue:         {"LDTRUE", 0, false},
	OpLdFalse:        {"LDFALSE", 0, false},
	OpGetVar:         {"GETVAR", UsesArg, false},
	OpDDVal:          {"DDVAL", UsesArg, false},
	OpSetVar:         {"SETVAR", UsesArg, false},
	OpGetFun:         {"GETFUN", UsesArg, false},
	OpGetGlobFun:     {"GETGLOBFUN", UsesArg, false},
	OpGetSymFun:      {"GETSYMFUN", UsesArg, false},
	OpGetBuiltin:     {"GETBUILTIN", UsesArg, false},
	OpGetIntlBuiltin: {"GETINTLBUILTIN", UsesArg, false},
	OpCheckFun:       {"CHECKFUN", 0, false},
	OpMakeProm:       {"MAKEPROM", UsesArg, false},
	OpDoMissing:      {"DOMISSING", 0, false},
	OpSetTag:         {"SETTAG", UsesArg, false},
	OpDoDots:         {"DODOTS", 0, false},
	OpPushArg:        {"PUSHARG", 0, false},
	OpPushConstArg:   {"PUSHCONSTARG", UsesArg, false},
	OpPushNullArg:    {"PUSHNULLARG", 0, false},
	OpPushTrueArg:    {"PUSHTRUEARG", 0, false},
	OpPushFalseArg:   {"PUSHFALSEARG", 0, false},
	OpCall:           {"CALL", UsesCall, false},
	OpCallBuiltin:    {"CALLBUILTIN", UsesCall, false},
	OpCallSpecial:    {"CALLSPECIAL", UsesCall, false},
	OpMakeClosure:    {"MAKECLOSURE", UsesArg, false},

	OpUMinus:  {"UMINUS", UsesCall, false},
	OpUPlus:   {"UPLUS", UsesCall, false},
	OpAdd:     {"ADD", UsesCall, false},
	OpSub:     {"SUB", UsesCall, false},
	OpMul:     {"MUL", UsesCall, false},
	OpDiv:     {"DIV", UsesCall, false},
	OpExpt:    {"EXPT", UsesCall, false},
	OpSqrt:    {"SQRT", UsesCall, false},
	OpExp:     {"EXP", UsesCall, false},
	OpEq:      {"EQ", UsesCall, false},
	OpNe:      {"NE", UsesCall, false},
	OpLt:      {"LT", UsesCall, false},
	OpLe:      {"LE", UsesCall, false},
	OpGe:      {"GE", UsesCall, false},
	OpGt:      {"GT", UsesCall, false},
	OpAnd:     {"AND", UsesCall, false},
	OpOr:      {"OR", UsesCall, false},
	OpNot:     {"NOT", UsesCall, false},
	OpDotsErr: {"DOTSERR", 0, false},

	OpStartAssign:     {"STARTASSIGN", UsesArg, false},
	OpEndAssign:       {"ENDASSIGN", UsesArg, false},
	OpStartSubset:     {"STARTSUBSET", UsesCall | UsesLabel, false},
	OpDfltSubset:      {"DFLTSUBSET", 0, false},
	OpStartC:          {"STARTC", UsesCall | UsesLabel, false},
	OpDfltC:           {"DFLTC", 0, false},
	OpStartSubassign:  {"STARTSUBASSIGN", UsesCall | UsesLabel, false},
	OpDfltSubassign:   {"DFLTSUBASSIGN", 0, false},
	OpStartSubset2:    {"STARTSUBSET2", UsesCall | UsesLabel, false},
	OpDfltSubset2:     {"DFLTSUBSET2", 0, false},
	OpStartSubassign2: {"STARTSUBASSIGN2", UsesCall | UsesLabel, false},
	OpDfltSubassign2:  {"DFLTSUBASSIGN2", 0, false},
	OpDollar:          {"DOLLAR", UsesCall | UsesArg, false},
	OpDollarGets:      {"DOLLARGETS", UsesCall | UsesArg, false},

	OpIsNull:       {"ISNULL", 0, false},
	OpIsLogical:    {"ISLOGICAL", 0, false},
	OpIsInteger:    {"ISINTEGER", 0, false},
	OpIsDouble:     {"ISDOUBLE", 0, false},
	OpIsComplex:    {"ISCOMPLEX", 0, false},
	OpIsCharacter:  {"ISCHARACTER", 0, false},
	OpIsSymbol:     {"ISSYMBOL", 0, false},
	OpIsObject:     {"ISOBJECT", 0, false},
	OpIsNumeric:    {"ISNUMERIC", 0, false},
	OpVecSubset:    {"VECSUBSET", UsesCall, false},
	OpMatSubset:    {"MATSUBSET", UsesCall, false},
	OpVecSubassign: {"VECSUBASSIGN", UsesCall, false},
	OpMatSubassign: {"MATSUBASSIGN", UsesCall, false},
	OpAnd1st:       {"AND1ST", UsesCall | UsesLabel, false},
	OpAnd2nd:       {"AND2ND", UsesCall, false},
	OpOr1st:        {"OR1ST", UsesCall | UsesLabel, false},
	OpOr2nd:        {"OR2ND", UsesCall, false},
	OpGetVarMissOK: {"GETVAR_MISSOK", UsesArg, false},
	OpDDValMissOK:  {"DDVAL_MISSOK", UsesArg, false},
	OpVisible:      {"VISIBLE", 0, false},
	OpSetVar2:      {"SETVAR2", UsesArg, false},
	OpStartAssign2: {"STARTASSIGN2", UsesArg, false},
	OpEndAssign2:   {"ENDASSIGN2", UsesArg, false},
	OpSetterCall:   {"SETTER_CALL", UsesCall | UsesArg, false},
	OpGetterCall:   {"GETTER_CALL", UsesCall, false},
	OpSwap:         {"SWAP", 0, false},
	OpDup2nd:       {"DUP2ND", 0, false},
	OpSwitch:       {"SWITCH", UsesCall | UsesArg | UsesSwitch, true},
	OpReturnJmp:    {"RETURNJMP", 0, false},

	OpStartSubsetN:     {"STARTSUBSET_N", UsesCall | UsesLabel, false},
	OpStartSubassignN:  {"STARTSUBASSIGN_N", UsesCall | UsesLabel, false},
	OpVecSubset2:       {"VECSUBSET2", UsesCall, false},
	OpMatSubset2:       {"MATSUBSET2", UsesCall, false},
	OpVecSubassign2:    {"VECSUBASSIGN2", UsesCall, false},
	OpMatSubassign2:    {"MATSUBASSIGN2", UsesCall, false},
	OpStartSubset2N:    {"STARTSUBSET2_N", UsesCall | UsesLabel, false},
	OpStartSubassign2N: {"STARTSUBASSIGN2_N", UsesCall | UsesLabel, false},
	OpSubsetN:          {"SUBSET_N", UsesCall | UsesN, false},
	OpSubset2N:         {"SUBSET2_N", UsesCall | UsesN, false},
	OpSubassignN:       {"SUBASSIGN_N", UsesCall | UsesN, false},
	OpSubassign2N:      {"SUBASSIGN2_N", UsesCall | UsesN, false},
	OpLog:              {"LOG", UsesCall, false},
	OpLogBase:          {"LOGBASE", UsesCall, false},
	OpMath1:            {"MATH1", UsesCall | UsesN, false},
	OpDotCall:          {"DOTCALL", UsesCall | UsesN, false},
	OpColon:            {"COLON", UsesCall, false},
	OpSeqAlong:         {"SEQALONG", UsesCall, false},
	OpSeqLen:           {"SEQLEN", UsesCall, false},
	OpBaseGuard:        {"BASEGUARD", UsesArg | UsesLabel, false},
	OpIncLnk:           {"INCLNK", 0, false},
	OpDecLnk:           {"DECLNK", 0, false},
	OpDecLnkN:          {"DECLNK_N", UsesN, false},
	OpIncLnkStk:        {"INCLNKSTK", 0, false},
	OpDecLnkStk:        {"DECLNKSTK", 0, false},
}

// Info returns metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// String returns the opcode's name.
func (op Opcode) String() string {
	return op.Info().Name
}

// IsJump reports whether the instruction transfers control to a label.
func (op Opcode) IsJump() bool {
	info := op.Info()
	return info.Operands&(UsesLabel|UsesSwitch) != 0
}
