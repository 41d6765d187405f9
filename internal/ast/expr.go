package ast

// BinaryOp is the PHP operator symbol, e.g. "+", "===", "&&", "??".
type BinaryOp string

const (
	OpAdd          BinaryOp = "+"
	OpSub          BinaryOp = "-"
	OpMul          BinaryOp = "*"
	OpDiv          BinaryOp = "/"
	OpMod          BinaryOp = "%"
	OpPow          BinaryOp = "**"
	OpConcat       BinaryOp = "."
	OpBitAnd       BinaryOp = "&"
	OpBitOr        BinaryOp = "|"
	OpBitXor       BinaryOp = "^"
	OpShiftLeft    BinaryOp = "<<"
	OpShiftRight   BinaryOp = ">>"
	OpIdentical    BinaryOp = "==="
	OpNotIdentical BinaryOp = "!=="
	OpEqual        BinaryOp = "=="
	OpNotEqual     BinaryOp = "!="
	OpLess         BinaryOp = "<"
	OpLessEqual    BinaryOp = "<="
	OpGreater      BinaryOp = ">"
	OpGreaterEqual BinaryOp = ">="
	OpSpaceship    BinaryOp = "<=>"
	OpAnd          BinaryOp = "&&"
	OpOr           BinaryOp = "||"
	OpLogicalAnd   BinaryOp = "and"
	OpLogicalOr    BinaryOp = "or"
	OpLogicalXor   BinaryOp = "xor"
	OpCoalesce     BinaryOp = "??"
)

// IsLogical reports whether the operator short circuits.
func (op BinaryOp) IsLogical() bool {
	switch op {
	case OpAnd, OpOr, OpLogicalAnd, OpLogicalOr:
		return true
	}
	return false
}

type UnaryOp string

const (
	OpNot    UnaryOp = "!"
	OpNeg    UnaryOp = "-"
	OpPlus   UnaryOp = "+"
	OpBitNot UnaryOp = "~"
)

type Variable struct {
	Base
	Name string
}

type IntLit struct {
	Base
	Value int64
}

type FloatLit struct {
	Base
	Value float64
}

type StringLit struct {
	Base
	Value string
}

// InterpolatedString is a double quoted string or heredoc with embedded expressions.
type InterpolatedString struct {
	Base
	Parts []Expr
}

type BoolLit struct {
	Base
	Value bool
}

type NullLit struct {
	Base
}

type ArrayItem struct {
	Key    Expr
	Value  Expr
	ByRef  bool
	Spread bool
}

type ArrayLit struct {
	Base
	Items []ArrayItem
}

// ListExpr is the destructuring target of list($a, $b) = ... and [$a, $b] = ...
type ListExpr struct {
	Base
	Items []ArrayItem
}

type Assign struct {
	Base
	Target Expr
	Value  Expr
}

type AssignRef struct {
	Base
	Target Expr
	Value  Expr
}

type AssignOp struct {
	Base
	Op     BinaryOp
	Target Expr
	Value  Expr
}

type Binary struct {
	Base
	Op    BinaryOp
	Left  Expr
	Right Expr
}

type Unary struct {
	Base
	Op      UnaryOp
	Operand Expr
}

// IncDec covers ++$x, $x++, --$x and $x--.
type IncDec struct {
	Base
	Var       Expr
	Increment bool
	Prefix    bool
}

type Instanceof struct {
	Base
	Expr  Expr
	Class string
	// Dynamic is set when the class operand is an expression.
	Dynamic Expr
}

// Ternary with a nil Then is the short form a ?: b.
type Ternary struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

type Isset struct {
	Base
	Vars []Expr
}

type Empty struct {
	Base
	Expr Expr
}

type Arg struct {
	Value  Expr
	Spread bool
	Name   string
}

// Call is a function call. Name is set for static names, Dynamic otherwise.
type Call struct {
	Base
	Name    string
	Dynamic Expr
	Args    []Arg
}

type MethodCall struct {
	Base
	Object   Expr
	Name     string
	Args     []Arg
	Nullsafe bool
	// OperatorLoc is the span of the -> or ?-> token.
	OperatorLoc Span
}

type PropertyFetch struct {
	Base
	Object      Expr
	Name        string
	Nullsafe    bool
	OperatorLoc Span
}

type StaticCall struct {
	Base
	Class string
	Name  string
	Args  []Arg
}

type StaticPropertyFetch struct {
	Base
	Class string
	Name  string
}

type ClassConstFetch struct {
	Base
	Class string
	Name  string
}

type ConstFetch struct {
	Base
	Name string
}

type New struct {
	Base
	Class string
	Args  []Arg
}

// ArrayDimFetch with a nil Dim is the append form $a[].
type ArrayDimFetch struct {
	Base
	Array Expr
	Dim   Expr
}

type Throw struct {
	Base
	Expr Expr
}

type ClosureUse struct {
	Name  string
	ByRef bool
}

type Closure struct {
	Base
	Params     []Param
	Uses       []ClosureUse
	ReturnType string
	Body       []Stmt
	Static     bool
}

type ArrowFunction struct {
	Base
	Params     []Param
	ReturnType string
	Expr       Expr
}

// MatchArm with nil Conds is the default arm.
type MatchArm struct {
	Loc   Span
	Conds []Expr
	Body  Expr
}

type Match struct {
	Base
	Subject Expr
	Arms    []MatchArm
}

type Cast struct {
	Base
	Type string
	Expr Expr
}

type Clone struct {
	Base
	Expr Expr
}

func (*Variable) exprNode() {}
func (*IntLit) exprNode() {}
func (*FloatLit) exprNode() {}
func (*StringLit) exprNode() {}
func (*InterpolatedString) exprNode() {}
func (*BoolLit) exprNode() {}
func (*NullLit) exprNode() {}
func (*ArrayLit) exprNode() {}
func (*ListExpr) exprNode() {}
func (*Assign) exprNode() {}
func (*AssignRef) exprNode() {}
func (*AssignOp) exprNode() {}
func (*Binary) exprNode() {}
func (*Unary) exprNode() {}
func (*IncDec) exprNode() {}
func (*Instanceof) exprNode() {}
func (*Ternary) exprNode() {}
func (*Isset) exprNode() {}
func (*Empty) exprNode() {}
func (*Call) exprNode() {}
func (*MethodCall) exprNode() {}
func (*PropertyFetch) exprNode() {}
func (*StaticCall) exprNode() {}
func (*StaticPropertyFetch) exprNode() {}
func (*ClassConstFetch) exprNode() {}
func (*ConstFetch) exprNode() {}
func (*New) exprNode() {}
func (*ArrayDimFetch) exprNode() {}
func (*Throw) exprNode() {}
func (*Closure) exprNode() {}
func (*ArrowFunction) exprNode() {}
func (*Match) exprNode() {}
func (*Cast) exprNode() {}
func (*Clone) exprNode() {}
