package ast

type ExprStmt struct {
	Base
	Expr Expr
}

type Echo struct {
	Base
	Exprs []Expr
}

type Return struct {
	Base
	Expr Expr
}

type ElseIf struct {
	Loc  Span
	Cond Expr
	Body []Stmt
}

type If struct {
	Base
	Cond    Expr
	Then    []Stmt
	ElseIfs []ElseIf
	Else    []Stmt
	HasElse bool
}

type While struct {
	Base
	Cond Expr
	Body []Stmt
}

type DoWhile struct {
	Base
	Body []Stmt
	Cond Expr
}

type For struct {
	Base
	Init []Expr
	Cond []Expr
	Loop []Expr
	Body []Stmt
}

type Foreach struct {
	Base
	Expr  Expr
	Key   Expr
	Value Expr
	ByRef bool
	Body  []Stmt
}

// Case with a nil Cond is the default case.
type Case struct {
	Loc  Span
	Cond Expr
	Body []Stmt
}

type Switch struct {
	Base
	Subject Expr
	Cases   []Case
}

type Break struct {
	Base
	Levels int
}

type Continue struct {
	Base
	Levels int
}

type Catch struct {
	Loc   Span
	Types []string
	// Var is empty for catch clauses without a variable.
	Var  string
	Body []Stmt
}

type Try struct {
	Base
	Body       []Stmt
	Catches    []Catch
	Finally    []Stmt
	HasFinally bool
}

type Block struct {
	Base
	Stmts []Stmt
}

type Global struct {
	Base
	Names []string
}

type StaticVarItem struct {
	Name    string
	Default Expr
}

type StaticVar struct {
	Base
	Vars []StaticVarItem
}

type Unset struct {
	Base
	Vars []Expr
}

type Nop struct {
	Base
}

type Param struct {
	Loc      Span
	Name     string
	Type     string
	ByRef    bool
	Variadic bool
	Default  Expr
	Promoted bool
}

type FunctionDecl struct {
	Base
	Name       string
	Params     []Param
	ReturnType string
	Body       []Stmt
	Doc        string
}

type ClassKind int

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
	KindEnum
)

type MethodDecl struct {
	Loc        Span
	Name       string
	Params     []Param
	ReturnType string
	// Body is nil for abstract and interface methods.
	Body       []Stmt
	Static     bool
	Abstract   bool
	Visibility string
	Doc        string
}

type PropertyDecl struct {
	Loc     Span
	Name    string
	Type    string
	Static  bool
	Default Expr
	Doc     string
}

type ConstDecl struct {
	Loc   Span
	Name  string
	Value Expr
}

type EnumCase struct {
	Loc   Span
	Name  string
	Value Expr
}

type ClassDecl struct {
	Base
	Name       string
	Kind       ClassKind
	Parent     string
	Interfaces []string
	Traits     []string
	Methods    []*MethodDecl
	Properties []PropertyDecl
	Constants  []ConstDecl
	Cases      []EnumCase
	// BackingType is the scalar type of a backed enum.
	BackingType string
	Abstract    bool
	Final       bool
	Doc         string
}

func (*ExprStmt) stmtNode() {}
func (*Echo) stmtNode() {}
func (*Return) stmtNode() {}
func (*If) stmtNode() {}
func (*While) stmtNode() {}
func (*DoWhile) stmtNode() {}
func (*For) stmtNode() {}
func (*Foreach) stmtNode() {}
func (*Switch) stmtNode() {}
func (*Break) stmtNode() {}
func (*Continue) stmtNode() {}
func (*Try) stmtNode() {}
func (*Block) stmtNode() {}
func (*Global) stmtNode() {}
func (*StaticVar) stmtNode() {}
func (*Unset) stmtNode() {}
func (*Nop) stmtNode() {}
func (*FunctionDecl) stmtNode() {}
func (*ClassDecl) stmtNode() {}
