package analyzer

import (
	"github.com/shopware/phpflow/internal/ast"
)

// nodes builds syntax trees for tests. Every node gets a span of its own so
// the artifact table can tell them apart.
type nodes struct {
	n int
}

func (p *nodes) base() ast.Base {
	p.n++
	return ast.Base{Loc: ast.Span{Start: p.n * 10, End: p.n*10 + 5, Line: p.n}}
}

func (p *nodes) v(name string) *ast.Variable {
	return &ast.Variable{Base: p.base(), Name: name}
}

func (p *nodes) lit(v int64) *ast.IntLit {
	return &ast.IntLit{Base: p.base(), Value: v}
}

func (p *nodes) str(s string) *ast.StringLit {
	return &ast.StringLit{Base: p.base(), Value: s}
}

func (p *nodes) null() *ast.NullLit {
	return &ast.NullLit{Base: p.base()}
}

func (p *nodes) bin(op ast.BinaryOp, l, r ast.Expr) *ast.Binary {
	return &ast.Binary{Base: p.base(), Op: op, Left: l, Right: r}
}

func (p *nodes) assign(target, value ast.Expr) *ast.ExprStmt {
	return p.stmt(&ast.Assign{Base: p.base(), Target: target, Value: value})
}

func (p *nodes) stmt(e ast.Expr) *ast.ExprStmt {
	return &ast.ExprStmt{Base: p.base(), Expr: e}
}

func (p *nodes) ifElse(cond ast.Expr, then, els []ast.Stmt) *ast.If {
	return &ast.If{Base: p.base(), Cond: cond, Then: then, Else: els, HasElse: els != nil}
}

func (p *nodes) arm(body ast.Expr, conds ...ast.Expr) ast.MatchArm {
	return ast.MatchArm{Loc: p.base().Loc, Conds: conds, Body: body}
}

func (p *nodes) match(subject ast.Expr, arms ...ast.MatchArm) *ast.Match {
	return &ast.Match{Base: p.base(), Subject: subject, Arms: arms}
}

func (p *nodes) try(body []ast.Stmt, catches []ast.Catch, finally []ast.Stmt) *ast.Try {
	return &ast.Try{Base: p.base(), Body: body, Catches: catches, Finally: finally, HasFinally: finally != nil}
}

func (p *nodes) catch(class, name string, body ...ast.Stmt) ast.Catch {
	return ast.Catch{Loc: p.base().Loc, Types: []string{class}, Var: name, Body: body}
}

func stmts(s ...ast.Stmt) []ast.Stmt {
	return s
}
