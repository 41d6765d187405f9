package analyzer

import (
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
)

// ifStmt forks one context per branch. Every branch sees the negation of the
// conditions before it; the context without an else is the path on which all
// conditions failed.
func (a *Analyzer) ifStmt(n *ast.If, bc *blockctx.BlockContext) {
	a.expr(n.Cond, bc)
	clauses := a.formulaFor(n.Cond)

	then := a.branch(bc, n.Cond, clauses, true, true)
	a.block(n.Then, then)
	exits := []*blockctx.BlockContext{then}

	running := a.branch(bc, n.Cond, clauses, false, false)
	for _, elseif := range n.ElseIfs {
		if running.HasReturned {
			break
		}
		a.expr(elseif.Cond, running)
		cc := a.formulaFor(elseif.Cond)
		body := a.branch(running, elseif.Cond, cc, true, true)
		a.block(elseif.Body, body)
		exits = append(exits, body)
		running = a.branch(running, elseif.Cond, cc, false, false)
	}

	if n.HasElse {
		a.block(n.Else, running)
	}
	exits = append(exits, running)
	a.merge(bc, exits)
}
