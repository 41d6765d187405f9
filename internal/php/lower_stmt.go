package php

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/shopware/phpflow/internal/ast"
	treesitterhelper "github.com/shopware/phpflow/internal/tree_sitter_helper"
)

func (l *lowerer) statements(nodes []*tree_sitter.Node) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(nodes))
	for _, n := range nodes {
		if s := l.stmt(n); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// body lowers the body of a control structure: a block, a colon block of
// the alternative syntax or a single statement.
func (l *lowerer) body(n *tree_sitter.Node) []ast.Stmt {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "compound_statement", "colon_block":
		return l.statements(treesitterhelper.NamedChildren(n))
	}
	if s := l.stmt(n); s != nil {
		return []ast.Stmt{s}
	}
	return []ast.Stmt{}
}

// stmt lowers one statement. Declarations that only affect name resolution
// return nil.
func (l *lowerer) stmt(n *tree_sitter.Node) ast.Stmt {
	switch n.Kind() {
	case "php_tag", "text_interpolation", "text", "comment", "empty_statement", "php_end_tag":
		return nil
	case "namespace_definition":
		return l.namespace(n)
	case "namespace_use_declaration":
		l.useDeclaration(n)
		return nil
	case "expression_statement":
		children := treesitterhelper.NamedChildren(n)
		if len(children) == 0 {
			return nil
		}
		return &ast.ExprStmt{Base: l.base(n), Expr: l.expr(children[0])}
	case "compound_statement":
		return &ast.Block{Base: l.base(n), Stmts: l.body(n)}
	case "echo_statement":
		var exprs []ast.Expr
		for _, c := range treesitterhelper.NamedChildren(n) {
			exprs = append(exprs, l.expressions(c)...)
		}
		return &ast.Echo{Base: l.base(n), Exprs: exprs}
	case "return_statement":
		r := &ast.Return{Base: l.base(n)}
		if children := treesitterhelper.NamedChildren(n); len(children) > 0 {
			r.Expr = l.expr(children[0])
		}
		return r
	case "if_statement":
		return l.ifStmt(n)
	case "while_statement":
		return &ast.While{Base: l.base(n), Cond: l.expr(n.ChildByFieldName("condition")), Body: l.loopBody(n)}
	case "do_statement":
		return &ast.DoWhile{Base: l.base(n), Body: l.body(n.ChildByFieldName("body")), Cond: l.expr(n.ChildByFieldName("condition"))}
	case "for_statement":
		return l.forStmt(n)
	case "foreach_statement":
		return l.foreachStmt(n)
	case "switch_statement":
		return l.switchStmt(n)
	case "break_statement":
		return &ast.Break{Base: l.base(n), Levels: l.levels(n)}
	case "continue_statement":
		return &ast.Continue{Base: l.base(n), Levels: l.levels(n)}
	case "try_statement":
		return l.tryStmt(n)
	case "global_declaration":
		g := &ast.Global{Base: l.base(n)}
		for _, c := range treesitterhelper.NamedChildren(n) {
			if c.Kind() == "variable_name" {
				g.Names = append(g.Names, l.varName(c))
			}
		}
		return g
	case "function_static_declaration":
		s := &ast.StaticVar{Base: l.base(n)}
		for _, c := range treesitterhelper.NamedChildren(n) {
			if c.Kind() != "static_variable_declaration" {
				continue
			}
			item := ast.StaticVarItem{Name: l.varName(c.ChildByFieldName("name"))}
			if v := c.ChildByFieldName("value"); v != nil {
				item.Default = l.expr(v)
			}
			s.Vars = append(s.Vars, item)
		}
		return s
	case "unset_statement":
		u := &ast.Unset{Base: l.base(n)}
		for _, c := range treesitterhelper.NamedChildren(n) {
			u.Vars = append(u.Vars, l.expr(c))
		}
		return u
	case "exit_statement":
		call := &ast.Call{Base: l.base(n), Name: "exit"}
		for _, c := range treesitterhelper.NamedChildren(n) {
			call.Args = append(call.Args, ast.Arg{Value: l.expr(c)})
		}
		return &ast.ExprStmt{Base: l.base(n), Expr: call}
	case "const_declaration":
		l.globalConstants(n)
		return &ast.Nop{Base: l.base(n)}
	case "declare_statement":
		// declare(strict_types=1); has no body; the block form keeps its statements.
		var body []ast.Stmt
		for _, c := range treesitterhelper.NamedChildren(n) {
			if c.Kind() != "declare_directive" {
				body = append(body, l.body(c)...)
			}
		}
		if len(body) == 0 {
			return &ast.Nop{Base: l.base(n)}
		}
		return &ast.Block{Base: l.base(n), Stmts: body}
	case "function_definition":
		return l.functionDecl(n)
	case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
		return l.classDecl(n)
	}
	return l.unsupported(n)
}

func (l *lowerer) namespace(n *tree_sitter.Node) ast.Stmt {
	l.names.EnterNamespace(l.text(n.ChildByFieldName("name")))
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	stmts := l.body(body)
	l.names.EnterNamespace("")
	return &ast.Block{Base: l.base(n), Stmts: stmts}
}

// useDeclaration registers the imports of a use statement, including the
// group form use A\{B, C as D}.
func (l *lowerer) useDeclaration(n *tree_sitter.Node) {
	kind := useKind(n, l.src)
	prefix := ""
	for _, c := range treesitterhelper.NamedChildren(n) {
		switch c.Kind() {
		case "namespace_name", "qualified_name", "name":
			prefix = l.text(c)
		case "namespace_use_clause":
			l.useClause(c, kind, "")
		case "namespace_use_group":
			for _, clause := range treesitterhelper.NamedChildren(c) {
				l.useClause(clause, kind, prefix)
			}
		}
	}
}

func (l *lowerer) useClause(n *tree_sitter.Node, kind UseKind, prefix string) {
	children := treesitterhelper.NamedChildren(n)
	if len(children) == 0 {
		return
	}
	if k := useKind(n, l.src); k != UseClass {
		kind = k
	}
	name := l.text(children[0])
	if prefix != "" {
		name = strings.TrimSuffix(prefix, "\\") + "\\" + name
	}
	alias := ""
	if a := n.ChildByFieldName("alias"); a != nil {
		alias = l.text(a)
	} else if len(children) > 1 {
		alias = l.text(children[len(children)-1])
	}
	l.names.AddUse(kind, name, alias)
}

// useKind reads the function or const keyword among the direct tokens of n.
func useKind(n *tree_sitter.Node, src []byte) UseKind {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.IsNamed() {
			continue
		}
		switch strings.ToLower(c.Utf8Text(src)) {
		case "function":
			return UseFunction
		case "const":
			return UseConstant
		}
	}
	return UseClass
}

// ifStmt lowers if/elseif/else. "else if" is flattened into an elseif
// branch.
func (l *lowerer) ifStmt(n *tree_sitter.Node) *ast.If {
	s := &ast.If{
		Base: l.base(n),
		Cond: l.expr(n.ChildByFieldName("condition")),
		Then: l.body(n.ChildByFieldName("body")),
	}
	l.alternatives(n, s)
	return s
}

func (l *lowerer) alternatives(n *tree_sitter.Node, s *ast.If) {
	for _, c := range treesitterhelper.NamedChildren(n) {
		switch c.Kind() {
		case "else_if_clause":
			s.ElseIfs = append(s.ElseIfs, ast.ElseIf{
				Loc:  l.span(c),
				Cond: l.expr(c.ChildByFieldName("condition")),
				Body: l.body(c.ChildByFieldName("body")),
			})
		case "else_clause":
			body := c.ChildByFieldName("body")
			if body != nil && body.Kind() == "if_statement" {
				s.ElseIfs = append(s.ElseIfs, ast.ElseIf{
					Loc:  l.span(body),
					Cond: l.expr(body.ChildByFieldName("condition")),
					Body: l.body(body.ChildByFieldName("body")),
				})
				l.alternatives(body, s)
				continue
			}
			s.Else = l.body(body)
			s.HasElse = true
		}
	}
}

// loopBody returns the body of a loop. The alternative syntax has no body
// field and lists the statements after the condition.
func (l *lowerer) loopBody(n *tree_sitter.Node) []ast.Stmt {
	if b := n.ChildByFieldName("body"); b != nil {
		return l.body(b)
	}
	var out []ast.Stmt
	cond := n.ChildByFieldName("condition")
	for _, c := range treesitterhelper.NamedChildren(n) {
		if cond != nil && c.StartByte() <= cond.StartByte() {
			continue
		}
		out = append(out, l.body(c)...)
	}
	return out
}

// forStmt splits the header of a for loop at its semicolons. Every section
// may be empty or hold a comma separated expression list.
func (l *lowerer) forStmt(n *tree_sitter.Node) *ast.For {
	s := &ast.For{Base: l.base(n)}
	sections := [3]*[]ast.Expr{&s.Init, &s.Cond, &s.Loop}
	section := 0
	inHeader := false
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.Kind() == "comment" {
			continue
		}
		if !c.IsNamed() {
			switch l.text(c) {
			case "(":
				inHeader = true
			case ";":
				if inHeader {
					section++
				}
			case ")":
				inHeader = false
			}
			continue
		}
		if inHeader && section < len(sections) {
			*sections[section] = append(*sections[section], l.expressions(c)...)
			continue
		}
		if !inHeader {
			s.Body = append(s.Body, l.body(c)...)
		}
	}
	return s
}

func (l *lowerer) foreachStmt(n *tree_sitter.Node) *ast.Foreach {
	s := &ast.Foreach{Base: l.base(n)}
	body := n.ChildByFieldName("body")
	var header []*tree_sitter.Node
	for _, c := range treesitterhelper.NamedChildren(n) {
		if body != nil && c.StartByte() == body.StartByte() && c.Kind() == body.Kind() {
			continue
		}
		if len(header) < 2 {
			header = append(header, c)
			continue
		}
		// Statements of the foreach: ... endforeach; form.
		s.Body = append(s.Body, l.body(c)...)
	}
	if body != nil {
		s.Body = l.body(body)
	}
	if len(header) > 0 {
		s.Expr = l.expr(header[0])
	}
	if len(header) > 1 {
		target := header[1]
		if target.Kind() == "pair" {
			parts := treesitterhelper.NamedChildren(target)
			if len(parts) == 2 {
				s.Key = l.target(parts[0])
				target = parts[1]
			}
		}
		if target.Kind() == "by_ref" {
			s.ByRef = true
			if inner := treesitterhelper.NamedChildren(target); len(inner) > 0 {
				target = inner[0]
			}
		}
		s.Value = l.target(target)
	}
	return s
}

func (l *lowerer) switchStmt(n *tree_sitter.Node) *ast.Switch {
	s := &ast.Switch{Base: l.base(n), Subject: l.expr(n.ChildByFieldName("condition"))}
	block := n.ChildByFieldName("body")
	for _, c := range treesitterhelper.NamedChildren(block) {
		switch c.Kind() {
		case "case_statement":
			value := c.ChildByFieldName("value")
			cs := ast.Case{Loc: l.span(c), Cond: l.expr(value)}
			for _, st := range treesitterhelper.NamedChildren(c) {
				if value != nil && st.StartByte() == value.StartByte() {
					continue
				}
				if st := l.stmt(st); st != nil {
					cs.Body = append(cs.Body, st)
				}
			}
			s.Cases = append(s.Cases, cs)
		case "default_statement":
			s.Cases = append(s.Cases, ast.Case{Loc: l.span(c), Body: l.statements(treesitterhelper.NamedChildren(c))})
		}
	}
	return s
}

func (l *lowerer) levels(n *tree_sitter.Node) int {
	for _, c := range treesitterhelper.NamedChildren(n) {
		if c.Kind() == "integer" {
			if v, err := strconv.Atoi(l.text(c)); err == nil && v > 0 {
				return v
			}
		}
	}
	return 1
}

func (l *lowerer) tryStmt(n *tree_sitter.Node) *ast.Try {
	s := &ast.Try{Base: l.base(n), Body: l.body(n.ChildByFieldName("body"))}
	for _, c := range treesitterhelper.NamedChildren(n) {
		switch c.Kind() {
		case "catch_clause":
			cc := ast.Catch{Loc: l.span(c), Body: l.body(c.ChildByFieldName("body"))}
			if t := c.ChildByFieldName("type"); t != nil {
				for _, name := range strings.Split(l.typeHint(t), "|") {
					if name != "" {
						cc.Types = append(cc.Types, name)
					}
				}
			}
			if v := c.ChildByFieldName("name"); v != nil {
				cc.Var = l.varName(v)
			}
			s.Catches = append(s.Catches, cc)
		case "finally_clause":
			s.Finally = l.body(c.ChildByFieldName("body"))
			s.HasFinally = true
		}
	}
	return s
}

// varName is the name of a variable_name node without the dollar sign.
func (l *lowerer) varName(n *tree_sitter.Node) string {
	return strings.TrimPrefix(l.text(n), "$")
}

// globalConstants records const FOO = ...; at the top level of a
// namespace.
func (l *lowerer) globalConstants(n *tree_sitter.Node) {
	for _, c := range treesitterhelper.NamedChildren(n) {
		if c.Kind() != "const_element" {
			continue
		}
		name, value := l.constElement(c)
		if name == "" {
			continue
		}
		l.decls.Constants[l.names.Qualify(name)] = constantType(value)
	}
}

func (l *lowerer) constElement(n *tree_sitter.Node) (string, ast.Expr) {
	children := treesitterhelper.NamedChildren(n)
	if len(children) < 2 {
		return "", nil
	}
	return l.text(children[0]), l.expr(children[len(children)-1])
}
