package php

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/shopware/phpflow/internal/ast"
	treesitterhelper "github.com/shopware/phpflow/internal/tree_sitter_helper"
)

var intrinsicPattern = treesitterhelper.PHPFunctionCallPattern("isset", "empty", "exit", "die")

// expressions flattens a comma separated expression list.
func (l *lowerer) expressions(n *tree_sitter.Node) []ast.Expr {
	if n == nil {
		return nil
	}
	if n.Kind() == "sequence_expression" {
		var out []ast.Expr
		for _, c := range treesitterhelper.NamedChildren(n) {
			out = append(out, l.expressions(c)...)
		}
		return out
	}
	return []ast.Expr{l.expr(n)}
}

func (l *lowerer) expr(n *tree_sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "parenthesized_expression", "error_suppression_expression":
		children := treesitterhelper.NamedChildren(n)
		if len(children) == 0 {
			return l.unsupported(n)
		}
		return l.expr(children[0])
	case "variable_name":
		return &ast.Variable{Base: l.base(n), Name: l.varName(n)}
	case "integer":
		return l.integer(n)
	case "float":
		v, err := strconv.ParseFloat(strings.ReplaceAll(l.text(n), "_", ""), 64)
		if err != nil {
			return l.unsupported(n)
		}
		return &ast.FloatLit{Base: l.base(n), Value: v}
	case "boolean":
		return &ast.BoolLit{Base: l.base(n), Value: strings.EqualFold(l.text(n), "true")}
	case "null":
		return &ast.NullLit{Base: l.base(n)}
	case "string", "encapsed_string", "heredoc", "nowdoc":
		return l.stringLit(n)
	case "name", "qualified_name":
		name := l.text(n)
		switch strings.ToLower(name) {
		case "true", "false":
			return &ast.BoolLit{Base: l.base(n), Value: strings.EqualFold(name, "true")}
		case "null":
			return &ast.NullLit{Base: l.base(n)}
		}
		return &ast.ConstFetch{Base: l.base(n), Name: l.names.ResolveConstant(name)}
	case "array_creation_expression":
		return &ast.ArrayLit{Base: l.base(n), Items: l.arrayItems(n, false)}
	case "list_literal":
		return &ast.ListExpr{Base: l.base(n), Items: l.listItems(n)}
	case "assignment_expression":
		left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
		if hasToken(n, "&", l.src) {
			return &ast.AssignRef{Base: l.base(n), Target: l.target(left), Value: l.expr(right)}
		}
		return &ast.Assign{Base: l.base(n), Target: l.target(left), Value: l.expr(right)}
	case "reference_assignment_expression":
		return &ast.AssignRef{Base: l.base(n), Target: l.target(n.ChildByFieldName("left")), Value: l.expr(n.ChildByFieldName("right"))}
	case "augmented_assignment_expression":
		op := strings.TrimSuffix(l.operator(n), "=")
		return &ast.AssignOp{
			Base:   l.base(n),
			Op:     ast.BinaryOp(op),
			Target: l.target(n.ChildByFieldName("left")),
			Value:  l.expr(n.ChildByFieldName("right")),
		}
	case "binary_expression":
		return l.binary(n)
	case "unary_op_expression":
		children := treesitterhelper.NamedChildren(n)
		if len(children) == 0 {
			return l.unsupported(n)
		}
		return &ast.Unary{Base: l.base(n), Op: ast.UnaryOp(l.operator(n)), Operand: l.expr(children[len(children)-1])}
	case "update_expression":
		return l.update(n)
	case "cast_expression":
		return &ast.Cast{Base: l.base(n), Type: castType(l.text(n.ChildByFieldName("type"))), Expr: l.expr(n.ChildByFieldName("value"))}
	case "conditional_expression":
		t := &ast.Ternary{
			Base: l.base(n),
			Cond: l.expr(n.ChildByFieldName("condition")),
			Else: l.expr(n.ChildByFieldName("alternative")),
		}
		if body := n.ChildByFieldName("body"); body != nil {
			t.Then = l.expr(body)
		}
		return t
	case "function_call_expression":
		return l.call(n)
	case "member_call_expression", "nullsafe_member_call_expression":
		name := n.ChildByFieldName("name")
		if name == nil || name.Kind() != "name" {
			return l.unsupported(n)
		}
		return &ast.MethodCall{
			Base:        l.base(n),
			Object:      l.expr(n.ChildByFieldName("object")),
			Name:        l.text(name),
			Args:        l.args(n.ChildByFieldName("arguments")),
			Nullsafe:    n.Kind() == "nullsafe_member_call_expression",
			OperatorLoc: l.objectOperator(n),
		}
	case "member_access_expression", "nullsafe_member_access_expression":
		name := n.ChildByFieldName("name")
		if name == nil || name.Kind() != "name" {
			return l.unsupported(n)
		}
		return &ast.PropertyFetch{
			Base:        l.base(n),
			Object:      l.expr(n.ChildByFieldName("object")),
			Name:        l.text(name),
			Nullsafe:    n.Kind() == "nullsafe_member_access_expression",
			OperatorLoc: l.objectOperator(n),
		}
	case "scoped_call_expression":
		class, name := l.className(n.ChildByFieldName("scope")), n.ChildByFieldName("name")
		if class == "" || name == nil || name.Kind() != "name" {
			return l.unsupported(n)
		}
		return &ast.StaticCall{Base: l.base(n), Class: class, Name: l.text(name), Args: l.args(n.ChildByFieldName("arguments"))}
	case "scoped_property_access_expression":
		class, name := l.className(n.ChildByFieldName("scope")), n.ChildByFieldName("name")
		if class == "" || name == nil || name.Kind() != "variable_name" {
			return l.unsupported(n)
		}
		return &ast.StaticPropertyFetch{Base: l.base(n), Class: class, Name: l.varName(name)}
	case "class_constant_access_expression":
		children := treesitterhelper.NamedChildren(n)
		if len(children) != 2 {
			return l.unsupported(n)
		}
		class := l.className(children[0])
		if class == "" {
			return l.unsupported(n)
		}
		return &ast.ClassConstFetch{Base: l.base(n), Class: class, Name: l.text(children[1])}
	case "object_creation_expression":
		return l.newExpr(n)
	case "subscript_expression":
		children := treesitterhelper.NamedChildren(n)
		if len(children) == 0 {
			return l.unsupported(n)
		}
		d := &ast.ArrayDimFetch{Base: l.base(n), Array: l.expr(children[0])}
		if len(children) > 1 {
			d.Dim = l.expr(children[1])
		}
		return d
	case "throw_expression":
		children := treesitterhelper.NamedChildren(n)
		if len(children) == 0 {
			return l.unsupported(n)
		}
		return &ast.Throw{Base: l.base(n), Expr: l.expr(children[0])}
	case "clone_expression":
		children := treesitterhelper.NamedChildren(n)
		if len(children) == 0 {
			return l.unsupported(n)
		}
		return &ast.Clone{Base: l.base(n), Expr: l.expr(children[0])}
	case "print_intrinsic":
		call := &ast.Call{Base: l.base(n), Name: "print"}
		for _, c := range treesitterhelper.NamedChildren(n) {
			call.Args = append(call.Args, ast.Arg{Value: l.expr(c)})
		}
		return call
	case "anonymous_function", "anonymous_function_creation_expression":
		return l.closure(n)
	case "arrow_function":
		return &ast.ArrowFunction{
			Base:       l.base(n),
			Params:     l.params(n.ChildByFieldName("parameters")),
			ReturnType: l.declaredType(n, "return_type"),
			Expr:       l.expr(n.ChildByFieldName("body")),
		}
	case "match_expression":
		return l.match(n)
	}
	return l.unsupported(n)
}

// target lowers the left side of an assignment. Array literals there are
// destructuring patterns.
func (l *lowerer) target(n *tree_sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "array_creation_expression":
		return &ast.ListExpr{Base: l.base(n), Items: l.arrayItems(n, true)}
	case "list_literal":
		return &ast.ListExpr{Base: l.base(n), Items: l.listItems(n)}
	}
	return l.expr(n)
}

func (l *lowerer) integer(n *tree_sitter.Node) ast.Expr {
	text := l.text(n)
	// PHP spells octal as 0777 or 0o777; ParseInt reads both with base 0.
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64); ferr == nil {
			return &ast.FloatLit{Base: l.base(n), Value: f}
		}
		return l.unsupported(n)
	}
	return &ast.IntLit{Base: l.base(n), Value: v}
}

func (l *lowerer) operator(n *tree_sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return strings.ToLower(l.text(op))
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && !c.IsNamed() {
			return strings.ToLower(l.text(c))
		}
	}
	return ""
}

func (l *lowerer) binary(n *tree_sitter.Node) ast.Expr {
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	op := l.operator(n)
	if op == "instanceof" {
		io := &ast.Instanceof{Base: l.base(n), Expr: l.expr(left)}
		if class := l.className(right); class != "" {
			io.Class = class
		} else {
			io.Dynamic = l.expr(right)
		}
		return io
	}
	if op == "<>" {
		op = string(ast.OpNotEqual)
	}
	return &ast.Binary{Base: l.base(n), Op: ast.BinaryOp(op), Left: l.expr(left), Right: l.expr(right)}
}

func (l *lowerer) update(n *tree_sitter.Node) ast.Expr {
	children := treesitterhelper.NamedChildren(n)
	if len(children) == 0 || n.ChildCount() == 0 {
		return l.unsupported(n)
	}
	first := n.Child(0)
	prefix := !first.IsNamed()
	op := l.operator(n)
	return &ast.IncDec{Base: l.base(n), Var: l.expr(children[0]), Increment: op == "++", Prefix: prefix}
}

// className resolves a class reference. Expressions naming a class at run
// time return "".
func (l *lowerer) className(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "name", "qualified_name", "relative_scope", "named_type":
		return l.names.ResolveClass(l.text(n))
	}
	return ""
}

// objectOperator is the span of the -> or ?-> token of a member access.
func (l *lowerer) objectOperator(n *tree_sitter.Node) ast.Span {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.IsNamed() {
			continue
		}
		if t := l.text(c); t == "->" || t == "?->" {
			return l.span(c)
		}
	}
	return ast.Span{}
}

func hasToken(n *tree_sitter.Node, token string, src []byte) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && !c.IsNamed() && c.Utf8Text(src) == token {
			return true
		}
	}
	return false
}

func castType(t string) string {
	t = strings.ToLower(strings.TrimSpace(strings.Trim(t, "()")))
	switch t {
	case "integer":
		return "int"
	case "boolean":
		return "bool"
	case "double", "real":
		return "float"
	case "binary":
		return "string"
	}
	return t
}

func (l *lowerer) call(n *tree_sitter.Node) ast.Expr {
	fn := n.ChildByFieldName("function")
	argsNode := n.ChildByFieldName("arguments")
	if treesitterhelper.FindFirst(argsNode, treesitterhelper.NodeKind("variadic_placeholder"), l.src) != nil {
		return &ast.Unsupported{Base: l.base(n), Kind: "first-class callable"}
	}
	args := l.args(argsNode)

	if intrinsicPattern.Matches(n, l.src) {
		switch strings.ToLower(strings.TrimPrefix(l.text(fn), "\\")) {
		case "isset":
			is := &ast.Isset{Base: l.base(n)}
			for _, a := range args {
				is.Vars = append(is.Vars, a.Value)
			}
			return is
		case "empty":
			if len(args) != 1 {
				return l.unsupported(n)
			}
			return &ast.Empty{Base: l.base(n), Expr: args[0].Value}
		default:
			return &ast.Call{Base: l.base(n), Name: "exit", Args: args}
		}
	}

	if fn == nil {
		return l.unsupported(n)
	}
	switch fn.Kind() {
	case "name", "qualified_name":
		name := l.names.ResolveFunction(l.text(fn))
		if strings.EqualFold(name, "define") {
			l.define(args)
		}
		return &ast.Call{Base: l.base(n), Name: name, Args: args}
	}
	return &ast.Call{Base: l.base(n), Dynamic: l.expr(fn), Args: args}
}

// define records define('NAME', value) as a global constant.
func (l *lowerer) define(args []ast.Arg) {
	if len(args) < 2 {
		return
	}
	name, ok := args[0].Value.(*ast.StringLit)
	if !ok || name.Value == "" {
		return
	}
	l.decls.Constants[strings.TrimPrefix(name.Value, "\\")] = constantType(args[1].Value)
}

func (l *lowerer) args(n *tree_sitter.Node) []ast.Arg {
	var out []ast.Arg
	for _, c := range treesitterhelper.NamedChildren(n) {
		if c.Kind() != "argument" {
			continue
		}
		arg := ast.Arg{}
		name := c.ChildByFieldName("name")
		if name != nil {
			arg.Name = l.text(name)
		}
		for _, v := range treesitterhelper.NamedChildren(c) {
			if name != nil && v.StartByte() == name.StartByte() {
				continue
			}
			if v.Kind() == "reference_modifier" {
				continue
			}
			if v.Kind() == "variadic_unpacking" {
				arg.Spread = true
				if inner := treesitterhelper.NamedChildren(v); len(inner) > 0 {
					v = inner[0]
				}
			}
			arg.Value = l.expr(v)
		}
		if arg.Value == nil {
			continue
		}
		out = append(out, arg)
	}
	return out
}

func (l *lowerer) newExpr(n *tree_sitter.Node) ast.Expr {
	var class string
	var args []ast.Arg
	for _, c := range treesitterhelper.NamedChildren(n) {
		switch c.Kind() {
		case "arguments":
			args = l.args(c)
		case "anonymous_class", "declaration_list":
			return &ast.Unsupported{Base: l.base(n), Kind: "anonymous class"}
		default:
			if class == "" {
				class = l.className(c)
				if class == "" {
					return &ast.Unsupported{Base: l.base(n), Kind: "dynamic new"}
				}
			}
		}
	}
	if class == "" {
		return l.unsupported(n)
	}
	return &ast.New{Base: l.base(n), Class: class, Args: args}
}

// arrayItems lowers the elements of array(...) or [...]. asTarget lowers
// the values as destructuring targets.
func (l *lowerer) arrayItems(n *tree_sitter.Node, asTarget bool) []ast.ArrayItem {
	value := l.expr
	if asTarget {
		value = l.target
	}
	var items []ast.ArrayItem
	for _, c := range treesitterhelper.NamedChildren(n) {
		if c.Kind() != "array_element_initializer" {
			continue
		}
		parts := treesitterhelper.NamedChildren(c)
		item := ast.ArrayItem{}
		switch {
		case len(parts) == 0:
			continue
		case len(parts) == 1 && parts[0].Kind() == "variadic_unpacking":
			item.Spread = true
			if inner := treesitterhelper.NamedChildren(parts[0]); len(inner) > 0 {
				item.Value = l.expr(inner[0])
			}
		default:
			v := parts[len(parts)-1]
			if len(parts) > 1 {
				item.Key = l.expr(parts[0])
			}
			if v.Kind() == "by_ref" {
				item.ByRef = true
				if inner := treesitterhelper.NamedChildren(v); len(inner) > 0 {
					v = inner[0]
				}
			}
			item.Value = value(v)
		}
		if item.Value != nil {
			items = append(items, item)
		}
	}
	return items
}

// listItems lowers the elements of list(...). The slots are separated by
// comma tokens and may be empty.
func (l *lowerer) listItems(n *tree_sitter.Node) []ast.ArrayItem {
	var items []ast.ArrayItem
	cur := ast.ArrayItem{}
	started := false
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil || c.Kind() == "comment" {
			continue
		}
		if !c.IsNamed() {
			switch l.text(c) {
			case ",":
				items = append(items, cur)
				cur = ast.ArrayItem{}
			case "=>":
				cur.Key, cur.Value = cur.Value, nil
			case "&":
				cur.ByRef = true
			case "(", "[":
				started = true
			}
			continue
		}
		if !started {
			continue
		}
		v := c
		if v.Kind() == "by_ref" {
			cur.ByRef = true
			if inner := treesitterhelper.NamedChildren(v); len(inner) > 0 {
				v = inner[0]
			}
		}
		cur.Value = l.target(v)
	}
	if cur.Value != nil {
		items = append(items, cur)
	}
	return items
}

func (l *lowerer) closure(n *tree_sitter.Node) ast.Expr {
	c := &ast.Closure{
		Base:       l.base(n),
		Params:     l.params(n.ChildByFieldName("parameters")),
		ReturnType: l.declaredType(n, "return_type"),
		Body:       l.body(n.ChildByFieldName("body")),
	}
	for _, child := range treesitterhelper.NamedChildren(n) {
		switch child.Kind() {
		case "static_modifier":
			c.Static = true
		case "anonymous_function_use_clause":
			for _, u := range treesitterhelper.NamedChildren(child) {
				use := ast.ClosureUse{}
				if u.Kind() == "by_ref" {
					use.ByRef = true
					if inner := treesitterhelper.NamedChildren(u); len(inner) > 0 {
						u = inner[0]
					}
				}
				use.Name = l.varName(u)
				c.Uses = append(c.Uses, use)
			}
		}
	}
	if !c.Static && n.ChildCount() > 0 && strings.EqualFold(l.text(n.Child(0)), "static") {
		c.Static = true
	}
	return c
}

func (l *lowerer) match(n *tree_sitter.Node) ast.Expr {
	m := &ast.Match{Base: l.base(n), Subject: l.expr(n.ChildByFieldName("condition"))}
	for _, arm := range treesitterhelper.NamedChildren(n.ChildByFieldName("body")) {
		switch arm.Kind() {
		case "match_conditional_expression":
			a := ast.MatchArm{Loc: l.span(arm), Body: l.expr(arm.ChildByFieldName("return_expression"))}
			for _, cond := range treesitterhelper.NamedChildren(arm.ChildByFieldName("conditional_expressions")) {
				a.Conds = append(a.Conds, l.expr(cond))
			}
			m.Arms = append(m.Arms, a)
		case "match_default_expression":
			m.Arms = append(m.Arms, ast.MatchArm{Loc: l.span(arm), Body: l.expr(arm.ChildByFieldName("return_expression"))})
		}
	}
	return m
}

// stringLit lowers the string forms. Strings without embedded expressions
// become literals with their escapes decoded.
func (l *lowerer) stringLit(n *tree_sitter.Node) ast.Expr {
	switch n.Kind() {
	case "string":
		text := strings.TrimLeft(l.text(n), "bB")
		if len(text) >= 2 && text[0] == '"' {
			return &ast.StringLit{Base: l.base(n), Value: decodeDoubleQuoted(text[1 : len(text)-1])}
		}
		if len(text) >= 2 {
			text = text[1 : len(text)-1]
		}
		return &ast.StringLit{Base: l.base(n), Value: strings.NewReplacer(`\\`, `\`, `\'`, `'`).Replace(text)}
	case "nowdoc":
		var b strings.Builder
		for _, c := range treesitterhelper.NamedChildren(n) {
			if c.Kind() == "nowdoc_body" {
				for _, part := range treesitterhelper.NamedChildren(c) {
					b.WriteString(l.text(part))
				}
			}
		}
		return &ast.StringLit{Base: l.base(n), Value: strings.TrimSuffix(strings.TrimPrefix(b.String(), "\n"), "\n")}
	}

	parts := treesitterhelper.NamedChildren(n)
	if n.Kind() == "heredoc" {
		parts = nil
		for _, c := range treesitterhelper.NamedChildren(n) {
			if c.Kind() == "heredoc_body" {
				parts = append(parts, treesitterhelper.NamedChildren(c)...)
			}
		}
		if parts == nil {
			parts = treesitterhelper.NamedChildren(n)
		}
	}

	var exprs []ast.Expr
	var text strings.Builder
	pending := false
	var pendingStart *tree_sitter.Node
	flush := func(end *tree_sitter.Node) {
		if !pending {
			return
		}
		span := ast.Span{Start: int(pendingStart.StartByte()), End: int(end.StartByte()), Line: int(pendingStart.StartPosition().Row), Column: int(pendingStart.StartPosition().Column)}
		exprs = append(exprs, &ast.StringLit{Base: ast.Base{Loc: span}, Value: text.String()})
		text.Reset()
		pending = false
	}
	for _, c := range parts {
		switch c.Kind() {
		case "string_content", "string_value":
			if !pending {
				pendingStart = c
			}
			text.WriteString(decodeDoubleQuoted(l.text(c)))
			pending = true
		case "escape_sequence":
			if !pending {
				pendingStart = c
			}
			text.WriteString(decodeDoubleQuoted(l.text(c)))
			pending = true
		case "heredoc_start", "heredoc_end":
		default:
			flush(c)
			exprs = append(exprs, l.expr(c))
		}
	}
	if pending {
		span := l.span(n)
		span.Start = int(pendingStart.StartByte())
		span.Line = int(pendingStart.StartPosition().Row)
		span.Column = int(pendingStart.StartPosition().Column)
		exprs = append(exprs, &ast.StringLit{Base: ast.Base{Loc: span}, Value: text.String()})
	}

	literal := true
	var value strings.Builder
	for _, e := range exprs {
		s, ok := e.(*ast.StringLit)
		if !ok {
			literal = false
			break
		}
		value.WriteString(s.Value)
	}
	if literal {
		v := value.String()
		if n.Kind() == "heredoc" {
			v = strings.TrimSuffix(strings.TrimPrefix(v, "\n"), "\n")
		}
		return &ast.StringLit{Base: l.base(n), Value: v}
	}
	return &ast.InterpolatedString{Base: l.base(n), Parts: exprs}
}

// decodeDoubleQuoted resolves the escape sequences of a double quoted
// string. Unknown escapes are kept verbatim.
func decodeDoubleQuoted(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case '\\', '$', '"':
			b.WriteByte(s[i])
		case 'x':
			j := i + 1
			for j < len(s) && j < i+3 && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				b.WriteString(`\x`)
				continue
			}
			v, _ := strconv.ParseUint(s[i+1:j], 16, 8)
			b.WriteByte(byte(v))
			i = j - 1
		case 'u':
			end := strings.IndexByte(s[i:], '}')
			if i+1 >= len(s) || s[i+1] != '{' || end < 0 {
				b.WriteString(`\u`)
				continue
			}
			v, err := strconv.ParseUint(s[i+2:i+end], 16, 32)
			if err != nil {
				b.WriteString(`\u`)
				continue
			}
			b.WriteRune(rune(v))
			i += end
		default:
			if s[i] >= '0' && s[i] <= '7' {
				j := i
				for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				v, _ := strconv.ParseUint(s[i:j], 8, 16)
				b.WriteByte(byte(v))
				i = j - 1
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
