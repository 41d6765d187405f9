package php

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/codebase"
	treesitterhelper "github.com/shopware/phpflow/internal/tree_sitter_helper"
)

func (l *lowerer) docblock(doc string) Docblock {
	return ParseDocblock(doc, l.names.ResolveClass, l.templates)
}

func (l *lowerer) line(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func (l *lowerer) functionDecl(n *tree_sitter.Node) ast.Stmt {
	d := &ast.FunctionDecl{
		Base:       l.base(n),
		Name:       l.names.Qualify(l.text(n.ChildByFieldName("name"))),
		Params:     l.params(n.ChildByFieldName("parameters")),
		ReturnType: l.declaredType(n, "return_type"),
		Body:       l.body(n.ChildByFieldName("body")),
		Doc:        treesitterhelper.DocComment(n, l.src),
	}
	info := l.functionInfo(d.Name, d.Params, d.ReturnType, l.docblock(d.Doc), n)
	l.decls.Functions = append(l.decls.Functions, &info)
	return d
}

// functionInfo merges the native signature with the docblock. Docblock
// types are more precise and win.
func (l *lowerer) functionInfo(name string, params []ast.Param, ret string, doc Docblock, n *tree_sitter.Node) codebase.FunctionInfo {
	info := codebase.FunctionInfo{
		Name:   name,
		Return: ret,
		Throws: doc.Throws,
		File:   l.path,
		Line:   l.line(n),
	}
	if doc.Return != "" {
		info.Return = doc.Return
	}
	for _, p := range params {
		typ := p.Type
		if t, ok := doc.Params[p.Name]; ok {
			typ = t
		}
		info.Params = append(info.Params, codebase.Param{
			Name:       p.Name,
			Type:       typ,
			ByRef:      p.ByRef,
			Variadic:   p.Variadic,
			HasDefault: p.Default != nil,
		})
	}
	for _, t := range doc.Templates {
		info.Templates = append(info.Templates, codebase.Template{Name: t.Name, As: t.As})
	}
	return info
}

func (l *lowerer) params(n *tree_sitter.Node) []ast.Param {
	var out []ast.Param
	for _, c := range treesitterhelper.NamedChildren(n) {
		switch c.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}
		p := ast.Param{
			Loc:      l.span(c),
			Type:     l.declaredType(c, "type"),
			Variadic: c.Kind() == "variadic_parameter",
			Promoted: c.Kind() == "property_promotion_parameter",
			ByRef:    c.ChildByFieldName("reference_modifier") != nil || hasToken(c, "&", l.src),
		}
		name := c.ChildByFieldName("name")
		if name != nil && name.Kind() == "by_ref" {
			p.ByRef = true
			name = treesitterhelper.GetFirstNodeOfKind(name, "variable_name")
		}
		if name == nil {
			name = treesitterhelper.GetFirstNodeOfKind(c, "variable_name")
		}
		p.Name = l.varName(name)
		if d := c.ChildByFieldName("default_value"); d != nil {
			p.Default = l.expr(d)
		}
		out = append(out, p)
	}
	return out
}

var classKinds = map[string]ast.ClassKind{
	"class_declaration":     ast.KindClass,
	"interface_declaration": ast.KindInterface,
	"trait_declaration":     ast.KindTrait,
	"enum_declaration":      ast.KindEnum,
}

// classDecl lowers a class-like declaration and records its metadata.
// Member bodies are lowered with self and the class templates in scope.
func (l *lowerer) classDecl(n *tree_sitter.Node) ast.Stmt {
	d := &ast.ClassDecl{
		Base: l.base(n),
		Name: l.names.Qualify(l.text(n.ChildByFieldName("name"))),
		Kind: classKinds[n.Kind()],
		Doc:  treesitterhelper.DocComment(n, l.src),
	}

	prevClass, prevParent, prevTemplates := l.class, l.parent, l.templates
	defer func() { l.class, l.parent, l.templates = prevClass, prevParent, prevTemplates }()

	for _, c := range treesitterhelper.NamedChildren(n) {
		switch c.Kind() {
		case "abstract_modifier":
			d.Abstract = true
		case "final_modifier":
			d.Final = true
		case "base_clause":
			for _, name := range l.classNames(c) {
				if d.Kind == ast.KindInterface {
					d.Interfaces = append(d.Interfaces, name)
				} else if d.Parent == "" {
					d.Parent = name
				}
			}
		case "class_interface_clause":
			d.Interfaces = append(d.Interfaces, l.classNames(c)...)
		case "primitive_type":
			d.BackingType = strings.ToLower(l.text(c))
		}
	}

	doc := ParseDocblock(d.Doc, l.names.ResolveClass, nil)
	l.class, l.parent = d.Name, d.Parent
	l.templates = map[string]bool{}
	for _, t := range doc.Templates {
		l.templates[t.Name] = true
	}

	for _, member := range treesitterhelper.NamedChildren(n.ChildByFieldName("body")) {
		switch member.Kind() {
		case "method_declaration":
			d.Methods = append(d.Methods, l.methodDecl(member, d.Kind))
		case "property_declaration":
			d.Properties = append(d.Properties, l.propertyDecls(member)...)
		case "const_declaration":
			for _, c := range treesitterhelper.NamedChildren(member) {
				if c.Kind() != "const_element" {
					continue
				}
				if name, value := l.constElement(c); name != "" {
					d.Constants = append(d.Constants, ast.ConstDecl{Loc: l.span(c), Name: name, Value: value})
				}
			}
		case "use_declaration":
			d.Traits = append(d.Traits, l.classNames(member)...)
		case "enum_case":
			ec := ast.EnumCase{Loc: l.span(member), Name: l.text(member.ChildByFieldName("name"))}
			if v := member.ChildByFieldName("value"); v != nil {
				ec.Value = l.expr(v)
			}
			d.Cases = append(d.Cases, ec)
		}
	}

	l.decls.Classes = append(l.decls.Classes, l.classInfo(d, doc, n))
	return d
}

func (l *lowerer) classNames(n *tree_sitter.Node) []string {
	var out []string
	for _, c := range treesitterhelper.NamedChildren(n) {
		if name := l.className(c); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func (l *lowerer) methodDecl(n *tree_sitter.Node, kind ast.ClassKind) *ast.MethodDecl {
	m := &ast.MethodDecl{
		Loc:        l.span(n),
		Name:       l.text(n.ChildByFieldName("name")),
		Params:     l.params(n.ChildByFieldName("parameters")),
		ReturnType: l.declaredType(n, "return_type"),
		Visibility: "public",
		Abstract:   kind == ast.KindInterface,
		Doc:        treesitterhelper.DocComment(n, l.src),
	}
	for _, c := range treesitterhelper.NamedChildren(n) {
		switch c.Kind() {
		case "visibility_modifier":
			m.Visibility = strings.ToLower(l.text(c))
		case "static_modifier":
			m.Static = true
		case "abstract_modifier":
			m.Abstract = true
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		m.Body = l.body(body)
	}
	return m
}

func (l *lowerer) propertyDecls(n *tree_sitter.Node) []ast.PropertyDecl {
	doc := treesitterhelper.DocComment(n, l.src)
	typ := l.declaredType(n, "type")
	static := false
	for _, c := range treesitterhelper.NamedChildren(n) {
		if c.Kind() == "static_modifier" {
			static = true
		}
	}
	var out []ast.PropertyDecl
	for _, c := range treesitterhelper.NamedChildren(n) {
		if c.Kind() != "property_element" {
			continue
		}
		p := ast.PropertyDecl{Loc: l.span(c), Type: typ, Static: static, Doc: doc}
		p.Name = l.varName(treesitterhelper.GetFirstNodeOfKind(c, "variable_name"))
		if v := c.ChildByFieldName("default_value"); v != nil {
			p.Default = l.expr(v)
		} else if init := treesitterhelper.GetFirstNodeOfKind(c, "property_initializer"); init != nil {
			if children := treesitterhelper.NamedChildren(init); len(children) > 0 {
				p.Default = l.expr(children[0])
			}
		}
		out = append(out, p)
	}
	return out
}

// classInfo builds the codebase entry of d. Promoted constructor
// parameters declare properties.
func (l *lowerer) classInfo(d *ast.ClassDecl, doc Docblock, n *tree_sitter.Node) *codebase.ClassInfo {
	info := &codebase.ClassInfo{
		Name:        d.Name,
		Kind:        codebase.ClassKind(d.Kind),
		Parent:      d.Parent,
		Interfaces:  d.Interfaces,
		Traits:      d.Traits,
		Methods:     make(map[string]*codebase.MethodInfo, len(d.Methods)),
		Properties:  make(map[string]*codebase.PropertyInfo, len(d.Properties)),
		Constants:   make(map[string]string, len(d.Constants)),
		BackingType: d.BackingType,
		Abstract:    d.Abstract,
		Final:       d.Final,
		File:        l.path,
		Line:        l.line(n),
	}
	for _, t := range doc.Templates {
		info.Templates = append(info.Templates, codebase.Template{Name: t.Name, As: t.As})
	}
	for _, c := range d.Constants {
		info.Constants[c.Name] = constantType(c.Value)
	}
	for _, c := range d.Cases {
		info.Cases = append(info.Cases, c.Name)
	}
	for _, p := range d.Properties {
		typ := p.Type
		if v := l.docblock(p.Doc).Var; v != "" {
			typ = v
		}
		info.Properties[p.Name] = &codebase.PropertyInfo{Name: p.Name, Type: typ, Static: p.Static}
	}
	for _, md := range d.Methods {
		mdoc := l.docblock(md.Doc)
		fi := l.functionInfo(md.Name, md.Params, md.ReturnType, mdoc, n)
		fi.Line = md.Loc.Line + 1
		info.Methods[strings.ToLower(md.Name)] = &codebase.MethodInfo{
			FunctionInfo: fi,
			Static:       md.Static,
			Abstract:     md.Abstract || md.Body == nil,
			Visibility:   md.Visibility,
		}
		for i, p := range md.Params {
			if p.Promoted {
				info.Properties[p.Name] = &codebase.PropertyInfo{Name: p.Name, Type: fi.Params[i].Type}
			}
		}
	}
	return info
}
