// Package codebase is the read-only metadata snapshot the analyzer consults:
// classes and their hierarchy, functions, methods, properties, constants and
// the exceptions they declare.
//
// Declared types are kept as type strings so the info structs can be cached
// by the indexer; Freeze parses them once, after which a Codebase is safe for
// concurrent use.
package codebase

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/shopware/phpflow/internal/types"
)

type ClassKind int

const (
	Class ClassKind = iota
	Interface
	Trait
	Enum
)

type Template struct {
	Name string `msgpack:"name"`
	// As is the constraint type string, empty for mixed.
	As string `msgpack:"as"`
}

type Param struct {
	Name       string `msgpack:"name"`
	Type       string `msgpack:"type"`
	ByRef      bool   `msgpack:"by_ref"`
	Variadic   bool   `msgpack:"variadic"`
	HasDefault bool   `msgpack:"has_default"`

	typ *types.Union
}

// DeclaredType is the parsed type of the parameter, mixed when undeclared.
func (p Param) DeclaredType() *types.Union {
	if p.typ == nil {
		return types.Mixed()
	}
	return p.typ
}

type FunctionInfo struct {
	Name      string     `msgpack:"name"`
	Params    []Param    `msgpack:"params"`
	Return    string     `msgpack:"return"`
	Throws    []string   `msgpack:"throws"`
	Templates []Template `msgpack:"templates"`
	File      string     `msgpack:"file"`
	Line      int        `msgpack:"line"`

	ret     *types.Union
	builtin bool
}

// ReturnType is the declared return type, nil when none is declared.
func (f *FunctionInfo) ReturnType() *types.Union {
	return f.ret
}

type MethodInfo struct {
	FunctionInfo `msgpack:",inline"`
	Class        string `msgpack:"class"`
	Static       bool   `msgpack:"static"`
	Abstract     bool   `msgpack:"abstract"`
	Visibility   string `msgpack:"visibility"`
}

type PropertyInfo struct {
	Name   string `msgpack:"name"`
	Type   string `msgpack:"type"`
	Static bool   `msgpack:"static"`
	Class  string `msgpack:"class"`

	typ *types.Union
}

// DeclaredType is the parsed property type, mixed when undeclared.
func (p *PropertyInfo) DeclaredType() *types.Union {
	if p.typ == nil {
		return types.Mixed()
	}
	return p.typ
}

type ClassInfo struct {
	Name       string    `msgpack:"name"`
	Kind       ClassKind `msgpack:"kind"`
	Parent     string    `msgpack:"parent"`
	Interfaces []string  `msgpack:"interfaces"`
	Traits     []string  `msgpack:"traits"`
	// Methods and Properties are keyed by lower case method name and by
	// property name.
	Methods    map[string]*MethodInfo   `msgpack:"methods"`
	Properties map[string]*PropertyInfo `msgpack:"properties"`
	// Constants maps a class constant to its type string.
	Constants   map[string]string `msgpack:"constants"`
	Cases       []string          `msgpack:"cases"`
	BackingType string            `msgpack:"backing_type"`
	Templates   []Template        `msgpack:"templates"`
	Abstract    bool              `msgpack:"abstract"`
	Final       bool              `msgpack:"final"`
	File        string            `msgpack:"file"`
	Line        int               `msgpack:"line"`

	constants map[string]*types.Union
	builtin   bool
}

// Codebase indexes the metadata of one analysis run.
type Codebase struct {
	classes   map[string]*ClassInfo
	functions map[string]*FunctionInfo
	constants map[string]string

	constantTypes map[string]*types.Union
	ancestors     map[string]*set.Set[string]
	frozen        bool
}

func key(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "\\"))
}

// New returns a codebase that knows the builtin classes and functions.
func New() *Codebase {
	cb := &Codebase{
		classes:   map[string]*ClassInfo{},
		functions: map[string]*FunctionInfo{},
		constants: map[string]string{},
	}
	b := builtins()
	for _, c := range b.classes {
		cb.classes[key(c.Name)] = c
	}
	for _, f := range b.functions {
		cb.functions[key(f.Name)] = f
	}
	for name, t := range b.constants {
		cb.constants[name] = t
	}
	return cb
}

func (cb *Codebase) mustNotBeFrozen() {
	if cb.frozen {
		panic("codebase: modified after Freeze")
	}
}

// AddClass registers c, replacing any class of the same name.
func (cb *Codebase) AddClass(c *ClassInfo) {
	cb.mustNotBeFrozen()
	c.Name = strings.TrimPrefix(c.Name, "\\")
	if c.Methods == nil {
		c.Methods = map[string]*MethodInfo{}
	}
	if c.Properties == nil {
		c.Properties = map[string]*PropertyInfo{}
	}
	for name, m := range c.Methods {
		m.Class = c.Name
		if lower := strings.ToLower(name); lower != name {
			delete(c.Methods, name)
			c.Methods[lower] = m
		}
	}
	for _, p := range c.Properties {
		p.Class = c.Name
	}
	if c.Kind == Enum {
		c.Interfaces = appendMissing(c.Interfaces, "UnitEnum")
		if c.BackingType != "" {
			c.Interfaces = appendMissing(c.Interfaces, "BackedEnum")
		}
	}
	cb.classes[key(c.Name)] = c
}

func appendMissing(names []string, name string) []string {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return names
		}
	}
	return append(names, name)
}

func (cb *Codebase) AddFunction(f *FunctionInfo) {
	cb.mustNotBeFrozen()
	f.Name = strings.TrimPrefix(f.Name, "\\")
	cb.functions[key(f.Name)] = f
}

func (cb *Codebase) AddConstant(name, typ string) {
	cb.mustNotBeFrozen()
	cb.constants[strings.TrimPrefix(name, "\\")] = typ
}

// Freeze parses every declared type and precomputes the class ancestry. The
// codebase must not be modified afterwards.
func (cb *Codebase) Freeze() *Codebase {
	if cb.frozen {
		return cb
	}
	cb.ancestors = make(map[string]*set.Set[string], len(cb.classes))
	for k := range cb.classes {
		cb.ancestorsOf(k, set.New[string](0))
	}
	for _, c := range cb.classes {
		if c.builtin {
			continue
		}
		opts := types.ParseOptions{Self: c.Name, Parent: c.Parent, Templates: templates(c.Templates, c.Name, nil)}
		c.constants = make(map[string]*types.Union, len(c.Constants)+len(c.Cases))
		for name, t := range c.Constants {
			c.constants[name] = parseType(t, opts)
		}
		for _, name := range c.Cases {
			c.constants[name] = types.EnumCase(c.Name, name)
		}
		for _, p := range c.Properties {
			p.typ = parseType(p.Type, opts)
		}
		for _, m := range c.Methods {
			mopts := opts
			mopts.Templates = templates(m.Templates, c.Name+"::"+m.Name, opts.Templates)
			freezeFunction(&m.FunctionInfo, mopts)
		}
	}
	for _, f := range cb.functions {
		if f.builtin {
			continue
		}
		freezeFunction(f, types.ParseOptions{Templates: templates(f.Templates, f.Name, nil)})
	}
	cb.constantTypes = make(map[string]*types.Union, len(cb.constants))
	for name, t := range cb.constants {
		cb.constantTypes[key(name)] = parseType(t, types.ParseOptions{})
	}
	cb.frozen = true
	return cb
}

func freezeFunction(f *FunctionInfo, opts types.ParseOptions) {
	for i := range f.Params {
		f.Params[i].typ = parseType(f.Params[i].Type, opts)
	}
	f.ret = parseType(f.Return, opts)
}

func templates(ts []Template, entity string, outer map[string]types.TGenericParam) map[string]types.TGenericParam {
	if len(ts) == 0 {
		return outer
	}
	out := make(map[string]types.TGenericParam, len(outer)+len(ts))
	for k, v := range outer {
		out[k] = v
	}
	for _, t := range ts {
		constraint := types.Mixed()
		if t.As != "" {
			constraint = parseType(t.As, types.ParseOptions{Templates: out})
		}
		out[t.Name] = types.TGenericParam{Name: t.Name, Constraint: constraint, DefiningEntity: entity}
	}
	return out
}

// parseType returns nil for an empty type string and mixed for one that does
// not parse.
func parseType(s string, opts types.ParseOptions) *types.Union {
	if s == "" {
		return nil
	}
	u, err := types.ParseWith(s, opts)
	if err != nil {
		slog.Debug("unparsable declared type", "section", "analyzer.codebase", "type", s, "error", err)
		return types.Mixed()
	}
	return u
}

func (cb *Codebase) ancestorsOf(k string, visiting *set.Set[string]) *set.Set[string] {
	if a, ok := cb.ancestors[k]; ok {
		return a
	}
	out := set.New[string](4)
	c, ok := cb.classes[k]
	if !ok || !visiting.Insert(k) {
		return out
	}
	parents := append([]string{c.Parent}, c.Interfaces...)
	for _, p := range parents {
		if p == "" {
			continue
		}
		pk := key(p)
		out.Insert(pk)
		out.InsertSet(cb.ancestorsOf(pk, visiting))
	}
	visiting.Remove(k)
	cb.ancestors[k] = out
	return out
}

// Class looks up a class, interface, trait or enum by name.
func (cb *Codebase) Class(name string) (*ClassInfo, bool) {
	c, ok := cb.classes[key(name)]
	return c, ok
}

func (cb *Codebase) ClassExists(name string) bool {
	_, ok := cb.classes[key(name)]
	return ok
}

func (cb *Codebase) Function(name string) (*FunctionInfo, bool) {
	if f, ok := cb.functions[key(name)]; ok {
		return f, true
	}
	// Unqualified calls inside a namespace fall back to the global function.
	if i := strings.LastIndex(name, "\\"); i >= 0 {
		f, ok := cb.functions[key(name[i+1:])]
		return f, ok
	}
	return nil, false
}

// Constant returns the type of a global constant.
func (cb *Codebase) Constant(name string) (*types.Union, bool) {
	t, ok := cb.constantTypes[key(name)]
	if !ok {
		if i := strings.LastIndex(name, "\\"); i >= 0 {
			t, ok = cb.constantTypes[key(name[i+1:])]
		}
	}
	return t, ok
}

// Method resolves name on class, searching traits, the parent chain and, for
// abstract declarations, the interfaces.
func (cb *Codebase) Method(class, name string) (*MethodInfo, bool) {
	return cb.method(key(class), strings.ToLower(name), set.New[string](0))
}

func (cb *Codebase) method(k, name string, seen *set.Set[string]) (*MethodInfo, bool) {
	c, ok := cb.classes[k]
	if !ok || !seen.Insert(k) {
		return nil, false
	}
	if m, ok := c.Methods[name]; ok {
		return m, true
	}
	for _, t := range c.Traits {
		if m, ok := cb.method(key(t), name, seen); ok {
			return m, true
		}
	}
	if c.Parent != "" {
		if m, ok := cb.method(key(c.Parent), name, seen); ok {
			return m, true
		}
	}
	for _, i := range c.Interfaces {
		if m, ok := cb.method(key(i), name, seen); ok {
			return m, true
		}
	}
	return nil, false
}

// Property resolves a declared property on class or its ancestors.
func (cb *Codebase) Property(class, name string) (*PropertyInfo, bool) {
	return cb.property(key(class), name, set.New[string](0))
}

func (cb *Codebase) property(k, name string, seen *set.Set[string]) (*PropertyInfo, bool) {
	c, ok := cb.classes[k]
	if !ok || !seen.Insert(k) {
		return nil, false
	}
	if p, ok := c.Properties[name]; ok {
		return p, true
	}
	for _, t := range c.Traits {
		if p, ok := cb.property(key(t), name, seen); ok {
			return p, true
		}
	}
	if c.Parent != "" {
		return cb.property(key(c.Parent), name, seen)
	}
	return nil, false
}

// ClassConstant returns the type of a class constant or enum case.
func (cb *Codebase) ClassConstant(class, name string) (*types.Union, bool) {
	k := key(class)
	for k != "" {
		c, ok := cb.classes[k]
		if !ok {
			break
		}
		if t, ok := c.constants[name]; ok {
			return t, true
		}
		for _, i := range c.Interfaces {
			if t, ok := cb.ClassConstant(i, name); ok {
				return t, true
			}
		}
		k = key(c.Parent)
	}
	return nil, false
}

// IsSubclassOf implements types.Hierarchy.
func (cb *Codebase) IsSubclassOf(child, parent string) bool {
	a, ok := cb.ancestors[key(child)]
	if !ok {
		return false
	}
	return a.Contains(key(parent))
}

func (cb *Codebase) IsInterface(name string) bool {
	c, ok := cb.classes[key(name)]
	return ok && c.Kind == Interface
}

func (cb *Codebase) EnumCases(name string) ([]string, bool) {
	c, ok := cb.classes[key(name)]
	if !ok || c.Kind != Enum {
		return nil, false
	}
	return c.Cases, true
}

// Ancestors lists the parents and interfaces of class in sorted order.
func (cb *Codebase) Ancestors(class string) []string {
	a, ok := cb.ancestors[key(class)]
	if !ok {
		return nil
	}
	names := make([]string, 0, a.Size())
	for k := range a.Items() {
		if c, ok := cb.classes[k]; ok {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (cb *Codebase) String() string {
	return fmt.Sprintf("codebase(%d classes, %d functions)", len(cb.classes), len(cb.functions))
}
