package php

import (
	"log/slog"
	"strings"
)

// UseKind is the kind of symbol a use statement imports.
type UseKind int

const (
	UseClass UseKind = iota
	UseFunction
	UseConstant
)

// AliasResolver resolves names written in a PHP file to fully qualified names,
// following the namespace and use statements in effect at the point of use.
type AliasResolver struct {
	namespace string
	// imports are keyed by lower case alias for classes and functions, and by
	// the alias as written for constants.
	imports [3]map[string]string
	// localFunctions are the functions declared in the file, keyed by lower
	// case fully qualified name.
	localFunctions map[string]bool
}

func NewAliasResolver(namespace string) *AliasResolver {
	r := &AliasResolver{namespace: strings.Trim(namespace, "\\"), localFunctions: map[string]bool{}}
	for i := range r.imports {
		r.imports[i] = map[string]string{}
	}
	return r
}

// Namespace is the namespace the resolver is in, empty for the global one.
func (r *AliasResolver) Namespace() string {
	return r.namespace
}

// EnterNamespace switches to namespace and forgets all imports, as a new
// namespace block does.
func (r *AliasResolver) EnterNamespace(namespace string) {
	r.namespace = strings.Trim(namespace, "\\")
	for i := range r.imports {
		r.imports[i] = map[string]string{}
	}
}

// AddUse registers use fqn as alias. An empty alias imports the last segment
// of fqn.
func (r *AliasResolver) AddUse(kind UseKind, fqn, alias string) {
	fqn = strings.Trim(fqn, "\\")
	if alias == "" {
		alias = lastSegment(fqn)
	}
	if kind != UseConstant {
		alias = strings.ToLower(alias)
	}
	r.imports[kind][alias] = fqn
}

// DeclareFunction records a function declared in the file so unqualified
// calls to it resolve into the namespace.
func (r *AliasResolver) DeclareFunction(name string) {
	r.localFunctions[strings.ToLower(r.Qualify(name))] = true
}

// Qualify prefixes name with the current namespace.
func (r *AliasResolver) Qualify(name string) string {
	if r.namespace == "" {
		return name
	}
	return r.namespace + "\\" + name
}

// ResolveClass resolves a class name. Keywords and scalar type names are
// returned unchanged.
func (r *AliasResolver) ResolveClass(name string) string {
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "\\"):
		return name[1:]
	case isPrimitiveType(name) || isSpecialType(name):
		return name
	case strings.HasPrefix(strings.ToLower(name), "namespace\\"):
		return r.Qualify(name[len("namespace\\"):])
	}

	first, rest, qualified := strings.Cut(name, "\\")
	if fqn, ok := r.imports[UseClass][strings.ToLower(first)]; ok {
		if qualified {
			return fqn + "\\" + rest
		}
		slog.Debug("resolved imported class", "section", "php.alias", "name", name, "fqn", fqn)
		return fqn
	}
	return r.Qualify(name)
}

// ResolveFunction resolves the name of a called function. Unqualified names
// fall back to the global function unless the file declares the function in
// its namespace.
func (r *AliasResolver) ResolveFunction(name string) string {
	if strings.HasPrefix(name, "\\") {
		return name[1:]
	}
	if strings.Contains(name, "\\") {
		return r.ResolveClass(name)
	}
	if fqn, ok := r.imports[UseFunction][strings.ToLower(name)]; ok {
		return fqn
	}
	if r.namespace != "" && r.localFunctions[strings.ToLower(r.Qualify(name))] {
		return r.Qualify(name)
	}
	return name
}

// ResolveConstant resolves a global constant name the way ResolveFunction
// resolves function names.
func (r *AliasResolver) ResolveConstant(name string) string {
	if strings.HasPrefix(name, "\\") {
		return name[1:]
	}
	if strings.Contains(name, "\\") {
		return r.ResolveClass(name)
	}
	if fqn, ok := r.imports[UseConstant][name]; ok {
		return fqn
	}
	return name
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func isPrimitiveType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "string", "int", "integer", "float", "double", "bool", "boolean",
		"array", "object", "callable", "iterable", "void", "null",
		"mixed", "never", "resource", "false", "true":
		return true
	}
	return false
}

// isSpecialType reports the keywords that refer to the enclosing class.
func isSpecialType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "self", "static", "parent", "$this":
		return true
	}
	return false
}
