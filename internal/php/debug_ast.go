package php

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/shopware/phpflow/internal/ast"
)

// DumpAST writes the lowered tree of f, one node per line. annotate may
// append text to a node, e.g. its inferred type; it may be nil.
func DumpAST(w io.Writer, f *ast.File, annotate func(ast.Node) string) {
	fmt.Fprintf(w, "File %s\n", f.Path)
	for _, s := range f.Stmts {
		dumpValue(w, reflect.ValueOf(s), "", 1, annotate)
	}
}

func dumpValue(w io.Writer, v reflect.Value, label string, depth int, annotate func(ast.Node) string) {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	indent := strings.Repeat("  ", depth)
	if label != "" {
		label += ": "
	}

	switch v.Kind() {
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			dumpValue(w, v.Index(i), fmt.Sprintf("%s[%d]", strings.TrimSuffix(label, ": "), i), depth, annotate)
		}
		return
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		line := fmt.Sprintf("%s%s%s", indent, label, v.Elem().Type().Name())
		if n, ok := v.Interface().(ast.Node); ok {
			line += " @" + n.Span().String()
			line += scalars(v.Elem())
			if annotate != nil {
				if note := annotate(n); note != "" {
					line += " :: " + note
				}
			}
		} else {
			line += scalars(v.Elem())
		}
		fmt.Fprintln(w, line)
		children(w, v.Elem(), depth+1, annotate)
		return
	case reflect.Struct:
		fmt.Fprintf(w, "%s%s%s%s\n", indent, label, v.Type().Name(), scalars(v))
		children(w, v, depth+1, annotate)
	}
}

func skipField(name string) bool {
	switch name {
	case "Base", "Loc", "Doc", "OperatorLoc":
		return true
	}
	return false
}

// scalars renders the plain fields of a node that are set.
func scalars(v reflect.Value) string {
	var parts []string
	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		if !f.IsExported() || skipField(f.Name) {
			continue
		}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.String:
			if fv.String() != "" {
				parts = append(parts, fmt.Sprintf("%s=%q", f.Name, fv.String()))
			}
		case reflect.Bool:
			if fv.Bool() {
				parts = append(parts, f.Name)
			}
		case reflect.Int, reflect.Int64:
			parts = append(parts, fmt.Sprintf("%s=%d", f.Name, fv.Int()))
		case reflect.Float64:
			parts = append(parts, fmt.Sprintf("%s=%g", f.Name, fv.Float()))
		case reflect.Slice:
			if fv.Type().Elem().Kind() == reflect.String && fv.Len() > 0 {
				parts = append(parts, fmt.Sprintf("%s=%v", f.Name, fv.Interface()))
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func children(w io.Writer, v reflect.Value, depth int, annotate func(ast.Node) string) {
	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		if !f.IsExported() || skipField(f.Name) {
			continue
		}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Struct:
			dumpValue(w, fv, f.Name, depth, annotate)
		case reflect.Slice:
			if fv.Type().Elem().Kind() != reflect.String {
				dumpValue(w, fv, f.Name, depth, annotate)
			}
		}
	}
}
