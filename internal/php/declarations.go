package php

import (
	"strconv"
	"strings"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/codebase"
)

// Declarations are the classes, functions and global constants one file
// declares. They are cached per file by the indexer and added to the
// codebase before any file is analysed.
type Declarations struct {
	Classes   []*codebase.ClassInfo    `msgpack:"classes"`
	Functions []*codebase.FunctionInfo `msgpack:"functions"`
	// Constants maps a constant name to its type string.
	Constants map[string]string `msgpack:"constants"`
}

func newDeclarations() *Declarations {
	return &Declarations{Constants: map[string]string{}}
}

func (d *Declarations) Empty() bool {
	return d == nil || (len(d.Classes) == 0 && len(d.Functions) == 0 && len(d.Constants) == 0)
}

// AddTo registers the declarations in cb, which must not be frozen yet.
func (d *Declarations) AddTo(cb *codebase.Codebase) {
	if d == nil {
		return
	}
	for _, c := range d.Classes {
		cb.AddClass(c)
	}
	for _, f := range d.Functions {
		cb.AddFunction(f)
	}
	for name, t := range d.Constants {
		cb.AddConstant(name, t)
	}
}

// constantType is the type string of a constant initializer. Scalars keep
// their literal value.
func constantType(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.IntLit:
		return strconv.FormatInt(v.Value, 10)
	case *ast.FloatLit:
		return "float"
	case *ast.StringLit:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v.Value) + "'"
	case *ast.BoolLit:
		if v.Value {
			return "true"
		}
		return "false"
	case *ast.NullLit:
		return "null"
	case *ast.ArrayLit:
		return "array"
	case *ast.Unary:
		if lit, ok := v.Operand.(*ast.IntLit); ok && v.Op == ast.OpNeg {
			return strconv.FormatInt(-lit.Value, 10)
		}
	case *ast.InterpolatedString:
		return "string"
	}
	return "mixed"
}
