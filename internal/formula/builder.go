package formula

import (
	"math"
	"strings"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/types"
)

// Resolver gives the builder access to the types the analyzer already
// inferred for sub expressions of a condition.
type Resolver interface {
	// TypeOf returns the inferred type of e, nil when e was not analysed.
	TypeOf(e ast.Expr) *types.Union
}

// Builder translates conditions into clauses.
type Builder struct {
	Resolver Resolver
	Limits   Limits
	// Self is the class that self and static refer to.
	Self string
}

// possibility is one OR group on a single variable.
type possibility struct {
	varID   string
	or      []assertion.Assertion
	implied bool
}

// GetFormula returns the clauses that hold whenever cond is truthy. Parts of
// the condition that say nothing about tracked variables become wedges.
// ErrComplexFormula is returned when distributing a disjunction would
// produce too many clauses.
func (b *Builder) GetFormula(conditionID, objectID ast.Span, cond ast.Expr) ([]*Clause, error) {
	switch e := cond.(type) {
	case *ast.Binary:
		switch e.Op {
		case ast.OpAnd, ast.OpLogicalAnd:
			left, err := b.GetFormula(conditionID, e.Left.Span(), e.Left)
			if err != nil {
				return nil, err
			}
			right, err := b.GetFormula(conditionID, e.Right.Span(), e.Right)
			if err != nil {
				return nil, err
			}
			return append(left, right...), nil
		case ast.OpOr, ast.OpLogicalOr:
			left, err := b.GetFormula(conditionID, e.Left.Span(), e.Left)
			if err != nil {
				return nil, err
			}
			right, err := b.GetFormula(conditionID, e.Right.Span(), e.Right)
			if err != nil {
				return nil, err
			}
			return Or(left, right, b.Limits)
		case ast.OpIdentical, ast.OpNotIdentical, ast.OpEqual, ast.OpNotEqual:
			if inner, positive, ok := boolComparison(e); ok {
				clauses, err := b.GetFormula(conditionID, inner.Span(), inner)
				if err != nil || positive {
					return clauses, err
				}
				return Negate(clauses, conditionID, b.Limits)
			}
		}
	case *ast.Unary:
		if e.Op == ast.OpNot {
			inner, err := b.GetFormula(conditionID, e.Operand.Span(), e.Operand)
			if err != nil {
				return nil, err
			}
			return Negate(inner, conditionID, b.Limits)
		}
	case *ast.BoolLit:
		return nil, nil
	}

	possibilities, exact := b.scrape(cond)
	clauses := make([]*Clause, 0, len(possibilities)+1)
	for _, p := range possibilities {
		c := NewClause(map[string][]assertion.Assertion{p.varID: p.or}, conditionID, objectID)
		if p.implied {
			c = withImplied(c, true)
		}
		clauses = append(clauses, c)
	}
	if !exact || len(clauses) == 0 {
		clauses = append(clauses, NewWedge(conditionID, objectID))
	}
	return clauses, nil
}

// boolComparison recognises "expr === true" style conditions on something
// that is not itself a tracked variable.
func boolComparison(e *ast.Binary) (ast.Expr, bool, bool) {
	lit, other := e.Right, e.Left
	if _, ok := e.Left.(*ast.BoolLit); ok {
		lit, other = e.Left, e.Right
	}
	bl, ok := lit.(*ast.BoolLit)
	if !ok {
		return nil, false, false
	}
	if _, tracked := ast.VarID(other); tracked {
		return nil, false, false
	}
	positive := bl.Value
	if e.Op == ast.OpNotIdentical || e.Op == ast.OpNotEqual {
		positive = !positive
	}
	return other, positive, true
}

// scrape returns the per variable assertions of an atomic condition. exact is
// false when the condition is stronger than the assertions found, so the
// negation must not rely on them.
func (b *Builder) scrape(cond ast.Expr) ([]possibility, bool) {
	switch e := cond.(type) {
	case *ast.Variable, *ast.PropertyFetch, *ast.StaticPropertyFetch, *ast.ArrayDimFetch:
		if id, ok := ast.VarID(e); ok {
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.Truthy)}}}, true
		}
	case *ast.Assign:
		if id, ok := ast.VarID(e.Target); ok {
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.Truthy)}}}, true
		}
	case *ast.AssignRef:
		if id, ok := ast.VarID(e.Target); ok {
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.Truthy)}}}, true
		}
	case *ast.Isset:
		return b.issetPossibilities(e)
	case *ast.Empty:
		if id, ok := ast.VarID(e.Expr); ok {
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.Falsy)}}}, true
		}
	case *ast.Instanceof:
		id, ok := trackedID(e.Expr)
		if !ok || e.Dynamic != nil {
			return nil, false
		}
		return []possibility{{varID: id, or: []assertion.Assertion{assertion.Is(b.classAtomic(e.Class))}}}, true
	case *ast.Binary:
		return b.comparison(e)
	case *ast.Call:
		return b.call(e)
	}
	return nil, false
}

// trackedID is VarID looking through an assignment used as a value.
func trackedID(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.Assign:
		return ast.VarID(n.Target)
	case *ast.AssignRef:
		return ast.VarID(n.Target)
	}
	return ast.VarID(e)
}

func (b *Builder) classAtomic(name string) types.Atomic {
	switch strings.ToLower(name) {
	case "self":
		if b.Self != "" {
			return types.TNamedObject{Name: b.Self}
		}
	case "static":
		if b.Self != "" {
			return types.TNamedObject{Name: b.Self, IsThis: true}
		}
	}
	return types.TNamedObject{Name: strings.TrimPrefix(name, "\\")}
}

func (b *Builder) issetPossibilities(e *ast.Isset) ([]possibility, bool) {
	var out []possibility
	exact := true
	for _, v := range e.Vars {
		id, ok := ast.VarID(v)
		if !ok {
			exact = false
			continue
		}
		out = append(out, possibility{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.Isset)}})
		out = append(out, parentPossibilities(v)...)
	}
	return out, exact
}

// parentPossibilities lists what isset on a nested access implies for the
// values it is read from.
func parentPossibilities(e ast.Expr) []possibility {
	var out []possibility
	for {
		var parent ast.Expr
		var direct assertion.Assertion
		switch n := e.(type) {
		case *ast.PropertyFetch:
			parent = n.Object
			direct = assertion.Simple(assertion.Isset)
		case *ast.ArrayDimFetch:
			parent = n.Array
			direct = assertion.Simple(assertion.Isset)
			switch d := n.Dim.(type) {
			case *ast.IntLit:
				direct = assertion.ArrayKeyExists(types.IntKey(d.Value))
			case *ast.StringLit:
				direct = assertion.ArrayKeyExists(types.StringKey(d.Value))
			}
		default:
			return out
		}
		id, ok := ast.VarID(parent)
		if !ok {
			return out
		}
		out = append(out, possibility{varID: id, or: []assertion.Assertion{direct}, implied: true})
		e = parent
	}
}

func (b *Builder) typeOf(e ast.Expr) *types.Union {
	if b.Resolver != nil {
		if t := b.Resolver.TypeOf(e); t != nil {
			return t
		}
	}
	switch n := e.(type) {
	case *ast.NullLit:
		return types.Null()
	case *ast.BoolLit:
		if n.Value {
			return types.True()
		}
		return types.False()
	case *ast.IntLit:
		return types.LiteralInt(n.Value)
	case *ast.FloatLit:
		return types.LiteralFloat(n.Value)
	case *ast.StringLit:
		return types.LiteralString(n.Value)
	case *ast.ArrayLit:
		if len(n.Items) == 0 {
			return types.EmptyArray()
		}
	case *ast.Unary:
		if lit, ok := n.Operand.(*ast.IntLit); ok && n.Op == ast.OpNeg {
			return types.LiteralInt(-lit.Value)
		}
	}
	return nil
}

// comparableAtom returns the single value type a comparison can narrow to.
func (b *Builder) comparableAtom(e ast.Expr) (types.Atomic, bool) {
	t := b.typeOf(e)
	if t == nil {
		return nil, false
	}
	a, ok := t.Single()
	if !ok {
		return nil, false
	}
	switch at := a.(type) {
	case types.TNull, types.TTrue, types.TFalse, types.TLiteralInt, types.TLiteralFloat, types.TLiteralString:
		return a, true
	case types.TEnum:
		return a, at.Case != ""
	case types.TKeyedArray:
		return a, at.IsEmpty()
	}
	return nil, false
}

func literalInt(t *types.Union) (int64, bool) {
	if t == nil {
		return 0, false
	}
	a, ok := t.Single()
	if !ok {
		return 0, false
	}
	lit, ok := a.(types.TLiteralInt)
	return lit.Value, ok
}

var flippedOps = map[ast.BinaryOp]ast.BinaryOp{
	ast.OpLess:         ast.OpGreater,
	ast.OpLessEqual:    ast.OpGreaterEqual,
	ast.OpGreater:      ast.OpLess,
	ast.OpGreaterEqual: ast.OpLessEqual,
}

func (b *Builder) comparison(e *ast.Binary) ([]possibility, bool) {
	switch e.Op {
	case ast.OpIdentical, ast.OpNotIdentical, ast.OpEqual, ast.OpNotEqual,
		ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
	default:
		return nil, false
	}

	subject, other, op := e.Left, e.Right, e.Op
	if isCountCall(e.Right) && !isCountCall(e.Left) {
		subject, other = e.Right, e.Left
		if f, ok := flippedOps[op]; ok {
			op = f
		}
	}
	if call, ok := subject.(*ast.Call); ok && isCountCall(call) {
		return b.countComparison(call, op, other)
	}

	id, ok := trackedID(subject)
	if !ok {
		id, ok = trackedID(other)
		if !ok {
			return nil, false
		}
		other = subject
		if f, ok := flippedOps[op]; ok {
			op = f
		}
	}

	switch op {
	case ast.OpIdentical, ast.OpNotIdentical, ast.OpEqual, ast.OpNotEqual:
		atom, ok := b.comparableAtom(other)
		if !ok {
			return nil, false
		}
		var a assertion.Assertion
		switch op {
		case ast.OpIdentical:
			a = assertion.Is(atom)
		case ast.OpNotIdentical:
			a = assertion.IsNot(atom)
		case ast.OpEqual:
			a = assertion.Equals(atom)
		default:
			a = assertion.NotEquals(atom)
		}
		return []possibility{{varID: id, or: []assertion.Assertion{a}}}, true
	}

	n, ok := literalInt(b.typeOf(other))
	if !ok {
		return nil, false
	}
	var a assertion.Assertion
	switch op {
	case ast.OpGreater:
		a = assertion.GreaterThan(n)
	case ast.OpGreaterEqual:
		if n == math.MinInt64 {
			return nil, false
		}
		a = assertion.GreaterThan(n - 1)
	case ast.OpLess:
		a = assertion.LessThan(n)
	default:
		if n == math.MaxInt64 {
			return nil, false
		}
		a = assertion.LessThan(n + 1)
	}
	return []possibility{{varID: id, or: []assertion.Assertion{a}}}, true
}

func isCountCall(e ast.Expr) bool {
	call, ok := e.(*ast.Call)
	if !ok || len(call.Args) != 1 {
		return false
	}
	switch strings.ToLower(strings.TrimPrefix(call.Name, "\\")) {
	case "count", "sizeof":
		return true
	}
	return false
}

// countComparison handles count($x) compared with a literal int. Only the
// comparisons equivalent to emptiness are exact.
func (b *Builder) countComparison(call *ast.Call, op ast.BinaryOp, other ast.Expr) ([]possibility, bool) {
	id, ok := ast.VarID(call.Args[0].Value)
	if !ok {
		return nil, false
	}
	n, ok := literalInt(b.typeOf(other))
	if !ok {
		return nil, false
	}
	nonEmpty := []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.NonEmptyCountable)}}}
	empty := []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.EmptyCountable)}}}
	switch op {
	case ast.OpGreater:
		if n == 0 {
			return nonEmpty, true
		}
		if n > 0 {
			return nonEmpty, false
		}
	case ast.OpGreaterEqual:
		if n == 1 {
			return nonEmpty, true
		}
		if n > 1 {
			return nonEmpty, false
		}
	case ast.OpIdentical, ast.OpEqual:
		if n == 0 {
			return empty, true
		}
		if n > 0 {
			return nonEmpty, false
		}
	case ast.OpNotIdentical, ast.OpNotEqual:
		if n == 0 {
			return nonEmpty, true
		}
	case ast.OpLess:
		if n == 1 {
			return empty, true
		}
	case ast.OpLessEqual:
		if n == 0 {
			return empty, true
		}
	}
	return nil, false
}

var typeChecks = map[string][]types.Atomic{
	"is_int":      {types.TInt{}},
	"is_integer":  {types.TInt{}},
	"is_long":     {types.TInt{}},
	"is_float":    {types.TFloat{}},
	"is_double":   {types.TFloat{}},
	"is_string":   {types.TString{}},
	"is_bool":     {types.TBool{}},
	"is_array":    {types.MixedArray()},
	"is_object":   {types.TObject{}},
	"is_null":     {types.TNull{}},
	"is_numeric":  {types.TNumeric{}},
	"is_callable": {types.TCallable{}},
	"is_resource": {types.TResource{}},
	"is_scalar":   {types.TInt{}, types.TFloat{}, types.TString{}, types.TBool{}},
	"is_iterable": {types.MixedArray(), types.TNamedObject{Name: "Traversable"}},
}

func (b *Builder) call(e *ast.Call) ([]possibility, bool) {
	if e.Dynamic != nil || len(e.Args) == 0 {
		return nil, false
	}
	name := strings.ToLower(strings.TrimPrefix(e.Name, "\\"))
	first := e.Args[0].Value

	if targets, ok := typeChecks[name]; ok {
		id, ok := trackedID(first)
		if !ok {
			return nil, false
		}
		or := make([]assertion.Assertion, len(targets))
		for i, t := range targets {
			or[i] = assertion.Is(t)
		}
		return []possibility{{varID: id, or: or}}, true
	}

	switch name {
	case "is_countable":
		if id, ok := trackedID(first); ok {
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.Countable)}}}, true
		}
	case "count", "sizeof":
		if id, ok := ast.VarID(first); ok {
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.Simple(assertion.NonEmptyCountable)}}}, true
		}
	case "is_a":
		if len(e.Args) < 2 {
			return nil, false
		}
		id, ok := trackedID(first)
		class, isClass := classNameArg(e.Args[1].Value)
		if ok && isClass {
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.Is(b.classAtomic(class))}}}, true
		}
	case "array_key_exists", "key_exists":
		if len(e.Args) < 2 {
			return nil, false
		}
		id, ok := ast.VarID(e.Args[1].Value)
		if !ok {
			return nil, false
		}
		switch k := first.(type) {
		case *ast.StringLit:
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.ArrayKeyExists(types.StringKey(k.Value))}}}, true
		case *ast.IntLit:
			return []possibility{{varID: id, or: []assertion.Assertion{assertion.ArrayKeyExists(types.IntKey(k.Value))}}}, true
		}
	case "in_array":
		return b.inArray(e)
	}
	return nil, false
}

func classNameArg(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.StringLit:
		return n.Value, n.Value != ""
	case *ast.ClassConstFetch:
		return n.Class, strings.EqualFold(n.Name, "class")
	}
	return "", false
}

// inArray narrows the needle of a strict in_array against a haystack of
// known literal values.
func (b *Builder) inArray(e *ast.Call) ([]possibility, bool) {
	if len(e.Args) != 3 {
		return nil, false
	}
	strict, ok := e.Args[2].Value.(*ast.BoolLit)
	if !ok || !strict.Value {
		return nil, false
	}
	id, ok := trackedID(e.Args[0].Value)
	if !ok {
		return nil, false
	}
	haystack := b.typeOf(e.Args[1].Value)
	if haystack == nil {
		return nil, false
	}
	var values []types.Atomic
	exact := true
	for _, a := range haystack.Atomics() {
		switch arr := a.(type) {
		case types.TKeyedArray:
			if arr.Key != nil {
				return nil, false
			}
			for _, item := range arr.Items {
				exact = exact && !item.Optional
			}
			values = append(values, arr.ValueType().Atomics()...)
		case types.TList:
			exact = false
			values = append(values, arr.Value.Atomics()...)
		default:
			return nil, false
		}
	}
	or := make([]assertion.Assertion, 0, len(values))
	for _, v := range values {
		switch v.(type) {
		case types.TNull, types.TTrue, types.TFalse, types.TLiteralInt, types.TLiteralFloat, types.TLiteralString, types.TEnum:
			or = append(or, assertion.Is(v))
		default:
			return nil, false
		}
	}
	if len(or) == 0 {
		return nil, false
	}
	// a miss only excludes the values when every one of them is present
	return []possibility{{varID: id, or: or}}, exact
}
