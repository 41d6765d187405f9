package codebase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/types"
)

func testCodebase() *Codebase {
	cb := New()
	cb.AddClass(&ClassInfo{
		Name:       "\\App\\Base",
		Kind:       Class,
		Interfaces: []string{"Countable"},
		Methods: map[string]*MethodInfo{
			"getName": {FunctionInfo: FunctionInfo{Name: "getName", Return: "?string"}},
			"make":    {FunctionInfo: FunctionInfo{Name: "make", Return: "static"}, Static: true},
		},
		Properties: map[string]*PropertyInfo{
			"items": {Name: "items", Type: "list<int>"},
		},
		Constants: map[string]string{"LIMIT": "10"},
	})
	cb.AddClass(&ClassInfo{Name: "App\\Child", Kind: Class, Parent: "App\\Base", Traits: []string{"App\\Greets"}})
	cb.AddClass(&ClassInfo{
		Name: "App\\Greets",
		Kind: Trait,
		Methods: map[string]*MethodInfo{
			"greet": {FunctionInfo: FunctionInfo{Name: "greet", Return: "non-empty-string"}},
		},
	})
	cb.AddClass(&ClassInfo{Name: "App\\Suit", Kind: Enum, Cases: []string{"Hearts", "Spades"}, BackingType: "string"})
	cb.AddClass(&ClassInfo{Name: "App\\Loop", Kind: Class, Parent: "App\\Loop"})
	cb.AddFunction(&FunctionInfo{
		Name:      "App\\first",
		Params:    []Param{{Name: "items", Type: "list<T>"}},
		Return:    "T|null",
		Templates: []Template{{Name: "T", As: "object"}},
		Throws:    []string{"RuntimeException"},
	})
	cb.AddConstant("App\\VERSION", "non-empty-string")
	return cb.Freeze()
}

func TestHierarchy(t *testing.T) {
	cb := testCodebase()

	testCases := []struct {
		child, parent string
		expected      bool
	}{
		{"App\\Child", "App\\Base", true},
		{"app\\child", "\\Countable", true},
		{"App\\Base", "App\\Child", false},
		{"DivisionByZeroError", "Throwable", true},
		{"InvalidArgumentException", "LogicException", true},
		{"InvalidArgumentException", "RuntimeException", false},
		{"App\\Suit", "UnitEnum", true},
		{"App\\Suit", "BackedEnum", true},
		{"App\\Loop", "App\\Base", false},
		{"Unknown", "Throwable", false},
	}

	for _, tc := range testCases {
		t.Run(tc.child+" "+tc.parent, func(t *testing.T) {
			assert.Equal(t, tc.expected, cb.IsSubclassOf(tc.child, tc.parent))
		})
	}

	assert.True(t, cb.IsInterface("Throwable"))
	assert.False(t, cb.IsInterface("Exception"))
	cases, ok := cb.EnumCases("App\\Suit")
	require.True(t, ok)
	assert.Equal(t, []string{"Hearts", "Spades"}, cases)
	assert.Equal(t, []string{"Error", "Stringable", "Throwable"}, cb.Ancestors("ArithmeticError"))
}

func TestMemberLookup(t *testing.T) {
	cb := testCodebase()

	m, ok := cb.Method("App\\Child", "GETNAME")
	require.True(t, ok)
	assert.Equal(t, "App\\Base", m.Class)
	assert.Equal(t, "null|string", m.ReturnType().ID())

	m, ok = cb.Method("App\\Child", "greet")
	require.True(t, ok)
	assert.Equal(t, "non-empty-string", m.ReturnType().ID())

	m, ok = cb.Method("App\\Child", "getMessage")
	assert.False(t, ok)
	m, ok = cb.Method("RuntimeException", "getMessage")
	require.True(t, ok)
	assert.Equal(t, "string", m.ReturnType().ID())

	p, ok := cb.Property("App\\Child", "items")
	require.True(t, ok)
	assert.True(t, p.DeclaredType().EqualTypes(types.ListOf(types.Int())))

	_, ok = cb.Property("App\\Child", "missing")
	assert.False(t, ok)

	c, ok := cb.ClassConstant("App\\Child", "LIMIT")
	require.True(t, ok)
	assert.Equal(t, "int(10)", c.ID())

	c, ok = cb.ClassConstant("App\\Suit", "Hearts")
	require.True(t, ok)
	assert.True(t, c.EqualTypes(types.EnumCase("App\\Suit", "Hearts")))

	_, ok = cb.Method("App\\Suit", "tryFrom")
	assert.True(t, ok)
}

func TestFunctions(t *testing.T) {
	cb := testCodebase()

	f, ok := cb.Function("\\App\\first")
	require.True(t, ok)
	assert.Equal(t, []string{"RuntimeException"}, f.Throws)
	atom, ok := f.Params[0].DeclaredType().Single()
	require.True(t, ok)
	list, ok := atom.(types.TList)
	require.True(t, ok)
	param, ok := list.Value.Single()
	require.True(t, ok)
	tmpl, ok := param.(types.TGenericParam)
	require.True(t, ok)
	assert.Equal(t, "object", tmpl.Constraint.ID())

	f, ok = cb.Function("App\\strlen")
	require.True(t, ok)
	assert.Equal(t, "strlen", f.Name)

	_, ok = cb.Function("nope")
	assert.False(t, ok)

	v, ok := cb.Constant("\\App\\VERSION")
	require.True(t, ok)
	assert.Equal(t, "non-empty-string", v.ID())
	_, ok = cb.Constant("App\\PHP_EOL")
	assert.True(t, ok)
}

func TestFreezeIsFinal(t *testing.T) {
	cb := testCodebase()
	assert.Same(t, cb, cb.Freeze())
	assert.Panics(t, func() {
		cb.AddFunction(&FunctionInfo{Name: "late"})
	})
}

func TestBuiltinsAreShared(t *testing.T) {
	a := New().Freeze()
	b := New().Freeze()

	fa, _ := a.Function("count")
	fb, _ := b.Function("count")
	assert.Same(t, fa, fb)
	assert.Equal(t, "int<0, max>", fa.ReturnType().ID())
}

func TestBuiltinStubsParse(t *testing.T) {
	for _, f := range builtinFunctions() {
		_, err := types.Parse(f.Return)
		assert.NoError(t, err, "return type of %s", f.Name)
		for _, p := range f.Params {
			_, err := types.Parse(p.Type)
			assert.NoError(t, err, "parameter $%s of %s", p.Name, f.Name)
		}
	}
	for name, typ := range builtinConstants {
		_, err := types.Parse(typ)
		assert.NoError(t, err, "constant %s", name)
	}
}

func TestCommonBuiltins(t *testing.T) {
	cb := New().Freeze()

	testCases := []struct {
		name     string
		expected string
	}{
		{name: "rand", expected: "int"},
		{name: "mt_rand", expected: "int"},
		{name: "array_search", expected: "false|int|string"},
		{name: "str_repeat", expected: "string"},
		{name: "App\\microtime", expected: "float|string"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, ok := cb.Function(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.expected, f.ReturnType().ID())
		})
	}
}
