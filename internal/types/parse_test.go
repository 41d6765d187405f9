package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		typeName string
		expected string
	}{
		{name: "nullable scalar", typeName: "?string", expected: "null|string"},
		{name: "simple union", typeName: "string|int", expected: "int|string"},
		{name: "nullable object", typeName: "?\\Foo\\Bar", expected: "Foo\\Bar|null"},
		{name: "aliases", typeName: "integer|boolean|double", expected: "bool|float|int"},
		{name: "intersection", typeName: "Foo&Bar", expected: "Foo&Bar"},
		{name: "legacy array", typeName: "string[]", expected: "array<array-key, string>"},
		{name: "grouped legacy array", typeName: "(int|string)[]", expected: "array<array-key, int|string>"},
		{name: "plain array", typeName: "array", expected: "array<array-key, mixed>"},
		{name: "generic array", typeName: "array<int, string>", expected: "array<int, string>"},
		{name: "list", typeName: "list<int>", expected: "list<int>"},
		{name: "non-empty list", typeName: "non-empty-list<string>", expected: "non-empty-list<string>"},
		{name: "class string", typeName: "class-string<Foo>", expected: "class-string<Foo>"},
		{name: "int range", typeName: "int<0, max>", expected: "int<0, max>"},
		{name: "negative range bound", typeName: "int<-5, 5>", expected: "int<-5, 5>"},
		{name: "positive int", typeName: "positive-int", expected: "int<1, max>"},
		{name: "int literals", typeName: "1|2|3", expected: "int(1)|int(2)|int(3)"},
		{name: "string literals", typeName: "'a'|\"b\"", expected: "string('a')|string('b')"},
		{name: "enum case", typeName: "Suit::Hearts", expected: "Suit::Hearts"},
		{name: "named shape", typeName: "array{a: int, b?: string}", expected: "array{'a': int, 'b'?: string}"},
		{name: "positional shape", typeName: "array{int, string}", expected: "array{0: int, 1: string}"},
		{name: "unsealed shape", typeName: "array{a: int, ...}", expected: "array{'a': int, ...<array-key, mixed>}"},
		{name: "refined strings", typeName: "non-empty-string|numeric-string", expected: "non-empty-numeric-string|non-empty-string"},
		{name: "callable signature", typeName: "callable(int, string): bool", expected: "callable(int, string): bool"},
		{name: "closure signature", typeName: "Closure(int): void", expected: "Closure(int): void"},
		{name: "generic object", typeName: "Collection<int, Foo>", expected: "Collection<int, Foo>"},
		{name: "iterable", typeName: "iterable<int>", expected: "Traversable<int>|array<array-key, int>"},
		{name: "mixed absorbs", typeName: "mixed|int", expected: "mixed"},
		{name: "never variants", typeName: "no-return", expected: "never"},
		{name: "key-of", typeName: "key-of<array<string, int>>", expected: "key-of<array<string, int>>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := Parse(tc.typeName)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, u.ID())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "array<int", "int<a, 5>", "'open", "Foo|", "int)"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestParseWith(t *testing.T) {
	opts := ParseOptions{
		Self:   "App\\Model",
		Parent: "App\\Base",
		Resolve: func(name string) string {
			return "App\\" + name
		},
		Templates: map[string]TGenericParam{
			"T": {Name: "T", Constraint: Object(), DefiningEntity: "App\\Model"},
		},
	}

	testCases := []struct {
		typeName string
		expected string
	}{
		{typeName: "self", expected: "App\\Model"},
		{typeName: "static", expected: "static(App\\Model)"},
		{typeName: "$this", expected: "static(App\\Model)"},
		{typeName: "parent", expected: "App\\Base"},
		{typeName: "User", expected: "App\\User"},
		{typeName: "?T", expected: "T:App\\Model|null"},
	}

	for _, tc := range testCases {
		t.Run(tc.typeName, func(t *testing.T) {
			u, err := ParseWith(tc.typeName, opts)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, u.ID())
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("array<") })
	assert.Equal(t, "int", MustParse("int").ID())
}
