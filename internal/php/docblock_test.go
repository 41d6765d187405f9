package php

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resolveIn(namespace string) func(string) string {
	return NewAliasResolver(namespace).ResolveClass
}

func TestParseDocblock(t *testing.T) {
	doc := `/**
	 * Finds a product.
	 *
	 * @template T of Entity
	 * @param int|string $id
	 * @param class-string<T> $class
	 * @param array{name: string, tags: list<Tag>} $options
	 * @param Context ...$contexts
	 * @return T|null
	 * @throws NotFoundException|\RuntimeException
	 */`

	d := ParseDocblock(doc, resolveIn("App"), nil)

	assert.Equal(t, []DocTemplate{{Name: "T", As: "App\\Entity"}}, d.Templates)
	assert.Equal(t, "int|string", d.Params["id"])
	assert.Equal(t, "class-string<T>", d.Params["class"])
	assert.Equal(t, "array{name: string, tags: list<App\\Tag>}", d.Params["options"])
	assert.Equal(t, "App\\Context", d.Params["contexts"])
	assert.Equal(t, "T|null", d.Return)
	assert.Equal(t, []string{"App\\NotFoundException", "RuntimeException"}, d.Throws)
}

func TestParseDocblockPrefixedTagsWin(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{name: "prefixed last", doc: "/**\n * @return array\n * @psalm-return list<int>\n */"},
		{name: "prefixed first", doc: "/**\n * @phpstan-return list<int>\n * @return array\n */"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := ParseDocblock(tc.doc, resolveIn(""), nil)
			assert.Equal(t, "list<int>", d.Return)
		})
	}
}

func TestParseDocblockTypesWithSpaces(t *testing.T) {
	d := ParseDocblock("/** @var array<string, int> | null */", resolveIn(""), nil)
	assert.Equal(t, "array<string, int> | null", d.Var)

	d = ParseDocblock("/** @param callable(int): string $fn the callback */", resolveIn(""), nil)
	assert.Equal(t, "callable(int): string", d.Params["fn"])
}

func TestParseDocblockKeepsTemplatesInScope(t *testing.T) {
	d := ParseDocblock("/** @param TValue $value\n * @return Collection<TKey, TValue> */", resolveIn("App"), map[string]bool{"TKey": true, "TValue": true})

	assert.Equal(t, "TValue", d.Params["value"])
	assert.Equal(t, "App\\Collection<TKey, TValue>", d.Return)
}

func TestResolveTypeNames(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "?Foo", want: "?App\\Foo"},
		{in: "\\Foo\\Bar|int", want: "Foo\\Bar|int"},
		{in: "'Foo'|Bar", want: "'Foo'|App\\Bar"},
		{in: "Foo::BAR", want: "App\\Foo::BAR"},
		{in: "non-empty-string", want: "non-empty-string"},
		{in: "array{Foo: int}", want: "array{Foo: int}"},
		{in: "static|self", want: "static|self"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveTypeNames(tc.in, resolveIn("App"), nil))
		})
	}
}

func TestParseDocblockEmpty(t *testing.T) {
	d := ParseDocblock("", resolveIn(""), nil)
	assert.Empty(t, d.Params)
	assert.Empty(t, d.Return)
	assert.False(t, strings.Contains(d.Var, "@"))
}
