package php

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAliasResolver(t *testing.T) {
	newResolver := func() *AliasResolver {
		r := NewAliasResolver("App\\Service")
		r.AddUse(UseClass, "Symfony\\Component\\HttpFoundation\\Request", "")
		r.AddUse(UseClass, "Doctrine\\DBAL\\Connection", "DbConnection")
		r.AddUse(UseClass, "App\\Entity", "")
		r.AddUse(UseFunction, "App\\Util\\format", "")
		r.AddUse(UseConstant, "App\\Util\\LIMIT", "")
		r.DeclareFunction("helper")
		return r
	}

	testCases := []struct {
		name     string
		resolve  func(r *AliasResolver, name string) string
		input    string
		expected string
	}{
		{name: "primitive type", resolve: (*AliasResolver).ResolveClass, input: "string", expected: "string"},
		{name: "special type", resolve: (*AliasResolver).ResolveClass, input: "self", expected: "self"},
		{name: "imported class", resolve: (*AliasResolver).ResolveClass, input: "Request", expected: "Symfony\\Component\\HttpFoundation\\Request"},
		{name: "imports ignore case", resolve: (*AliasResolver).ResolveClass, input: "request", expected: "Symfony\\Component\\HttpFoundation\\Request"},
		{name: "aliased class", resolve: (*AliasResolver).ResolveClass, input: "DbConnection", expected: "Doctrine\\DBAL\\Connection"},
		{name: "imported namespace prefix", resolve: (*AliasResolver).ResolveClass, input: "Entity\\Product", expected: "App\\Entity\\Product"},
		{name: "current namespace", resolve: (*AliasResolver).ResolveClass, input: "Mailer", expected: "App\\Service\\Mailer"},
		{name: "namespace keyword", resolve: (*AliasResolver).ResolveClass, input: "namespace\\Mailer", expected: "App\\Service\\Mailer"},
		{name: "fully qualified class", resolve: (*AliasResolver).ResolveClass, input: "\\DateTime", expected: "DateTime"},
		{name: "global function fallback", resolve: (*AliasResolver).ResolveFunction, input: "strlen", expected: "strlen"},
		{name: "imported function", resolve: (*AliasResolver).ResolveFunction, input: "format", expected: "App\\Util\\format"},
		{name: "function declared in namespace", resolve: (*AliasResolver).ResolveFunction, input: "helper", expected: "App\\Service\\helper"},
		{name: "imported constant", resolve: (*AliasResolver).ResolveConstant, input: "LIMIT", expected: "App\\Util\\LIMIT"},
		{name: "constants are case sensitive", resolve: (*AliasResolver).ResolveConstant, input: "limit", expected: "limit"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.resolve(newResolver(), tc.input))
		})
	}
}

func TestEnterNamespaceForgetsImports(t *testing.T) {
	r := NewAliasResolver("")
	r.AddUse(UseClass, "Vendor\\Foo", "")
	assert.Equal(t, "Vendor\\Foo", r.ResolveClass("Foo"))

	r.EnterNamespace("Other")
	assert.Equal(t, "Other\\Foo", r.ResolveClass("Foo"))
	assert.Equal(t, "Other", r.Namespace())
}
