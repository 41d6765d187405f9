package php

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// Docblock holds the tags of one /** ... */ comment the analyzer consumes.
// Type strings are already resolved to fully qualified class names.
type Docblock struct {
	Params    map[string]string
	Return    string
	Var       string
	Throws    []string
	Templates []DocTemplate
}

type DocTemplate struct {
	Name string
	As   string
}

var (
	tagPattern = regexp2.MustCompile(`^[ \t]*\*?[ \t]*@(?<tag>(?:psalm-|phpstan-)?[a-z][\w-]*)(?<rest>[^\n]*)$`, regexp2.Multiline|regexp2.IgnoreCase)

	templatePattern = regexp2.MustCompile(`^(?<name>[A-Za-z_]\w*)(?:\s+(?:of|as)\s+(?<bound>.+))?$`, regexp2.None)

	// typeNamePattern skips quoted literals and matches the class names of a
	// type string. Shape keys, variables and member names are left alone.
	typeNamePattern = regexp2.MustCompile(`'[^']*'|"[^"]*"|(?<![\w\\$-])(?<!::)(?<name>\\?[A-Za-z_][\w\\-]*)(?![\w\\-])(?!\s*:(?!:))(?!\s*\()`, regexp2.None)
)

// typeKeywords are the type names that never denote a class.
var typeKeywords = map[string]bool{
	"string": true, "int": true, "integer": true, "float": true, "double": true,
	"bool": true, "boolean": true, "true": true, "false": true, "null": true,
	"void": true, "never": true, "never-return": true, "never-returns": true, "no-return": true,
	"mixed": true, "object": true, "resource": true, "closed-resource": true, "scalar": true,
	"numeric": true, "array-key": true, "positive-int": true, "negative-int": true,
	"non-negative-int": true, "non-positive-int": true, "non-empty-string": true,
	"truthy-string": true, "non-falsy-string": true, "lowercase-string": true,
	"non-empty-lowercase-string": true, "numeric-string": true, "array": true,
	"non-empty-array": true, "list": true, "non-empty-list": true, "iterable": true,
	"class-string": true, "callable": true, "closure": true, "key-of": true,
	"value-of": true, "properties-of": true, "self": true, "static": true,
	"parent": true, "min": true, "max": true,
}

// ParseDocblock reads the tags of doc. resolve maps class names to fully
// qualified ones; templates in scope, and those the docblock declares, are
// left unresolved.
func ParseDocblock(doc string, resolve func(string) string, templates map[string]bool) Docblock {
	d := Docblock{Params: map[string]string{}}
	if doc == "" {
		return d
	}
	doc = strings.TrimSuffix(strings.TrimPrefix(doc, "/**"), "*/")

	type tag struct{ name, rest string }
	var tags []tag
	m, _ := tagPattern.FindStringMatch(doc)
	for m != nil {
		tags = append(tags, tag{
			name: strings.ToLower(m.GroupByName("tag").String()),
			rest: strings.TrimSpace(m.GroupByName("rest").String()),
		})
		m, _ = tagPattern.FindNextMatch(m)
	}

	scope := map[string]bool{}
	for name := range templates {
		scope[name] = true
	}
	for _, t := range tags {
		if baseTag(t.name) != "template" && baseTag(t.name) != "template-covariant" {
			continue
		}
		tm, _ := templatePattern.FindStringMatch(t.rest)
		if tm == nil {
			continue
		}
		name := tm.GroupByName("name").String()
		scope[name] = true
		d.Templates = append(d.Templates, DocTemplate{Name: name, As: tm.GroupByName("bound").String()})
	}
	for i := range d.Templates {
		if d.Templates[i].As != "" {
			d.Templates[i].As = ResolveTypeNames(d.Templates[i].As, resolve, scope)
		}
	}

	// Prefixed tags win over the plain ones regardless of their order.
	prefixed := map[string]bool{}
	for _, t := range tags {
		typ, rest := splitType(t.rest)
		if typ == "" {
			continue
		}
		base := baseTag(t.name)
		isPrefixed := base != t.name
		key := base
		if base == "param" {
			key += " " + firstWord(rest)
		}
		if prefixed[key] && !isPrefixed {
			continue
		}
		switch base {
		case "param":
			name := strings.TrimPrefix(strings.TrimPrefix(firstWord(rest), "..."), "&")
			if !strings.HasPrefix(name, "$") {
				continue
			}
			d.Params[name[1:]] = ResolveTypeNames(typ, resolve, scope)
		case "return":
			d.Return = ResolveTypeNames(typ, resolve, scope)
		case "var":
			d.Var = ResolveTypeNames(typ, resolve, scope)
		case "throws":
			for _, class := range strings.Split(typ, "|") {
				if class = strings.TrimSpace(class); class != "" {
					d.Throws = append(d.Throws, resolve(class))
				}
			}
		default:
			continue
		}
		if isPrefixed {
			prefixed[key] = true
		}
	}
	return d
}

func baseTag(name string) string {
	name = strings.TrimPrefix(name, "psalm-")
	return strings.TrimPrefix(name, "phpstan-")
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

// splitType cuts the leading type expression off a tag body. Generic and
// shape brackets may contain spaces.
func splitType(s string) (string, string) {
	depth := 0
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == '<' || c == '{' || c == '(' || c == '[':
			depth++
		case c == '>' || c == '}' || c == ')' || c == ']':
			depth--
		case (c == ' ' || c == '\t') && depth == 0:
			// "A | B" and "callable(): int" continue past the space.
			rest := strings.TrimLeft(s[i:], " \t")
			if strings.HasPrefix(rest, "|") || strings.HasPrefix(rest, "&") || (i > 0 && (s[i-1] == '|' || s[i-1] == '&' || s[i-1] == ':' || s[i-1] == ',')) {
				continue
			}
			return s[:i], rest
		}
	}
	return s, ""
}

// ResolveTypeNames rewrites the class names in the type string s with
// resolve. Keywords and the names in templates are kept.
func ResolveTypeNames(s string, resolve func(string) string, templates map[string]bool) string {
	out, err := typeNamePattern.ReplaceFunc(s, func(m regexp2.Match) string {
		name := m.GroupByName("name")
		if name == nil || name.Length == 0 {
			return m.String()
		}
		n := name.String()
		if typeKeywords[strings.ToLower(n)] || templates[n] {
			return n
		}
		return resolve(n)
	}, -1, -1)
	if err != nil {
		return s
	}
	return out
}
