package types

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseOptions tune how names in a type string are interpreted.
type ParseOptions struct {
	// Self is the class self, static and $this refer to.
	Self   string
	Parent string
	// Resolve maps a class name as written to its fully qualified form.
	Resolve func(name string) string
	// Templates are the generic parameters in scope.
	Templates map[string]TGenericParam
}

// Parse reads a PHP or docblock type string such as "?Foo", "int|string",
// "list<int>", "array{a: int, b?: string}" or "int<0, max>".
func Parse(s string) (*Union, error) {
	return ParseWith(s, ParseOptions{})
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) *Union {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func ParseWith(s string, opts ParseOptions) (*Union, error) {
	p := &typeParser{src: s, opts: opts}
	if err := p.tokenize(); err != nil {
		return nil, err
	}
	if len(p.toks) == 0 {
		return nil, fmt.Errorf("empty type")
	}
	u, err := p.union()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("unexpected %q in type %q", p.peek(), s)
	}
	return u, nil
}

type typeParser struct {
	src  string
	opts ParseOptions
	toks []string
	pos  int
}

func (p *typeParser) tokenize() error {
	s := p.src
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ':' && i+1 < len(s) && s[i+1] == ':':
			p.toks = append(p.toks, "::")
			i += 2
		case c == '.' && strings.HasPrefix(s[i:], "..."):
			p.toks = append(p.toks, "...")
			i += 3
		case c == '[' && i+1 < len(s) && s[i+1] == ']':
			p.toks = append(p.toks, "[]")
			i += 2
		case strings.IndexByte("|&?()<>,{}:=", c) >= 0:
			p.toks = append(p.toks, string(c))
			i++
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				return fmt.Errorf("unterminated string in type %q", s)
			}
			p.toks = append(p.toks, s[i:j+1])
			i = j + 1
		case c == '-' || unicode.IsDigit(rune(c)):
			j := i + 1
			for j < len(s) && (unicode.IsDigit(rune(s[j])) || s[j] == '.' || s[j] == '_') {
				j++
			}
			p.toks = append(p.toks, s[i:j])
			i = j
		case c == '$' || c == '\\' || c == '_' || unicode.IsLetter(rune(c)):
			j := i + 1
			for j < len(s) && (s[j] == '\\' || s[j] == '_' || s[j] == '-' || unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j]))) {
				j++
			}
			p.toks = append(p.toks, s[i:j])
			i = j
		default:
			return fmt.Errorf("unexpected character %q in type %q", c, s)
		}
	}
	return nil
}

func (p *typeParser) done() bool { return p.pos >= len(p.toks) }

func (p *typeParser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *typeParser) accept(tok string) bool {
	if p.peek() == tok {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.accept(tok) {
		return fmt.Errorf("expected %q, got %q in type %q", tok, p.peek(), p.src)
	}
	return nil
}

func (p *typeParser) union() (*Union, error) {
	var atoms []Atomic
	for {
		part, err := p.intersection()
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, part.atoms...)
		if !p.accept("|") {
			break
		}
	}
	return NewUnion(atoms...), nil
}

func (p *typeParser) intersection() (*Union, error) {
	first, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.peek() != "&" {
		return first, nil
	}
	main, ok := first.Single()
	named, isNamed := main.(TNamedObject)
	for p.accept("&") {
		part, err := p.postfix()
		if err != nil {
			return nil, err
		}
		atom, single := part.Single()
		if !ok || !isNamed || !single {
			return nil, fmt.Errorf("intersection of non object types in %q", p.src)
		}
		named.Intersections = append(named.Intersections, atom)
	}
	return NewUnion(named), nil
}

func (p *typeParser) postfix() (*Union, error) {
	u, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.accept("[]") {
		u = NewUnion(Array(NewUnion(TArrayKey{}), u))
	}
	return u, nil
}

func (p *typeParser) primary() (*Union, error) {
	tok := p.next()
	switch {
	case tok == "":
		return nil, fmt.Errorf("unexpected end of type %q", p.src)
	case tok == "?":
		inner, err := p.postfix()
		if err != nil {
			return nil, err
		}
		return Nullable(inner), nil
	case tok == "(":
		inner, err := p.union()
		if err != nil {
			return nil, err
		}
		return inner, p.expect(")")
	case tok[0] == '\'' || tok[0] == '"':
		return LiteralString(unquote(tok)), nil
	case tok[0] == '-' || unicode.IsDigit(rune(tok[0])):
		return parseNumber(tok, p.src)
	}
	return p.named(tok)
}

func unquote(tok string) string {
	inner := tok[1 : len(tok)-1]
	return strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`).Replace(inner)
}

func parseNumber(tok, src string) (*Union, error) {
	clean := strings.ReplaceAll(tok, "_", "")
	if strings.Contains(clean, ".") {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q in type %q", tok, src)
		}
		return LiteralFloat(f), nil
	}
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid int %q in type %q", tok, src)
	}
	return LiteralInt(v), nil
}

func (p *typeParser) generics() ([]*Union, error) {
	if !p.accept("<") {
		return nil, nil
	}
	var params []*Union
	for {
		u, err := p.union()
		if err != nil {
			return nil, err
		}
		params = append(params, u)
		if !p.accept(",") {
			break
		}
	}
	return params, p.expect(">")
}

func (p *typeParser) named(tok string) (*Union, error) {
	lower := strings.ToLower(tok)
	if constant := p.peek(); constant == "::" {
		p.next()
		member := p.next()
		return NewUnion(TEnum{Name: p.className(tok), Case: member}), nil
	}

	if lower == "int" && p.peek() == "<" {
		return p.intRange()
	}

	switch lower {
	case "array", "non-empty-array", "list", "non-empty-list", "iterable":
		return p.arrayLike(lower)
	case "class-string":
		params, err := p.generics()
		if err != nil {
			return nil, err
		}
		if len(params) == 1 {
			if n, ok := params[0].Single(); ok {
				return NewUnion(TClassString{As: n.ID()}), nil
			}
		}
		return NewUnion(TClassString{}), nil
	case "callable", "closure":
		return p.callable(lower == "closure")
	case "key-of", "value-of", "properties-of":
		params, err := p.generics()
		if err != nil {
			return nil, err
		}
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects one parameter in %q", tok, p.src)
		}
		op := map[string]DerivedOp{"key-of": KeyOf, "value-of": ValueOf, "properties-of": PropertiesOf}[lower]
		return NewUnion(TDerived{Op: op, Of: params[0]}), nil
	}

	if u, ok := keywordType(lower); ok {
		return u, nil
	}

	if tmpl, ok := p.opts.Templates[tok]; ok {
		return NewUnion(tmpl), nil
	}

	switch lower {
	case "self":
		return Named(p.selfName()), nil
	case "static", "$this":
		return NewUnion(TNamedObject{Name: p.selfName(), IsThis: true}), nil
	case "parent":
		if p.opts.Parent != "" {
			return Named(p.opts.Parent), nil
		}
		return Object(), nil
	}

	params, err := p.generics()
	if err != nil {
		return nil, err
	}
	return NewUnion(TNamedObject{Name: p.className(tok), TypeParams: params}), nil
}

func (p *typeParser) selfName() string {
	if p.opts.Self == "" {
		return "self"
	}
	return p.opts.Self
}

func (p *typeParser) className(name string) string {
	if p.opts.Resolve != nil {
		return p.opts.Resolve(name)
	}
	return strings.TrimPrefix(name, "\\")
}

func keywordType(lower string) (*Union, bool) {
	switch lower {
	case "string":
		return String(), true
	case "int", "integer":
		return Int(), true
	case "float", "double":
		return Float(), true
	case "bool", "boolean":
		return Bool(), true
	case "true":
		return True(), true
	case "false":
		return False(), true
	case "null":
		return Null(), true
	case "void":
		return Void(), true
	case "never", "never-return", "never-returns", "no-return":
		return Never(), true
	case "mixed":
		return Mixed(), true
	case "object":
		return Object(), true
	case "resource", "closed-resource":
		return NewUnion(TResource{}), true
	case "scalar":
		return NewUnion(TInt{}, TFloat{}, TString{}, TBool{}), true
	case "numeric":
		return NewUnion(TNumeric{}), true
	case "array-key":
		return NewUnion(TArrayKey{}), true
	case "positive-int":
		return NewUnion(IntRange(Bound(1), nil)), true
	case "negative-int":
		return NewUnion(IntRange(nil, Bound(-1))), true
	case "non-negative-int":
		return NewUnion(IntRange(Bound(0), nil)), true
	case "non-positive-int":
		return NewUnion(IntRange(nil, Bound(0))), true
	case "non-empty-string":
		return NewUnion(TString{NonEmpty: true}), true
	case "truthy-string", "non-falsy-string":
		return NewUnion(TString{NonEmpty: true, Truthy: true}), true
	case "lowercase-string":
		return NewUnion(TString{Lowercase: true}), true
	case "non-empty-lowercase-string":
		return NewUnion(TString{NonEmpty: true, Lowercase: true}), true
	case "numeric-string":
		return NewUnion(TString{NonEmpty: true, Numeric: true}), true
	}
	return nil, false
}

func (p *typeParser) intRange() (*Union, error) {
	p.expect("<")
	bound := func() (*int64, error) {
		tok := p.next()
		switch tok {
		case "min", "max":
			return nil, nil
		}
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int range bound %q in %q", tok, p.src)
		}
		return &v, nil
	}
	lo, err := bound()
	if err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	hi, err := bound()
	if err != nil {
		return nil, err
	}
	return NewUnion(IntRange(lo, hi)), p.expect(">")
}

func (p *typeParser) arrayLike(kind string) (*Union, error) {
	if (kind == "array" || kind == "non-empty-array" || kind == "list") && p.peek() == "{" {
		return p.shape(kind == "list")
	}
	params, err := p.generics()
	if err != nil {
		return nil, err
	}
	nonEmpty := strings.HasPrefix(kind, "non-empty-")
	switch kind {
	case "list", "non-empty-list":
		value := Mixed()
		if len(params) == 1 {
			value = params[0]
		} else if len(params) > 1 {
			return nil, fmt.Errorf("%s expects one parameter in %q", kind, p.src)
		}
		return NewUnion(TList{Value: value, NonEmpty: nonEmpty}), nil
	}
	key, value := NewUnion(TArrayKey{}), Mixed()
	switch len(params) {
	case 0:
	case 1:
		value = params[0]
	case 2:
		key, value = params[0], params[1]
	default:
		return nil, fmt.Errorf("%s expects at most two parameters in %q", kind, p.src)
	}
	arr := Array(key, value)
	arr.NonEmpty = nonEmpty
	if kind == "iterable" {
		return NewUnion(arr, TNamedObject{Name: "Traversable", TypeParams: params}), nil
	}
	return NewUnion(arr), nil
}

func (p *typeParser) shape(isList bool) (*Union, error) {
	p.expect("{")
	var items []KeyedItem
	var index int64
	sealed := true
	for !p.accept("}") {
		if p.accept("...") {
			sealed = false
			p.accept(",")
			continue
		}
		tok := p.next()
		var key ArrayKey
		optional := false
		if p.peek() == "?" || p.peek() == ":" {
			optional = p.accept("?")
			if err := p.expect(":"); err != nil {
				return nil, err
			}
			if v, err := strconv.ParseInt(tok, 10, 64); err == nil {
				key = IntKey(v)
			} else if tok[0] == '\'' || tok[0] == '"' {
				key = StringKey(unquote(tok))
			} else {
				key = StringKey(tok)
			}
		} else {
			p.pos--
			key = IntKey(index)
			index++
		}
		value, err := p.union()
		if err != nil {
			return nil, err
		}
		items = append(items, KeyedItem{Key: key, Type: value, Optional: optional})
		if !p.accept(",") {
			if err := p.expect("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	shape := Shape(items...)
	if !sealed {
		if isList {
			shape.Key = Int()
		} else {
			shape.Key = NewUnion(TArrayKey{})
		}
		shape.Value = Mixed()
	}
	return NewUnion(shape), nil
}

func (p *typeParser) callable(closure bool) (*Union, error) {
	if !p.accept("(") {
		if closure {
			return Named("Closure"), nil
		}
		return NewUnion(TCallable{}), nil
	}
	params := []*Union{}
	for !p.accept(")") {
		u, err := p.union()
		if err != nil {
			return nil, err
		}
		p.accept("=")
		p.accept("...")
		params = append(params, u)
		if !p.accept(",") {
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	ret := Mixed()
	if p.accept(":") {
		u, err := p.postfix()
		if err != nil {
			return nil, err
		}
		ret = u
	}
	return NewUnion(TCallable{Params: params, Return: ret, IsClosure: closure}), nil
}
