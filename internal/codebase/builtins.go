package codebase

import "sync"

type builtinSet struct {
	classes   []*ClassInfo
	functions []*FunctionInfo
	constants map[string]string
}

var (
	builtinOnce sync.Once
	builtinData builtinSet
)

// builtins returns the frozen stubs of the PHP core shared by every
// codebase. They are built on first use.
func builtins() builtinSet {
	builtinOnce.Do(func() {
		b := builtinSet{
			classes:   builtinClasses(),
			functions: builtinFunctions(),
			constants: builtinConstants,
		}
		tmp := &Codebase{
			classes:   map[string]*ClassInfo{},
			functions: map[string]*FunctionInfo{},
			constants: map[string]string{},
		}
		for _, c := range b.classes {
			tmp.AddClass(c)
		}
		for _, f := range b.functions {
			tmp.AddFunction(f)
		}
		tmp.Freeze()
		for _, c := range b.classes {
			c.builtin = true
		}
		for _, f := range b.functions {
			f.builtin = true
		}
		builtinData = b
	})
	return builtinData
}

func param(name, typ string) Param {
	return Param{Name: name, Type: typ}
}

func optional(name, typ string) Param {
	return Param{Name: name, Type: typ, HasDefault: true}
}

func variadic(name, typ string) Param {
	return Param{Name: name, Type: typ, Variadic: true}
}

func fn(name, ret string, params ...Param) *FunctionInfo {
	return &FunctionInfo{Name: name, Return: ret, Params: params}
}

func method(name, ret string, params ...Param) *MethodInfo {
	return &MethodInfo{FunctionInfo: *fn(name, ret, params...), Visibility: "public"}
}

func methods(ms ...*MethodInfo) map[string]*MethodInfo {
	out := make(map[string]*MethodInfo, len(ms))
	for _, m := range ms {
		out[m.Name] = m
	}
	return out
}

func class(name, parent string, interfaces ...string) *ClassInfo {
	return &ClassInfo{Name: name, Kind: Class, Parent: parent, Interfaces: interfaces}
}

func iface(name string, ms map[string]*MethodInfo, parents ...string) *ClassInfo {
	return &ClassInfo{Name: name, Kind: Interface, Interfaces: parents, Methods: ms}
}

func builtinClasses() []*ClassInfo {
	exceptions := []*ClassInfo{
		class("Exception", "", "Throwable"),
		class("Error", "", "Throwable"),
		class("ErrorException", "Exception"),
		class("TypeError", "Error"),
		class("ArgumentCountError", "TypeError"),
		class("ValueError", "Error"),
		class("ArithmeticError", "Error"),
		class("DivisionByZeroError", "ArithmeticError"),
		class("UnhandledMatchError", "Error"),
		class("LogicException", "Exception"),
		class("BadFunctionCallException", "LogicException"),
		class("BadMethodCallException", "BadFunctionCallException"),
		class("DomainException", "LogicException"),
		class("InvalidArgumentException", "LogicException"),
		class("LengthException", "LogicException"),
		class("OutOfRangeException", "LogicException"),
		class("RuntimeException", "Exception"),
		class("OutOfBoundsException", "RuntimeException"),
		class("OverflowException", "RuntimeException"),
		class("RangeException", "RuntimeException"),
		class("UnderflowException", "RuntimeException"),
		class("UnexpectedValueException", "RuntimeException"),
		class("JsonException", "Exception"),
	}

	iterator := iface("Iterator", methods(
		method("current", "mixed"),
		method("key", "mixed"),
		method("next", "void"),
		method("rewind", "void"),
		method("valid", "bool"),
	), "Traversable")

	arrayIterator := class("ArrayIterator", "", "Iterator", "ArrayAccess", "Countable")
	arrayIterator.Methods = methods(method("count", "int<0, max>"), method("getArrayCopy", "array"))

	dateTime := iface("DateTimeInterface", methods(
		method("format", "string", param("format", "string")),
		method("getTimestamp", "int"),
	))

	unitEnum := iface("UnitEnum", methods(method("cases", "list<static>")))
	unitEnum.Methods["cases"].Static = true
	backedEnum := iface("BackedEnum", methods(
		method("from", "static", param("value", "int|string")),
		method("tryFrom", "?static", param("value", "int|string")),
	), "UnitEnum")
	backedEnum.Methods["from"].Static = true
	backedEnum.Methods["tryFrom"].Static = true
	backedEnum.Properties = map[string]*PropertyInfo{"value": {Name: "value", Type: "int|string"}}
	unitEnum.Properties = map[string]*PropertyInfo{"name": {Name: "name", Type: "non-empty-string"}}

	return append(exceptions,
		iface("Stringable", methods(method("__toString", "string"))),
		iface("Throwable", methods(
			method("getMessage", "string"),
			method("getCode", "int"),
			method("getPrevious", "?Throwable"),
			method("getFile", "string"),
			method("getLine", "int"),
			method("getTrace", "list<array<string, mixed>>"),
			method("getTraceAsString", "string"),
		), "Stringable"),
		iface("Traversable", nil),
		iterator,
		iface("IteratorAggregate", methods(method("getIterator", "Traversable")), "Traversable"),
		iface("ArrayAccess", methods(
			method("offsetExists", "bool", param("offset", "mixed")),
			method("offsetGet", "mixed", param("offset", "mixed")),
			method("offsetSet", "void", param("offset", "mixed"), param("value", "mixed")),
			method("offsetUnset", "void", param("offset", "mixed")),
		)),
		iface("Countable", methods(method("count", "int<0, max>"))),
		iface("JsonSerializable", methods(method("jsonSerialize", "mixed"))),
		unitEnum,
		backedEnum,
		dateTime,
		class("DateTime", "", "DateTimeInterface"),
		class("DateTimeImmutable", "", "DateTimeInterface"),
		class("stdClass", ""),
		class("Closure", ""),
		class("Generator", "", "Iterator"),
		arrayIterator,
		class("ArrayObject", "", "IteratorAggregate", "ArrayAccess", "Countable"),
	)
}

func builtinFunctions() []*FunctionInfo {
	fs := []*FunctionInfo{
		fn("count", "int<0, max>", param("value", "Countable|array"), optional("mode", "int")),
		fn("strlen", "int<0, max>", param("string", "string")),
		fn("in_array", "bool", param("needle", "mixed"), param("haystack", "array"), optional("strict", "bool")),
		fn("array_key_exists", "bool", param("key", "mixed"), param("array", "array")),
		{Name: "intdiv", Return: "int", Params: []Param{param("num1", "int"), param("num2", "int")}, Throws: []string{"DivisionByZeroError", "ArithmeticError"}},
		fn("json_encode", "non-empty-string|false", param("value", "mixed"), optional("flags", "int")),
		fn("json_decode", "mixed", param("json", "string"), optional("associative", "?bool")),
		fn("strpos", "int<0, max>|false", param("haystack", "string"), param("needle", "string"), optional("offset", "int")),
		fn("str_contains", "bool", param("haystack", "string"), param("needle", "string")),
		fn("str_starts_with", "bool", param("haystack", "string"), param("needle", "string")),
		fn("str_ends_with", "bool", param("haystack", "string"), param("needle", "string")),
		fn("implode", "string", param("separator", "string"), param("array", "array")),
		fn("explode", "list<string>", param("separator", "non-empty-string"), param("string", "string")),
		fn("array_keys", "list<array-key>", param("array", "array")),
		fn("array_values", "list<mixed>", param("array", "array")),
		fn("array_merge", "array", variadic("arrays", "array")),
		fn("array_map", "array", param("callback", "?callable"), param("array", "array")),
		fn("array_filter", "array", param("array", "array"), optional("callback", "?callable")),
		fn("array_key_first", "int|string|null", param("array", "array")),
		fn("array_key_last", "int|string|null", param("array", "array")),
		fn("sprintf", "string", param("format", "string"), variadic("values", "mixed")),
		fn("trim", "string", param("string", "string"), optional("characters", "string")),
		fn("strtolower", "lowercase-string", param("string", "string")),
		fn("strtoupper", "string", param("string", "string")),
		fn("ucfirst", "string", param("string", "string")),
		fn("substr", "string", param("string", "string"), param("offset", "int"), optional("length", "?int")),
		fn("random_int", "int", param("min", "int"), param("max", "int")),
		fn("time", "positive-int"),
		fn("abs", "int|float", param("num", "int|float")),
		fn("max", "mixed", variadic("values", "mixed")),
		fn("min", "mixed", variadic("values", "mixed")),
		fn("var_dump", "void", variadic("values", "mixed")),
		fn("print_r", "string|true", param("value", "mixed"), optional("return", "bool")),
		fn("is_a", "bool", param("object_or_class", "mixed"), param("class", "string"), optional("allow_string", "bool")),
		fn("get_class", "class-string", param("object", "object")),
		fn("gettype", "non-empty-string", param("value", "mixed")),
		fn("func_get_args", "list<mixed>"),
		fn("iterator_to_array", "array", param("iterator", "Traversable"), optional("preserve_keys", "bool")),
		fn("preg_match", "int<0, 1>|false", param("pattern", "string"), param("subject", "string"), Param{Name: "matches", Type: "array", ByRef: true, HasDefault: true}),
		fn("fopen", "resource|false", param("filename", "string"), param("mode", "string")),
		fn("print", "1", param("arg", "string")),
		fn("exit", "never", optional("status", "string|int")),
		fn("define", "bool", param("constant_name", "string"), param("value", "mixed")),
		fn("defined", "bool", param("constant_name", "string")),
	}
	fs = append(fs, mathFunctions()...)
	fs = append(fs, stringFunctions()...)
	fs = append(fs, arrayFunctions()...)
	fs = append(fs, runtimeFunctions()...)
	for _, name := range []string{
		"is_int", "is_integer", "is_string", "is_bool", "is_float", "is_array",
		"is_object", "is_null", "is_numeric", "is_callable", "is_iterable",
		"is_countable", "is_scalar", "is_resource",
	} {
		fs = append(fs, fn(name, "bool", param("value", "mixed")))
	}
	return fs
}

func mathFunctions() []*FunctionInfo {
	return []*FunctionInfo{
		fn("rand", "int", optional("min", "int"), optional("max", "int")),
		fn("mt_rand", "int", optional("min", "int"), optional("max", "int")),
		fn("mt_srand", "void", optional("seed", "int"), optional("mode", "int")),
		fn("mt_getrandmax", "positive-int"),
		fn("getrandmax", "positive-int"),
		fn("random_bytes", "non-empty-string", param("length", "positive-int")),
		fn("floor", "float", param("num", "int|float")),
		fn("ceil", "float", param("num", "int|float")),
		fn("round", "float", param("num", "int|float"), optional("precision", "int"), optional("mode", "int")),
		fn("sqrt", "float", param("num", "float")),
		fn("pow", "int|float", param("num", "mixed"), param("exponent", "mixed")),
		fn("fmod", "float", param("num1", "float"), param("num2", "float")),
		fn("intval", "int", param("value", "mixed"), optional("base", "int")),
		fn("floatval", "float", param("value", "mixed")),
		fn("boolval", "bool", param("value", "mixed")),
		fn("strval", "string", param("value", "mixed")),
		fn("is_nan", "bool", param("num", "float")),
		fn("is_finite", "bool", param("num", "float")),
		fn("number_format", "string", param("num", "float"), optional("decimals", "int"), optional("decimal_separator", "?string"), optional("thousands_separator", "?string")),
	}
}

func stringFunctions() []*FunctionInfo {
	return []*FunctionInfo{
		fn("ltrim", "string", param("string", "string"), optional("characters", "string")),
		fn("rtrim", "string", param("string", "string"), optional("characters", "string")),
		fn("lcfirst", "string", param("string", "string")),
		fn("ucwords", "string", param("string", "string"), optional("separators", "string")),
		fn("str_replace", "string|array", param("search", "array|string"), param("replace", "array|string"), param("subject", "string|array")),
		fn("str_repeat", "string", param("string", "string"), param("times", "int<0, max>")),
		fn("str_pad", "string", param("string", "string"), param("length", "int"), optional("pad_string", "string"), optional("pad_type", "int")),
		fn("str_split", "list<string>", param("string", "string"), optional("length", "positive-int")),
		fn("strrev", "string", param("string", "string")),
		fn("strcmp", "int", param("string1", "string"), param("string2", "string")),
		fn("strcasecmp", "int", param("string1", "string"), param("string2", "string")),
		fn("strrpos", "int<0, max>|false", param("haystack", "string"), param("needle", "string"), optional("offset", "int")),
		fn("stripos", "int<0, max>|false", param("haystack", "string"), param("needle", "string"), optional("offset", "int")),
		fn("strstr", "string|false", param("haystack", "string"), param("needle", "string"), optional("before_needle", "bool")),
		fn("substr_count", "int<0, max>", param("haystack", "string"), param("needle", "string")),
		fn("mb_strlen", "int<0, max>", param("string", "string"), optional("encoding", "?string")),
		fn("mb_substr", "string", param("string", "string"), param("start", "int"), optional("length", "?int"), optional("encoding", "?string")),
		fn("mb_strtolower", "lowercase-string", param("string", "string"), optional("encoding", "?string")),
		fn("mb_strtoupper", "string", param("string", "string"), optional("encoding", "?string")),
		fn("htmlspecialchars", "string", param("string", "string"), optional("flags", "int"), optional("encoding", "?string"), optional("double_encode", "bool")),
		fn("nl2br", "string", param("string", "string"), optional("use_xhtml", "bool")),
		fn("strip_tags", "string", param("string", "string"), optional("allowed_tags", "array|string|null")),
		fn("addslashes", "string", param("string", "string")),
		fn("vsprintf", "string", param("format", "string"), param("values", "array")),
		fn("printf", "int<0, max>", param("format", "string"), variadic("values", "mixed")),
		fn("md5", "non-empty-string", param("string", "string"), optional("binary", "bool")),
		fn("sha1", "non-empty-string", param("string", "string"), optional("binary", "bool")),
		fn("hash", "non-empty-string", param("algo", "string"), param("data", "string"), optional("binary", "bool")),
		fn("crc32", "int", param("string", "string")),
		fn("base64_encode", "string", param("string", "string")),
		fn("base64_decode", "string|false", param("string", "string"), optional("strict", "bool")),
		fn("bin2hex", "string", param("string", "string")),
		fn("uniqid", "non-empty-string", optional("prefix", "string"), optional("more_entropy", "bool")),
		fn("preg_replace", "string|array|null", param("pattern", "array|string"), param("replacement", "array|string"), param("subject", "array|string"), optional("limit", "int")),
		fn("preg_split", "list<string>|false", param("pattern", "string"), param("subject", "string"), optional("limit", "int"), optional("flags", "int")),
		fn("preg_quote", "string", param("str", "string"), optional("delimiter", "?string")),
		fn("preg_match_all", "int<0, max>|false", param("pattern", "string"), param("subject", "string"), Param{Name: "matches", Type: "array", ByRef: true, HasDefault: true}),
		fn("ctype_digit", "bool", param("text", "mixed")),
		fn("ctype_alpha", "bool", param("text", "mixed")),
		fn("ord", "int<0, 255>", param("character", "string")),
		fn("chr", "non-empty-string", param("codepoint", "int")),
	}
}

func arrayFunctions() []*FunctionInfo {
	return []*FunctionInfo{
		fn("sizeof", "int<0, max>", param("value", "Countable|array"), optional("mode", "int")),
		fn("array_search", "int|string|false", param("needle", "mixed"), param("haystack", "array"), optional("strict", "bool")),
		fn("array_slice", "array", param("array", "array"), param("offset", "int"), optional("length", "?int"), optional("preserve_keys", "bool")),
		fn("array_splice", "array", Param{Name: "array", Type: "array", ByRef: true}, param("offset", "int"), optional("length", "?int"), optional("replacement", "mixed")),
		fn("array_reverse", "array", param("array", "array"), optional("preserve_keys", "bool")),
		fn("array_unique", "array", param("array", "array"), optional("flags", "int")),
		fn("array_flip", "array", param("array", "array")),
		fn("array_combine", "array", param("keys", "array"), param("values", "array")),
		fn("array_fill", "array", param("start_index", "int"), param("count", "int<0, max>"), param("value", "mixed")),
		fn("array_fill_keys", "array", param("keys", "array"), param("value", "mixed")),
		fn("array_pad", "array", param("array", "array"), param("length", "int"), param("value", "mixed")),
		fn("array_column", "array", param("array", "array"), param("column_key", "int|string|null"), optional("index_key", "int|string|null")),
		fn("array_chunk", "list<array>", param("array", "array"), param("length", "positive-int"), optional("preserve_keys", "bool")),
		fn("array_diff", "array", param("array", "array"), variadic("arrays", "array")),
		fn("array_diff_key", "array", param("array", "array"), variadic("arrays", "array")),
		fn("array_intersect", "array", param("array", "array"), variadic("arrays", "array")),
		fn("array_intersect_key", "array", param("array", "array"), variadic("arrays", "array")),
		fn("array_replace", "array", param("array", "array"), variadic("replacements", "array")),
		fn("array_reduce", "mixed", param("array", "array"), param("callback", "callable"), optional("initial", "mixed")),
		fn("array_walk", "true", Param{Name: "array", Type: "array|object", ByRef: true}, param("callback", "callable"), optional("arg", "mixed")),
		fn("array_sum", "int|float", param("array", "array")),
		fn("array_product", "int|float", param("array", "array")),
		fn("array_push", "int<0, max>", Param{Name: "array", Type: "array", ByRef: true}, variadic("values", "mixed")),
		fn("array_pop", "mixed", Param{Name: "array", Type: "array", ByRef: true}),
		fn("array_shift", "mixed", Param{Name: "array", Type: "array", ByRef: true}),
		fn("array_unshift", "int<0, max>", Param{Name: "array", Type: "array", ByRef: true}, variadic("values", "mixed")),
		fn("array_is_list", "bool", param("array", "array")),
		fn("array_rand", "int|string|array", param("array", "array"), optional("num", "int")),
		fn("range", "list<mixed>", param("start", "mixed"), param("end", "mixed"), optional("step", "int|float")),
		fn("compact", "array<string, mixed>", variadic("var_names", "mixed")),
		fn("sort", "true", Param{Name: "array", Type: "array", ByRef: true}, optional("flags", "int")),
		fn("rsort", "true", Param{Name: "array", Type: "array", ByRef: true}, optional("flags", "int")),
		fn("usort", "true", Param{Name: "array", Type: "array", ByRef: true}, param("callback", "callable")),
		fn("uasort", "true", Param{Name: "array", Type: "array", ByRef: true}, param("callback", "callable")),
		fn("uksort", "true", Param{Name: "array", Type: "array", ByRef: true}, param("callback", "callable")),
		fn("ksort", "true", Param{Name: "array", Type: "array", ByRef: true}, optional("flags", "int")),
		fn("krsort", "true", Param{Name: "array", Type: "array", ByRef: true}, optional("flags", "int")),
		fn("asort", "true", Param{Name: "array", Type: "array", ByRef: true}, optional("flags", "int")),
		fn("arsort", "true", Param{Name: "array", Type: "array", ByRef: true}, optional("flags", "int")),
		fn("shuffle", "true", Param{Name: "array", Type: "array", ByRef: true}),
		fn("reset", "mixed", Param{Name: "array", Type: "array|object", ByRef: true}),
		fn("end", "mixed", Param{Name: "array", Type: "array|object", ByRef: true}),
		fn("current", "mixed", param("array", "array|object")),
		fn("key", "int|string|null", param("array", "array|object")),
		fn("next", "mixed", Param{Name: "array", Type: "array|object", ByRef: true}),
	}
}

func runtimeFunctions() []*FunctionInfo {
	return []*FunctionInfo{
		fn("microtime", "string|float", optional("as_float", "bool")),
		fn("hrtime", "array|int|float|false", optional("as_number", "bool")),
		fn("date", "string", param("format", "string"), optional("timestamp", "?int")),
		fn("mktime", "int|false", param("hour", "int"), optional("minute", "?int"), optional("second", "?int"), optional("month", "?int"), optional("day", "?int"), optional("year", "?int")),
		fn("strtotime", "int|false", param("datetime", "string"), optional("baseTimestamp", "?int")),
		fn("usleep", "void", param("microseconds", "int<0, max>")),
		fn("sleep", "int", param("seconds", "int<0, max>")),
		fn("error_log", "bool", param("message", "string"), optional("message_type", "int"), optional("destination", "?string"), optional("additional_headers", "?string")),
		fn("trigger_error", "true", param("message", "string"), optional("error_level", "int")),
		fn("error_reporting", "int", optional("error_level", "?int")),
		fn("ini_get", "string|false", param("option", "string")),
		fn("ini_set", "string|false", param("option", "string"), param("value", "string|int|float|bool|null")),
		fn("getenv", "mixed", optional("name", "?string"), optional("local_only", "bool")),
		fn("putenv", "bool", param("assignment", "string")),
		fn("function_exists", "bool", param("function", "string")),
		fn("class_exists", "bool", param("class", "string"), optional("autoload", "bool")),
		fn("interface_exists", "bool", param("interface", "string"), optional("autoload", "bool")),
		fn("method_exists", "bool", param("object_or_class", "mixed"), param("method", "string")),
		fn("property_exists", "bool", param("object_or_class", "mixed"), param("property", "string")),
		fn("get_object_vars", "array<string, mixed>", param("object", "object")),
		fn("get_parent_class", "class-string|false", optional("object_or_class", "object|string")),
		fn("spl_object_id", "int", param("object", "object")),
		fn("spl_object_hash", "non-empty-string", param("object", "object")),
		fn("spl_autoload_register", "bool", optional("callback", "?callable"), optional("throw", "bool"), optional("prepend", "bool")),
		fn("call_user_func", "mixed", param("callback", "callable"), variadic("args", "mixed")),
		fn("call_user_func_array", "mixed", param("callback", "callable"), param("args", "array")),
		fn("func_num_args", "int<0, max>"),
		fn("serialize", "string", param("value", "mixed")),
		fn("unserialize", "mixed", param("data", "string"), optional("options", "array")),
		fn("var_export", "string|null", param("value", "mixed"), optional("return", "bool")),
		fn("settype", "bool", Param{Name: "var", Type: "mixed", ByRef: true}, param("type", "string")),
		fn("file_exists", "bool", param("filename", "string")),
		fn("is_file", "bool", param("filename", "string")),
		fn("is_dir", "bool", param("filename", "string")),
		fn("is_readable", "bool", param("filename", "string")),
		fn("file_get_contents", "string|false", param("filename", "string"), optional("use_include_path", "bool"), optional("context", "resource|null"), optional("offset", "int"), optional("length", "?int")),
		fn("file_put_contents", "int<0, max>|false", param("filename", "string"), param("data", "mixed"), optional("flags", "int"), optional("context", "resource|null")),
		fn("fwrite", "int<0, max>|false", param("stream", "resource"), param("data", "string"), optional("length", "?int")),
		fn("fread", "string|false", param("stream", "resource"), param("length", "positive-int")),
		fn("fgets", "string|false", param("stream", "resource"), optional("length", "?int")),
		fn("fclose", "bool", param("stream", "resource")),
		fn("feof", "bool", param("stream", "resource")),
		fn("unlink", "bool", param("filename", "string"), optional("context", "resource|null")),
		fn("mkdir", "bool", param("directory", "string"), optional("permissions", "int"), optional("recursive", "bool"), optional("context", "resource|null")),
		fn("basename", "string", param("path", "string"), optional("suffix", "string")),
		fn("dirname", "string", param("path", "string"), optional("levels", "positive-int")),
		fn("realpath", "non-empty-string|false", param("path", "string")),
		fn("pathinfo", "array<string, string>|string", param("path", "string"), optional("flags", "int")),
		fn("header", "void", param("header", "string"), optional("replace", "bool"), optional("response_code", "int")),
		fn("http_build_query", "string", param("data", "array|object")),
		fn("parse_str", "void", param("string", "string"), Param{Name: "result", Type: "array", ByRef: true}),
		fn("parse_url", "mixed", param("url", "string"), optional("component", "int")),
		fn("urlencode", "string", param("string", "string")),
		fn("urldecode", "string", param("string", "string")),
		fn("rawurlencode", "string", param("string", "string")),
		fn("filter_var", "mixed", param("value", "mixed"), optional("filter", "int"), optional("options", "array|int")),
		fn("debug_backtrace", "list<array<string, mixed>>", optional("options", "int"), optional("limit", "int")),
		fn("memory_get_usage", "int<0, max>", optional("real_usage", "bool")),
		fn("gc_collect_cycles", "int<0, max>"),
	}
}

var builtinConstants = map[string]string{
	"PHP_EOL":                "non-empty-string",
	"PHP_INT_MAX":            "int",
	"PHP_INT_MIN":            "int",
	"PHP_INT_SIZE":           "positive-int",
	"PHP_VERSION":            "non-empty-string",
	"PHP_OS":                 "non-empty-string",
	"DIRECTORY_SEPARATOR":    "non-empty-string",
	"E_ALL":                  "int",
	"JSON_THROW_ON_ERROR":    "int",
	"COUNT_RECURSIVE":        "int",
	"M_PI":                   "float",
	"PHP_FLOAT_EPSILON":      "float",
	"PHP_FLOAT_MAX":          "float",
	"SORT_STRING":            "int",
	"SORT_NUMERIC":           "int",
	"ENT_QUOTES":             "int",
	"ARRAY_FILTER_USE_KEY":   "int",
	"ARRAY_FILTER_USE_BOTH":  "int",
	"FILTER_VALIDATE_INT":    "int",
	"FILTER_VALIDATE_EMAIL":  "int",
	"JSON_PRETTY_PRINT":      "int",
	"JSON_UNESCAPED_SLASHES": "int",
	"JSON_UNESCAPED_UNICODE": "int",
	"PREG_SPLIT_NO_EMPTY":    "int",
	"STR_PAD_LEFT":           "int",
	"FILE_APPEND":            "int",
	"LOCK_EX":                "int",
}
