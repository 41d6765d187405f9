package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinaryOp(t *testing.T) {
	testCases := []struct {
		name     string
		op       string
		left     *Union
		right    *Union
		expected string
		folded   bool
		divZero  bool
	}{
		{name: "literal addition", op: "+", left: LiteralInt(3), right: LiteralInt(4), expected: "int(7)", folded: true},
		{name: "literal concat", op: ".", left: LiteralString("a"), right: LiteralString("b"), expected: "string('ab')", folded: true},
		{name: "int and string concat", op: ".", left: LiteralString("n"), right: LiteralInt(1), expected: "string('n1')", folded: true},
		{name: "exact division", op: "/", left: LiteralInt(6), right: LiteralInt(3), expected: "int(2)", folded: true},
		{name: "inexact division", op: "/", left: LiteralInt(7), right: LiteralInt(2), expected: "float(3.5)", folded: true},
		{name: "division by literal zero", op: "/", left: LiteralInt(10), right: LiteralInt(0), expected: "never", divZero: true},
		{name: "modulo by literal zero", op: "%", left: Int(), right: LiteralInt(0), expected: "never", divZero: true},
		{name: "overflow becomes float", op: "+", left: LiteralInt(math.MaxInt64), right: LiteralInt(1), expected: "float(9.223372036854776e+18)", folded: true},
		{name: "literal comparison", op: "<", left: LiteralInt(1), right: LiteralInt(2), expected: "true", folded: true},
		{name: "spaceship", op: "<=>", left: LiteralInt(1), right: LiteralInt(2), expected: "int(-1)", folded: true},
		{name: "identity of different literals", op: "===", left: LiteralInt(1), right: LiteralString("1"), expected: "false", folded: true},
		{name: "int addition", op: "+", left: Int(), right: Int(), expected: "int"},
		{name: "range plus literal", op: "+", left: NewUnion(IntRange(Bound(0), Bound(2))), right: LiteralInt(1), expected: "int<1, 3>"},
		{name: "range minus range", op: "-", left: NewUnion(IntRange(Bound(0), nil)), right: NewUnion(IntRange(Bound(1), Bound(5))), expected: "int<-5, max>"},
		{name: "overflowing bound is dropped", op: "+", left: NewUnion(IntRange(Bound(0), Bound(math.MaxInt64))), right: LiteralInt(1), expected: "int<1, max>"},
		{name: "smallest int divided by minus one", op: "/", left: LiteralInt(math.MinInt64), right: LiteralInt(-1), expected: "float(9.223372036854776e+18)", folded: true},
		{name: "smallest int modulo minus one", op: "%", left: LiteralInt(math.MinInt64), right: LiteralInt(-1), expected: "int(0)", folded: true},
		{name: "int and float", op: "*", left: Int(), right: Float(), expected: "float"},
		{name: "int division", op: "/", left: Int(), right: Int(), expected: "float|int"},
		{name: "concat of unknown strings", op: ".", left: String(), right: String(), expected: "string"},
		{name: "concat with non-empty side", op: ".", left: LiteralString("x"), right: String(), expected: "non-empty-string"},
		{name: "identity of disjoint types", op: "===", left: Int(), right: String(), expected: "false"},
		{name: "comparison of unknown ints", op: "<", left: Int(), right: Int(), expected: "bool"},
		{name: "array union", op: "+", left: ListOf(Int()), right: ListOf(Int()), expected: "list<int>"},
		{name: "never operand", op: "+", left: Never(), right: Int(), expected: "never"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, fr := BinaryOp(tc.op, tc.left, tc.right)

			assert.Equal(t, tc.expected, result.ID())
			assert.Equal(t, tc.folded, fr.Folded)
			assert.Equal(t, tc.divZero, fr.DivisionByZero)
		})
	}
}

func TestUnaryOp(t *testing.T) {
	assert.Equal(t, "int(-3)", UnaryOp("-", LiteralInt(3)).ID())
	assert.Equal(t, "false", UnaryOp("!", LiteralInt(3)).ID())
	assert.Equal(t, "true", UnaryOp("!", Null()).ID())
	assert.Equal(t, "bool", UnaryOp("!", Nullable(Int())).ID())
	assert.Equal(t, "int(-1)", UnaryOp("~", LiteralInt(0)).ID())
	assert.Equal(t, "float", UnaryOp("-", Float()).ID())
}
