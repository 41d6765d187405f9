package issue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/shopware/phpflow/internal/ast"
)

func TestBufferOrdersAndFilters(t *testing.T) {
	var b Buffer
	c := ForFile{Path: "b.php", Next: &b}
	c.Report(Issue{Level: Error, Code: UndefinedVariable, Span: ast.Span{Start: 20}})
	c.Report(Issue{Level: Info, Code: RedundantCondition, Span: ast.Span{Start: 5}})
	b.Report(Issue{Level: Warning, Code: PossiblyNullReference, File: "a.php", Span: ast.Span{Start: 30}})

	all := b.Issues(Info)
	require.Len(t, all, 3)
	assert.Equal(t, "a.php", all[0].File)
	assert.Equal(t, RedundantCondition, all[1].Code)
	assert.Equal(t, UndefinedVariable, all[2].Code)

	assert.Len(t, b.Issues(Warning), 2)
	assert.Len(t, b.Issues(Error), 1)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Error, ParseLevel("ERROR"))
	assert.Equal(t, Warning, ParseLevel("warn"))
	assert.Equal(t, Info, ParseLevel(""))
}

func TestJSON(t *testing.T) {
	issues := []Issue{
		{Level: Warning, Code: RedundantNullsafeOperator, Message: "nullsafe on non-null", File: "a.php", Span: ast.Span{Start: 3, End: 6, Line: 1, Column: 4},
			Fix: &Fix{Span: ast.Span{Start: 4, End: 6}, Replacement: "->"}},
		{Level: Error, Code: DivisionByZero, File: "a.php", Span: ast.Span{Start: 10, End: 16, Line: 2, Column: 1}},
	}

	out, err := JSON(issues)
	require.NoError(t, err)

	assert.Equal(t, int64(2), gjson.GetBytes(out, "#").Int())
	assert.Equal(t, "RedundantNullsafeOperator", gjson.GetBytes(out, "0.code").String())
	assert.Equal(t, "->", gjson.GetBytes(out, "0.fix.replacement").String())
	assert.Equal(t, "error", gjson.GetBytes(out, "1.level").String())
	assert.False(t, gjson.GetBytes(out, "1.fix").Exists())
}
