package php

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/analyzer"
	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/issue"
)

func TestLoweredFileAnalyses(t *testing.T) {
	f, decls := lower(t, `<?php
	namespace App;

	function greet(?string $name): string
	{
		if ($name === null) {
			return 'anonymous';
		}
		return $name;
	}

	echo $undefined;
	$x = 1 / 0;
	`)

	cb := codebase.New()
	decls.AddTo(cb)
	cb.Freeze()

	buf := &issue.Buffer{}
	result := analyzer.New(cb, config.Default(), buf).AnalyzeFile(f)
	require.Empty(t, result.Errors)

	var codes []issue.Code
	for _, i := range buf.Issues(issue.Warning) {
		codes = append(codes, i.Code)
		assert.Equal(t, "test.php", i.File)
	}
	assert.ElementsMatch(t, []issue.Code{issue.UndefinedVariable, issue.DivisionByZero}, codes)
}
