package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	cases := map[string]Language{
		"a.ts":            TypeScript,
		"src/types.d.ts":  TypeScript,
		"ui/App.tsx":      TSX,
		"lib/x.MJS":       JavaScript,
		"main.go":         Go,
		"tool.py":         Python,
		"README.md":       Markdown,
		"Makefile":        Unknown,
		"archive.tar.bz2": Unknown,
	}
	for p, want := range cases {
		assert.Equal(t, want, Detect(p), p)
	}
}

func TestCapabilities(t *testing.T) {
	assert.True(t, TypeScript.Parseable())
	assert.True(t, TypeScript.ModuleReexport())
	assert.True(t, Go.Parseable())
	assert.False(t, Go.ModuleReexport())
	assert.False(t, JSON.Parseable())
	assert.False(t, Unknown.Parseable())
	assert.False(t, Unknown.ModuleReexport())
}
