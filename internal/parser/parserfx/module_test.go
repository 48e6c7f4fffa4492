package parserfx

import (
	"context"
	"testing"

	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestParserModule(t *testing.T) {
	var parser parser.Parser
	app := fx.New(
		Module,
		fx.Supply(zap.NewNop()),
		fx.Populate(&parser),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, parser)
	symbols, err := parser.Extract("a.ts", []byte("export function foo() {}\n"))
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, models.SymbolFunction, symbols[0].Kind)

	symbols, err = parser.Extract("main.go", []byte("package main\n\ntype Server struct{}\n"))
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "Server", symbols[0].Name)

	symbols, err = parser.Extract("notes.txt", []byte("function foo() {}"))
	require.NoError(t, err)
	assert.Empty(t, symbols)
}
