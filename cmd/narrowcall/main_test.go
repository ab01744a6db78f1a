package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/internal/decl"
	"github.com/woxQAQ/narrowcall/pkg/boundary"
)

func TestWasmSignature(t *testing.T) {
	sig, err := decl.Transform(decl.Declaration{
		Name: "mix",
		Params: []decl.Param{
			{Name: "a", Type: "int"},
			{Name: "b", Type: "bool"},
			{Name: "c", Type: "float32"},
			{Name: "d", Type: "float64"},
		},
		Results: []string{"string"},
	}, decl.NewTypeTable())
	require.NoError(t, err)

	assert.Equal(t, "(i64, i32, f32, f64) -> i64", wasmSignature(sig))
}

func TestEncodeArgs(t *testing.T) {
	export := &boundary.Export{
		Name:       "mix",
		ParamNames: []string{"a", "b", "c", "d"},
		Params:     []api.ValueType{api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeF64},
	}

	words, err := encodeArgs(export, []string{"-7", "true", "12", "2.5"})
	require.NoError(t, err)
	require.Len(t, words, 4)

	assert.Equal(t, int64(-7), int64(words[0]))
	assert.Equal(t, uint64(1), words[1])
	assert.Equal(t, int32(12), api.DecodeI32(words[2]))
	assert.Equal(t, 2.5, api.DecodeF64(words[3]))
}

func TestEncodeArgsErrors(t *testing.T) {
	export := &boundary.Export{
		Name:       "add",
		ParamNames: []string{"a", "b"},
		Params:     []api.ValueType{api.ValueTypeI64, api.ValueTypeI32},
	}

	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"1"}},
		{"not an integer", []string{"x", "1"}},
		{"i32 overflow", []string{"1", "99999999999"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encodeArgs(export, tt.args)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := newLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}

	_, err := newLogger("loud")
	assert.Error(t, err)
}

func TestCommandsHaveSummaries(t *testing.T) {
	for name, cmd := range commands {
		assert.NotEmpty(t, cmd.summary, name)
		assert.NotNil(t, cmd.run, name)
	}
}
