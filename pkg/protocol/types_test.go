package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackResult(t *testing.T) {
	tests := []struct {
		token  uint32
		length uint32
	}{
		{0, 0},
		{1, 1},
		{7, 12345},
		{1<<31 - 1, MaxResultLength},
	}

	for _, tt := range tests {
		packed := PackResult(tt.token, tt.length)
		assert.GreaterOrEqual(t, packed, int64(0), "PackResult(%d, %d)", tt.token, tt.length)

		gotToken, gotLen := UnpackResult(packed)
		assert.Equal(t, tt.token, gotToken, "UnpackResult(%x) token", packed)
		assert.Equal(t, tt.length, gotLen, "UnpackResult(%x) len", packed)
	}
}

func TestPackResultPanicsOnOverflow(t *testing.T) {
	assert.Panics(t, func() { PackResult(1, MaxResultLength+1) })
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeSingle.Valid())
	assert.True(t, ModeKeyed.Valid())
	assert.False(t, Mode("queue").Valid())
}

func TestLogLevels(t *testing.T) {
	levels := []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	for i, level := range levels {
		assert.Equal(t, LogLevel(i), level)
	}
}
