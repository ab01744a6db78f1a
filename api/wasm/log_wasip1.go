//go:build wasip1

package wasm

import (
	"unsafe"

	"github.com/woxQAQ/narrowcall/pkg/protocol"
)

// The import module is fixed at build time, so the host must install an
// "env" host module even when the boundary exports use another name.
//
//go:wasmimport env log_message
func logMessage(level uint32, ptr uint32, length uint32)

// Log sends msg to the host log at level.
func Log(level protocol.LogLevel, msg string) {
	if len(msg) == 0 {
		return
	}
	ptr := unsafe.Pointer(unsafe.StringData(msg))
	logMessage(uint32(level), uint32(uintptr(ptr)), uint32(len(msg)))
}
