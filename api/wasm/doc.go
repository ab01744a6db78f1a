// Package wasm is the guest-side companion of the narrowcall host module.
//
// Generated guest files only need the narrow entry points and read_byte.
// This package adds the remaining host export, log_message, so guest code
// can write to the host log:
//
//	wasm.Log(protocol.LogLevelInfo, "starting")
//	wasm.Logf(protocol.LogLevelWarn, "retrying %s", name)
//
// On wasip1 the calls go through //go:wasmimport env log_message, so a host
// whose boundary exports live under another module name still installs an
// "env" host module for logging. On other
// targets they are routed to a zap logger set with SetLogger, which keeps
// code shared between guest and host compiling and testable natively.
//
// NOTE: pointers and lengths are uint32 because wasm linear memory is
// addressed with 32-bit offsets.
package wasm
