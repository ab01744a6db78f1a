// Package guest is the caller half of the narrow call protocol.
//
// Generated wasip1 proxies use Outcome directly and carry their own
// //go:wasmimport readback loop. Invoke and Readback implement the same
// state machine over a Link, so the protocol can be driven from ordinary Go
// code: tests, tools, and hosts calling into an instantiated module.
//
//	Called ──size < 0──▶ Absent
//	   │
//	   └──size ≥ 0──▶ Decoding ──ok──▶ Present
//	                     │
//	                     └──error──▶ Failed
//
// This package must stay importable from GOOS=wasip1 builds.
package guest
