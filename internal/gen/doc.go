// Package gen emits the two stub files of a binding with jennifer.
//
// For every accepted signature the host file gets a wrapper that calls the
// real function and publishes its result, plus one Exports function listing
// all narrow entry points for boundary.Install. The guest file (wasip1) gets
// a //go:wasmimport extern and a proxy returning guest.Outcome, plus one
// shared readback helper.
//
// Prepare turns declarations into a Unit. Declarations that fail
// decl.Transform are skipped and listed in Unit.Skipped; they never reach
// either generator.
package gen
