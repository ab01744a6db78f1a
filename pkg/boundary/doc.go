// Package boundary is the host half of the narrow call protocol.
//
// A generated host wrapper runs the real function, then hands the result to
// a Publisher. The publisher encodes it, keeps the bytes, and returns the
// only thing that can cross the boundary: a signed integer. The guest pulls
// the bytes back one at a time through read_byte.
//
//	guest proxy ──add(2,3)──▶ wrapper ──Publish(5)──▶ Env (result buffer)
//	guest proxy ◀──── len ─── wrapper
//	guest proxy ──read_byte(0..len-1)──▶ Env
//
// Two publishers exist:
//
//	Env     one shared slot, calls must be strictly sequential
//	Ledger  one slot per call token, results outstanding until released
//
// Install builds the wazero host module exporting the wrappers together with
// the readback functions the selected publisher needs.
package boundary
