package protocol

import "fmt"

// MaxResultLength is the largest encoded result a keyed call can report.
// The length shares the i64 return value with the token, so it gets 31 bits
// and the packed value never turns negative.
const MaxResultLength = 1<<31 - 1

// PackResult packs a call token and a result length into the i64 returned by
// a keyed host wrapper. Token occupies bits 32-62 and length bits 0-30, so a
// packed value is never negative and cannot collide with Sentinel.
func PackResult(token uint32, length uint32) int64 {
	if length > MaxResultLength {
		panic(fmt.Sprintf("protocol: result length %d exceeds %d", length, MaxResultLength))
	}
	if token > 1<<31-1 {
		panic(fmt.Sprintf("protocol: token %d does not fit in 31 bits", token))
	}
	return int64(token)<<32 | int64(length)
}

// UnpackResult splits a non-negative keyed return value into token and length.
func UnpackResult(packed int64) (token uint32, length uint32) {
	return uint32(packed >> 32), uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: packed format stores 32-bit values
}
