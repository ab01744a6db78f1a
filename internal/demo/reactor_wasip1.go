//go:build wasip1

package demo

import (
	"unsafe"

	"github.com/woxQAQ/narrowcall/pkg/guest"
)

// Exports of a reactor build (see testdata/reactor). Each one calls a proxy
// and returns the value; demo_state reports the outcome of the last call.

var (
	lastState guest.State
	lastLabel string
)

func record[T any](o guest.Outcome[T]) T {
	lastState = o.State()
	v, _ := o.Get()
	return v
}

//go:wasmexport demo_state
func demoState() uint32 { return uint32(lastState) }

//go:wasmexport demo_add
func demoAdd(a, b int64) int64 { return int64(record(add(int(a), int(b)))) }

//go:wasmexport demo_fahrenheit
func demoFahrenheit(c float64) float64 { return record(fahrenheit(Celsius(c))) }

//go:wasmexport demo_primes_sum
func demoPrimesSum(limit uint32) int64 {
	var sum int64
	for _, p := range record(primes(uint16(limit))) {
		sum += int64(p)
	}
	return sum
}

// demoLabel returns the label's address in the high and its length in the
// low 32 bits.
//
//go:wasmexport demo_label
func demoLabel(code int32, loud uint32) uint64 {
	lastLabel = record(label(code, loud != 0))
	if lastLabel == "" {
		return 0
	}
	ptr := uintptr(unsafe.Pointer(unsafe.StringData(lastLabel)))
	return uint64(ptr)<<32 | uint64(len(lastLabel))
}

//go:wasmexport demo_divide
func demoDivide(a, b int64) int64 { return record(divide(a, b)) }
