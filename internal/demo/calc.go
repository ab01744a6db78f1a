//go:build !wasip1

package demo

import "strings"

// add sums two integers.
//
//narrowcall:export
func add(a, b int) int { return a + b }

// fahrenheit converts a temperature.
//
//narrowcall:export
func fahrenheit(c Celsius) float64 { return float64(c)*9/5 + 32 }

// primes lists the primes below limit.
//
//narrowcall:export
func primes(limit uint16) []int {
	var out []int
	sieve := make([]bool, limit)
	for n := 2; n < int(limit); n++ {
		if sieve[n] {
			continue
		}
		out = append(out, n)
		for m := n * n; m < int(limit); m += n {
			sieve[m] = true
		}
	}
	return out
}

// label describes a status code.
//
//narrowcall:export
func label(code int32, loud bool) string {
	var s string
	switch {
	case code >= 500:
		s = "server error"
	case code >= 400:
		s = "client error"
	case code >= 200 && code < 300:
		s = "ok"
	default:
		s = "unknown"
	}
	if loud {
		s = strings.ToUpper(s)
	}
	return s
}

// divide panics when b is zero, which the guest sees as an absent result.
//
//narrowcall:export
func divide(a, b int64) int64 { return a / b }

// reset has no result and is skipped by generation.
//
//narrowcall:export
func reset() {}
