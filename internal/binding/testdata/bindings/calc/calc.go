//go:build !wasip1

package calc

import "time"

type Celsius float64

// add sums two integers.
//
//narrowcall:export
func add(a, b int) int { return a + b }

//narrowcall:export
func warm(c Celsius) bool { return c > 20 }

//narrowcall:export
func uptime() time.Duration { return time.Second }

//narrowcall:export
func reset() {}

func scale(c Celsius, by int32) Celsius { return c * Celsius(by) }
