package demo

// Celsius is a temperature. It crosses the boundary as a float64.
type Celsius float64
