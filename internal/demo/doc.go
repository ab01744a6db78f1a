// Package demo is a small binding used by the narrowcall CLI and tests.
//
// calc.go holds the host implementations, calc_host.go and calc_guest.go
// are generated from it with
//
//	narrowcall generate --binding-path internal/demo
//
// A wasip1 guest built from this package calls the proxies in
// calc_guest.go; a host embedding wazero installs Exports.
package demo
