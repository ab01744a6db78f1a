// Command reactor links package demo into a wasip1 reactor so a host can
// call its proxies. Build with
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared
package main

import _ "github.com/woxQAQ/narrowcall/internal/demo"

func main() {}
