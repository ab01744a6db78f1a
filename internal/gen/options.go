package gen

import (
	"fmt"
	"go/token"

	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
)

// Import paths referenced from generated code.
const (
	boundaryPath = "github.com/woxQAQ/narrowcall/pkg/boundary"
	guestPath    = "github.com/woxQAQ/narrowcall/pkg/guest"
	codecPath    = "github.com/woxQAQ/narrowcall/pkg/codec"
	protocolPath = "github.com/woxQAQ/narrowcall/pkg/protocol"
	wazeroAPI    = "github.com/tetratelabs/wazero/api"
)

// Header is the first comment of every generated file.
const Header = "Code generated by narrowcall. DO NOT EDIT."

// Options configures both generators. Host and guest files of one binding
// must be generated with the same options.
type Options struct {
	// Package is the Go package name of the generated files.
	Package string

	// Module is the wasm import module (default "env").
	Module string

	// Mode selects single-slot or keyed results (default single).
	Mode protocol.Mode

	// Codec names the codec, see codec.Lookup (default "binary").
	Codec string

	// Width is the length-prefix width (default codec.DefaultWidth).
	Width codec.Width

	// ExportsFunc names the host function listing all exports
	// (default "Exports").
	ExportsFunc string

	// HostBuildTag constrains the host file (default "!wasip1"). The guest
	// file always builds for wasip1 only.
	HostBuildTag string
}

func (o Options) withDefaults() Options {
	if o.Module == "" {
		o.Module = protocol.DefaultModule
	}
	if o.Mode == "" {
		o.Mode = protocol.ModeSingle
	}
	if o.Codec == "" {
		o.Codec = codec.Binary.Name()
	}
	if o.Width == 0 {
		o.Width = codec.DefaultWidth
	}
	if o.ExportsFunc == "" {
		o.ExportsFunc = "Exports"
	}
	if o.HostBuildTag == "" {
		o.HostBuildTag = "!wasip1"
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	if !token.IsIdentifier(o.Package) {
		return fmt.Errorf("invalid package name %q", o.Package)
	}
	if !o.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", o.Mode)
	}
	if _, err := codec.Lookup(o.Codec); err != nil {
		return err
	}
	if !o.Width.Valid() {
		return fmt.Errorf("invalid width %d", uint8(o.Width))
	}
	if !token.IsExported(o.ExportsFunc) {
		return fmt.Errorf("exports function %q must be exported", o.ExportsFunc)
	}
	return nil
}

// codecVar is the exported variable of package codec for the codec name.
func (o Options) codecVar() string {
	if o.Codec == codec.JSON.Name() {
		return "JSON"
	}
	return "Binary"
}

// widthConst is the exported constant of package codec for the width.
func (o Options) widthConst() string {
	return fmt.Sprintf("Width%d", o.Width.Bits())
}
