package gen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"
	"github.com/woxQAQ/narrowcall/internal/decl"
	"go.uber.org/zap"
)

// HostGenerator emits the host file of a binding.
type HostGenerator struct {
	opts   Options
	logger *zap.Logger
}

// NewHostGenerator validates opts and creates a HostGenerator.
func NewHostGenerator(opts Options, logger *zap.Logger) (*HostGenerator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostGenerator{
		opts:   opts.withDefaults(),
		logger: logger.With(zap.String("component", "gen-host")),
	}, nil
}

// WrapperName is the Go name of the host wrapper for a declared function.
func WrapperName(name string) string {
	return name + "Boundary"
}

// Generate renders the host file for u.
func (g *HostGenerator) Generate(u *Unit) ([]byte, error) {
	f := jen.NewFile(g.opts.Package)
	f.HeaderComment("//go:build " + g.opts.HostBuildTag + "\n")
	f.HeaderComment(Header)
	f.ImportName(boundaryPath, "boundary")
	f.ImportName(wazeroAPI, "api")

	for _, sig := range u.Signatures {
		g.wrapper(f, sig)
		f.Line()
	}
	g.exports(f, u.Signatures)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("render host file: %w", err)
	}

	g.logger.Debug("Generated host file",
		zap.String("package", g.opts.Package),
		zap.Int("wrappers", len(u.Signatures)),
	)
	return buf.Bytes(), nil
}

// wrapper emits:
//
//	func addBoundary(pub boundary.Publisher, a int, b int) int64 {
//		return pub.Publish(add(a, b))
//	}
func (g *HostGenerator) wrapper(f *jen.File, sig *decl.Signature) {
	sc := newScope(sig, "boundary")
	names := sc.params(sig)
	pub := sc.fresh("pub")

	params := []jen.Code{jen.Id(pub).Qual(boundaryPath, "Publisher")}
	args := make([]jen.Code, 0, len(sig.Params))
	for i, p := range sig.Params {
		params = append(params, jen.Id(names[i]).Id(p.Type))
		args = append(args, jen.Id(names[i]))
	}

	name := WrapperName(sig.Name)
	f.Commentf("%s runs %s and publishes its result through pub.", name, sig.Name)
	f.Func().Id(name).Params(params...).Int64().Block(
		jen.Return(jen.Id(pub).Dot("Publish").Call(jen.Id(sig.Name).Call(args...))),
	)
}

// exports emits the function returning one boundary.Export per signature.
func (g *HostGenerator) exports(f *jen.File, sigs []*decl.Signature) {
	entries := make([]jen.Code, 0, len(sigs))
	for _, sig := range sigs {
		entries = append(entries, jen.Line().Add(g.export(sig)))
	}
	if len(entries) > 0 {
		entries = append(entries, jen.Line())
	}

	f.Commentf("%s returns the narrow entry points of package %s for boundary.Install.", g.opts.ExportsFunc, g.opts.Package)
	f.Func().Id(g.opts.ExportsFunc).
		Params(jen.Id("pub").Qual(boundaryPath, "Publisher")).
		Index().Qual(boundaryPath, "Export").
		Block(
			jen.Return(jen.Index().Qual(boundaryPath, "Export").Values(entries...)),
		)
}

func (g *HostGenerator) export(sig *decl.Signature) jen.Code {
	call := []jen.Code{jen.Id("pub")}
	for i, p := range sig.Params {
		call = append(call, decodeWord(sig.ParamKinds[i], p.Type, i))
	}

	dict := jen.Dict{
		jen.Id("Name"): jen.Lit(sig.Name),
		jen.Id("Func"): jen.Func().
			Params(jen.Id("_").Qual("context", "Context"), jen.Id("stack").Index().Uint64()).
			Int64().
			Block(jen.Return(jen.Id(WrapperName(sig.Name)).Call(call...))),
	}
	if len(sig.Params) > 0 {
		types := make([]jen.Code, len(sig.Params))
		names := make([]jen.Code, len(sig.Params))
		for i, p := range sig.Params {
			types[i] = valueType(sig.ParamKinds[i])
			names[i] = jen.Lit(p.Name)
		}
		dict[jen.Id("Params")] = jen.Index().Qual(wazeroAPI, "ValueType").Values(types...)
		dict[jen.Id("ParamNames")] = jen.Index().String().Values(names...)
	}
	return jen.Values(dict)
}
