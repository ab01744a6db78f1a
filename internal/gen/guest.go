package gen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/woxQAQ/narrowcall/internal/decl"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// Names of helpers emitted once per guest file.
const (
	readbackFunc      = "readback"
	readByteFunc      = "hostReadByte"
	readByteKeyedFunc = "hostReadByteKeyed"
	releaseFunc       = "hostRelease"
	boolWordFunc      = "boolWord"
)

// GuestGenerator emits the wasip1 guest file of a binding.
type GuestGenerator struct {
	opts   Options
	logger *zap.Logger
}

// NewGuestGenerator validates opts and creates a GuestGenerator.
func NewGuestGenerator(opts Options, logger *zap.Logger) (*GuestGenerator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuestGenerator{
		opts:   opts.withDefaults(),
		logger: logger.With(zap.String("component", "gen-guest")),
	}, nil
}

// ExternName is the Go name of the wasmimport declaration for a function.
func ExternName(name string) string {
	return "_" + name
}

// Generate renders the guest file for u.
func (g *GuestGenerator) Generate(u *Unit) ([]byte, error) {
	f := jen.NewFile(g.opts.Package)
	f.HeaderComment("//go:build wasip1\n")
	f.HeaderComment(Header)
	f.ImportName(guestPath, "guest")
	f.ImportName(codecPath, "codec")
	f.ImportName(protocolPath, "protocol")

	usesBool := false
	for _, sig := range u.Signatures {
		for _, k := range sig.ParamKinds {
			if k == decl.ScalarBool {
				usesBool = true
			}
		}

		g.extern(f, sig)
		f.Line()
		if err := g.proxy(f, sig, u.Imports); err != nil {
			return nil, fmt.Errorf("generate proxy %s: %w", sig.Name, err)
		}
		f.Line()
	}

	if g.opts.Mode == protocol.ModeKeyed {
		g.readbackKeyed(f)
	} else {
		g.readback(f)
	}
	if usesBool {
		f.Line()
		g.boolWord(f)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("render guest file: %w", err)
	}

	g.logger.Debug("Generated guest file",
		zap.String("package", g.opts.Package),
		zap.String("mode", string(g.opts.Mode)),
		zap.Int("proxies", len(u.Signatures)),
	)
	return buf.Bytes(), nil
}

// extern emits:
//
//	//go:wasmimport env add
//	func _add(a int64, b int64) int64
func (g *GuestGenerator) extern(f *jen.File, sig *decl.Signature) {
	names := newScope(sig).params(sig)
	params := make([]jen.Code, len(sig.Params))
	for i := range sig.Params {
		params[i] = jen.Id(names[i]).Add(abiType(sig.ParamKinds[i]))
	}
	f.Comment(fmt.Sprintf("//go:wasmimport %s %s", g.opts.Module, sig.Name))
	f.Func().Id(ExternName(sig.Name)).Params(params...).Int64()
}

// proxy emits the typed function calling the extern and reading back the
// result.
func (g *GuestGenerator) proxy(f *jen.File, sig *decl.Signature, imports map[string]string) error {
	rt, err := typeCode(sig.ResultExpr, imports)
	if err != nil {
		return err
	}
	result := func() *jen.Statement { return rt.Clone() }

	sc := newScope(sig, g.reserved(imports)...)
	names := sc.params(sig)
	params := make([]jen.Code, len(sig.Params))
	args := make([]jen.Code, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = jen.Id(names[i]).Id(p.Type)
		args[i] = encodeArg(sig.ParamKinds[i], p.Type, names[i])
	}

	ret := sc.fresh("ret")
	v := sc.fresh("v")
	errName := sc.fresh("err")

	var read jen.Code
	if g.opts.Mode == protocol.ModeKeyed {
		read = jen.Qual(protocolPath, "UnpackResult").Call(jen.Id(ret))
	} else {
		read = jen.Id(ret)
	}

	if sig.Doc != "" {
		for _, line := range strings.Split(sig.Doc, "\n") {
			f.Comment(line)
		}
	} else {
		f.Commentf("%s calls the host implementation of %s.", sig.Name, sig.Name)
	}
	f.Func().Id(sig.Name).Params(params...).Qual(guestPath, "Outcome").Types(result()).Block(
		jen.Id(ret).Op(":=").Id(ExternName(sig.Name)).Call(args...),
		jen.If(jen.Id(ret).Op("<").Lit(0)).Block(
			jen.Return(jen.Qual(guestPath, "Absent").Types(result()).Call()),
		),
		jen.List(jen.Id(v), jen.Id(errName)).Op(":=").Id(readbackFunc).Types(result()).Call(read),
		jen.If(jen.Id(errName).Op("!=").Nil()).Block(
			jen.Return(jen.Qual(guestPath, "Failed").Types(result()).Call(jen.Id(errName))),
		),
		jen.Return(jen.Qual(guestPath, "Present").Call(jen.Id(v))),
	)
	return nil
}

// reserved lists the package-level names a proxy body may refer to.
func (g *GuestGenerator) reserved(imports map[string]string) []string {
	names := []string{
		"guest", "codec", "protocol",
		readbackFunc, readByteFunc, readByteKeyedFunc, releaseFunc, boolWordFunc,
	}
	for name := range imports {
		names = append(names, name)
	}
	return names
}

// decodeInto emits the codec call shared by both readback variants.
func (g *GuestGenerator) decodeInto(size jen.Code) jen.Code {
	return jen.If(
		jen.Err().Op(":=").Qual(codecPath, g.opts.codecVar()).Dot("Decode").Call(
			jen.Id("buf"),
			jen.Qual(codecPath, g.opts.widthConst()),
			jen.Op("&").Id("v"),
		),
		jen.Err().Op("!=").Nil(),
	).Block(
		jen.Return(jen.Id("v"), jen.Op("&").Qual(guestPath, "DecodeError").Values(jen.Dict{
			jen.Id("Size"): size,
			jen.Id("Err"):  jen.Err(),
		})),
	)
}

func (g *GuestGenerator) readback(f *jen.File) {
	f.Comment(fmt.Sprintf("//go:wasmimport %s %s", g.opts.Module, protocol.ReadByteExport))
	f.Func().Id(readByteFunc).Params(jen.Id("addr").Uint32()).Uint32()
	f.Line()

	f.Commentf("%s pulls size result bytes from the host one address at a time and decodes them.", readbackFunc)
	f.Func().Id(readbackFunc).Types(jen.Id("T").Id("any")).
		Params(jen.Id("size").Int64()).
		Params(jen.Id("T"), jen.Error()).
		Block(
			jen.Var().Id("v").Id("T"),
			jen.Id("buf").Op(":=").Make(jen.Index().Byte(), jen.Lit(0), jen.Id("size")),
			jen.For(
				jen.Id("addr").Op(":=").Int64().Call(jen.Lit(0)),
				jen.Id("addr").Op("<").Id("size"),
				jen.Id("addr").Op("++"),
			).Block(
				jen.Id("buf").Op("=").Append(jen.Id("buf"), jen.Byte().Call(jen.Id(readByteFunc).Call(jen.Uint32().Call(jen.Id("addr"))))),
			),
			g.decodeInto(jen.Id("size")),
			jen.Return(jen.Id("v"), jen.Nil()),
		)
}

func (g *GuestGenerator) readbackKeyed(f *jen.File) {
	f.Comment(fmt.Sprintf("//go:wasmimport %s %s", g.opts.Module, protocol.ReadByteKeyedExport))
	f.Func().Id(readByteKeyedFunc).Params(jen.Id("token").Uint32(), jen.Id("addr").Uint32()).Uint32()
	f.Line()
	f.Comment(fmt.Sprintf("//go:wasmimport %s %s", g.opts.Module, protocol.ReleaseExport))
	f.Func().Id(releaseFunc).Params(jen.Id("token").Uint32())
	f.Line()

	f.Commentf("%s pulls the size bytes held under token from the host, releases them and decodes them.", readbackFunc)
	f.Func().Id(readbackFunc).Types(jen.Id("T").Id("any")).
		Params(jen.Id("token").Uint32(), jen.Id("size").Uint32()).
		Params(jen.Id("T"), jen.Error()).
		Block(
			jen.Defer().Id(releaseFunc).Call(jen.Id("token")),
			jen.Var().Id("v").Id("T"),
			jen.Id("buf").Op(":=").Make(jen.Index().Byte(), jen.Lit(0), jen.Id("size")),
			jen.For(
				jen.Id("addr").Op(":=").Uint32().Call(jen.Lit(0)),
				jen.Id("addr").Op("<").Id("size"),
				jen.Id("addr").Op("++"),
			).Block(
				jen.Id("buf").Op("=").Append(jen.Id("buf"), jen.Byte().Call(jen.Id(readByteKeyedFunc).Call(jen.Id("token"), jen.Id("addr")))),
			),
			g.decodeInto(jen.Int64().Call(jen.Id("size"))),
			jen.Return(jen.Id("v"), jen.Nil()),
		)
}

func (g *GuestGenerator) boolWord(f *jen.File) {
	f.Func().Id(boolWordFunc).Params(jen.Id("b").Bool()).Uint32().Block(
		jen.If(jen.Id("b")).Block(jen.Return(jen.Lit(1))),
		jen.Return(jen.Lit(0)),
	)
}
