package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/internal/config"
	"github.com/woxQAQ/narrowcall/internal/demo"
	"github.com/woxQAQ/narrowcall/internal/wasm"
	"github.com/woxQAQ/narrowcall/pkg/boundary"
	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/guest"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// newPublisher builds the result store matching the configured mode and
// codec. Guests must be generated with the same settings.
func newPublisher(cfg *config.Config, c codec.Codec, logger *zap.Logger) boundary.Publisher {
	w, _ := codec.ParseWidth(cfg.Codec.Width)
	opts := []boundary.Option{
		boundary.WithCodec(c),
		boundary.WithWidth(w),
		boundary.WithLogger(logger),
	}
	if protocol.Mode(cfg.Mode) == protocol.ModeKeyed {
		return boundary.NewLedger(opts...)
	}
	return boundary.NewEnv(opts...)
}

// startDemoHost creates a runtime and installs the demo exports into it.
func startDemoHost(ctx context.Context, cfg *config.Config, pub boundary.Publisher, logger *zap.Logger) (*wasm.Runtime, *wasm.InstanceManager, api.Module, error) {
	runtime, err := wasm.NewRuntime(ctx, logger, cfg.Runtime())
	if err != nil {
		return nil, nil, nil, err
	}

	mgr := wasm.NewInstanceManager(runtime, wasm.NewHostFunctions(logger), logger)
	host, err := mgr.InstallHost(ctx, &wasm.HostConfig{
		ModuleName: cfg.Wasm.Module,
		Publisher:  pub,
		Exports:    demo.Exports(pub),
	})
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, nil, nil, err
	}
	return runtime, mgr, host, nil
}

// runCall invokes a demo export from Go through the same readback path a
// guest uses. Results travel as JSON so they can be printed untyped.
func runCall(ctx context.Context, args []string) error {
	cfg, logger, fs, err := setup("call", args, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: narrowcall call <function> [args...]")
	}
	name := fs.Arg(0)

	var export *boundary.Export
	for _, e := range demo.Exports(nil) {
		if e.Name == name {
			export = &e
			break
		}
	}
	if export == nil {
		return fmt.Errorf("demo binding has no function %q", name)
	}

	words, err := encodeArgs(export, fs.Args()[1:])
	if err != nil {
		return err
	}

	pub := newPublisher(cfg, codec.JSON, logger)
	runtime, _, host, err := startDemoHost(ctx, cfg, pub, logger)
	if err != nil {
		return err
	}
	defer runtime.Close(ctx)

	w, _ := codec.ParseWidth(cfg.Codec.Width)
	caller, err := guest.NewCaller(wasm.NewModuleLink(host),
		guest.WithCodec(codec.JSON),
		guest.WithWidth(w),
		guest.WithMode(protocol.Mode(cfg.Mode)),
	)
	if err != nil {
		return err
	}

	out := guest.Invoke[any](ctx, caller, name, words...)
	v, err := out.Unwrap()
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// encodeArgs converts command line arguments to stack words following the
// export's core value types.
func encodeArgs(e *boundary.Export, args []string) ([]uint64, error) {
	if len(args) != len(e.Params) {
		return nil, fmt.Errorf("%s takes %d arguments %v, got %d", e.Name, len(e.Params), e.ParamNames, len(args))
	}

	words := make([]uint64, len(args))
	for i, arg := range args {
		switch e.Params[i] {
		case api.ValueTypeI32:
			if b, err := strconv.ParseBool(arg); err == nil {
				if b {
					words[i] = 1
				}
				continue
			}
			n, err := strconv.ParseInt(arg, 0, 64)
			if err != nil || n < -1<<31 || n > 1<<32-1 {
				return nil, fmt.Errorf("argument %s: %q is not a 32-bit integer", e.ParamNames[i], arg)
			}
			words[i] = api.EncodeU32(uint32(n))
		case api.ValueTypeI64:
			n, err := strconv.ParseInt(arg, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", e.ParamNames[i], err)
			}
			words[i] = api.EncodeI64(n)
		case api.ValueTypeF32:
			f, err := strconv.ParseFloat(arg, 32)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", e.ParamNames[i], err)
			}
			words[i] = api.EncodeF32(float32(f))
		case api.ValueTypeF64:
			f, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", e.ParamNames[i], err)
			}
			words[i] = api.EncodeF64(f)
		default:
			return nil, fmt.Errorf("argument %s: unsupported value type %s", e.ParamNames[i], api.ValueTypeName(e.Params[i]))
		}
	}
	return words, nil
}

// runGuest instantiates a compiled wasip1 guest with the demo host module.
// Command guests run main during instantiation; reactor guests are
// initialized and then the --invoke export is called.
func runGuest(ctx context.Context, args []string) error {
	var (
		reactor bool
		invoke  string
	)
	cfg, logger, fs, err := setup("run", args, func(fs *pflag.FlagSet) {
		fs.BoolVar(&reactor, "reactor", false, "Run _initialize instead of _start")
		fs.StringVar(&invoke, "invoke", "", "Exported guest function to call after start (no arguments)")
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: narrowcall run <guest.wasm> [guest args...]")
	}

	c, err := codec.Lookup(cfg.Codec.Name)
	if err != nil {
		return err
	}
	pub := newPublisher(cfg, c, logger)

	runtime, mgr, _, err := startDemoHost(ctx, cfg, pub, logger)
	if err != nil {
		return err
	}
	defer runtime.Close(ctx)

	compiled, err := wasm.NewModuleLoader(runtime, logger).LoadModuleFromFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	start := []string{"_start"}
	if reactor {
		start = []string{"_initialize"}
	}
	inst, err := mgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName:     compiled.Name,
		StartFunctions: start,
		Args:           fs.Args()[1:],
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	})
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	if invoke == "" {
		return nil
	}
	if inst.Exited {
		return fmt.Errorf("guest exited during start, cannot invoke %q (use --reactor)", invoke)
	}
	res, err := inst.Call(ctx, invoke)
	if err != nil {
		return err
	}
	for _, word := range res {
		fmt.Println(word)
	}
	return nil
}
