package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/woxQAQ/narrowcall/internal/binding"
	"go.uber.org/zap"
)

func runGenerate(ctx context.Context, args []string) error {
	var dryRun bool
	cfg, logger, _, err := setup("generate", args, func(fs *pflag.FlagSet) {
		fs.BoolVar(&dryRun, "dry-run", false, "Print the generated files instead of writing them")
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr := binding.NewManager(cfg, nil, nil, logger)
	if err := mgr.LoadAll(ctx); err != nil {
		return err
	}
	if mgr.Registry().Count() == 0 {
		return &binding.NoBindingsFoundError{Paths: cfg.BindingPaths}
	}

	if dryRun {
		for _, b := range mgr.Registry().List() {
			g, err := mgr.Render(b.Name())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "==> %s\n%s\n==> %s\n%s\n", g.HostPath, g.Host, g.GuestPath, g.Guest)
		}
		return nil
	}

	generated, err := mgr.GenerateAll()
	if err != nil {
		return err
	}
	for _, g := range generated {
		fmt.Println(g.HostPath)
		fmt.Println(g.GuestPath)
	}
	logger.Info("Generation complete", zap.Int("bindings", len(generated)))
	return nil
}
