package main

import (
	"context"
	"os"

	"github.com/spf13/pflag"
	"github.com/woxQAQ/narrowcall/internal/binding"
)

func runSchema(_ context.Context, args []string) error {
	fs := pflag.NewFlagSet("schema", pflag.ContinueOnError)
	out := fs.StringP("output", "o", "", "Write the schema to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := binding.Schema()
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}
