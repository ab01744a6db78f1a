package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/woxQAQ/narrowcall/internal/binding"
	"github.com/woxQAQ/narrowcall/internal/decl"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	skippedStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FF6B6B"))
)

func runInspect(ctx context.Context, args []string) error {
	cfg, logger, _, err := setup("inspect", args, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr := binding.NewManager(cfg, nil, nil, logger)
	if err := mgr.LoadAll(ctx); err != nil {
		return err
	}

	for _, b := range mgr.Registry().List() {
		fmt.Println(titleStyle.Render(fmt.Sprintf("%s (package %s)", b.Name(), b.Package())))
		fmt.Println(bindingTable(b))
	}
	return nil
}

func bindingTable(b *binding.Binding) string {
	skippedRows := make(map[int]bool)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FUNCTION", "PARAMS", "WASM", "RESULT", "STATUS")

	for _, sig := range b.Unit.Signatures {
		t.Row(sig.Name, sig.ParamList(), wasmSignature(sig), sig.Result, "ok")
	}
	for i, skip := range b.Unit.Skipped {
		// Data rows are numbered from zero below the header.
		skippedRows[len(b.Unit.Signatures)+i] = true
		t.Row(skip.Name, "", "", "", "skipped: "+skip.Err.Error())
	}

	t.StyleFunc(func(row, _ int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case skippedRows[row]:
			return skippedStyle
		default:
			return cellStyle
		}
	})
	return t.String()
}

// wasmSignature renders the narrow entry point as core wasm types.
func wasmSignature(sig *decl.Signature) string {
	kinds := make([]string, len(sig.ParamKinds))
	for i, k := range sig.ParamKinds {
		kinds[i] = k.Wasm().String()
	}
	return "(" + strings.Join(kinds, ", ") + ") -> i64"
}
