package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/pkg/template"
)

var (
	newType    string
	renderMode string
	outputPath string
)

// typesCmd lists registered contract types
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the available contract types",
	Args:  cobra.NoArgs,
	RunE:  runTypes,
}

// newCmd writes a state file for a freshly selected contract type
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Write a fresh state file for a contract type",
	Long: `Select a contract type with its default data and clauses and write the
result in the export file format. Edit the file, then validate or render it.`,
	Args: cobra.NoArgs,
	RunE: runNew,
}

// validateCmd checks a state file
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a state file is ready to generate",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

// renderCmd renders a state file to HTML
var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a state file to HTML",
	Long: `Render a state file. Export mode validates first and produces the
standalone document; preview mode renders the live preview fragment.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runTypes(cmd *cobra.Command, args []string) error {
	svcMgr, err := newManager()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, t := range svcMgr.Types.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Description)
	}
	return w.Flush()
}

func runNew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svcMgr, err := newManager()
	if err != nil {
		return err
	}
	if err := svcMgr.Session.SelectType(ctx, newType); err != nil {
		return err
	}

	payload, filename, err := svcMgr.Storage.ExportFile(svcMgr.Session.Snapshot())
	if err != nil {
		return err
	}
	path := outputPath
	if path == "" {
		path = filename
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
	return nil
}

// loadSession imports a state file into a fresh session
func loadSession(cmd *cobra.Command, path string) (*services.ServiceManager, error) {
	ctx := cmd.Context()
	svcMgr, err := newManager()
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	state, err := svcMgr.Storage.ImportFile(ctx, filepath.Base(path), payload)
	if err != nil {
		return nil, err
	}
	if err := svcMgr.Session.LoadState(ctx, state); err != nil {
		return nil, err
	}
	logger.Debug("state loaded",
		zap.String("file", path),
		zap.String("contractType", state.ContractType),
		zap.Int("clauses", len(state.ContractArticles)))
	return svcMgr, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	svcMgr, err := loadSession(cmd, args[0])
	if err != nil {
		return err
	}
	if err := svcMgr.Session.Validate(); err != nil {
		return err
	}
	stats := svcMgr.Session.Statistics()
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is ready (%d clauses, %d%% of variables filled)\n",
		args[0], stats.TotalArticles, stats.CompletionPercentage)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	mode, ok := template.ParseMode(renderMode)
	if !ok {
		return fmt.Errorf("unknown mode %q: use preview or export", renderMode)
	}
	svcMgr, err := loadSession(cmd, args[0])
	if err != nil {
		return err
	}

	var html string
	if mode == template.ModeExport {
		html, err = svcMgr.Session.Generate(cmd.Context())
	} else {
		snap := svcMgr.Session.Snapshot()
		ct, _ := svcMgr.Session.ContractType()
		html, err = svcMgr.Assembler.Assemble(ct, snap.ContractData, snap.ContractArticles, mode)
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), html)
		return err
	}
	if err := os.WriteFile(outputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %s\n", outputPath)
	return nil
}
