// Command contractctl renders and checks contract state files offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/application/services"
	"github.com/contractgen/backend/internal/infrastructure/persistence"
	"github.com/contractgen/backend/internal/logging"
	"github.com/contractgen/backend/pkg/constants"
)

var (
	verbose      bool
	templatesDir string
	locale       string

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "contractctl",
	Short: "Create, validate and render contract state files",
	Long: `contractctl works on the JSON files exported by the contract generator.

Available subcommands:
  types    - List the available contract types
  new      - Write a fresh state file for a contract type
  validate - Check a state file is ready to generate
  render   - Render a state file to HTML`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return nil
		}
		l, err := logging.NewDevelopment(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&templatesDir, "templates", os.Getenv("TEMPLATES_DIR"), "Directory of YAML contract type definitions")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", constants.DefaultLocale, "Locale for number and date formatting")

	newCmd.Flags().StringVarP(&newType, "type", "t", constants.DefaultContractType, "Contract type id")
	newCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: suggested export name)")
	renderCmd.Flags().StringVarP(&renderMode, "mode", "m", "export", "Rendering mode: preview or export")
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")

	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newManager wires the services over an in-memory store; nothing is persisted
func newManager() (*services.ServiceManager, error) {
	svcMgr, err := services.NewServiceManager(services.ManagerConfig{
		Store:  persistence.NewMemoryBlobStore(),
		Logger: logger,
		Locale: locale,
	})
	if err != nil {
		return nil, err
	}
	if _, err := svcMgr.Types.LoadDir(templatesDir, logger); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", templatesDir, err)
	}
	return svcMgr, nil
}
