package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/parityarb/xvenue-arb/internal/app"
	"github.com/parityarb/xvenue-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine",
	Long: `Starts the cross-venue arbitrage engine, which will:
1. Connect to V-Stream and V-RPC and subscribe to every mapped symbol
2. Normalize and assemble venue ticks into the Central Order Book
3. Detect crossed parity and size it against available capital
4. Execute it (live mode) or log it (dry mode)`,
	RunE: runEngine,
}

//nolint:gochecknoglobals // Cobra boilerplate
var configPath string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
}

func runEngine(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, relying on the environment as-is")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
