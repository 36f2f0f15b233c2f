// Package cli provides the command-line interface for the option calculator.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"option-calc-go/internal/calcclient"
	"option-calc-go/internal/config"
	"option-calc-go/internal/logger"
	"option-calc-go/internal/valuation"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies. They are filled in once flags
// are parsed.
type App struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "optcalc",
		Short: "VIOP and OTC option position calculator",
		Long: `optcalc values a single option position on Borsa Istanbul VIOP or over the counter.

It reports notional, premium, commission with BSMV, interest net of stopaj,
annualized yields, breakevens and the settlement outcome.

Use 'optcalc serve' to expose the calculator over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "./configs", "directory containing config.yml")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newCalcCmd(app))
	rootCmd.AddCommand(newProfilesCmd(app))
	rootCmd.AddCommand(newConventionsCmd(app))

	return rootCmd
}

// init loads configuration and builds the logger.
func (a *App) init(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logger.Level = "debug"
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("cannot initialize logger: %w", err)
	}

	a.Config = &cfg
	a.Logger = log
	return nil
}

// Client returns a REST client for the service at baseURL.
func (a *App) Client(baseURL string) calcclient.Client {
	cfg := a.Config.Client
	cfg.BaseURL = baseURL
	return calcclient.NewRestClient(&cfg, a.Logger)
}

// Engine builds a valuation engine with the configured conventions.
func (a *App) Engine() (*valuation.Engine, error) {
	return NewEngine(a.Config.Conventions)
}

// NewEngine builds a valuation engine from the conventions section of the config.
func NewEngine(cfg config.Conventions) (*valuation.Engine, error) {
	conv, err := valuation.ParseConventions(cfg.CommissionBase, cfg.InterestBase)
	if err != nil {
		return nil, err
	}
	return valuation.NewEngine(conv), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("optcalc v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}
