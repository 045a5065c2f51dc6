// Package cmd defines and implements the CLI commands for the newsimg
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/app"
	pkgconfig "github.com/openpress/newsimg/pkg/config"
)

// version is stamped at build time via -ldflags.
var version = "0.3.0-dev"

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsimg",
		Short: "Attach lead images to news article listings",
		Long: `newsimg enriches CSV listings of news articles. The fetch command
visits each article page, locates the most plausible lead image, and
records its URL next to the source row. The download command then pulls
the located images to disk.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs after flags are parsed and before any subcommand. The
		// built App travels to subcommands through the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := pkgconfig.Init(cfgFile); err != nil {
				return err
			}

			appInstance, err := app.NewApp(viper.GetViper())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			if used := viper.ConfigFileUsed(); used != "" {
				appInstance.Logger.Debug("using config file", zap.String("path", used))
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Shuts services down after the subcommand returns.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., $HOME/.newsimg, /etc/newsimg)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().String("metrics-addr", "",
		"serve Prometheus metrics and health checks on this address while running")
	_ = viper.BindPFlag("logging.development", cmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("metrics.addr", cmd.PersistentFlags().Lookup("metrics-addr"))

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newDownloadCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "newsimg:", err)
		os.Exit(1)
	}
}

// resolveApp pulls the App injected by the root command hook out of
// the context.
func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
