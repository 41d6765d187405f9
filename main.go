package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "phpflow [subcommand]",
	Short:        "Flow sensitive type analysis for PHP projects",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Setup(os.Stderr)
	},
}

var (
	rootPath *string
	verbose  *bool
)

func init() {
	rootPath = rootCmd.PersistentFlags().StringP("root", "r", ".", "project root holding phpflow.yaml")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "write debug output of every section")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// configureLogging applies the log settings of the project config; the
// verbose flag wins over them.
func configureLogging(cfg config.Config) {
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	log.EnableSections(cfg.LogSections...)
	if *verbose {
		log.SetLevel(slog.LevelDebug)
		log.EnableSections("analyzer", "formula", "php")
	}
}
