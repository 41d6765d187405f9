package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopware/phpflow/internal/lsp"
	"github.com/shopware/phpflow/internal/project"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the language server on stdin and stdout",
	RunE:         runServe,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
}

func runServe(cmd *cobra.Command, args []string) error {
	server := lsp.NewServer(func(root string) (*project.Project, error) {
		p, err := project.Open(root)
		if err != nil {
			return nil, err
		}
		configureLogging(p.Config)
		return p, nil
	})

	if err := server.Start(os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("LSP server error: %w", err)
	}
	return nil
}
