package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shopware/phpflow/internal/project"
)

var watchCmd = &cobra.Command{
	Use:          "watch",
	Short:        "Analyse the project and print the issues of every file that changes",
	RunE:         runWatch,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	files, err := p.Scanner.Files()
	if err != nil {
		return err
	}
	if err := reportFiles(ctx, cmd, p, files); err != nil {
		return err
	}

	p.Scanner.SetOnUpdate(func(changed []string) {
		var existing []string
		for _, path := range changed {
			if _, err := os.Stat(path); err == nil {
				existing = append(existing, path)
			}
		}
		if err := reportFiles(ctx, cmd, p, existing); err != nil {
			_, _ = cmd.ErrOrStderr().Write([]byte(err.Error() + "\n"))
		}
	})
	if err := p.Scanner.StartWatcher(); err != nil {
		return err
	}

	<-ctx.Done()
	p.Scanner.StopWatcher()
	return nil
}

func reportFiles(ctx context.Context, cmd *cobra.Command, p *project.Project, files []string) error {
	if len(files) == 0 {
		return nil
	}
	results, err := p.AnalyzeFiles(ctx, files)
	if err != nil {
		return err
	}
	return printIssues(cmd, p.Root, project.Issues(results))
}
