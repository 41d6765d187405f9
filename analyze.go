package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/project"
)

var analyzeCmd = &cobra.Command{
	Use:          "analyze [path...]",
	Short:        "Analyse the PHP files below the given paths and print the issues",
	RunE:         runAnalyze,
	SilenceUsage: true,
}

var (
	outputFormat *string
	artifactsDir *string
)

func init() {
	outputFormat = analyzeCmd.Flags().StringP("format", "f", "text", "output format: text or json")
	artifactsDir = analyzeCmd.Flags().String("artifacts", "", "directory receiving the inferred types of every file as JSON")
}

func openProject(cmd *cobra.Command) (*project.Project, error) {
	p, err := project.Open(*rootPath)
	if err != nil {
		return nil, fmt.Errorf("could not open project: %w", err)
	}
	configureLogging(p.Config)

	if err := p.Index(cmd.Context()); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("could not index project: %w", err)
	}
	return p, nil
}

// targetFiles resolves the command arguments to PHP files; no arguments
// select the whole project.
func targetFiles(p *project.Project, args []string) ([]string, error) {
	if len(args) == 0 {
		return p.Scanner.Files()
	}
	var files []string
	for _, arg := range args {
		target, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("could not get absolute path of target: %w", err)
		}
		found, err := p.Scanner.FilesIn(target)
		if err != nil {
			return nil, fmt.Errorf("could not scan %s: %w", arg, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if *outputFormat != "text" && *outputFormat != "json" {
		return fmt.Errorf("unknown format %q", *outputFormat)
	}

	p, err := openProject(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	files, err := targetFiles(p, args)
	if err != nil {
		return err
	}

	results, err := p.AnalyzeFiles(cmd.Context(), files)
	if err != nil {
		return err
	}

	if *artifactsDir != "" {
		if err := writeArtifacts(p.Root, *artifactsDir, results); err != nil {
			return err
		}
	}

	issues := project.Issues(results)
	if err := printIssues(cmd, p.Root, issues); err != nil {
		return err
	}

	for _, r := range results {
		for _, e := range r.Errors {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: internal error: %v\n", r.Path, e)
		}
	}

	errorCount := 0
	for _, i := range issues {
		if i.Level == issue.Error {
			errorCount++
		}
	}
	if errorCount > 0 {
		return fmt.Errorf("found %d errors", errorCount)
	}
	return nil
}

func printIssues(cmd *cobra.Command, root string, issues []issue.Issue) error {
	out := cmd.OutOrStdout()
	if *outputFormat == "json" {
		data, err := issue.JSON(issues)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	for _, i := range issues {
		if rel, err := filepath.Rel(root, i.File); err == nil {
			i.File = rel
		}
		_, _ = fmt.Fprintln(out, i.String())
	}
	_, _ = fmt.Fprintf(out, "%d issues\n", len(issues))
	return nil
}

// writeArtifacts stores the artifact table of every result below dir,
// mirroring the project layout.
func writeArtifacts(root, dir string, results []project.FileResult) error {
	for _, r := range results {
		rel, err := filepath.Rel(root, r.Path)
		if err != nil {
			rel = filepath.Base(r.Path)
		}
		data, err := r.Table.JSON(r.File)
		if err != nil {
			return fmt.Errorf("could not encode artifacts of %s: %w", rel, err)
		}
		target := filepath.Join(dir, rel+".json")
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("could not create artifacts dir: %w", err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("could not write artifacts: %w", err)
		}
	}
	return nil
}
