package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/docretrieve/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		source  string
		lines   int
		follow  bool
		level   string
		pattern string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Tail docretrieve's structured logs",
		Long: `Tail the JSON logs written to ~/.docretrieve/logs/: ingest.log by
'docretrieve ingest', server.log by 'docretrieve serve' and the other
commands (source: server, ingest, or all).`,
		Example: `  docretrieve logs --source ingest -n 50
  docretrieve logs --source all --follow
  docretrieve logs --level error --pattern "timeout"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, source, lines, follow, level, pattern, noColor)
		},
	}

	cmd.Flags().StringVar(&source, "source", "server", "log source: server, ingest, or all")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new log lines as they are written")
	cmd.Flags().StringVar(&level, "level", "", "filter by minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "filter lines matching this regular expression")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func runLogs(cmd *cobra.Command, sourceFlag string, lines int, follow bool, level, pattern string, noColor bool) error {
	src := logging.ParseLogSource(sourceFlag)

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid --pattern: %w", err)
		}
	}

	paths, err := logging.FindLogFileBySource(src, "")
	if err != nil {
		return err
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:      level,
		Pattern:    re,
		NoColor:    noColor,
		ShowSource: src == logging.LogSourceAll,
	}, cmd.OutOrStdout())

	entries, err := viewer.TailMultiple(paths, lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return followLogs(ctx, viewer, paths)
}

func followLogs(ctx context.Context, viewer *logging.Viewer, paths []string) error {
	ch := make(chan logging.LogEntry, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.FollowMultiple(ctx, paths, ch)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-ch:
			if !ok {
				return <-errCh
			}
			viewer.Print([]logging.LogEntry{entry})
		}
	}
}
