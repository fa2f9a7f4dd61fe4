package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run ingestion whenever a configured root changes",
		Long: `Watch every configured root for filesystem changes and re-trigger a
full 'docretrieve ingest' run after a debounce window, so a long-running
docretrieve deployment stays current without a cron job.

This watches directories non-recursively per root; roots with nested
subdirectories should list each subdirectory that needs to be watched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period after a change before re-ingesting")
	return cmd
}

func runWatch(cmd *cobra.Command, debounce time.Duration) error {
	rc, err := loadRetrievalContext()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := rc.Config
	if len(cfg.Roots) == 0 {
		return fmt.Errorf("no roots configured; nothing to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range cfg.Roots {
		if err := watcher.Add(root.Path); err != nil {
			return fmt.Errorf("watching %s: %w", root.Path, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "watching %d root(s), debounce=%s\n", len(cfg.Roots), debounce)

	ingestOnce := func() {
		stats, err := runOneIngest(cmd.Context(), rc)
		if err != nil {
			slog.Error("watch-triggered ingest failed", slog.String("error", err.Error()))
			fmt.Fprintf(cmd.OutOrStdout(), "ingest failed: %s\n", err)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ingest complete: %d chunks emitted\n", stats.ChunksEmitted)
	}

	var timer *time.Timer
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			slog.Debug("filesystem event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.AfterFunc(debounce, ingestOnce)
			} else {
				timer.Reset(debounce)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", slog.String("error", werr.Error()))
		}
	}
}
