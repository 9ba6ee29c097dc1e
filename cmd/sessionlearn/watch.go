package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessionlearn/internal/reflection"
	"github.com/fyrsmithlabs/sessionlearn/internal/watch"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &transcriptOptions{}

	cmd := &cobra.Command{
		Use:   "watch <transcript>",
		Short: "Reflect on a transcript every time it changes",
		Long: `Watch a transcript file and reflect on it after each burst of writes.

Runs are idempotent: learnings already in the store are never appended
again, so only what is new since the last run is recorded. The quiet period
is watch.debounce (default 2s). Stop with Ctrl-C.

Examples:
  # Follow the current session
  sessionlearn watch ~/.claude/projects/myproject/3f1c.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := a.newSession(ctx)
			if err != nil {
				return err
			}

			path := args[0]
			out := cmd.OutOrStdout()
			w, err := watch.New(path, func(ctx context.Context) error {
				loaded, err := loadTranscript(cmd, path, opts.inputFormat)
				if err != nil {
					return err
				}
				summary, err := reflectOnce(ctx, a, session, loaded, opts.sessionID)
				if err != nil {
					return err
				}
				fmt.Fprint(out, reflection.FormatSummary(summary, root.format))
				return nil
			},
				watch.WithDebounce(a.cfg.Watch.Debounce.Duration()),
				watch.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
	opts.register(cmd)
	return cmd
}
