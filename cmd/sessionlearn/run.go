package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessionlearn/internal/conversation"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
	"github.com/fyrsmithlabs/sessionlearn/internal/reflection"
)

// transcriptOptions selects how a transcript is read.
type transcriptOptions struct {
	inputFormat string
	sessionID   string
}

func (o *transcriptOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.inputFormat, "input-format", string(conversation.FormatAuto), "transcript format: auto, json, or jsonl")
	cmd.Flags().StringVar(&o.sessionID, "session-id", "", "session ID for logs (defaults to the transcript's)")
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &transcriptOptions{}

	cmd := &cobra.Command{
		Use:   "run <transcript>",
		Short: "Reflect on a transcript now",
		Long: `Reflect on a transcript and append new learnings to the memory store.

The transcript is a JSON array of {"role", "text"} turns or a Claude Code
JSONL session file. Use - to read a JSON array from stdin.

Examples:
  # Reflect on a session file
  sessionlearn run ~/.claude/projects/myproject/3f1c.jsonl

  # Pipe a JSON transcript and print the summary as JSON
  cat transcript.json | sessionlearn run - --format json

  # Use a project store
  sessionlearn run transcript.json --store .sessionlearn/learnings.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			session, err := a.newSession(ctx)
			if err != nil {
				return err
			}

			loaded, err := loadTranscript(cmd, args[0], opts.inputFormat)
			if err != nil {
				return err
			}

			summary, err := reflectOnce(ctx, a, session, loaded, opts.sessionID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), reflection.FormatSummary(summary, root.format))

			if len(summary.Failed) > 0 {
				return fmt.Errorf("%d new learnings could not be saved to %s", len(summary.Failed), a.store.Path())
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// loadTranscript reads the transcript at path, or a JSON array from stdin
// when path is "-".
func loadTranscript(cmd *cobra.Command, path, format string) (*conversation.Loaded, error) {
	f, err := conversation.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	if path == "-" {
		if f == conversation.FormatJSONL {
			return nil, fmt.Errorf("stdin accepts only the json format")
		}
		transcript, err := conversation.DecodeJSON(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript from stdin: %w", err)
		}
		return &conversation.Loaded{Transcript: transcript, Format: conversation.FormatJSON}, nil
	}

	loaded, err := conversation.Load(path, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %s: %w", path, err)
	}
	return loaded, nil
}

// reflectOnce runs one reflection over a loaded transcript and exports
// metrics.
func reflectOnce(ctx context.Context, a *app, session *reflection.Session, loaded *conversation.Loaded, sessionID string) (*reflection.Summary, error) {
	if sessionID == "" {
		sessionID = loaded.SessionID
	}
	if logging.ValidID(sessionID) {
		ctx = logging.WithSessionID(ctx, sessionID)
	}

	if loaded.ErrorCount > 0 {
		a.logger.Warn(ctx, "skipped unreadable transcript lines",
			zap.Int("count", loaded.ErrorCount),
			zap.String("format", string(loaded.Format)),
		)
	}

	summary, runErr := session.Run(ctx, loaded.Transcript)
	if err := a.writeMetrics(); err != nil {
		a.logger.Warn(ctx, "metrics export failed", zap.Error(err))
	}
	if runErr != nil {
		return nil, runErr
	}
	return summary, nil
}
