package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/internal/reflection"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the learnings in the memory store",
		Long: `List the learnings in the memory store, oldest first.

Examples:
  # Show every entry
  sessionlearn list

  # Only corrections, as JSON
  sessionlearn list --category correction --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			var filter learning.Category
			if category != "" {
				var ok bool
				if filter, ok = learning.ParseCategory(category); !ok {
					return fmt.Errorf("%w: %s", learning.ErrUnknownCategory, category)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			entries, err := a.store.LoadAll(ctx)
			if err != nil {
				return err
			}
			if filter != "" {
				entries = filterCategory(entries, filter)
			}

			return printEntries(cmd.OutOrStdout(), entries, root.format)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list one category: correction, approved_pattern, or observation")
	return cmd
}

func filterCategory(entries []learning.LearningEntry, c learning.Category) []learning.LearningEntry {
	out := make([]learning.LearningEntry, 0, len(entries))
	for _, e := range entries {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

type listOutput struct {
	Entries    []learning.LearningEntry   `json:"entries"`
	Statistics reflection.StoreStatistics `json:"statistics"`
}

func printEntries(w io.Writer, entries []learning.LearningEntry, format string) error {
	stats := reflection.CalculateStatistics(entries)

	switch format {
	case reflection.FormatJSON:
		if entries == nil {
			entries = []learning.LearningEntry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listOutput{Entries: entries, Statistics: stats})

	case reflection.FormatMarkdown:
		fmt.Fprintf(w, "# Learnings\n\n%s\n\n", stats)
		for _, e := range entries {
			fmt.Fprintf(w, "- **%s** %s: %s (%s)\n", e.Confidence, e.Category.Label(), e.Title, e.Date.Format(learning.DateLayout))
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No learnings found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCONFIDENCE\tCATEGORY\tTITLE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Date.Format(learning.DateLayout),
			e.Confidence,
			e.Category.Label(),
			truncate(e.Title, 60),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n", stats)
	return nil
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
