// Package reflection runs the session-learning pipeline over one transcript:
// load the memory store, extract candidates, drop duplicates, format, scrub
// secrets and append what is new.
//
// # Usage
//
//	store, _ := memorystore.NewFileStore("~/.claude/memory/learnings.md")
//	session := reflection.NewSession(store,
//	    reflection.WithLogger(logger),
//	    reflection.WithMetrics(reflection.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	summary, err := session.Run(ctx, transcript)
//	fmt.Print(reflection.FormatSummary(summary, "text"))
//
// # Failure handling
//
// A store that cannot be read aborts the run before anything is appended.
// A candidate that fails formatting or secret scanning is skipped, and an
// entry that fails to append is reported as failed; in both cases the run
// continues. The Summary always lists skipped and failed items, and says
// "nothing new found" when no entry was appended.
package reflection
