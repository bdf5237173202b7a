package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/myk-org/prreview/internal/adapter/driven/sqlite"
	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
	"github.com/myk-org/prreview/internal/similarity"
)

var (
	flagDBPath    string
	flagDBJSON    bool
	flagBySource  bool
	flagByRev     bool
	flagDismOwner string
	flagDismRepo  string
	flagSimOwner  string
	flagSimRepo   string
	flagSimThresh float64
	flagPatMin    int
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Query the local review-history database",
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate comment outcomes by source or reviewer",
	Args:  cobra.NoArgs,
	RunE:  runDBStats,
}

var dbDismissedCmd = &cobra.Command{
	Use:   "dismissed",
	Short: "List historical dismissed comments for a repository",
	Args:  cobra.NoArgs,
	RunE:  runDBDismissed,
}

var dbFindSimilarCmd = &cobra.Command{
	Use:   "find-similar",
	Short: "Find the best dismissed match for a comment read from stdin",
	Long: "Reads a JSON object {\"path\": ..., \"body\": ...} from standard input and\n" +
		"prints the highest-scoring dismissed comment at that path, if any clears the\n" +
		"threshold.",
	Args: cobra.NoArgs,
	RunE: runDBFindSimilar,
}

var dbQueryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a single read-only SQL statement against the history database",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBQuery,
}

var dbPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Report recurring dismissed-comment clusters",
	Args:  cobra.NoArgs,
	RunE:  runDBPatterns,
}

func init() {
	dbCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "history database path (default: auto-located from the repository root)")
	dbCmd.PersistentFlags().BoolVar(&flagDBJSON, "json", false, "emit JSON instead of a table")

	dbStatsCmd.Flags().BoolVar(&flagBySource, "by-source", false, "group by comment source (default)")
	dbStatsCmd.Flags().BoolVar(&flagByRev, "by-reviewer", false, "group by comment author")

	dbDismissedCmd.Flags().StringVar(&flagDismOwner, "owner", "", "repository owner")
	dbDismissedCmd.Flags().StringVar(&flagDismRepo, "repo", "", "repository name")
	_ = dbDismissedCmd.MarkFlagRequired("owner")
	_ = dbDismissedCmd.MarkFlagRequired("repo")

	dbFindSimilarCmd.Flags().StringVar(&flagSimOwner, "owner", "", "repository owner")
	dbFindSimilarCmd.Flags().StringVar(&flagSimRepo, "repo", "", "repository name")
	dbFindSimilarCmd.Flags().Float64Var(&flagSimThresh, "threshold", similarity.DefaultThreshold, "minimum similarity score")
	_ = dbFindSimilarCmd.MarkFlagRequired("owner")
	_ = dbFindSimilarCmd.MarkFlagRequired("repo")

	dbPatternsCmd.Flags().IntVar(&flagPatMin, "min", 2, "minimum cluster size to report")

	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbDismissedCmd)
	dbCmd.AddCommand(dbFindSimilarCmd)
	dbCmd.AddCommand(dbQueryCmd)
	dbCmd.AddCommand(dbPatternsCmd)
}

// resolveDBPath picks the history database path: explicit flag, then env
// config, then auto-location from the repository root.
func resolveDBPath() (string, error) {
	if flagDBPath != "" {
		return flagDBPath, nil
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return sqliteadapter.LocateDefault(".")
}

// openHistoryReadOnly opens the history store for reading. A missing database
// is normal (no history yet) and yields a nil store; callers must handle nil.
func openHistoryReadOnly() (driven.ReviewStore, func()) {
	dbPath, err := resolveDBPath()
	if err != nil {
		slog.Warn("cannot locate history database", "error", err)
		return nil, func() {}
	}

	db, err := sqliteadapter.OpenReadOnly(dbPath)
	if err != nil {
		if !errors.Is(err, sqliteadapter.ErrNoDatabase) {
			slog.Warn("cannot open history database", "error", err)
		}
		return nil, func() {}
	}

	return sqliteadapter.NewHistoryRepo(db), func() { _ = db.Close() }
}

func runDBStats(cmd *cobra.Command, args []string) error {
	// Validate flags before touching the database.
	if flagByRev && flagBySource {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error: --by-source and --by-reviewer are mutually exclusive")
		exitCode = ExitUsageError
		return nil
	}

	store, closeStore := openHistoryReadOnly()
	defer closeStore()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if flagByRev {
		var stats []model.ReviewerStats
		if store != nil {
			var err error
			stats, err = store.StatsByReviewer(ctx)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				exitCode = ExitFailure
				return nil
			}
		}
		if flagDBJSON {
			if stats == nil {
				return printJSON(out, []any{})
			}
			return printJSON(out, stats)
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AUTHOR\tTOTAL\tADDRESSED\tNOT ADDRESSED\tSKIPPED\tRATE")
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", s.Author, s.Total, s.Addressed, s.NotAddressed, s.Skipped, s.AddressedRate())
		}
		return w.Flush()
	}

	var stats []model.SourceStats
	if store != nil {
		var err error
		stats, err = store.StatsBySource(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitFailure
			return nil
		}
	}
	if flagDBJSON {
		type sourceRow struct {
			Source        string `json:"source"`
			Total         int    `json:"total"`
			Addressed     int    `json:"addressed"`
			NotAddressed  int    `json:"not_addressed"`
			Skipped       int    `json:"skipped"`
			AddressedRate string `json:"addressed_rate"`
		}
		rows := make([]sourceRow, 0, len(stats))
		for _, s := range stats {
			rows = append(rows, sourceRow{
				Source:        string(s.Source),
				Total:         s.Total,
				Addressed:     s.Addressed,
				NotAddressed:  s.NotAddressed,
				Skipped:       s.Skipped,
				AddressedRate: s.AddressedRate(),
			})
		}
		return printJSON(out, rows)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTOTAL\tADDRESSED\tNOT ADDRESSED\tSKIPPED\tRATE")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", s.Source, s.Total, s.Addressed, s.NotAddressed, s.Skipped, s.AddressedRate())
	}
	return w.Flush()
}

func runDBDismissed(cmd *cobra.Command, args []string) error {
	store, closeStore := openHistoryReadOnly()
	defer closeStore()

	out := cmd.OutOrStdout()

	var comments []model.Comment
	if store != nil {
		var err error
		comments, err = store.GetDismissedComments(context.Background(), flagDismOwner, flagDismRepo)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitFailure
			return nil
		}
	}

	if flagDBJSON {
		if comments == nil {
			return printJSON(out, []any{})
		}
		return printJSON(out, comments)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tLINE\tSTATUS\tREASON\tBODY")
	for _, c := range comments {
		body := c.Body
		if len(body) > 60 {
			body = body[:60] + "..."
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", c.Path, c.Line, c.Status, c.SkipReason, body)
	}
	return w.Flush()
}

func runDBFindSimilar(cmd *cobra.Command, args []string) error {
	var input struct {
		Path string `json:"path"`
		Body string `json:"body"`
	}
	if err := json.NewDecoder(os.Stdin).Decode(&input); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: invalid input JSON: %v\n", err)
		exitCode = ExitUsageError
		return nil
	}
	if input.Path == "" || input.Body == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error: input must contain non-empty path and body")
		exitCode = ExitUsageError
		return nil
	}

	store, closeStore := openHistoryReadOnly()
	defer closeStore()

	if store == nil {
		return printJSON(cmd.OutOrStdout(), nil)
	}

	match, err := store.FindSimilarComment(context.Background(), flagSimOwner, flagSimRepo, input.Path, input.Body, flagSimThresh)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}

	return printJSON(cmd.OutOrStdout(), match)
}

func runDBQuery(cmd *cobra.Command, args []string) error {
	store, closeStore := openHistoryReadOnly()
	defer closeStore()

	if store == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error: no history database found")
		exitCode = ExitFailure
		return nil
	}

	result, err := store.Query(context.Background(), args[0])
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		if errors.Is(err, sqliteadapter.ErrUnsafeQuery) {
			exitCode = ExitUsageError
		} else {
			exitCode = ExitFailure
		}
		return nil
	}

	if flagDBJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for i, col := range result.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
	for _, row := range result.Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprintf(w, "%v", v)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runDBPatterns(cmd *cobra.Command, args []string) error {
	store, closeStore := openHistoryReadOnly()
	defer closeStore()

	out := cmd.OutOrStdout()

	var patterns []model.DuplicatePattern
	if store != nil {
		var err error
		patterns, err = store.DuplicatePatterns(context.Background(), flagPatMin)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitFailure
			return nil
		}
	}

	if flagDBJSON {
		if patterns == nil {
			return printJSON(out, []any{})
		}
		return printJSON(out, patterns)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tOCCURRENCES\tREASON\tEXAMPLE")
	for _, p := range patterns {
		example := p.Example
		if len(example) > 60 {
			example = example[:60] + "..."
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.Path, p.Occurrences, p.Reason, example)
	}
	return w.Flush()
}
