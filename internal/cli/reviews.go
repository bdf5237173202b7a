package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	githubadapter "github.com/myk-org/prreview/internal/adapter/driven/github"
	"github.com/myk-org/prreview/internal/adapter/driven/gitmeta"
	sqliteadapter "github.com/myk-org/prreview/internal/adapter/driven/sqlite"
	"github.com/myk-org/prreview/internal/application"
	"github.com/myk-org/prreview/internal/domain/port/driven"
	"github.com/myk-org/prreview/internal/workfile"
)

var (
	flagFetchOwner string
	flagFetchRepo  string
	flagFetchPR    int
	flagFetchOut   string
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Fetch, post, and store PR review comments",
}

var reviewsFetchCmd = &cobra.Command{
	Use:   "fetch [review_url]",
	Short: "Fetch unresolved review threads into a working file",
	Long: "Fetch the PR's unresolved review threads, classify them by source and\n" +
		"priority, auto-skip repeats of previously dismissed comments, and write the\n" +
		"working JSON file for the decide/post steps.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReviewsFetch,
}

var reviewsPostCmd = &cobra.Command{
	Use:   "post <json_path>",
	Short: "Post replies and resolve threads from a decided working file",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewsPost,
}

var reviewsStoreCmd = &cobra.Command{
	Use:   "store <json_path>",
	Short: "Persist a finished run into the history database",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewsStore,
}

func init() {
	reviewsFetchCmd.Flags().StringVar(&flagFetchOwner, "owner", "", "repository owner (default: detected from origin remote)")
	reviewsFetchCmd.Flags().StringVar(&flagFetchRepo, "repo", "", "repository name (default: detected from origin remote)")
	reviewsFetchCmd.Flags().IntVar(&flagFetchPR, "pr", 0, "pull request number")
	reviewsFetchCmd.Flags().StringVar(&flagFetchOut, "out", "", "working file path (default: pr-<n>-comments.json)")

	reviewsCmd.AddCommand(reviewsFetchCmd)
	reviewsCmd.AddCommand(reviewsPostCmd)
	reviewsCmd.AddCommand(reviewsStoreCmd)
}

func runReviewsFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, repo, pr := flagFetchOwner, flagFetchRepo, flagFetchPR
	var reviewID int64

	if len(args) == 1 {
		ref, err := application.ParseReviewURL(args[0])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		owner, repo, pr, reviewID = ref.Owner, ref.Repo, ref.PRNumber, ref.ReviewID
	}

	if owner == "" || repo == "" {
		git := gitmeta.NewProvider(".", cfg.GitTimeout)
		detectedOwner, detectedRepo, err := git.RemoteRepo(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\nUse --owner and --repo to specify manually.\n", err)
			exitCode = ExitUsageError
			return nil
		}
		if owner == "" {
			owner = detectedOwner
		}
		if repo == "" {
			repo = detectedRepo
		}
	}

	if pr == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error: --pr is required when no review URL is given")
		exitCode = ExitUsageError
		return nil
	}

	client, err := newThreadClient()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitUsageError
		return nil
	}

	// History is optional here: with no database yet, auto-skip simply has
	// nothing to match against.
	store, closeStore := openHistoryReadOnly()
	defer closeStore()

	svc := application.NewFetchService(client, application.NewCategorizer(store))

	f, err := svc.Fetch(ctx, owner, repo, pr, reviewID)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}

	outPath := flagFetchOut
	if outPath == "" {
		outPath = fmt.Sprintf("pr-%d-comments.json", pr)
	}
	f.Metadata.JSONPath = outPath

	if err := f.Save(outPath); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}

	slog.Info("working file written",
		"path", outPath,
		"human", len(f.Human),
		"qodo", len(f.Qodo),
		"coderabbit", len(f.Coderabbit),
	)
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"json_path":  outPath,
		"human":      len(f.Human),
		"qodo":       len(f.Qodo),
		"coderabbit": len(f.Coderabbit),
	})
}

func runReviewsPost(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	f, err := workfile.Load(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitUsageError
		return nil
	}

	client, err := newThreadClient()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitUsageError
		return nil
	}

	report, err := application.NewPostService(client).Post(ctx, f, path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}

	if printErr := printJSON(cmd.OutOrStdout(), report); printErr != nil {
		return printErr
	}

	if report.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d comment(s) failed; re-run the same command to retry the unresolved subset.\n", report.Failed)
		exitCode = ExitFailure
	}
	return nil
}

func runReviewsStore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	f, err := workfile.Load(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitUsageError
		return nil
	}

	dbPath, err := resolveDBPath()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}

	db, err := sqliteadapter.NewDB(dbPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}
	defer db.Close()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}

	commitSHA := ""
	if sha, err := gitmeta.NewProvider(".", cfg.GitTimeout).HeadCommit(ctx); err != nil {
		slog.Warn("head commit unavailable, storing without commit sha", "error", err)
	} else {
		commitSHA = sha
	}

	svc := application.NewStoreService(sqliteadapter.NewHistoryRepo(db))
	reviewID, count, err := svc.Store(ctx, f, path, commitSHA)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		exitCode = ExitFailure
		return nil
	}

	slog.Info("review run stored", "review_id", reviewID, "comments", count, "db", dbPath)
	return printJSON(cmd.OutOrStdout(), map[string]any{"review_id": reviewID, "comments": count})
}

// newThreadClient builds the GitHub client, failing when no token is
// configured.
func newThreadClient() (driven.ThreadClient, error) {
	if cfg.GitHubToken == "" {
		return nil, errors.New("no GitHub token configured (set PRREVIEW_GITHUB_TOKEN or GITHUB_TOKEN)")
	}
	return githubadapter.NewClient(cfg.GitHubToken, cfg.RemoteTimeout), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
