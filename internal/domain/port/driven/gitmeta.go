package driven

import "context"

// GitMeta defines the driven port for local git metadata queries. All
// implementations are expected to fail fast (seconds, not minutes) since the
// repository is on local disk.
type GitMeta interface {
	// RepoRoot returns the absolute path of the working tree root.
	RepoRoot(ctx context.Context) (string, error)

	// HeadCommit returns the SHA of the current HEAD commit.
	HeadCommit(ctx context.Context) (string, error)

	// RemoteRepo returns the owner and repository name parsed from the origin
	// remote URL.
	RemoteRepo(ctx context.Context) (owner, repo string, err error)
}
