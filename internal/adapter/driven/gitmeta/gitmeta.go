// Package gitmeta implements the GitMeta port by shelling out to git.
package gitmeta

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/myk-org/prreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitMeta = (*Provider)(nil)

// remotePattern matches the owner/repo tail of both SSH and HTTPS GitHub
// remote URLs, with or without a .git suffix.
var remotePattern = regexp.MustCompile(`[:/]([^/:]+)/([^/:]+?)(\.git)?$`)

// Provider queries git metadata from the local repository. Commands run with
// a short timeout since the repository is on local disk; a hung git command
// should fail the query, not the process.
type Provider struct {
	dir     string
	timeout time.Duration
}

// NewProvider creates a Provider running git commands in dir. A zero timeout
// defaults to 5 seconds.
func NewProvider(dir string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Provider{dir: dir, timeout: timeout}
}

// RepoRoot returns the absolute path of the working tree root.
func (p *Provider) RepoRoot(ctx context.Context) (string, error) {
	return p.git(ctx, "rev-parse", "--show-toplevel")
}

// HeadCommit returns the SHA of the current HEAD commit.
func (p *Provider) HeadCommit(ctx context.Context) (string, error) {
	return p.git(ctx, "rev-parse", "HEAD")
}

// RemoteRepo returns the owner and repository name parsed from the origin
// remote URL. Both git@github.com:owner/repo.git and
// https://github.com/owner/repo forms are handled.
func (p *Provider) RemoteRepo(ctx context.Context) (string, string, error) {
	remote, err := p.git(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", "", err
	}

	return parseRemote(remote)
}

func parseRemote(remote string) (string, string, error) {
	m := remotePattern.FindStringSubmatch(remote)
	if m == nil {
		return "", "", fmt.Errorf("cannot parse owner/repo from remote URL %q", remote)
	}

	return m[1], m[2], nil
}

func (p *Provider) git(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = p.dir

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return strings.TrimSpace(string(out)), nil
}
