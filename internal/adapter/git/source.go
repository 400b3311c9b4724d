// Package git provides a change source backed by a local repository, for
// reviewing branches that have no pull request yet.
package git

import (
	"context"
	"fmt"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/dfarrell/patchreview/internal/domain"
)

// Source produces a reviewable change from two refs of a local repository.
type Source struct {
	repoDir string
	baseRef string
	headRef string
}

// NewSource constructs a local change source. headRef may be empty, in
// which case the checked-out branch is used.
func NewSource(repoDir, baseRef, headRef string) *Source {
	return &Source{repoDir: repoDir, baseRef: baseRef, headRef: headRef}
}

// Fetch computes the diff between the base and head refs.
func (s *Source) Fetch(ctx context.Context) (domain.Change, error) {
	repo, err := goGit.PlainOpenWithOptions(s.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return domain.Change{}, fmt.Errorf("open repo: %w", err)
	}

	headRef := s.headRef
	if headRef == "" {
		headRef, err = currentBranch(repo)
		if err != nil {
			return domain.Change{}, err
		}
	}

	baseCommit, err := resolveCommit(repo, s.baseRef)
	if err != nil {
		return domain.Change{}, fmt.Errorf("resolve base ref %s: %w", s.baseRef, err)
	}
	headCommit, err := resolveCommit(repo, headRef)
	if err != nil {
		return domain.Change{}, fmt.Errorf("resolve head ref %s: %w", headRef, err)
	}

	patch, err := baseCommit.PatchContext(ctx, headCommit)
	if err != nil {
		return domain.Change{}, fmt.Errorf("compute patch: %w", err)
	}

	diffText := patch.String()
	title, body := splitCommitMessage(headCommit.Message)

	change := domain.Change{
		Title:      title,
		Body:       body,
		BaseBranch: s.baseRef,
		HeadBranch: headRef,
		DiffText:   diffText,
	}
	change.Files = changedPaths(patch)
	change.ChangedFiles = len(change.Files)
	change.Additions, change.Deletions = countLineChanges(diffText)
	return change, nil
}

func currentBranch(repo *goGit.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if name := head.Name(); name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

// resolveCommit tries the ref as given, then as a local branch, then as a
// remote-tracking branch.
func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

func changedPaths(patch *object.Patch) []string {
	paths := make([]string, 0, len(patch.FilePatches()))
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		switch {
		case to != nil:
			paths = append(paths, to.Path())
		case from != nil:
			paths = append(paths, from.Path())
		}
	}
	return paths
}

func countLineChanges(diffText string) (additions, deletions int) {
	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}

func splitCommitMessage(message string) (title, body string) {
	title, body, _ = strings.Cut(message, "\n")
	return strings.TrimSpace(title), strings.TrimSpace(body)
}
