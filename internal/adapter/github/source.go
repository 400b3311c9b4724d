package github

import (
	"context"
	"fmt"

	"github.com/dfarrell/patchreview/internal/diff"
	"github.com/dfarrell/patchreview/internal/domain"
)

// Source fetches a pull request as the change under review.
type Source struct {
	client *Client
	owner  string
	repo   string
	number int
}

// NewSource constructs a pull request change source.
func NewSource(client *Client, owner, repo string, number int) *Source {
	return &Source{client: client, owner: owner, repo: repo, number: number}
}

// Fetch retrieves the pull request metadata and its unified diff.
func (s *Source) Fetch(ctx context.Context) (domain.Change, error) {
	pr, err := s.client.GetPullRequest(ctx, s.owner, s.repo, s.number)
	if err != nil {
		return domain.Change{}, fmt.Errorf("fetch pull request %s/%s#%d: %w", s.owner, s.repo, s.number, err)
	}

	diffText, err := s.client.GetDiff(ctx, s.owner, s.repo, s.number)
	if err != nil {
		return domain.Change{}, fmt.Errorf("fetch diff %s/%s#%d: %w", s.owner, s.repo, s.number, err)
	}

	files := diff.Parse(diffText)
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Filename)
	}

	return domain.Change{
		Title:        pr.Title,
		Body:         pr.Body,
		BaseBranch:   pr.Base.Ref,
		HeadBranch:   pr.Head.Ref,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
		Files:        paths,
		DiffText:     diffText,
	}, nil
}
