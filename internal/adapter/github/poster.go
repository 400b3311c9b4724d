package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dfarrell/patchreview/internal/httpretry"
	"github.com/dfarrell/patchreview/internal/logging"
	"github.com/dfarrell/patchreview/internal/usecase/review"
)

// Poster publishes reviews to a pull request.
type Poster struct {
	client *Client
	owner  string
	repo   string
	number int
	logger logging.Logger
}

// NewPoster constructs a pull request review poster.
func NewPoster(client *Client, owner, repo string, number int, logger logging.Logger) *Poster {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Poster{client: client, owner: owner, repo: repo, number: number, logger: logger}
}

// Post publishes the review. When GitHub rejects the inline comments (stale
// anchors, permissions), every comment is folded into the summary body and
// the review is posted again with no inline comments, so feedback is never
// dropped.
func (p *Poster) Post(ctx context.Context, req review.PostRequest) (review.PostResult, error) {
	resp, err := p.client.CreateReview(ctx, p.owner, p.repo, p.number, createReviewRequest{
		Event:    "COMMENT",
		Body:     req.Body,
		Comments: apiComments(req.Comments),
	})
	if err == nil {
		return review.PostResult{
			ReviewURL:    resp.HTMLURL,
			InlinePosted: len(req.Comments),
		}, nil
	}

	if len(req.Comments) == 0 || !isInlineRejection(err) {
		return review.PostResult{}, err
	}

	p.logger.Warn("inline comments rejected, retrying with promoted body", map[string]interface{}{
		"comments": len(req.Comments),
		"cause":    err.Error(),
	})

	resp, err = p.client.CreateReview(ctx, p.owner, p.repo, p.number, createReviewRequest{
		Event: "COMMENT",
		Body:  promoteComments(req.Body, req.Comments),
	})
	if err != nil {
		return review.PostResult{}, fmt.Errorf("post promoted review: %w", err)
	}
	return review.PostResult{
		ReviewURL:    resp.HTMLURL,
		BulkPromoted: true,
	}, nil
}

// isInlineRejection reports whether the failure is a validation error, the
// class GitHub returns when a comment anchor is not part of the diff.
func isInlineRejection(err error) bool {
	var httpErr *httpretry.Error
	return errors.As(err, &httpErr) && httpErr.Type == httpretry.ErrTypeInvalidRequest
}

func apiComments(comments []review.InlineComment) []reviewComment {
	out := make([]reviewComment, 0, len(comments))
	for _, c := range comments {
		out = append(out, reviewComment{
			Path: c.Path,
			Line: c.Line,
			Side: "RIGHT",
			Body: c.Body,
		})
	}
	return out
}

// promoteComments folds the would-be inline comments into the summary body.
func promoteComments(body string, comments []review.InlineComment) string {
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n### Inline findings\n\n")
	b.WriteString("These could not be attached to the diff directly:\n\n")
	for _, c := range comments {
		fmt.Fprintf(&b, "`%s:%d`\n\n%s\n\n", c.Path, c.Line, c.Body)
	}
	return b.String()
}
