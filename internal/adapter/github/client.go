// Package github talks to the GitHub pull request API: it fetches the
// change under review and publishes the finished review.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dfarrell/patchreview/internal/httpretry"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	apiVersion     = "2022-11-28"
	serviceName    = "github"
)

// Client is an HTTP client for the GitHub pull request API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  httpretry.Config
}

// NewClient creates a client authenticated with a personal access token or
// the Actions-provided GITHUB_TOKEN.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf:  httpretry.DefaultConfig(),
	}
}

// SetBaseURL sets a custom base URL (GHE installs, tests).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// SetRetryConfig overrides the default retry policy.
func (c *Client) SetRetryConfig(conf httpretry.Config) {
	c.retryConf = conf
}

// GetPullRequest fetches pull request metadata.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (pullRequest, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)

	var pr pullRequest
	body, err := c.do(ctx, http.MethodGet, url, nil, "application/vnd.github+json")
	if err != nil {
		return pullRequest{}, err
	}
	if err := json.Unmarshal(body, &pr); err != nil {
		return pullRequest{}, fmt.Errorf("parse pull request: %w", err)
	}
	return pr, nil
}

// GetDiff fetches the pull request's unified diff.
func (c *Client) GetDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)
	body, err := c.do(ctx, http.MethodGet, url, nil, "application/vnd.github.diff")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// CreateReview posts a review with optional inline comments. The returned
// error wraps *httpretry.Error, so callers can inspect the failure class.
func (c *Client) CreateReview(ctx context.Context, owner, repo string, number int, req createReviewRequest) (createReviewResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return createReviewResponse{}, fmt.Errorf("marshal review: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.baseURL, owner, repo, number)
	body, err := c.do(ctx, http.MethodPost, url, jsonData, "application/vnd.github+json")
	if err != nil {
		return createReviewResponse{}, err
	}

	var resp createReviewResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return createReviewResponse{}, fmt.Errorf("parse review response: %w", err)
	}
	return resp, nil
}

// do executes one API call with retry and returns the response body.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, accept string) ([]byte, error) {
	var body []byte

	err := httpretry.Do(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, url, reader)
		if reqErr != nil {
			return &httpretry.Error{
				Type:    httpretry.ErrTypeUnknown,
				Message: reqErr.Error(),
				Service: serviceName,
			}
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", accept)
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, callErr := c.httpClient.Do(req)
		if callErr != nil {
			return &httpretry.Error{
				Type:      httpretry.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Service:   serviceName,
			}
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return &httpretry.Error{
				Type:      httpretry.ErrTypeUnknown,
				Message:   fmt.Sprintf("HTTP %d (failed to read response: %v)", resp.StatusCode, readErr),
				Retryable: resp.StatusCode >= 500,
				Service:   serviceName,
			}
		}
		if resp.StatusCode >= 400 {
			return mapHTTPError(resp.StatusCode, respBody)
		}

		body = respBody
		return nil
	}, c.retryConf)

	if err != nil {
		return nil, err
	}
	return body, nil
}
