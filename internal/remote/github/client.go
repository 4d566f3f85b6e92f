// Package github is a thin client for the git-hosted contents API the engine
// mirrors articles into.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors callers branch on. Everything else is a transport error.
var (
	// ErrNotFound means the remote file or folder does not exist.
	ErrNotFound = errors.New("remote file not found")
	// ErrStaleToken means the concurrency token no longer matches the remote
	// file. The caller may re-fetch the current token and retry once.
	ErrStaleToken = errors.New("stale concurrency token")
	// ErrAuth means the stored credential was rejected.
	ErrAuth = errors.New("remote authentication failed")
)

// Config binds a client to one repository and branch.
type Config struct {
	APIBaseURL string
	Owner      string
	Repo       string
	Branch     string
	Timeout    time.Duration
}

// File is a remote file snapshot: decoded body plus its concurrency token.
type File struct {
	Path    string
	Content []byte
	SHA     string
	HTMLURL string
}

// PutResult reports a successful create or update.
type PutResult struct {
	SHA         string
	HTMLURL     string
	CommittedAt time.Time
}

// Entry is one child of a remote folder listing.
type Entry struct {
	Path string
	SHA  string
	Type string
}

// Client talks to the contents API with a per-user bearer token. It carries a
// bounded timeout and no retry loop; the only retry in the system is the
// caller's single re-fetch after ErrStaleToken.
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	branch     string
	token      string
	logger     *slog.Logger
}

// New creates a client for one user's token. The token is never logged.
func New(cfg Config, token string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.APIBaseURL,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		branch:     cfg.Branch,
		token:      token,
		logger:     logger.With("repo", cfg.Owner+"/"+cfg.Repo),
	}
}

// Branch returns the branch the client writes to.
func (c *Client) Branch() string {
	return c.branch
}

// Get fetches a file and its concurrency token. Returns ErrNotFound on 404.
func (c *Client) Get(ctx context.Context, path string) (*File, error) {
	var file contentResponse
	if err := c.do(ctx, http.MethodGet, c.contentsURL(path), nil, &file); err != nil {
		return nil, err
	}

	decoded, err := base64.StdEncoding.DecodeString(removeNewlines(file.Content))
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", path, err)
	}

	return &File{
		Path:    file.Path,
		Content: decoded,
		SHA:     file.SHA,
		HTMLURL: file.HTMLURL,
	}, nil
}

// Put creates (empty sha) or updates (sha required) a file and returns the
// new concurrency token. A mismatched sha surfaces as ErrStaleToken.
func (c *Client) Put(ctx context.Context, path string, content []byte, sha, message string) (*PutResult, error) {
	body := putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     sha,
	}

	var resp commitResponse
	if err := c.do(ctx, http.MethodPut, c.contentsURL(path), body, &resp); err != nil {
		return nil, err
	}
	if resp.Content == nil {
		return nil, fmt.Errorf("commit response for %s carried no content", path)
	}

	committedAt, _ := time.Parse(time.RFC3339, resp.Commit.Committer.Date)
	if committedAt.IsZero() {
		committedAt = time.Now().UTC()
	}

	return &PutResult{
		SHA:         resp.Content.SHA,
		HTMLURL:     resp.Content.HTMLURL,
		CommittedAt: committedAt,
	}, nil
}

// Delete removes a file. The sha must match the current remote state.
func (c *Client) Delete(ctx context.Context, path, sha, message string) error {
	body := deleteRequest{
		Message: message,
		SHA:     sha,
		Branch:  c.branch,
	}
	return c.do(ctx, http.MethodDelete, c.contentsURL(path), body, nil)
}

// ListFolder enumerates the direct children of a folder.
func (c *Client) ListFolder(ctx context.Context, path string) ([]Entry, error) {
	var listing []contentResponse
	if err := c.do(ctx, http.MethodGet, c.contentsURL(path), nil, &listing); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(listing))
	for _, item := range listing {
		entries = append(entries, Entry{Path: item.Path, SHA: item.SHA, Type: item.Type})
	}
	return entries, nil
}

// LastModified returns the committer date of the most recent commit touching
// path. The contents API itself does not expose modification times.
func (c *Client) LastModified(ctx context.Context, path string) (time.Time, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/commits?path=%s&sha=%s&per_page=1",
		c.baseURL, c.owner, c.repo, url.QueryEscape(path), url.QueryEscape(c.branch))

	var commits []commitListEntry
	if err := c.do(ctx, http.MethodGet, u, nil, &commits); err != nil {
		return time.Time{}, err
	}
	if len(commits) == 0 {
		return time.Time{}, ErrNotFound
	}

	modified, err := time.Parse(time.RFC3339, commits[0].Commit.Committer.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse commit date for %s: %w", path, err)
	}
	return modified, nil
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, path)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return c.classifyError(method, resp)
}

func (c *Client) classifyError(method string, resp *http.Response) error {
	var apiErr errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuth, apiErr.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrStaleToken, apiErr.Message)
	case http.StatusUnprocessableEntity:
		// The API reports a sha mismatch on write as 422.
		if method == http.MethodPut || method == http.MethodDelete {
			return fmt.Errorf("%w: %s", ErrStaleToken, apiErr.Message)
		}
	}

	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Message)
}

// Some hosts wrap base64 bodies at 60 columns.
func removeNewlines(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' && s[i] != '\r' {
			buf = append(buf, s[i])
		}
	}
	return string(buf)
}
