package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GitLabProject mirrors the fields of /api/v4/projects we care about.
type GitLabProject struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	PathWithNamespace string  `json:"path_with_namespace"`
	WebURL            string  `json:"web_url"`
	HTTPURLToRepo     string  `json:"http_url_to_repo"`
	DefaultBranch     *string `json:"default_branch"`
}

type GitLabBranch struct {
	Name string `json:"name"`
}

// GitLabClient queries the GitLab REST API v4 with a private token.
type GitLabClient struct {
	base  string
	token string
	http  *resty.Client
}

func NewGitLabClient(baseURL, token string) *GitLabClient {
	return &GitLabClient{
		base:  normalizeBaseURL(baseURL),
		token: strings.TrimSpace(token),
		http:  resty.New().SetTimeout(30 * time.Second),
	}
}

// normalizeBaseURL strips trailing slashes and an /api/v4 suffix so users
// can paste either form.
func normalizeBaseURL(url string) string {
	s := strings.TrimRight(strings.TrimSpace(url), "/")
	return strings.TrimSuffix(s, "/api/v4")
}

// ListProjects returns projects the token holder is a member of. A
// non-empty search filters server-side by name/path.
func (c *GitLabClient) ListProjects(search string) ([]GitLabProject, error) {
	var projects []GitLabProject
	req := c.http.R().
		SetHeader("PRIVATE-TOKEN", c.token).
		SetQueryParam("membership", "true").
		SetQueryParam("per_page", "100").
		SetResult(&projects)
	if s := strings.TrimSpace(search); s != "" {
		req.SetQueryParam("search", s)
	}
	resp, err := req.Get(c.base + "/api/v4/projects")
	if err != nil {
		return nil, fmt.Errorf("gitlab projects: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gitlab API error: %s: %s", resp.Status(), resp.String())
	}
	return projects, nil
}

// ListBranches lists a project's repository branches by project ID.
func (c *GitLabClient) ListBranches(projectID int64) ([]GitLabBranch, error) {
	var branches []GitLabBranch
	resp, err := c.http.R().
		SetHeader("PRIVATE-TOKEN", c.token).
		SetQueryParam("per_page", "100").
		SetResult(&branches).
		Get(fmt.Sprintf("%s/api/v4/projects/%d/repository/branches", c.base, projectID))
	if err != nil {
		return nil, fmt.Errorf("gitlab branches: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gitlab API error: %s: %s", resp.Status(), resp.String())
	}
	return branches, nil
}

// CloneURLWithToken embeds the token into an HTTP clone URL so git clone
// can authenticate without prompting.
func (c *GitLabClient) CloneURLWithToken(httpURL string) string {
	if c.token == "" {
		return httpURL
	}
	if rest, ok := strings.CutPrefix(httpURL, "https://"); ok {
		return fmt.Sprintf("https://oauth2:%s@%s", c.token, rest)
	}
	if rest, ok := strings.CutPrefix(httpURL, "http://"); ok {
		return fmt.Sprintf("http://oauth2:%s@%s", c.token, rest)
	}
	return httpURL
}
