package jira

import (
	"context"
	"net/url"
	"strings"
)

type SearchOptions struct {
	StartAt int
	// MaxResults limits the number of issues returned.
	// Zero or less returns every matching issue.
	MaxResults int
	// Fields lists the fields to return; empty means all navigable fields.
	Fields []string
	Expand []string
}

// SearchIssues returns issues matching the JQL query,
// requesting further pages as needed.
func (c *Client) SearchIssues(ctx context.Context, jql string, opts *SearchOptions) ([]Issue, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	q := url.Values{"jql": {jql}}
	if len(opts.Fields) > 0 {
		q.Set("fields", strings.Join(opts.Fields, ","))
	}
	if len(opts.Expand) > 0 {
		q.Set("expand", strings.Join(opts.Expand, ","))
	}
	raw, err := c.collect(ctx, c.url(apiREST, "search"), q, "issues", opts.StartAt, opts.MaxResults)
	if err != nil {
		return nil, err
	}
	return decodeList[Issue](raw, KindIssue)
}

// ProjectIssues returns every issue in the project key.
func (c *Client) ProjectIssues(ctx context.Context, key string) ([]Issue, error) {
	return c.SearchIssues(ctx, "project = "+quoteJQL(key), nil)
}

func quoteJQL(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
