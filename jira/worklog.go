package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Worklog struct {
	Resource
	ID               string    `json:"id"`
	IssueID          string    `json:"issueId"`
	Author           User      `json:"author"`
	Comment          string    `json:"comment"`
	Started          time.Time `json:"started"`
	TimeSpent        string    `json:"timeSpent"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
}

func (w *Worklog) UnmarshalJSON(b []byte) error {
	type alias Worklog
	aux := &struct {
		Started string `json:"started"`
		*alias
	}{
		alias: (*alias)(w),
	}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	var err error
	w.Started, err = parseTime(aux.Started)
	if err != nil {
		return fmt.Errorf("parse started time: %w", err)
	}
	return nil
}

func (c *Client) Worklogs(ctx context.Context, key string) ([]Worklog, error) {
	return getList[Worklog](ctx, c, c.url(apiREST, "issue/"+key+"/worklog"), nil, "worklogs", KindWorklog)
}

func (c *Client) Worklog(ctx context.Context, key, id string) (*Worklog, error) {
	var w Worklog
	if err := c.get(ctx, c.url(apiREST, "issue/"+key+"/worklog/"+id), nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// EstimateOptions controls how the remaining estimate of an issue
// changes when work is logged or deleted.
type EstimateOptions struct {
	// Adjust is one of "new", "leave", "manual" or "auto".
	// Empty means auto.
	Adjust string
	// NewEstimate is the new remaining estimate, such as "2d",
	// used when Adjust is "new".
	NewEstimate string
	// ReduceBy is used when Adjust is "manual" while adding work.
	ReduceBy string
	// IncreaseBy is used when Adjust is "manual" while deleting work.
	IncreaseBy string
}

func (o EstimateOptions) params() url.Values {
	q := url.Values{}
	if o.Adjust != "" {
		q.Set("adjustEstimate", o.Adjust)
	}
	if o.NewEstimate != "" {
		q.Set("newEstimate", o.NewEstimate)
	}
	if o.ReduceBy != "" {
		q.Set("reduceBy", o.ReduceBy)
	}
	if o.IncreaseBy != "" {
		q.Set("increaseBy", o.IncreaseBy)
	}
	return q
}

type WorklogOptions struct {
	TimeSpent  string // such as "3h 20m"
	Comment    string
	Started    time.Time // defaults to now
	Visibility *Visibility
	Estimate   EstimateOptions
}

func (c *Client) AddWorklog(ctx context.Context, key string, opts WorklogOptions) (*Worklog, error) {
	if opts.TimeSpent == "" {
		return nil, fmt.Errorf("add worklog to %s: no time spent", key)
	}
	started := opts.Started
	if started.IsZero() {
		started = time.Now()
	}
	body := map[string]any{
		"timeSpent": opts.TimeSpent,
		"started":   started.Format(timestamp),
	}
	if opts.Comment != "" {
		body["comment"] = opts.Comment
	}
	if opts.Visibility != nil {
		body["visibility"] = opts.Visibility
	}
	var w Worklog
	u := c.url(apiREST, "issue/"+key+"/worklog")
	if err := c.call(ctx, http.MethodPost, u, opts.Estimate.params(), body, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) DeleteWorklog(ctx context.Context, key, id string, est EstimateOptions) error {
	u := c.url(apiREST, "issue/"+key+"/worklog/"+id)
	return c.call(ctx, http.MethodDelete, u, est.params(), nil, nil)
}

type Watchers struct {
	Resource
	IsWatching bool   `json:"isWatching"`
	Count      int    `json:"watchCount"`
	Watchers   []User `json:"watchers"`
}

func (c *Client) Watchers(ctx context.Context, key string) (*Watchers, error) {
	var w Watchers
	if err := c.get(ctx, c.url(apiREST, "issue/"+key+"/watchers"), nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// AddWatcher adds user, a username or account ID, to the watchers of issue key.
func (c *Client) AddWatcher(ctx context.Context, key, user string) error {
	b, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, c.url(apiREST, "issue/"+key+"/watchers"), nil, b, nil)
}

func (c *Client) RemoveWatcher(ctx context.Context, key, user string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "issue/"+key+"/watchers"), c.userParams(user), nil, nil)
}

type Votes struct {
	Resource
	Votes    int    `json:"votes"`
	HasVoted bool   `json:"hasVoted"`
	Voters   []User `json:"voters"`
}

func (c *Client) Votes(ctx context.Context, key string) (*Votes, error) {
	var v Votes
	if err := c.get(ctx, c.url(apiREST, "issue/"+key+"/votes"), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) AddVote(ctx context.Context, key string) error {
	return c.call(ctx, http.MethodPost, c.url(apiREST, "issue/"+key+"/votes"), nil, nil, nil)
}

func (c *Client) RemoveVote(ctx context.Context, key string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "issue/"+key+"/votes"), nil, nil, nil)
}
