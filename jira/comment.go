package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Comment struct {
	Resource
	ID           string    `json:"id"`
	Body         string    `json:"body"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
	Author       User      `json:"author"`
	UpdateAuthor User      `json:"updateAuthor"`
}

func (c *Comment) UnmarshalJSON(b []byte) error {
	type alias Comment
	aux := &struct {
		Created string `json:"created"`
		Updated string `json:"updated"`
		*alias
	}{
		alias: (*alias)(c),
	}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	var err error
	c.Created, err = parseTime(aux.Created)
	if err != nil {
		return fmt.Errorf("parse created time: %w", err)
	}
	c.Updated, err = parseTime(aux.Updated)
	if err != nil {
		return fmt.Errorf("parse updated time: %w", err)
	}
	return nil
}

// Visibility restricts who may read a comment or worklog.
type Visibility struct {
	Type  string `json:"type"` // "group" or "role"
	Value string `json:"value"`
}

type CommentOptions struct {
	Visibility *Visibility
	// Internal hides the comment from service desk customers.
	Internal bool
	// Quiet suppresses notifications when a comment is updated.
	Quiet bool
}

func (o CommentOptions) body(text string) map[string]any {
	body := make(map[string]any)
	if text != "" {
		body["body"] = text
	}
	if o.Visibility != nil {
		body["visibility"] = o.Visibility
	}
	if o.Internal {
		body["properties"] = []any{
			map[string]any{"key": "sd.public.comment", "value": map[string]any{"internal": true}},
		}
	}
	return body
}

func expandParams(expand []string) url.Values {
	if len(expand) == 0 {
		return nil
	}
	return url.Values{"expand": {strings.Join(expand, ",")}}
}

func (c *Client) Comments(ctx context.Context, key string, expand ...string) ([]Comment, error) {
	return getList[Comment](ctx, c, c.url(apiREST, "issue/"+key+"/comment"), expandParams(expand), "comments", KindComment)
}

func (c *Client) Comment(ctx context.Context, key, id string, expand ...string) (*Comment, error) {
	var cm Comment
	if err := c.get(ctx, c.url(apiREST, "issue/"+key+"/comment/"+id), expandParams(expand), &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// CheckComment reports whether the comment id exists on the issue key.
func (c *Client) CheckComment(ctx context.Context, key, id string) (bool, error) {
	return c.exists(ctx, c.url(apiREST, "issue/"+key+"/comment/"+id))
}

func (c *Client) AddComment(ctx context.Context, key, text string, opts CommentOptions) (*Comment, error) {
	var cm Comment
	u := c.url(apiREST, "issue/"+key+"/comment")
	if err := c.call(ctx, http.MethodPost, u, nil, opts.body(text), &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// UpdateComment edits the comment id on the issue key.
// An empty text leaves the comment's body unchanged.
func (c *Client) UpdateComment(ctx context.Context, key, id, text string, opts CommentOptions) (*Comment, error) {
	var params url.Values
	if opts.Quiet {
		params = url.Values{"notifyUsers": {"false"}}
	}
	var cm Comment
	u := c.url(apiREST, "issue/"+key+"/comment/"+id)
	if err := c.call(ctx, http.MethodPut, u, params, opts.body(text), &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *Client) DeleteComment(ctx context.Context, key, id string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "issue/"+key+"/comment/"+id), nil, nil, nil)
}

// PinnedComment is a comment pinned to the top of an issue.
type PinnedComment struct {
	Resource
	Comment  Comment   `json:"comment"`
	PinnedBy User      `json:"pinnedBy"`
	PinnedAt time.Time `json:"-"`
}

func (p *PinnedComment) UnmarshalJSON(b []byte) error {
	type alias PinnedComment
	aux := &struct {
		PinnedDate string `json:"pinnedDate"`
		*alias
	}{
		alias: (*alias)(p),
	}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	var err error
	p.PinnedAt, err = parseTime(aux.PinnedDate)
	return err
}

func (c *Client) PinnedComments(ctx context.Context, key string) ([]PinnedComment, error) {
	return getList[PinnedComment](ctx, c, c.url(apiREST, "issue/"+key+"/pinned-comments"), nil, "", KindPinnedComment)
}

// PinComment pins or unpins the comment id on the issue key.
func (c *Client) PinComment(ctx context.Context, key, id string, pin bool) error {
	u := c.url(apiREST, "issue/"+key+"/comment/"+id+"/pin")
	return c.call(ctx, http.MethodPut, u, nil, []byte(fmt.Sprint(pin)), nil)
}
