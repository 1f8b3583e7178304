package jira

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// IssueLink relates two issues.
// Links embedded in an issue hold only the other end of the link.
type IssueLink struct {
	Resource
	ID           string        `json:"id"`
	Type         IssueLinkType `json:"type"`
	InwardIssue  *Issue        `json:"inwardIssue"`
	OutwardIssue *Issue        `json:"outwardIssue"`
}

// Linked returns the key of the issue at the other end of the link.
func (l *IssueLink) Linked() string {
	if l.OutwardIssue != nil {
		return l.OutwardIssue.Key
	}
	if l.InwardIssue != nil {
		return l.InwardIssue.Key
	}
	return ""
}

func (c *Client) IssueLink(ctx context.Context, id string) (*IssueLink, error) {
	var l IssueLink
	if err := c.get(ctx, c.url(apiREST, "issueLink/"+id), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateIssueLink links the issues inward and outward with the named link type,
// for example "Duplicate" or "Blocks".
func (c *Client) CreateIssueLink(ctx context.Context, typ, inward, outward string) error {
	body := map[string]any{
		"type":         map[string]any{"name": typ},
		"inwardIssue":  map[string]any{"key": inward},
		"outwardIssue": map[string]any{"key": outward},
	}
	return c.call(ctx, http.MethodPost, c.url(apiREST, "issueLink"), nil, body, nil)
}

func (c *Client) DeleteIssueLink(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "issueLink/"+id), nil, nil, nil)
}

// RemoteLink links an issue to an object in another system.
type RemoteLink struct {
	Resource
	ID           int               `json:"id"`
	GlobalID     string            `json:"globalId"`
	Relationship string            `json:"relationship"`
	Object       RemoteLinkObject  `json:"object"`
	Application  map[string]string `json:"application,omitempty"`
}

type RemoteLinkObject struct {
	URL     string            `json:"url"`
	Title   string            `json:"title"`
	Summary string            `json:"summary,omitempty"`
	Icon    *Icon             `json:"icon,omitempty"`
	Status  *RemoteLinkStatus `json:"status,omitempty"`
}

type RemoteLinkStatus struct {
	Resolved bool  `json:"resolved"`
	Icon     *Icon `json:"icon,omitempty"`
}

type Icon struct {
	URL   string `json:"url16x16,omitempty"`
	Title string `json:"title,omitempty"`
}

type RemoteLinkOptions struct {
	// GlobalID identifies the remote object.
	// Adding a link with the GlobalID of an existing link updates it.
	GlobalID     string
	Object       *RemoteLinkObject
	Application  map[string]string // "type" and "name"
	Relationship string
}

func (o RemoteLinkOptions) body() (map[string]any, error) {
	if o.Object == nil || o.Object.URL == "" || o.Object.Title == "" {
		return nil, errors.New("remote link: object with url and title required")
	}
	body := map[string]any{"object": o.Object}
	if o.GlobalID != "" {
		body["globalId"] = o.GlobalID
	}
	if len(o.Application) > 0 {
		body["application"] = o.Application
	}
	if o.Relationship != "" {
		body["relationship"] = o.Relationship
	}
	return body, nil
}

func (c *Client) RemoteLinks(ctx context.Context, key string) ([]RemoteLink, error) {
	return getList[RemoteLink](ctx, c, c.url(apiREST, "issue/"+key+"/remotelink"), nil, "", KindRemoteLink)
}

func (c *Client) RemoteLink(ctx context.Context, key, id string) (*RemoteLink, error) {
	var l RemoteLink
	if err := c.get(ctx, c.url(apiREST, "issue/"+key+"/remotelink/"+id), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// AddRemoteLink adds or updates a remote link on the issue key.
func (c *Client) AddRemoteLink(ctx context.Context, key string, opts RemoteLinkOptions) (*RemoteLink, error) {
	body, err := opts.body()
	if err != nil {
		return nil, err
	}
	var created struct {
		ID   int    `json:"id"`
		Self string `json:"self"`
	}
	if err := c.call(ctx, http.MethodPost, c.url(apiREST, "issue/"+key+"/remotelink"), nil, body, &created); err != nil {
		return nil, err
	}
	return c.RemoteLink(ctx, key, strconv.Itoa(created.ID))
}

func (c *Client) UpdateRemoteLink(ctx context.Context, key, id string, opts RemoteLinkOptions) error {
	body, err := opts.body()
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, c.url(apiREST, "issue/"+key+"/remotelink/"+id), nil, body, nil)
}

func (c *Client) DeleteRemoteLink(ctx context.Context, key, id string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "issue/"+key+"/remotelink/"+id), nil, nil, nil)
}

type IssueProperty struct {
	Resource
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (c *Client) IssuePropertyKeys(ctx context.Context, key string) ([]string, error) {
	var resp struct {
		Keys []struct {
			Key string `json:"key"`
		} `json:"keys"`
	}
	if err := c.get(ctx, c.url(apiREST, "issue/"+key+"/properties"), nil, &resp); err != nil {
		return nil, err
	}
	keys := make([]string, len(resp.Keys))
	for i := range resp.Keys {
		keys[i] = resp.Keys[i].Key
	}
	return keys, nil
}

func (c *Client) IssueProperty(ctx context.Context, key, prop string) (*IssueProperty, error) {
	var p IssueProperty
	u := c.url(apiREST, "issue/"+key+"/properties/"+prop)
	if err := c.get(ctx, u, nil, &p); err != nil {
		return nil, err
	}
	// The server omits self for properties.
	p.Self = u
	p.Kind = KindIssueProperty
	return &p, nil
}

func (c *Client) SetIssueProperty(ctx context.Context, key, prop string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPut, c.url(apiREST, "issue/"+key+"/properties/"+prop), nil, b, nil)
}

func (c *Client) DeleteIssueProperty(ctx context.Context, key, prop string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "issue/"+key+"/properties/"+prop), nil, nil, nil)
}
